package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// TrackingCodeBytes of entropy give a 32 character url-safe code.
const TrackingCodeBytes = 24

// NewTrackingCode returns an unguessable url-safe token.
func NewTrackingCode() (string, error) {
	b := make([]byte, TrackingCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// LooksLikeTrackingCode rejects input that could never be a code before it reaches the database.
func LooksLikeTrackingCode(code string) bool {
	if len(code) != base64.RawURLEncoding.EncodedLen(TrackingCodeBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(code)
	return err == nil
}

// HashIP keys the client address with the server secret so stored hashes
// cannot be reversed by brute-forcing the IPv4 space.
func HashIP(secret, ip string) string {
	if ip == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))
}
