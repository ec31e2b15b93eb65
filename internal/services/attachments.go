package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	MaxAttachments     = 3
	MaxAttachmentBytes = 5 << 20
	attachmentDirPerm  = 0o750
	attachmentFilePerm = 0o640
)

var attachmentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Upload is a file received with a report submission.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func validateUploads(uploads []Upload) error {
	if len(uploads) > MaxAttachments {
		return invalid("attachments", fmt.Sprintf("You can attach at most %d files.", MaxAttachments))
	}
	for _, u := range uploads {
		if u.Size > MaxAttachmentBytes {
			return invalid("attachments", fmt.Sprintf("%s is larger than 5 MB.", filepath.Base(u.Filename)))
		}
		if _, ok := attachmentTypes[normalizeContentType(u.ContentType)]; !ok {
			return invalid("attachments", "Only JPEG, PNG, WebP images and PDF files can be attached.")
		}
	}
	return nil
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// AttachmentStorage keeps report attachments on local disk under
// server-generated names. Original filenames are only kept in the database.
type AttachmentStorage struct {
	dir string
}

func NewAttachmentStorage(dir string) *AttachmentStorage {
	return &AttachmentStorage{dir: dir}
}

// Save copies the upload to disk and returns the stored filename.
func (s *AttachmentStorage) Save(u Upload) (string, error) {
	if err := os.MkdirAll(s.dir, attachmentDirPerm); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := strings.ToLower(ulid.Make().String()) + attachmentTypes[normalizeContentType(u.ContentType)]

	src, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(s.Path(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, attachmentFilePerm)
	if err != nil {
		return "", fmt.Errorf("create attachment: %w", err)
	}
	if _, err := io.Copy(dst, io.LimitReader(src, MaxAttachmentBytes+1)); err != nil {
		dst.Close()
		os.Remove(s.Path(name))
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(s.Path(name))
		return "", fmt.Errorf("close attachment: %w", err)
	}
	return name, nil
}

// Path resolves a stored filename. Names are generated by Save, so any path
// separator means the name did not come from us.
func (s *AttachmentStorage) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *AttachmentStorage) Remove(names ...string) {
	for _, n := range names {
		os.Remove(s.Path(n))
	}
}
