package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const devSessionSecret = "secret_key_change_me"

type Config struct {
	Env            string
	Port           string
	DatabaseURL    string
	SessionSecret  string
	SessionName    string
	AdminUsername  string
	AdminEmail     string
	AdminPassword  string
	RatePerMinute  int
	RateBurst      int
	UploadDir      string
	TemplatesDir   string
	PagesDir       string
	TrustedProxies []string

	// DotEnv is true when a .env file was found and loaded.
	DotEnv bool
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	c := &Config{
		DotEnv:        godotenv.Load() == nil,
		Env:           getenv("APP_ENV", "production"),
		Port:          getenv("PORT", "8080"),
		DatabaseURL:   getenv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=safenet port=5432 sslmode=disable TimeZone=UTC"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionName:   getenv("SESSION_NAME", "safenet_session"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		RatePerMinute: getint("RATE_LIMIT_PER_MINUTE", 30),
		RateBurst:     getint("RATE_LIMIT_BURST", 10),
		UploadDir:     getenv("UPLOAD_DIR", "./uploads"),
		TemplatesDir:  getenv("TEMPLATES_DIR", "./web/templates"),
		PagesDir:      getenv("PAGES_DIR", "./web/pages"),
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.TrustedProxies = append(c.TrustedProxies, p)
			}
		}
	}
	if c.SessionSecret == "" {
		if !c.IsDevelopment() {
			return nil, errors.New("SESSION_SECRET is required outside development")
		}
		c.SessionSecret = devSessionSecret
	}
	if c.RatePerMinute <= 0 || c.RateBurst <= 0 {
		return nil, errors.New("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be positive")
	}
	return c, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
