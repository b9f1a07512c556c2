package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string
	DatabaseURL string
	CORSOrigins []string
	AdminToken  string

	// Media Store (MinIO / S3)
	MediaEndpoint  string
	MediaAccessKey string
	MediaSecretKey string
	MediaBucket    string
	MediaUseSSL    bool
	MediaPublicURL string
	MaxUploadBytes int64

	// Identity provider management API
	IdPBaseURL      string
	IdPTokenURL     string
	IdPClientID     string
	IdPClientSecret string
	IdPAudience     string
}

func Load() Config {
	return Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: getenv("DATABASE_URL", "sqlite://townhall.db"),
		CORSOrigins: splitList(getenv("CORS_ORIGIN", "*")),
		AdminToken:  getenv("ADMIN_TOKEN", ""),

		MediaEndpoint:  getenv("MEDIA_ENDPOINT", ""),
		MediaAccessKey: getenv("MEDIA_ACCESS_KEY", ""),
		MediaSecretKey: getenv("MEDIA_SECRET_KEY", ""),
		MediaBucket:    getenv("MEDIA_BUCKET", "townhall-media"),
		MediaUseSSL:    getenvBool("MEDIA_USE_SSL", false),
		MediaPublicURL: getenv("MEDIA_PUBLIC_URL", ""),
		MaxUploadBytes: int64(getenvInt("MEDIA_MAX_UPLOAD_MB", 20)) << 20,

		IdPBaseURL:      getenv("IDP_BASE_URL", ""),
		IdPTokenURL:     getenv("IDP_TOKEN_URL", ""),
		IdPClientID:     getenv("IDP_CLIENT_ID", ""),
		IdPClientSecret: getenv("IDP_CLIENT_SECRET", ""),
		IdPAudience:     getenv("IDP_AUDIENCE", ""),
	}
}

// MediaEnabled reports whether an object store is configured.
func (c Config) MediaEnabled() bool {
	return c.MediaEndpoint != ""
}

func (c Config) IdentityEnabled() bool {
	return c.IdPBaseURL != "" && c.IdPClientID != ""
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// splitList 逗号分隔
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
