package app

import (
	"errors"
	"strings"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	DBSchema       string
	MigrateOnStart bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// TECHHEAL_JWT_SECRET MUST be set (>= 32 bytes); startup fails otherwise.
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	CORSAllowOrigin string

	GeminiAPIKey  string
	GeminiModels  []string
	GeminiTimeout time.Duration

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string
}

const minJWTSecretBytes = 32

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("TECHHEAL_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("TECHHEAL_LOG_LEVEL", "info"),
		LogFormat: EnvString("TECHHEAL_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("TECHHEAL_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TECHHEAL_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("TECHHEAL_HTTP_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       EnvDuration("TECHHEAL_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("TECHHEAL_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("TECHHEAL_DATABASE_URL", ""),
		DBMaxConns:     EnvInt32("TECHHEAL_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("TECHHEAL_DB_MIN_CONNS", 0),
		DBSchema:       EnvString("TECHHEAL_DB_SCHEMA", "techheal"),
		MigrateOnStart: EnvBool("TECHHEAL_DB_MIGRATE", true),

		ReadinessRequireDB: EnvBool("TECHHEAL_READINESS_REQUIRE_DB", true),

		JWTSecret: EnvString("TECHHEAL_JWT_SECRET", ""),
		JWTIssuer: EnvString("TECHHEAL_JWT_ISSUER", "techheal"),
		TokenTTL:  EnvDuration("TECHHEAL_TOKEN_TTL", 30*time.Minute),

		CORSAllowOrigin: EnvString("TECHHEAL_CORS_ALLOW_ORIGIN", "*"),

		GeminiAPIKey:  EnvString("TECHHEAL_GEMINI_API_KEY", ""),
		GeminiModels:  EnvStrings("TECHHEAL_GEMINI_MODELS", nil),
		GeminiTimeout: EnvDuration("TECHHEAL_GEMINI_TIMEOUT", 30*time.Second),

		S3Endpoint:  EnvString("TECHHEAL_S3_ENDPOINT", ""),
		S3Region:    EnvString("TECHHEAL_S3_REGION", "us-east-1"),
		S3AccessKey: EnvString("TECHHEAL_S3_ACCESS_KEY", ""),
		S3SecretKey: EnvString("TECHHEAL_S3_SECRET_KEY", ""),
		S3Bucket:    EnvString("TECHHEAL_S3_BUCKET", "techheal"),
		S3PublicURL: EnvString("TECHHEAL_S3_PUBLIC_URL", ""),
	}
}

// Validate checks the invariants startup depends on. A missing or short
// signing secret is fatal: issuing unverifiable tokens is worse than not
// starting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("TECHHEAL_JWT_SECRET is required")
	}
	if len(c.JWTSecret) < minJWTSecretBytes {
		return errors.New("TECHHEAL_JWT_SECRET must be at least 32 bytes")
	}
	return nil
}
