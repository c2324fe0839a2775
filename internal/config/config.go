package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

// defaultAccessTokenTTL is the documented fallback (in seconds) used when
// JWT_EXPIRES cannot be parsed.
const defaultAccessTokenTTL = 3600

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Access tokens
	JWTSecret             string
	JWTIssuer             string
	JWTAudience           string
	AccessTokenTTLSeconds int

	// Refresh tokens
	RefreshTokenLength  int
	RefreshTokenTTLDays int

	// Password hashing
	BcryptCost int

	// e-Devlet OAuth2
	EdevletAuthURL      string
	EdevletTokenURL     string
	EdevletUserInfoURL  string
	EdevletClientID     string
	EdevletClientSecret string
	EdevletCallbackURL  string
	EdevletScope        string

	// Server
	Port        string
	Env         string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "randevu_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:             getEnv("JWT_SECRET", ""),
		JWTIssuer:             getEnv("JWT_ISSUER", "randevu-backend"),
		JWTAudience:           getEnv("JWT_AUDIENCE", "randevu-clients"),
		AccessTokenTTLSeconds: ParseExpires(getEnv("JWT_EXPIRES", "1d")),

		RefreshTokenLength:  getEnvInt("REFRESH_TOKEN_LENGTH", 64),
		RefreshTokenTTLDays: getEnvInt("REFRESH_TOKEN_TTL_DAYS", 7),

		BcryptCost: getEnvInt("PASSWORD_SALT_ROUNDS", 12),

		EdevletAuthURL:      getEnv("EDEVLET_AUTH_URL", ""),
		EdevletTokenURL:     getEnv("EDEVLET_TOKEN_URL", ""),
		EdevletUserInfoURL:  getEnv("EDEVLET_USERINFO_URL", ""),
		EdevletClientID:     getEnv("EDEVLET_CLIENT_ID", ""),
		EdevletClientSecret: getEnv("EDEVLET_CLIENT_SECRET", ""),
		EdevletCallbackURL:  getEnv("EDEVLET_CALLBACK_URL", ""),
		EdevletScope:        getEnv("EDEVLET_SCOPE", ""),

		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3010"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// EdevletConfigured reports whether any e-Devlet setting is present. A partial
// configuration is a startup error, checked by the federation adapter.
func (c *Config) EdevletConfigured() bool {
	return c.EdevletAuthURL != "" || c.EdevletTokenURL != "" ||
		c.EdevletClientID != "" || c.EdevletClientSecret != "" ||
		c.EdevletCallbackURL != ""
}

// EdevletScopes splits EDEVLET_SCOPE on whitespace or commas, defaulting
// to the bare openid scope.
func (c *Config) EdevletScopes() []string {
	if c.EdevletScope == "" {
		return []string{"openid"}
	}
	parts := regexp.MustCompile(`[\s,]+`).Split(c.EdevletScope, -1)
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			scopes = append(scopes, p)
		}
	}
	if len(scopes) == 0 {
		return []string{"openid"}
	}
	return scopes
}

var expiresPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseExpires converts an access-token TTL setting into seconds. Accepted
// forms are a bare integer (seconds) or an integer with an s|m|h|d suffix.
// Anything else falls back to 3600 seconds.
func ParseExpires(raw string) int {
	raw = strings.TrimSpace(strings.ToLower(raw))

	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return n
	}

	match := expiresPattern.FindStringSubmatch(raw)
	if match == nil {
		return defaultAccessTokenTTL
	}

	value, err := strconv.Atoi(match[1])
	if err != nil {
		return defaultAccessTokenTTL
	}

	switch match[2] {
	case "s":
		return value
	case "m":
		return value * 60
	case "h":
		return value * 3600
	case "d":
		return value * 86400
	}
	return defaultAccessTokenTTL
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
