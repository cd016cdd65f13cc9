package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret   string
	UploadDir       string
	GeoLookupURL    string
	GeoLookupOn     bool
	IdentityVerify  string
	BootstrapAdmin  bool
	BootstrapEmail  string
	BootstrapSecret string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RateLimit RateLimitConfig
}

// RateLimitConfig controls the redis-backed request limiters.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PasswordPerHour float64
	PasswordBurst   int
	ProfilePerHour  float64
	ProfileBurst    int
	RevokePerHour   float64
	RevokeBurst     int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "campus"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		AuthJWTSecret:   strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		UploadDir:       getenv("UPLOAD_DIR", "./uploads"),
		GeoLookupURL:    getenv("GEO_LOOKUP_URL", "https://ipapi.co"),
		GeoLookupOn:     getenvBool("GEO_LOOKUP_ENABLED", true),
		IdentityVerify:  strings.TrimSpace(getenv("IDENTITY_VERIFY_URL", "")),
		BootstrapAdmin:  getenvBool("BOOTSTRAP_ADMIN", false),
		BootstrapEmail:  getenv("BOOTSTRAP_ADMIN_EMAIL", "admin@campus.local"),
		BootstrapSecret: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "campus"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword: getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),

			PasswordPerHour: getenvFloat("RATE_LIMIT_PASSWORD_PER_HOUR", 5),
			PasswordBurst:   getenvInt("RATE_LIMIT_PASSWORD_BURST", 5),
			ProfilePerHour:  getenvFloat("RATE_LIMIT_PROFILE_PER_HOUR", 10),
			ProfileBurst:    getenvInt("RATE_LIMIT_PROFILE_BURST", 10),
			RevokePerHour:   getenvFloat("RATE_LIMIT_REVOKE_PER_HOUR", 20),
			RevokeBurst:     getenvInt("RATE_LIMIT_REVOKE_BURST", 20),
		},
	}
}

// IsProduction reports whether the app runs with production hardening.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
