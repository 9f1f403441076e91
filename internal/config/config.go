package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable; every variable except the signing secret ships with a
// documented default so a dev instance starts with only ACCESS_TOKEN_SECRET set.
type Config struct {
	Env            string   // application environment ("dev", "prod")
	Port           string   // HTTP port to listen on
	DBUser         string   // database username
	DBPass         string   // database password (optional)
	DBHost         string   // database host address
	DBPort         string   // database port number
	DBName         string   // database name
	AccessSecret   string   // secret used to sign access tokens
	AccessTTLMin   int      // access token time-to-live in minutes
	RefreshTTLDays int      // refresh token time-to-live in days
	BcryptCost     int      // bcrypt cost for password hashing
	CORSOrigin     string   // allowed CORS origin for the browser client
	BackendURL     string   // base URL of the backend data service
	TenantPrefix   string   // prefix combined with the subject id to form the tenant header
	ProxyPrefixes  []string // path prefixes forwarded to the backend
}

// Load reads a .env file when one is present, then builds a Config from the
// environment. The signing secret is the only hard requirement; a missing
// secret exits with a fatal log message.
func Load() Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           getenv("APP_PORT", "5001"),
		DBUser:         getenv("DB_USER", "fintraq"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         getenv("DB_HOST", "127.0.0.1"),
		DBPort:         getenv("DB_PORT", "3306"),
		DBName:         getenv("DB_NAME", "fintraq"),
		AccessSecret:   must("ACCESS_TOKEN_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		CORSOrigin:     getenv("CORS_ORIGIN", "http://localhost:3000"),
		BackendURL:     getenv("BACKEND_URL", "http://127.0.0.1:8000"),
		TenantPrefix:   getenv("TENANT_DB_PREFIX", "fintraq_"),
		ProxyPrefixes:  splitList(getenv("PROXY_PREFIXES", "/api/categories,/api/transactions")),
	}
}

// IsProd reports whether the service runs in production mode. Cookie security
// flags key off this.
func (c Config) IsProd() bool { return strings.EqualFold(c.Env, "prod") }

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
