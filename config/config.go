package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  int
	Environment string

	// DatabaseURL is the primary (PostgreSQL) connection string. When it is
	// empty or the server is unreachable, the embedded SQLite backend is used.
	DatabaseURL string

	// SQLitePath is the file backing the embedded fallback database.
	SQLitePath string

	// JWTSecret signs issued tokens. The server refuses to start without it.
	JWTSecret string

	// JWTExpires is the token lifetime. Configured via JWT_EXPIRES_HOURS;
	// the unit is hours, default 24.
	JWTExpires time.Duration

	// SuperAdminEmail and SuperAdminPassword seed the bootstrap account
	// when no super_admin row exists yet.
	SuperAdminEmail    string
	SuperAdminPassword string

	// CORSOrigin is the allowed browser origin in production.
	CORSOrigin string

	// GlobalRateLimit and AuthRateLimit are requests per 15 minutes per IP.
	GlobalRateLimit int
	AuthRateLimit   int
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	return Config{
		ServerPort:         getEnvInt("SERVER_PORT", 3001),
		Environment:        getEnv("ENV", "development"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "data/local.db"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpires:         time.Duration(getEnvInt("JWT_EXPIRES_HOURS", 24)) * time.Hour,
		SuperAdminEmail:    getEnv("SUPER_ADMIN_EMAIL", "admin@example.com"),
		SuperAdminPassword: getEnv("SUPER_ADMIN_PASSWORD", "Admin123"),
		CORSOrigin:         getEnv("CORS_ORIGIN", ""),
		GlobalRateLimit:    getEnvInt("RATE_LIMIT", 100),
		AuthRateLimit:      getEnvInt("AUTH_RATE_LIMIT", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}
