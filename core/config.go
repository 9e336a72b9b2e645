package core

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Directory source kinds accepted by DIRECTORY_SOURCE.
const (
	DirectorySourceSheets   = "sheets"
	DirectorySourcePostgres = "postgres"
	DirectorySourceFile     = "file"
)

// Config holds runtime settings for the API process.
type Config struct {
	Port               string   // HTTP listen port (e.g., "8501")
	SessionKey         string   // Cookie signing key
	CookieSecure       bool     // Whether to set Secure flag on session cookie
	CookieSameSite     string   // SameSite policy: Strict/Lax/None
	LogDir             string   // Directory to write application logs
	LogLevel           string   // debug/info/warn/error
	AllowedOrigins     []string // allowed origins for CORS/CSRF origin check
	DirectorySource    string   // sheets | postgres | file
	SheetID            string   // spreadsheet holding the user directory
	SheetRange         string   // A1 range (usually just the tab name)
	ServiceAccountFile string   // path to service account JSON
	ServiceAccountJSON string   // inline service account JSON (wins over file)
	DatabaseURL        string   // PostgreSQL DSN for the postgres directory source
	DirectoryFile      string   // YAML file for the file directory source
	RedisURL           string   // optional; enables shared generation stats
	MaxUploadMB        int      // request body cap for uploads, in MiB (0 disables)
}

// Load populates Config from environment variables with sane defaults.
// A .env file in the working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:               firstNonEmpty(os.Getenv("PORT"), "8501"),
		SessionKey:         firstNonEmpty(os.Getenv("SESSION_KEY"), "change-this-session-key"),
		CookieSecure:       boolFromEnv("COOKIE_SECURE", false),
		CookieSameSite:     firstNonEmpty(os.Getenv("COOKIE_SAMESITE"), "Lax"),
		LogDir:             firstNonEmpty(os.Getenv("LOG_DIR"), "./logs"),
		LogLevel:           firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		AllowedOrigins:     parseCSV(os.Getenv("ALLOWED_ORIGINS")),
		DirectorySource:    strings.ToLower(firstNonEmpty(os.Getenv("DIRECTORY_SOURCE"), DirectorySourceSheets)),
		SheetID:            os.Getenv("SHEET_ID"),
		SheetRange:         firstNonEmpty(os.Getenv("SHEET_RANGE"), "Sheet1"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		DatabaseURL:        firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("POSTGRES_URL")),
		DirectoryFile:      firstNonEmpty(os.Getenv("DIRECTORY_FILE"), "./users.yaml"),
		RedisURL:           os.Getenv("REDIS_URL"),
		MaxUploadMB:        intFromEnv("MAX_UPLOAD_MB", 200),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// boolFromEnv reads a boolean from env var name, falling back to defaultVal when empty or invalid.
func boolFromEnv(name string, defaultVal bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// intFromEnv reads an int from env var name, falling back to defaultVal when empty or invalid.
func intFromEnv(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// parseCSV splits comma-separated list and trims spaces; empty entries are skipped.
func parseCSV(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
