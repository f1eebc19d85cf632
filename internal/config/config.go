package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"contas/internal/core"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendPostgres}

type Config struct {
	// HTTP Server
	Port        string
	CORSOrigins []string
	// TrustedProxies are CIDRs whose X-Forwarded-For and X-Forwarded-Proto
	// headers are believed.
	TrustedProxies []string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string
	DatabaseURL  string

	// Legacy local-storage files migrated on first load
	LegacyDir string
	// MemorySeedDir holds seed_taxonomy.json for the memory backend
	MemorySeedDir string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleMirrorSheet        string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker
	SyncBatchSize     int
	SyncInterval      time.Duration
	RecurringInterval time.Duration

	// Auth
	JWTSecret         string
	AdminEmail        string
	AdminPasswordHash string
	SessionTTL        time.Duration

	// Company identity on backups and reports
	CompanyName string
	CompanyCNPJ string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		CORSOrigins: getEnvList("CORS_ORIGINS", nil),

		TrustedProxies: getEnvList("TRUSTED_PROXIES", nil),

		DataBackend: getEnv("DATA_BACKEND", BackendSQLite),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/contas.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		LegacyDir:    getEnv("LEGACY_DIR", ""),

		MemorySeedDir: getEnv("MEMORY_SEED_DIR", "data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "contas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_payables"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleMirrorSheet:        getEnv("GOOGLE_MIRROR_SHEET", "Contas"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		SyncBatchSize:     getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:      getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		RecurringInterval: getEnvDuration("RECURRING_INTERVAL", 24*time.Hour),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		SessionTTL:        getEnvDuration("SESSION_TTL", 12*time.Hour),

		CompanyName: getEnv("COMPANY_NAME", core.DefaultCompany.Name),
		CompanyCNPJ: getEnv("COMPANY_CNPJ", core.DefaultCompany.TaxID),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == BackendPostgres {
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if parsedURL, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", parsedURL.Scheme))
		}
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.LegacyDir != "" {
		if info, err := os.Stat(c.LegacyDir); err == nil && !info.IsDir() {
			errors = append(errors, fmt.Sprintf("legacy directory '%s' is not a directory", c.LegacyDir))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Check if the service account file exists (if specified)
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.RecurringInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 minute", c.RecurringInterval))
	}

	// Validate auth configuration
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT secret must be at least 32 characters")
	}
	if c.AdminEmail != "" {
		if !strings.Contains(c.AdminEmail, "@") {
			errors = append(errors, fmt.Sprintf("invalid admin email '%s'", c.AdminEmail))
		}
		if !strings.HasPrefix(c.AdminPasswordHash, "$2") {
			errors = append(errors, "ADMIN_PASSWORD_HASH must be a bcrypt hash when ADMIN_EMAIL is set")
		}
		if c.JWTSecret == "" {
			errors = append(errors, "JWT_SECRET is required when ADMIN_EMAIL is set")
		}
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if _, ok := parseLevel(c.LogLevel); !ok {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AuthEnabled reports whether an admin account is configured.
func (c *Config) AuthEnabled() bool {
	return c.AdminEmail != ""
}

// MirrorEnabled reports whether a Google Sheets mirror is configured.
func (c *Config) MirrorEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Company returns the organization identity stamped on exports.
func (c *Config) Company() core.Company {
	return core.Company{Name: c.CompanyName, TaxID: c.CompanyCNPJ}
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
