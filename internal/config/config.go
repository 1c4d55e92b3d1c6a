package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Sheets   SheetsConfig
	Auth     AuthConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SheetsConfig locates the source spreadsheet and the service account key.
// The key is read from CredentialsJSON when set, else from CredentialsFile.
type SheetsConfig struct {
	CredentialsFile string
	CredentialsJSON string
	SpreadsheetName string
	SpreadsheetID   string
	WorksheetName   string
	FetchTimeout    time.Duration
	ParseWorkers    int
}

// AuthConfig points at the bcrypt credential store. Users holds inline
// "name:hash" pairs and takes precedence over UsersFile.
type AuthConfig struct {
	UsersFile    string
	Users        []string
	SessionTTL   time.Duration
	CookieName   string
	CookieSecure bool
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableCSRF      bool
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Sheets: SheetsConfig{
			CredentialsFile: getEnvString("GOOGLE_SHEETS_CREDENTIALS_FILE", "credentials.json"),
			CredentialsJSON: os.Getenv("GOOGLE_SHEETS_CREDENTIALS"),
			SpreadsheetName: getEnvString("GOOGLE_SHEETS_SPREADSHEET_NAME", "data"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"),
			WorksheetName:   os.Getenv("GOOGLE_SHEETS_WORKSHEET"),
			FetchTimeout:    getEnvDuration("GOOGLE_SHEETS_FETCH_TIMEOUT", 20*time.Second),
			ParseWorkers:    getEnvInt("GOOGLE_SHEETS_PARSE_WORKERS", 4),
		},
		Auth: AuthConfig{
			UsersFile:    getEnvString("AUTH_USERS_FILE", "users.htpasswd"),
			Users:        getEnvStringSlice("AUTH_USERS", nil),
			SessionTTL:   getEnvDuration("AUTH_SESSION_TTL", 8*time.Hour),
			CookieName:   getEnvString("AUTH_COOKIE_NAME", "dashboard_session"),
			CookieSecure: getEnvBool("AUTH_COOKIE_SECURE", false),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableCSRF:      getEnvBool("SECURITY_CSRF_ENABLED", true),
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Sheets.SpreadsheetName == "" && c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("either a spreadsheet name or a spreadsheet ID is required")
	}

	if c.Sheets.FetchTimeout <= 0 {
		return fmt.Errorf("sheets fetch timeout must be positive")
	}

	if c.Sheets.ParseWorkers < 1 {
		return fmt.Errorf("sheets parse workers must be at least 1, got %d", c.Sheets.ParseWorkers)
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Auth.CookieName == "" {
		return fmt.Errorf("session cookie name cannot be empty")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

// LogValue keeps secrets out of the startup log line.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", c.Address()),
		slog.String("spreadsheet_name", c.Sheets.SpreadsheetName),
		slog.String("spreadsheet_id", c.Sheets.SpreadsheetID),
		slog.String("worksheet", c.Sheets.WorksheetName),
		slog.Bool("inline_key", c.Sheets.CredentialsJSON != ""),
		slog.String("key_file", c.Sheets.CredentialsFile),
		slog.String("users_file", c.Auth.UsersFile),
		slog.Int("inline_users", len(c.Auth.Users)),
		slog.String("log_level", c.Logger.Level),
		slog.Bool("rate_limit", c.Security.EnableRateLimit),
		slog.Bool("csrf", c.Security.EnableCSRF),
	)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
