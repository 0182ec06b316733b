package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Event     EventConfig
	HTTP      HTTPConfig
	Ledger    LedgerConfig
	Accrual   AccrualConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// EventConfig holds outbox event processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
}

// HTTPConfig tunes the HTTP server and its edge middleware.
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// LedgerConfig holds the connection settings for the external double-entry
// ledger and the structural account identifiers commands post against
type LedgerConfig struct {
	BaseURL                   string
	CallTimeout               time.Duration
	EquityLedgerIdentifier    string // ledger under which deposit accounts are created
	ClearingAccountIdentifier string // counter account for customer cash movements
	FeeIncomeAccount          string // account credited with charged fees
	InterestExpenseAccount    string // account debited for interest and dividend credits
	FallbackScanPageSize      int    // page size used when scanning accounts without an index
}

// AccrualConfig holds the daily interest accrual and dividend scheduling
// configuration
type AccrualConfig struct {
	Enabled        bool
	AlignmentHour  int    // hour of day (UTC) the daily run aligns to
	OwnerApp       string // application name registered with the beat scheduler
	BeatIdentifier string // beat name registered with the scheduler
	CheckInterval  time.Duration
}

// TelemetryConfig controls OpenTelemetry tracing for HTTP and the
// database layer.
type TelemetryConfig struct {
	Enabled           bool    // master switch for tracing
	CollectorEndpoint string  // OTLP collector address, e.g. "localhost:4317"
	SamplingRatio     float64 // fraction of traces kept, 1.0 keeps all
	ServiceName       string  // service.name resource attribute
	Insecure          bool    // plaintext collector connection, development only
	DBTraceEnabled    bool          // span per query via otelgorm
	DBLogFullSQL      bool          // record full SQL text in spans, never in production
	DBSlowQueryThresh time.Duration // queries slower than this are flagged
}

// Load reads config.toml and merges the environment over it.
// DEPOSITS_ prefixed variables win over the file, and the file wins
// over built-in defaults, so DEPOSITS_DATABASE_PASSWORD can stay out
// of the TOML entirely.
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// A missing file is fine, defaults and env vars cover everything
	}

	v.SetEnvPrefix("DEPOSITS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),

			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		Ledger: LedgerConfig{
			BaseURL:                   v.GetString("ledger.base_url"),
			CallTimeout:               v.GetDuration("ledger.call_timeout"),
			EquityLedgerIdentifier:    v.GetString("ledger.equity_ledger_identifier"),
			ClearingAccountIdentifier: v.GetString("ledger.clearing_account_identifier"),
			FeeIncomeAccount:          v.GetString("ledger.fee_income_account"),
			InterestExpenseAccount:    v.GetString("ledger.interest_expense_account"),
			FallbackScanPageSize:      v.GetInt("ledger.fallback_scan_page_size"),
		},
		Accrual: AccrualConfig{
			Enabled:        v.GetBool("accrual.enabled"),
			AlignmentHour:  v.GetInt("accrual.alignment_hour"),
			OwnerApp:       v.GetString("accrual.owner_app"),
			BeatIdentifier: v.GetString("accrual.beat_identifier"),
			CheckInterval:  v.GetDuration("accrual.check_interval"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Zero-value fields mean "not configured": they fall back to the
// matching default. A few fields have no fallback on purpose: empty
// CORS origins forbid cross-origin requests until configured, and
// Insecure / DBTraceEnabled / DBLogFullSQL stay off unless enabled.
func fallbackStr(target *string, def string) {
	if *target == "" {
		*target = def
	}
}

func fallbackInt(target *int, def int) {
	if *target == 0 {
		*target = def
	}
}

func fallbackDur(target *time.Duration, def time.Duration) {
	if *target == 0 {
		*target = def
	}
}

func applyDefaults(cfg *Config) {
	fallbackStr(&cfg.App.Name, "deposits-backend")
	fallbackStr(&cfg.App.Env, "development")
	fallbackStr(&cfg.App.Port, "8080")

	fallbackStr(&cfg.Database.Host, "localhost")
	fallbackInt(&cfg.Database.Port, 5432)
	fallbackStr(&cfg.Database.User, "postgres")
	fallbackStr(&cfg.Database.DBName, "deposits")
	fallbackStr(&cfg.Database.SSLMode, "disable")
	fallbackInt(&cfg.Database.MaxOpenConns, 25)
	fallbackInt(&cfg.Database.MaxIdleConns, 5)
	fallbackInt(&cfg.Database.ConnMaxLifetime, 60)
	fallbackInt(&cfg.Database.ConnMaxIdleTime, 30)

	fallbackStr(&cfg.Redis.Host, "localhost")
	fallbackInt(&cfg.Redis.Port, 6379)

	fallbackStr(&cfg.Log.Level, "info")
	fallbackStr(&cfg.Log.Format, "console")
	fallbackStr(&cfg.Log.Output, "stdout")

	fallbackInt(&cfg.Event.BatchSize, 100)
	fallbackDur(&cfg.Event.PollInterval, 5*time.Second)
	fallbackInt(&cfg.Event.MaxRetries, 5)
	fallbackDur(&cfg.Event.CleanupRetention, 168*time.Hour)

	fallbackDur(&cfg.HTTP.ReadTimeout, 15*time.Second)
	fallbackDur(&cfg.HTTP.WriteTimeout, 15*time.Second)
	fallbackDur(&cfg.HTTP.IdleTimeout, 60*time.Second)
	fallbackInt(&cfg.HTTP.MaxHeaderBytes, 1<<20)
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"}
	}
	fallbackInt(&cfg.HTTP.RateLimitRequests, 100)
	fallbackDur(&cfg.HTTP.RateLimitWindow, time.Minute)

	fallbackStr(&cfg.Ledger.BaseURL, "http://localhost:9090")
	fallbackDur(&cfg.Ledger.CallTimeout, 5*time.Second)
	fallbackStr(&cfg.Ledger.EquityLedgerIdentifier, "9100")
	fallbackStr(&cfg.Ledger.ClearingAccountIdentifier, "7210")
	fallbackStr(&cfg.Ledger.FeeIncomeAccount, "1300")
	fallbackStr(&cfg.Ledger.InterestExpenseAccount, "3200")
	fallbackInt(&cfg.Ledger.FallbackScanPageSize, 2000)

	fallbackStr(&cfg.Accrual.OwnerApp, cfg.App.Name)
	fallbackStr(&cfg.Accrual.BeatIdentifier, "daily-accrual")
	fallbackDur(&cfg.Accrual.CheckInterval, time.Minute)

	fallbackStr(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	fallbackStr(&cfg.Telemetry.ServiceName, "deposits-backend")
	fallbackDur(&cfg.Telemetry.DBSlowQueryThresh, 200*time.Millisecond)
}

// validate rejects settings the service cannot safely run with.
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Accrual.AlignmentHour < 0 || c.Accrual.AlignmentHour > 23 {
		return fmt.Errorf("accrual.alignment_hour must be between 0 and 23, got %d", c.Accrual.AlignmentHour)
	}

	// Rules that only bite in production
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		// A wildcard origin combined with credentials is an open door
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// Full SQL in traces would leak customer data
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
