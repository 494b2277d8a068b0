package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"arbitrage/internal/finder"
	"arbitrage/internal/matcher"
	"arbitrage/internal/models"
	"arbitrage/internal/runner"
	"arbitrage/internal/schedule"
	"arbitrage/internal/sizing"
	"arbitrage/internal/venue"
)

// Config bundles every tunable the runner needs: venue credentials, matcher/
// finder/sizing thresholds, scan cadence, and ambient settings. Zero-value
// credential fields are valid — the corresponding venue client runs in
// scan-only mode rather than aborting startup.
type Config struct {
	VenueA   venue.VenueAConfig
	VenueB   venue.VenueBConfig
	Schedule schedule.Config

	Matcher matcher.Config
	Finder  finder.Config
	Sizing  sizing.Config
	Runner  runner.Config

	DatabasePath string

	Logging LoggingConfig
}

// LoggingConfig controls pkg/utils.InitLogger.
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load builds a Config from environment variables, optionally overlaid first
// by a YAML file at yamlPath (non-secret tuning only — credentials always
// come from the environment). An empty yamlPath, or one that doesn't exist,
// is not an error: env vars and the documented defaults still apply.
func Load(yamlPath string) (*Config, error) {
	cfg := defaults()

	if yamlPath != "" {
		if err := applyYAMLOverlay(cfg, yamlPath); err != nil {
			return nil, fmt.Errorf("config: yaml overlay: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Matcher: matcher.Config{
			CryptoGateEnabled: false,
		},
		Finder: finder.Config{
			TierBounds:            models.DefaultTierBounds(),
			MinSpreadCents:        decimal.NewFromFloat(1.0),
			MinLegPriceCents:      decimal.NewFromFloat(1.0),
			MinHoursToClose:       2,
			ScheduleAllowNotFound: false,
		},
		Sizing: sizing.Config{
			MinOrderUSD:      decimal.NewFromInt(1),
			MaxTradeUSD:      decimal.NewFromInt(50),
			MaxUnitsPerTrade: 1_000_000,
		},
		Runner: runner.Config{
			SlowRefreshInterval: time.Hour,
			FastPollInterval:    5 * time.Second,
			ScanWindow:          14 * 24 * time.Hour,
			OpsListenAddr:       ":9090",
		},
		DatabasePath: "arbitrage.db",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// yamlOverlay mirrors the subset of Config that's safe to tune from a
// checked-in, non-secret file: scan window, cadence, thresholds, sizing
// caps, database path and log settings. Tier bounds are not covered.
// Credential fields have no YAML counterpart on purpose.
type yamlOverlay struct {
	MinSpreadCents   *float64       `yaml:"min_spread_cents"`
	MinLegPriceCents *float64       `yaml:"min_leg_price_cents"`
	MinHoursToClose  *float64       `yaml:"min_hours_to_close"`
	MinOrderUSD      *float64       `yaml:"min_order_usd"`
	MaxTradeUSD      *float64       `yaml:"max_trade_usd"`
	MaxUnitsPerTrade *int64         `yaml:"max_units_per_trade"`
	ScanWindow       *string        `yaml:"scan_window"`
	SlowRefresh      *string        `yaml:"slow_refresh_interval"`
	FastPoll         *string        `yaml:"fast_poll_interval"`
	CryptoEnabled    *bool          `yaml:"crypto_gate_enabled"`
	DatabasePath     *string        `yaml:"database_path"`
	LogLevel         *string        `yaml:"log_level"`
	LogFormat        *string        `yaml:"log_format"`
}

func applyYAMLOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if overlay.MinSpreadCents != nil {
		cfg.Finder.MinSpreadCents = decimal.NewFromFloat(*overlay.MinSpreadCents)
	}
	if overlay.MinLegPriceCents != nil {
		cfg.Finder.MinLegPriceCents = decimal.NewFromFloat(*overlay.MinLegPriceCents)
	}
	if overlay.MinHoursToClose != nil {
		cfg.Finder.MinHoursToClose = *overlay.MinHoursToClose
	}
	if overlay.MinOrderUSD != nil {
		cfg.Sizing.MinOrderUSD = decimal.NewFromFloat(*overlay.MinOrderUSD)
	}
	if overlay.MaxTradeUSD != nil {
		cfg.Sizing.MaxTradeUSD = decimal.NewFromFloat(*overlay.MaxTradeUSD)
	}
	if overlay.MaxUnitsPerTrade != nil {
		cfg.Sizing.MaxUnitsPerTrade = *overlay.MaxUnitsPerTrade
	}
	if overlay.ScanWindow != nil {
		d, err := time.ParseDuration(*overlay.ScanWindow)
		if err != nil {
			return fmt.Errorf("scan_window: %w", err)
		}
		cfg.Runner.ScanWindow = d
		cfg.VenueA.ScanWindow = d
		cfg.VenueB.ScanWindow = d
	}
	if overlay.SlowRefresh != nil {
		d, err := time.ParseDuration(*overlay.SlowRefresh)
		if err != nil {
			return fmt.Errorf("slow_refresh_interval: %w", err)
		}
		cfg.Runner.SlowRefreshInterval = d
	}
	if overlay.FastPoll != nil {
		d, err := time.ParseDuration(*overlay.FastPoll)
		if err != nil {
			return fmt.Errorf("fast_poll_interval: %w", err)
		}
		cfg.Runner.FastPollInterval = d
	}
	if overlay.CryptoEnabled != nil {
		cfg.Matcher.CryptoGateEnabled = *overlay.CryptoEnabled
		cfg.VenueA.CryptoEnabled = *overlay.CryptoEnabled
	}
	if overlay.DatabasePath != nil {
		cfg.DatabasePath = *overlay.DatabasePath
	}
	if overlay.LogLevel != nil {
		cfg.Logging.Level = *overlay.LogLevel
	}
	if overlay.LogFormat != nil {
		cfg.Logging.Format = *overlay.LogFormat
	}
	return nil
}

// applyEnv loads credentials and every tunable from the environment,
// overriding whatever defaults()/applyYAMLOverlay already set. Env vars
// always win — they're the only source for secrets.
func applyEnv(cfg *Config) {
	cfg.VenueA.BaseURL = getEnv("VENUE_A_BASE_URL", cfg.VenueA.BaseURL)
	cfg.VenueA.APIKeyID = getEnv("VENUE_A_API_KEY_ID", cfg.VenueA.APIKeyID)
	cfg.VenueA.APISecret = getEnv("VENUE_A_API_SECRET", cfg.VenueA.APISecret)
	cfg.VenueA.ScanWindow = getEnvAsDuration("VENUE_A_SCAN_WINDOW", cfg.VenueA.ScanWindow)
	cfg.VenueA.RefreshInterval = getEnvAsDuration("VENUE_A_REFRESH_INTERVAL", cfg.VenueA.RefreshInterval)
	cfg.VenueA.HTTPTimeout = getEnvAsDuration("VENUE_A_HTTP_TIMEOUT", cfg.VenueA.HTTPTimeout)
	cfg.VenueA.WorkerPoolSize = getEnvAsInt("VENUE_A_WORKER_POOL_SIZE", cfg.VenueA.WorkerPoolSize)
	cfg.VenueA.TakerFeeRate = getEnvAsDecimal("VENUE_A_TAKER_FEE_RATE", cfg.VenueA.TakerFeeRate)
	cfg.VenueA.CryptoEnabled = getEnvAsBool("VENUE_A_CRYPTO_ENABLED", cfg.VenueA.CryptoEnabled)

	cfg.VenueB.PrivateKeyHex = getEnv("VENUE_B_PRIVATE_KEY_HEX", cfg.VenueB.PrivateKeyHex)
	cfg.VenueB.APIKey = getEnv("VENUE_B_API_KEY", cfg.VenueB.APIKey)
	cfg.VenueB.APISecret = getEnv("VENUE_B_API_SECRET", cfg.VenueB.APISecret)
	cfg.VenueB.APIPassphrase = getEnv("VENUE_B_API_PASSPHRASE", cfg.VenueB.APIPassphrase)
	cfg.VenueB.FunderAddress = getEnv("VENUE_B_FUNDER_ADDRESS", cfg.VenueB.FunderAddress)
	cfg.VenueB.ScanWindow = getEnvAsDuration("VENUE_B_SCAN_WINDOW", cfg.VenueB.ScanWindow)
	cfg.VenueB.RefreshInterval = getEnvAsDuration("VENUE_B_REFRESH_INTERVAL", cfg.VenueB.RefreshInterval)
	cfg.VenueB.WorkerPoolSize = getEnvAsInt("VENUE_B_WORKER_POOL_SIZE", cfg.VenueB.WorkerPoolSize)
	cfg.VenueB.MinLegUSD = getEnvAsDecimal("VENUE_B_MIN_LEG_USD", cfg.VenueB.MinLegUSD)

	cfg.Schedule.BaseURL = getEnv("SCHEDULE_ORACLE_BASE_URL", cfg.Schedule.BaseURL)
	cfg.Schedule.APIKey = getEnv("SCHEDULE_ORACLE_API_KEY", cfg.Schedule.APIKey)
	cfg.Schedule.HTTPTimeout = getEnvAsDuration("SCHEDULE_ORACLE_HTTP_TIMEOUT", cfg.Schedule.HTTPTimeout)
	cfg.Schedule.CacheTTL = getEnvAsDuration("SCHEDULE_ORACLE_CACHE_TTL", cfg.Schedule.CacheTTL)

	cfg.Matcher.CryptoGateEnabled = getEnvAsBool("CRYPTO_GATE_ENABLED", cfg.Matcher.CryptoGateEnabled)

	cfg.Finder.MinSpreadCents = getEnvAsDecimal("MIN_SPREAD_CENTS", cfg.Finder.MinSpreadCents)
	cfg.Finder.MinLegPriceCents = getEnvAsDecimal("MIN_LEG_PRICE_CENTS", cfg.Finder.MinLegPriceCents)
	cfg.Finder.MinHoursToClose = getEnvAsFloat("MIN_HOURS_TO_CLOSE", cfg.Finder.MinHoursToClose)
	cfg.Finder.ScheduleAllowNotFound = getEnvAsBool("SCHEDULE_ALLOW_NOT_FOUND", cfg.Finder.ScheduleAllowNotFound)

	cfg.Sizing.MinOrderUSD = getEnvAsDecimal("MIN_ORDER_USD", cfg.Sizing.MinOrderUSD)
	cfg.Sizing.MaxTradeUSD = getEnvAsDecimal("MAX_TRADE_USD", cfg.Sizing.MaxTradeUSD)
	cfg.Sizing.MaxUnitsPerTrade = int64(getEnvAsInt("MAX_UNITS_PER_TRADE", int(cfg.Sizing.MaxUnitsPerTrade)))

	cfg.Runner.SlowRefreshInterval = getEnvAsDuration("SLOW_REFRESH_INTERVAL", cfg.Runner.SlowRefreshInterval)
	cfg.Runner.FastPollInterval = getEnvAsDuration("FAST_POLL_INTERVAL", cfg.Runner.FastPollInterval)
	cfg.Runner.ScanWindow = getEnvAsDuration("SCAN_WINDOW", cfg.Runner.ScanWindow)
	cfg.Runner.OpsListenAddr = getEnv("OPS_LISTEN_ADDR", cfg.Runner.OpsListenAddr)
	cfg.Runner.OpportunitiesLogPath = getEnv("OPPORTUNITIES_LOG_PATH", cfg.Runner.OpportunitiesLogPath)
	cfg.Runner.MatcherCfg = cfg.Matcher
	cfg.Runner.FinderCfg = cfg.Finder
	cfg.Runner.SizingCfg = cfg.Sizing

	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Output = getEnv("LOG_OUTPUT", cfg.Logging.Output)
}

// validate checks the handful of settings that can't be fixed up with a
// default — a malformed database path or a negative cadence means the
// process should refuse to start rather than run in a broken state.
// Missing venue credentials are NOT an error here: each venue client
// degrades to scan-only mode on its own (spec: "missing live-venue
// credentials degrade to scan-only mode rather than aborting").
func (c *Config) validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("config: DATABASE_PATH must not be empty")
	}
	if c.Runner.FastPollInterval <= 0 {
		return fmt.Errorf("config: FAST_POLL_INTERVAL must be positive")
	}
	if c.Runner.SlowRefreshInterval <= 0 {
		return fmt.Errorf("config: SLOW_REFRESH_INTERVAL must be positive")
	}
	return nil
}

// HasVenueACredentials reports whether VenueA has enough of a credential set
// to trade live instead of scan-only.
func (c *Config) HasVenueACredentials() bool {
	return c.VenueA.APIKeyID != "" && c.VenueA.APISecret != ""
}

// HasVenueBCredentials reports whether VenueB has enough of a credential set
// to trade live instead of scan-only.
func (c *Config) HasVenueBCredentials() bool {
	return c.VenueB.PrivateKeyHex != "" && c.VenueB.APIKey != "" && c.VenueB.APISecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
