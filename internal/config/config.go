package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"BeerSync/internal/enrich"
)

const (
	configPathEnv      = "BEERSYNC_CONFIG"
	cronSecretEnv      = "CRON_SECRET"
	requestDelayEnv    = "DATA_SYNC_REQUEST_DELAY_MS"
	databaseDSNEnv     = "DATABASE_DSN"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	snapshotBlobEnv    = "BEERS_BLOB_PATH"
	reportBlobEnv      = "SYNC_REPORT_BLOB_PATH"
	logLevelEnv        = "LOG_LEVEL"
	defaultLogLevel    = "info"
	defaultServerAddr  = ":8080"
	defaultSnapshot    = "beers.enriched.json"
	defaultReport      = "sync-report.json"
	defaultBaselineCSV = "data/beers.csv"
	defaultOverrides   = "data/beers.overrides.json"
	defaultOutputDir   = "data"
)

// Config holds high-level settings required across the application.
type Config struct {
	Paths         PathsConfig         `yaml:"paths"`
	Logging       LoggingConfig       `yaml:"logging"`
	OpenBreweryDB OpenBreweryDBConfig `yaml:"openBreweryDb"`
	OpenFoodFacts OpenFoodFactsConfig `yaml:"openFoodFacts"`
	Database      DatabaseConfig      `yaml:"database"`
	Notifications NotificationConfig  `yaml:"notifications"`
	Server        ServerConfig        `yaml:"server"`
}

// PathsConfig locates the inputs and the artifacts of a run.
type PathsConfig struct {
	BaselineCSV   string `yaml:"baselineCsv"`
	OverridesJSON string `yaml:"overridesJson"`
	OutputDir     string `yaml:"outputDir"`
	SnapshotName  string `yaml:"snapshotName"`
	ReportName    string `yaml:"reportName"`
}

// LoggingConfig sets the console level and an optional JSON log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// OpenBreweryDBConfig tunes the brewery directory adapter.
type OpenBreweryDBConfig struct {
	BaseURL      string          `yaml:"baseUrl"`
	PerPage      int             `yaml:"perPage"`
	RequestDelay time.Duration   `yaml:"requestDelay"`
	Timeout      time.Duration   `yaml:"timeout"`
	Retries      int             `yaml:"retries"`
	RetryStep    time.Duration   `yaml:"retryStep"`
	CacheSize    int             `yaml:"cacheSize"`
	MinScore     int             `yaml:"minScore"`
	Weights      *enrich.Weights `yaml:"weights"`
	AliasesFile  string          `yaml:"aliasesFile"`
}

// OpenFoodFactsConfig tunes the product catalog adapter.
type OpenFoodFactsConfig struct {
	BaseURL          string          `yaml:"baseUrl"`
	ProductURL       string          `yaml:"productUrl"`
	PageSize         int             `yaml:"pageSize"`
	MaxPages         int             `yaml:"maxPages"`
	RequestDelay     time.Duration   `yaml:"requestDelay"`
	Timeout          time.Duration   `yaml:"timeout"`
	Retries          int             `yaml:"retries"`
	RetryStep        time.Duration   `yaml:"retryStep"`
	CacheSize        int             `yaml:"cacheSize"`
	DiscoveryLimit   int             `yaml:"discoveryLimit"`
	IncludeDiscovery bool            `yaml:"includeDiscovery"`
	MinScore         int             `yaml:"minScore"`
	Weights          *enrich.Weights `yaml:"weights"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN
// disables the run history.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both the token and the chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// ServerConfig drives the serve command.
type ServerConfig struct {
	Addr       string        `yaml:"addr"`
	CronSecret string        `yaml:"cronSecret"`
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"runOnStart"`
}

// Load reads the YAML file at path (or BEERSYNC_CONFIG when path is empty)
// over the defaults and applies environment overrides. No file means defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) error {
	if v := getenv(cronSecretEnv); v != "" {
		c.Server.CronSecret = v
	}

	if v := strings.TrimSpace(getenv(requestDelayEnv)); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return fmt.Errorf("%s must be a non-negative integer, got %q", requestDelayEnv, v)
		}
		c.OpenBreweryDB.RequestDelay = time.Duration(ms) * time.Millisecond
	}

	if v := getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := getenv(snapshotBlobEnv); v != "" {
		c.Paths.SnapshotName = v
	}

	if v := getenv(reportBlobEnv); v != "" {
		c.Paths.ReportName = v
	}

	if v := getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			BaselineCSV:   defaultBaselineCSV,
			OverridesJSON: defaultOverrides,
			OutputDir:     defaultOutputDir,
			SnapshotName:  defaultSnapshot,
			ReportName:    defaultReport,
		},
		Logging: LoggingConfig{Level: defaultLogLevel},
		OpenBreweryDB: OpenBreweryDBConfig{
			BaseURL:      "https://api.openbrewerydb.org/v1",
			PerPage:      50,
			RequestDelay: 500 * time.Millisecond,
			Timeout:      10 * time.Second,
			Retries:      1,
			RetryStep:    time.Second,
			MinScore:     40,
		},
		OpenFoodFacts: OpenFoodFactsConfig{
			BaseURL:          "https://world.openfoodfacts.org",
			ProductURL:       "https://world.openfoodfacts.org/product",
			PageSize:         100,
			MaxPages:         8,
			RequestDelay:     120 * time.Millisecond,
			Timeout:          15 * time.Second,
			RetryStep:        time.Second,
			DiscoveryLimit:   300,
			IncludeDiscovery: true,
			MinScore:         55,
		},
		Server: ServerConfig{Addr: defaultServerAddr},
	}
}
