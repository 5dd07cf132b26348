package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv        = "JOBS_SCANNER_CONFIG"
	envFileEnv           = "ENV_FILE"
	botTokenEnv          = "BOT_TOKEN"
	channelIDEnv         = "CHANNEL_ID"
	mongoURIEnv          = "MONGO_URI"
	dbNameEnv            = "DB_NAME"
	collectionNameEnv    = "COLLECTION_NAME"
	logLevelEnv          = "LOG_LEVEL"
	indexURLEnv          = "INDEX_URL"
	downloadDirEnv       = "DOWNLOAD_DIR"
	pushgatewayURLEnv    = "PUSHGATEWAY_URL"
	telegramAPIURLEnv    = "TELEGRAM_API_URL"
	shortenerEndpointEnv = "SHORTENER_ENDPOINT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Source        SourceConfig       `yaml:"source"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Shortener     ShortenerConfig    `yaml:"shortener"`
	Store         StoreConfig        `yaml:"store"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig points at the listing index page.
type SourceConfig struct {
	IndexURL  string `yaml:"indexUrl"`
	UserAgent string `yaml:"userAgent"`
}

// FetchConfig tunes the resilient HTTP fetcher.
type FetchConfig struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	AttemptTimeout time.Duration `yaml:"attemptTimeout"`
	BackoffBase    time.Duration `yaml:"backoffBase"`
	BackoffMax     time.Duration `yaml:"backoffMax"`
	MaxBodyBytes   int64         `yaml:"maxBodyBytes"`
}

// PipelineConfig tunes per-listing processing.
type PipelineConfig struct {
	ItemTimeout       time.Duration `yaml:"itemTimeout"`
	AttachmentTimeout time.Duration `yaml:"attachmentTimeout"`
	AttachmentWorkers int           `yaml:"attachmentWorkers"`
	PacingDelay       time.Duration `yaml:"pacingDelay"`
	DownloadDir       string        `yaml:"downloadDir"`
}

// ShortenerConfig describes the link-shortening service.
type ShortenerConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Pause    time.Duration `yaml:"pause"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StoreConfig holds checkpoint store connection details.
type StoreConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIURL   string        `yaml:"apiUrl"`
	BotToken string        `yaml:"botToken"`
	ChatID   string        `yaml:"chatId"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MetricsConfig controls the optional Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgatewayUrl"`
	Job            string `yaml:"job"`
}

// Load reads .env and YAML configuration (if present), applies environment overrides and validates.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile() error {
	file := ".env"
	if v := os.Getenv(envFileEnv); v != "" {
		file = v
	}
	if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("config: load %s: %w", file, err)
	}
	return nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Notifications.Telegram.BotToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", botTokenEnv))
	}
	if c.Notifications.Telegram.ChatID == "" {
		errs = append(errs, fmt.Errorf("%s is required", channelIDEnv))
	}
	if c.Store.URI == "" {
		errs = append(errs, fmt.Errorf("%s is required", mongoURIEnv))
	}
	if c.Store.Database == "" {
		errs = append(errs, fmt.Errorf("%s is required", dbNameEnv))
	}
	if c.Store.Collection == "" {
		errs = append(errs, fmt.Errorf("%s is required", collectionNameEnv))
	}
	if c.Source.IndexURL == "" {
		errs = append(errs, errors.New("source index url is required"))
	}
	if c.Fetch.MaxAttempts <= 0 {
		errs = append(errs, errors.New("fetch.maxAttempts must be positive"))
	}
	if c.Fetch.AttemptTimeout <= 0 || c.Pipeline.ItemTimeout <= 0 || c.Pipeline.AttachmentTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.Pipeline.AttachmentWorkers <= 0 {
		errs = append(errs, errors.New("pipeline.attachmentWorkers must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	overrideString(&c.Notifications.Telegram.BotToken, botTokenEnv)
	overrideString(&c.Notifications.Telegram.ChatID, channelIDEnv)
	overrideString(&c.Notifications.Telegram.APIURL, telegramAPIURLEnv)
	overrideString(&c.Store.URI, mongoURIEnv)
	overrideString(&c.Store.Database, dbNameEnv)
	overrideString(&c.Store.Collection, collectionNameEnv)
	overrideString(&c.Logging.Level, logLevelEnv)
	overrideString(&c.Source.IndexURL, indexURLEnv)
	overrideString(&c.Pipeline.DownloadDir, downloadDirEnv)
	overrideString(&c.Metrics.PushgatewayURL, pushgatewayURLEnv)
	overrideString(&c.Shortener.Endpoint, shortenerEndpointEnv)
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Logging.Level, override.Logging.Level)

	mergeString(&base.Source.IndexURL, override.Source.IndexURL)
	mergeString(&base.Source.UserAgent, override.Source.UserAgent)

	if override.Fetch.MaxAttempts > 0 {
		base.Fetch.MaxAttempts = override.Fetch.MaxAttempts
	}
	mergeDuration(&base.Fetch.AttemptTimeout, override.Fetch.AttemptTimeout)
	mergeDuration(&base.Fetch.BackoffBase, override.Fetch.BackoffBase)
	mergeDuration(&base.Fetch.BackoffMax, override.Fetch.BackoffMax)
	if override.Fetch.MaxBodyBytes > 0 {
		base.Fetch.MaxBodyBytes = override.Fetch.MaxBodyBytes
	}

	mergeDuration(&base.Pipeline.ItemTimeout, override.Pipeline.ItemTimeout)
	mergeDuration(&base.Pipeline.AttachmentTimeout, override.Pipeline.AttachmentTimeout)
	if override.Pipeline.AttachmentWorkers > 0 {
		base.Pipeline.AttachmentWorkers = override.Pipeline.AttachmentWorkers
	}
	mergeDuration(&base.Pipeline.PacingDelay, override.Pipeline.PacingDelay)
	mergeString(&base.Pipeline.DownloadDir, override.Pipeline.DownloadDir)

	mergeString(&base.Shortener.Endpoint, override.Shortener.Endpoint)
	mergeDuration(&base.Shortener.Pause, override.Shortener.Pause)
	mergeDuration(&base.Shortener.Timeout, override.Shortener.Timeout)

	mergeString(&base.Store.URI, override.Store.URI)
	mergeString(&base.Store.Database, override.Store.Database)
	mergeString(&base.Store.Collection, override.Store.Collection)

	mergeString(&base.Notifications.Telegram.APIURL, override.Notifications.Telegram.APIURL)
	mergeString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	mergeString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)
	mergeDuration(&base.Notifications.Telegram.Timeout, override.Notifications.Telegram.Timeout)

	mergeString(&base.Metrics.PushgatewayURL, override.Metrics.PushgatewayURL)
	mergeString(&base.Metrics.Job, override.Metrics.Job)

	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Source: SourceConfig{
			IndexURL:  "https://www.marugujarat.in/",
			UserAgent: "Mozilla/5.0 (compatible; JobsScanner/1.0)",
		},
		Fetch: FetchConfig{
			MaxAttempts:    3,
			AttemptTimeout: 30 * time.Second,
			BackoffBase:    time.Second,
			BackoffMax:     30 * time.Second,
			MaxBodyBytes:   50 << 20,
		},
		Pipeline: PipelineConfig{
			ItemTimeout:       5 * time.Minute,
			AttachmentTimeout: 90 * time.Second,
			AttachmentWorkers: 3,
			PacingDelay:       10 * time.Second,
			DownloadDir:       os.TempDir(),
		},
		Shortener: ShortenerConfig{
			Endpoint: "https://tinyurl.com/api-create.php",
			Pause:    2 * time.Second,
			Timeout:  15 * time.Second,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{
				APIURL:  "https://api.telegram.org",
				Timeout: 60 * time.Second,
			},
		},
		Metrics: MetricsConfig{Job: "jobs_scanner"},
	}
}
