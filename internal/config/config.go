package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Worker modes.
const (
	ModeFull         = "full"
	ModeDownloadOnly = "download-only"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	JobStore   JobStoreConfig   `mapstructure:"jobstore"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Source     SourceConfig     `mapstructure:"source"`
	Search     SearchConfig     `mapstructure:"search"`
	Purge      PurgeConfig      `mapstructure:"purge"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type WorkerConfig struct {
	Mode              string        `mapstructure:"mode"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	ScratchDir        string        `mapstructure:"scratch_dir"`
	ClaimState        int           `mapstructure:"claim_state"`
	StopAtCached      bool          `mapstructure:"stop_at_cached"`
	RequestInterval   time.Duration `mapstructure:"request_interval"`
	UploadConcurrency int           `mapstructure:"upload_concurrency"`
}

// CloudflareConfig holds the account id shared by D1 and R2.
type CloudflareConfig struct {
	AccountID string `mapstructure:"account_id"`
}

type JobStoreConfig struct {
	Driver     string         `mapstructure:"driver"`
	Table      string         `mapstructure:"table"`
	KeyColumns []string       `mapstructure:"key_columns"`
	D1         D1Config       `mapstructure:"d1"`
	Database   DatabaseConfig `mapstructure:"database"`
}

type D1Config struct {
	DatabaseID string        `mapstructure:"database_id"`
	APIToken   string        `mapstructure:"api_token"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig configures a gorm-backed job store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	if strings.Contains(c.Path, "?") {
		return c.Path
	}
	return c.Path + "?_busy_timeout=5000"
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Root      string `mapstructure:"root"`
}

type SourceConfig struct {
	Enumerator    string   `mapstructure:"enumerator"`
	YtDlpPath     string   `mapstructure:"ytdlp_path"`
	SubLangs      string   `mapstructure:"sub_langs"`
	CaptionFormat string   `mapstructure:"caption_format"`
	BatchSize     int      `mapstructure:"batch_size"`
	ExtraArgs     []string `mapstructure:"extra_args"`
	FeedBaseURL   string   `mapstructure:"feed_base_url"`
}

type SearchConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	PagefindPath string `mapstructure:"pagefind_path"`
}

type PurgeConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	ZoneID   string        `mapstructure:"zone_id"`
	APIToken string        `mapstructure:"api_token"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment settings shared with the other workers
	v.BindEnv("cloudflare.account_id", "CF_ACCOUNT_ID")
	v.BindEnv("jobstore.d1.database_id", "D1_DATABASE_ID")
	v.BindEnv("jobstore.d1.api_token", "D1_API_TOKEN")
	v.BindEnv("jobstore.database.url", "DATABASE_URL")
	v.BindEnv("storage.access_key", "R2_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_key", "R2_SECRET_ACCESS_KEY")
	v.BindEnv("storage.bucket", "R2_BUCKET_NAME")
	v.BindEnv("storage.public_url", "R2_PUBLIC_URL")
	v.BindEnv("purge.zone_id", "CF_ZONE_ID")
	v.BindEnv("purge.api_token", "CF_PURGE_TOKEN")
	v.BindEnv("worker.mode", "WORKER_MODE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("worker.mode", ModeFull)
	v.SetDefault("worker.poll_interval", 60*time.Second)
	v.SetDefault("worker.scratch_dir", "tmp")
	v.SetDefault("worker.claim_state", 0)
	v.SetDefault("worker.stop_at_cached", true)
	v.SetDefault("worker.request_interval", 0)
	v.SetDefault("worker.upload_concurrency", 4)

	v.SetDefault("jobstore.driver", "d1")
	v.SetDefault("jobstore.table", "indexer_jobs")
	v.SetDefault("jobstore.key_columns", []string{"platform_id", "channel_id"})
	v.SetDefault("jobstore.d1.timeout", 30*time.Second)
	v.SetDefault("jobstore.database.path", "./data/jobs.db")
	v.SetDefault("jobstore.database.max_idle_conns", 2)
	v.SetDefault("jobstore.database.max_open_conns", 1)
	v.SetDefault("jobstore.database.conn_max_lifetime", time.Hour)
	v.SetDefault("jobstore.database.auto_migrate", true)

	v.SetDefault("storage.type", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.root", "./data/bucket")

	v.SetDefault("source.enumerator", "ytdlp")
	v.SetDefault("source.ytdlp_path", "yt-dlp")
	v.SetDefault("source.sub_langs", ".*orig")
	v.SetDefault("source.caption_format", "srt")
	v.SetDefault("source.batch_size", 50)

	v.SetDefault("search.enabled", true)
	v.SetDefault("search.pagefind_path", "pagefind")

	v.SetDefault("purge.enabled", false)
	v.SetDefault("purge.timeout", 30*time.Second)
}

// Validate rejects settings the worker cannot run with.
func (c *Config) Validate() error {
	switch c.Worker.Mode {
	case ModeFull, ModeDownloadOnly:
	default:
		return fmt.Errorf("invalid worker mode %q (expected %s or %s)", c.Worker.Mode, ModeFull, ModeDownloadOnly)
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker poll interval must be positive")
	}
	if c.Worker.ClaimState < 0 || c.Worker.ClaimState > 4 {
		return fmt.Errorf("invalid claim state %d", c.Worker.ClaimState)
	}
	switch c.JobStore.Driver {
	case "d1", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid job store driver %q", c.JobStore.Driver)
	}
	switch c.Source.Enumerator {
	case "ytdlp", "feed":
	default:
		return fmt.Errorf("invalid enumerator %q", c.Source.Enumerator)
	}
	switch c.Source.CaptionFormat {
	case "srt", "vtt", "json3":
	default:
		return fmt.Errorf("invalid caption format %q", c.Source.CaptionFormat)
	}
	switch c.Storage.Type {
	case "", "r2", "s3", "s3compatible", "fs":
	default:
		return fmt.Errorf("invalid storage type %q", c.Storage.Type)
	}
	return nil
}

// GetDatabaseConfig returns the gorm settings with the driver taken from the job store.
func (c *Config) GetDatabaseConfig() DatabaseConfig {
	db := c.JobStore.Database
	db.Driver = c.JobStore.Driver
	return db
}

// GetStorageConfig returns the storage settings with the R2 endpoint derived
// from the Cloudflare account when none is configured.
func (c *Config) GetStorageConfig() StorageConfig {
	s := c.Storage
	if s.Endpoint == "" && c.Cloudflare.AccountID != "" && (s.Type == "" || s.Type == "r2") {
		s.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.Cloudflare.AccountID)
		s.Type = "r2"
	}
	return s
}
