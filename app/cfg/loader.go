package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"feedpipe" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"feedpipe" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"feedpipe" description:"Database name"`
	DBSSLMode  string `long:"db-sslmode" env:"DB_SSLMODE" default:"disable" description:"Database SSL mode"`

	// Optional dedup cache
	RedisAddr string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the dedup cache (optional, e.g. localhost:6379)"`

	// Semantic analysis collaborator endpoint
	AnalysisURL string `long:"analysis-url" env:"ANALYSIS_URL" description:"Semantic analysis service URL (optional; jobs are logged and completed when unset)"`

	// Application configuration
	FeedsDir           string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing feed definition files"`
	Port               string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey       string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	SchedulerInterval  int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler check interval in seconds"`
	MaxConcurrentFeeds int    `long:"max-concurrent-feeds" env:"MAX_CONCURRENT_FEEDS" default:"3" description:"Maximum feeds processed concurrently"`
	AnalysisWorkers    int    `long:"analysis-workers" env:"ANALYSIS_WORKERS" default:"2" description:"Maximum analysis jobs processed concurrently"`
	FetchTimeout       int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10" description:"Per-attempt feed fetch timeout in seconds"`
	FetchMaxRetries    int    `long:"fetch-max-retries" env:"FETCH_MAX_RETRIES" default:"3" description:"Maximum feed fetch retries"`
	MaxItemsPerFeed    int    `long:"max-items-per-feed" env:"MAX_ITEMS_PER_FEED" default:"50" description:"Maximum items processed per feed run"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"feedpipe/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:             raw.DBHost,
		DBPort:             raw.DBPort,
		DBUser:             raw.DBUser,
		DBPassword:         raw.DBPassword,
		DBName:             raw.DBName,
		DBSSLMode:          raw.DBSSLMode,
		RedisAddr:          raw.RedisAddr,
		AnalysisURL:        raw.AnalysisURL,
		FeedsDir:           raw.FeedsDir,
		Port:               raw.Port,
		APIAccessKey:       raw.APIAccessKey,
		SchedulerInterval:  raw.SchedulerInterval,
		MaxConcurrentFeeds: raw.MaxConcurrentFeeds,
		AnalysisWorkers:    raw.AnalysisWorkers,
		FetchTimeout:       raw.FetchTimeout,
		FetchMaxRetries:    raw.FetchMaxRetries,
		MaxItemsPerFeed:    raw.MaxItemsPerFeed,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
