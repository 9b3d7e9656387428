package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sjsage522/euromillionsworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// HTTP API
	HTTPAddr string `yaml:"http_addr"`

	// Storage configuration
	StorageDriver         string        `yaml:"storage_driver"`
	StorageDSN            string        `yaml:"storage_dsn"`
	StorageCommandTimeout time.Duration `yaml:"storage_command_timeout"`

	// Crawler configuration
	HistoryURLTemplate string        `yaml:"history_url_template"`
	FetchYears         []int         `yaml:"fetch_years"`
	FetchYearsBack     int           `yaml:"fetch_years_back"`
	FetchConcurrency   int           `yaml:"fetch_concurrency"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
	BlockTime          time.Duration `yaml:"block_time"`

	// Scheduler configuration
	SyncCron     string `yaml:"sync_cron"`
	SyncTimezone string `yaml:"sync_timezone"`
	SyncOnStart  bool   `yaml:"sync_on_start"`

	// Redis configuration
	RedisAddr            string `yaml:"redis_addr"`
	RedisDB              int    `yaml:"redis_db"`
	RedisStream          string `yaml:"redis_stream"`
	RedisStreamCount     int    `yaml:"redis_stream_count"`
	RedisStreamMaxLength int    `yaml:"redis_stream_max_length"`

	// Memcache configuration
	MemcacheAddr string `yaml:"memcache_addr"`

	// Environment
	Environment string `yaml:"environment"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		HTTPAddr:              ":8080",
		StorageDriver:         "sqlite",
		StorageDSN:            "euromillions.db",
		StorageCommandTimeout: 30 * time.Second,
		HistoryURLTemplate:    "https://www.euro-millions.com/results-history-%d",
		FetchYearsBack:        1,
		FetchConcurrency:      1,
		FetchTimeout:          30 * time.Second,
		BlockTime:             10 * time.Minute,
		SyncCron:              "0 23 * * 3,6",
		SyncTimezone:          "UTC",
		RedisDB:               0,
		RedisStream:           "euromillions",
		RedisStreamCount:      1,
		RedisStreamMaxLength:  1000,
		Environment:           "development",
	}
}

// LoadConfig loads .env, then the optional CONFIG_FILE overlay, then environment overrides
func LoadConfig() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewConfiguration("failed to read config file "+path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.NewConfiguration("failed to parse config file "+path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.StorageDriver = getEnv("STORAGE_DRIVER", c.StorageDriver)
	c.StorageDSN = getEnv("STORAGE_DSN", c.StorageDSN)
	c.HistoryURLTemplate = getEnv("HISTORY_URL_TEMPLATE", c.HistoryURLTemplate)
	c.SyncCron = getEnv("SYNC_CRON", c.SyncCron)
	c.SyncTimezone = getEnv("SYNC_TIMEZONE", c.SyncTimezone)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisStream = getEnv("REDIS_STREAM", c.RedisStream)
	c.MemcacheAddr = getEnv("MEMCACHE_ADDR", c.MemcacheAddr)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	var err error
	if c.FetchYearsBack, err = getEnvInt("FETCH_YEARS_BACK", c.FetchYearsBack); err != nil {
		return err
	}
	if c.FetchConcurrency, err = getEnvInt("FETCH_CONCURRENCY", c.FetchConcurrency); err != nil {
		return err
	}
	if c.RedisDB, err = getEnvInt("REDIS_DB", c.RedisDB); err != nil {
		return err
	}
	if c.RedisStreamCount, err = getEnvInt("REDIS_STREAM_COUNT", c.RedisStreamCount); err != nil {
		return err
	}
	if c.RedisStreamMaxLength, err = getEnvInt("REDIS_STREAM_MAX_LENGTH", c.RedisStreamMaxLength); err != nil {
		return err
	}
	if c.StorageCommandTimeout, err = getEnvSeconds("STORAGE_COMMAND_TIMEOUT_SECONDS", c.StorageCommandTimeout); err != nil {
		return err
	}
	if c.FetchTimeout, err = getEnvSeconds("FETCH_TIMEOUT_SECONDS", c.FetchTimeout); err != nil {
		return err
	}
	if c.BlockTime, err = getEnvSeconds("BLOCK_TIME_SECONDS", c.BlockTime); err != nil {
		return err
	}

	if v := os.Getenv("SYNC_ON_START"); v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return errors.NewConfiguration("SYNC_ON_START must be a boolean", perr)
		}
		c.SyncOnStart = b
	}

	if v := os.Getenv("FETCH_YEARS"); v != "" {
		years, perr := parseYears(v)
		if perr != nil {
			return perr
		}
		c.FetchYears = years
	}
	return nil
}

// Validate validates the configuration
func (c Config) Validate() error {
	switch c.StorageDriver {
	case "sqlite", "mssql":
	default:
		return errors.NewConfiguration(fmt.Sprintf("unsupported STORAGE_DRIVER %q", c.StorageDriver), nil)
	}
	if c.StorageDSN == "" {
		return errors.NewConfiguration("STORAGE_DSN is required", nil)
	}
	if !strings.Contains(c.HistoryURLTemplate, "%d") {
		return errors.NewConfiguration("HISTORY_URL_TEMPLATE must contain %d", nil)
	}
	if c.FetchConcurrency < 1 {
		return errors.NewConfiguration("FETCH_CONCURRENCY must be at least 1", nil)
	}
	if c.FetchYearsBack < 0 {
		return errors.NewConfiguration("FETCH_YEARS_BACK must not be negative", nil)
	}
	if c.FetchTimeout <= 0 || c.StorageCommandTimeout <= 0 {
		return errors.NewConfiguration("timeouts must be positive", nil)
	}
	if _, err := time.LoadLocation(c.SyncTimezone); err != nil {
		return errors.NewConfiguration("invalid SYNC_TIMEZONE "+c.SyncTimezone, err)
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	return nil
}

// IsProduction reports whether the application runs in production
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseYears(v string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.NewConfiguration("invalid year in FETCH_YEARS: "+part, err)
		}
		years = append(years, y)
	}
	return years, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, errors.NewConfiguration(key+" must be an integer", err)
	}
	return n, nil
}

func getEnvSeconds(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, errors.NewConfiguration(key+" must be a number of seconds", err)
	}
	return time.Duration(n) * time.Second, nil
}
