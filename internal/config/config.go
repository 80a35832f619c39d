package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vjranagit/drought/pkg/pipeline"
	"github.com/vjranagit/drought/pkg/storage"
)

// DateLayout is the layout of pipeline dates
const DateLayout = "2006-01-02"

var (
	// ErrListenAddrRequired is returned when no listen address is set
	ErrListenAddrRequired = errors.New("server listen address is required")
	// ErrStoragePathRequired is returned when no storage path is set
	ErrStoragePathRequired = errors.New("storage path is required")
	// ErrRedisAddrRequired is returned when the redis backend has no address
	ErrRedisAddrRequired = errors.New("redis address is required for the redis backend")
	// ErrInvalidRange is returned when the pipeline range is empty or malformed
	ErrInvalidRange = errors.New("invalid pipeline date range")
)

// Config holds the application configuration
type Config struct {
	Logging  string         `yaml:"logging" default:"info"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	ListenAddr string        `yaml:"listen_addr" default:":9090"`
	Timeout    time.Duration `yaml:"timeout" default:"30s"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Backend          string        `yaml:"backend" default:"badger"`
	Path             string        `yaml:"path" default:"./data"`
	CompressionLevel int           `yaml:"compression_level" default:"3"`
	CacheCapacity    int           `yaml:"cache_capacity" default:"64"`
	CacheTTL         time.Duration `yaml:"cache_ttl" default:"10m"`
	Redis            RedisConfig   `yaml:"redis"`
}

// RedisConfig holds the redis backend settings
type RedisConfig struct {
	Address string `yaml:"address"`
	Prefix  string `yaml:"prefix" default:"drought:table:"`
}

// PipelineConfig controls the monthly table pipeline
type PipelineConfig struct {
	Start          string        `yaml:"start" default:"2019-01-01"`
	End            string        `yaml:"end" default:"2023-01-01"`
	Scale          float64       `yaml:"scale" default:"1000"`
	Workers        int           `yaml:"workers" default:"4"`
	UpsamplePeriod int           `yaml:"upsample_period" default:"8"`
	FillYears      int           `yaml:"fill_years" default:"3"`
	Sources        SourcesConfig `yaml:"sources"`
}

// SourcesConfig names the raster collection of every input
type SourcesConfig struct {
	Precipitation      string `yaml:"precipitation" default:"UCSB-CHG/CHIRPS/DAILY"`
	Radiation          string `yaml:"radiation" default:"ECMWF/ERA5_LAND/MONTHLY"`
	Temperature        string `yaml:"temperature" default:"MODIS/061/MOD11A1"`
	Fpar               string `yaml:"fpar" default:"MODIS/061/MOD15A2H"`
	Evapotranspiration string `yaml:"evapotranspiration" default:"MODIS/006/MOD16A2"`
	Reflectance        string `yaml:"reflectance" default:"MODIS/061/MCD43A4"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("invalid config defaults: %v", err))
	}
	return cfg
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to set defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Storage.Path = getEnv("DROUGHT_STORAGE_PATH", c.Storage.Path)
	c.Storage.Backend = getEnv("DROUGHT_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.CompressionLevel = getEnvInt("DROUGHT_COMPRESSION_LEVEL", c.Storage.CompressionLevel)
	c.Storage.Redis.Address = getEnv("DROUGHT_REDIS_ADDR", c.Storage.Redis.Address)
	c.Server.ListenAddr = getEnv("DROUGHT_LISTEN_ADDR", c.Server.ListenAddr)
	c.Logging = getEnv("DROUGHT_LOG_LEVEL", c.Logging)
}

// ToStorageConfig converts to storage.Config
func (c *Config) ToStorageConfig() *storage.Config {
	return &storage.Config{
		Backend:          c.Storage.Backend,
		Path:             c.Storage.Path,
		CompressionLevel: c.Storage.CompressionLevel,
		CacheCapacity:    c.Storage.CacheCapacity,
		CacheTTL:         c.Storage.CacheTTL,
		RedisAddr:        c.Storage.Redis.Address,
		RedisPrefix:      c.Storage.Redis.Prefix,
	}
}

// ToPipelineConfig converts to pipeline.Config
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	start, end, err := c.Pipeline.Range()
	if err != nil {
		return pipeline.Config{}, err
	}
	src := c.Pipeline.Sources
	return pipeline.Config{
		Start:          start,
		End:            end,
		Scale:          c.Pipeline.Scale,
		Workers:        c.Pipeline.Workers,
		UpsamplePeriod: c.Pipeline.UpsamplePeriod,
		FillYears:      c.Pipeline.FillYears,
		Sources: pipeline.Sources{
			Precipitation:      src.Precipitation,
			Radiation:          src.Radiation,
			Temperature:        src.Temperature,
			Fpar:               src.Fpar,
			Evapotranspiration: src.Evapotranspiration,
			Reflectance:        src.Reflectance,
		},
	}, nil
}

// Range returns the pipeline's [start, end) interval
func (p PipelineConfig) Range() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, p.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	end, err := time.Parse(DateLayout, p.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s is not after start %s", ErrInvalidRange, p.End, p.Start)
	}
	return start, end, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Logging); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}

	if c.Server.ListenAddr == "" {
		return ErrListenAddrRequired
	}

	switch c.Storage.Backend {
	case storage.BackendBadger, storage.BackendSQLite:
		if c.Storage.Path == "" {
			return ErrStoragePathRequired
		}
	case storage.BackendRedis:
		if c.Storage.Redis.Address == "" {
			return ErrRedisAddrRequired
		}
	default:
		return fmt.Errorf("%w: %q", storage.ErrUnknownBackend, c.Storage.Backend)
	}

	if c.Storage.CompressionLevel < 1 || c.Storage.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	if _, _, err := c.Pipeline.Range(); err != nil {
		return err
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be at least 1")
	}
	if c.Pipeline.UpsamplePeriod < 1 {
		return fmt.Errorf("upsample period must be at least 1")
	}
	if c.Pipeline.Scale <= 0 {
		return fmt.Errorf("pipeline scale must be positive")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
