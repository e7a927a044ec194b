package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendFile    = "file"
	BackendMongo   = "mongodb"
	BackendSQLite  = "sqlite"
	BackendRedis   = "redis"
	DefaultBackend = BackendFile

	// ConfigPathEnv names an optional HCL file applied over the defaults.
	ConfigPathEnv = "TRACKER_CONFIG"
)

var Backends = []string{BackendFile, BackendMongo, BackendSQLite, BackendRedis}

type Config struct {
	Server   HTTPServerConfig `json:"server"`
	Storage  StorageConfig    `json:"storage"`
	Reporter ReporterConfig   `json:"reporter"`
	Metrics  MetricsConfig    `json:"metrics"`
}

type HTTPServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type StorageConfig struct {
	Backend string         `json:"backend"`
	File    FileRepoConfig `json:"file"`
	Mongo   MongoConfig    `json:"mongo"`
	SQLite  SQLiteConfig   `json:"sqlite"`
	Redis   RedisConfig    `json:"redis"`
}

type FileRepoConfig struct {
	Path string `json:"path"`
}

type MongoConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

type SQLiteConfig struct {
	Path string `json:"path"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"-"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
}

type ReporterConfig struct {
	Interval time.Duration `json:"interval"`
}

type MetricsConfig struct {
	Addr string `json:"addr"`
}

func Default() *Config {
	return &Config{
		Server: HTTPServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend: DefaultBackend,
			File:    FileRepoConfig{Path: "jobtrack.json"},
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "jobtracker",
				Collection: "jobtrack",
			},
			SQLite: SQLiteConfig{Path: "jobtrack.db"},
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "jobtracker:jobs",
			},
		},
		Reporter: ReporterConfig{Interval: 30 * time.Second},
		Metrics:  MetricsConfig{Addr: ":2112"},
	}
}

// Load layers the optional HCL file at path (or $TRACKER_CONFIG) and then
// the environment over Default.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	known := false
	for _, b := range Backends {
		if c.Storage.Backend == b {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Reporter.Interval <= 0 {
		return fmt.Errorf("reporter interval must be positive, got %s", c.Reporter.Interval)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(cfg *Config) error {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)

	var err error
	if cfg.Server.Port, err = getEnvInt("SERVER_PORT", cfg.Server.Port); err != nil {
		return err
	}
	if cfg.Server.ReadTimeout, err = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout); err != nil {
		return err
	}
	if cfg.Server.WriteTimeout, err = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout); err != nil {
		return err
	}

	cfg.Storage.Backend = getEnv("TRACKER_BACKEND", cfg.Storage.Backend)
	cfg.Storage.File.Path = getEnv("TRACKER_FILE", cfg.Storage.File.Path)
	cfg.Storage.Mongo.URI = getEnv("MONGO_URI", cfg.Storage.Mongo.URI)
	cfg.Storage.Mongo.Database = getEnv("MONGO_DB", cfg.Storage.Mongo.Database)
	cfg.Storage.Mongo.Collection = getEnv("MONGO_COLLECTION", cfg.Storage.Mongo.Collection)
	cfg.Storage.SQLite.Path = getEnv("SQLITE_PATH", cfg.Storage.SQLite.Path)
	cfg.Storage.Redis.Addr = getEnv("REDIS_ADDR", cfg.Storage.Redis.Addr)
	cfg.Storage.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Storage.Redis.Password)
	cfg.Storage.Redis.Key = getEnv("REDIS_KEY", cfg.Storage.Redis.Key)
	if cfg.Storage.Redis.DB, err = getEnvInt("REDIS_DB", cfg.Storage.Redis.DB); err != nil {
		return err
	}

	if cfg.Reporter.Interval, err = getEnvDuration("REPORT_INTERVAL", cfg.Reporter.Interval); err != nil {
		return err
	}
	cfg.Metrics.Addr = getEnv("METRICS_ADDR", cfg.Metrics.Addr)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
