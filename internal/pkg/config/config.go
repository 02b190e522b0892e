package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backends
const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	// Environment
	Environment string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Refinery
	RefineryVersion  string `mapstructure:"REFINERY_VERSION"`
	SegmenterLexicon string `mapstructure:"SEGMENTER_LEXICON"`

	// Batch processing
	BatchWorkers int    `mapstructure:"BATCH_WORKERS"`
	TextColumn   string `mapstructure:"TEXT_COLUMN"`
	OutputColumn string `mapstructure:"OUTPUT_COLUMN"`
	Deduplicate  bool   `mapstructure:"DEDUPLICATE"`
	StorageDir   string `mapstructure:"STORAGE_DIR"`

	// Result cache
	CacheBackend    string `mapstructure:"CACHE_BACKEND"`
	CacheSize       int    `mapstructure:"CACHE_SIZE"`
	CacheTTLSeconds int    `mapstructure:"CACHE_TTL_SECONDS"`

	// Redis Configuration (cache and queue)
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     int    `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Database Configuration
	DBEnabled  bool   `mapstructure:"DB_ENABLED"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	DBLogLevel string `mapstructure:"DB_LOG_LEVEL"`

	// Worker Configuration
	QueueConcurrency    int  `mapstructure:"QUEUE_CONCURRENCY"`
	QueueStrictPriority bool `mapstructure:"QUEUE_STRICT_PRIORITY"`
}

// CacheConfig configures the Redis result cache
type CacheConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	DialTimeout  int // seconds
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	PoolSize     int
	MinIdleConns int
	TTLSeconds   int
}

// QueueConfig configures the asynq client and server
type QueueConfig struct {
	RedisHost      string
	RedisPort      int
	RedisPassword  string
	RedisDB        int
	DialTimeout    int // seconds
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	Concurrency    int
	StrictPriority bool
}

// DatabaseConfig configures the PostgreSQL connection pool
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	LogLevel        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	MaxConnIdleTime int // seconds
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")

	// Refinery defaults
	v.SetDefault("REFINERY_VERSION", "v1")
	v.SetDefault("SEGMENTER_LEXICON", "")

	// Batch defaults
	v.SetDefault("BATCH_WORKERS", 0)
	v.SetDefault("TEXT_COLUMN", "content")
	v.SetDefault("OUTPUT_COLUMN", "pre_content")
	v.SetDefault("DEDUPLICATE", false)
	v.SetDefault("STORAGE_DIR", "./data")

	// Cache defaults
	v.SetDefault("CACHE_BACKEND", CacheBackendNone)
	v.SetDefault("CACHE_SIZE", 10000)
	v.SetDefault("CACHE_TTL_SECONDS", 86400)

	// Redis defaults
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	// Database defaults
	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "reviewrefinery")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_LOG_LEVEL", "warn")

	// Worker defaults
	v.SetDefault("QUEUE_CONCURRENCY", 10)
	v.SetDefault("QUEUE_STRICT_PRIORITY", false)
}

// Load reads configuration from defaults, an optional config file, a .env
// file in the working directory and the environment, in increasing priority.
func Load(configFile string) (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables only")
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	// Bind environment variables
	v.AutomaticEnv()

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.CacheBackend = strings.ToLower(strings.TrimSpace(config.CacheBackend))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks value ranges and required fields
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case CacheBackendNone, CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of none, memory, redis; got %q", c.CacheBackend)
	}

	if c.BatchWorkers < 0 {
		return fmt.Errorf("BATCH_WORKERS must not be negative")
	}
	if c.CacheBackend == CacheBackendMemory && c.CacheSize <= 0 {
		return fmt.Errorf("CACHE_SIZE must be positive for the memory cache")
	}
	if c.TextColumn == "" || c.OutputColumn == "" {
		return fmt.Errorf("TEXT_COLUMN and OUTPUT_COLUMN are required")
	}
	if c.TextColumn == c.OutputColumn {
		return fmt.Errorf("TEXT_COLUMN and OUTPUT_COLUMN must differ")
	}

	// Validate required fields
	if c.DBEnabled && c.DBUser == "" {
		return fmt.Errorf("DB_USER is required when DB_ENABLED is set")
	}

	return nil
}

// Cache returns the Redis cache settings
func (c *Config) Cache() *CacheConfig {
	return &CacheConfig{
		Host:         c.RedisHost,
		Port:         c.RedisPort,
		Password:     c.RedisPassword,
		DB:           c.RedisDB,
		DialTimeout:  5,
		ReadTimeout:  3,
		WriteTimeout: 3,
		PoolSize:     10,
		MinIdleConns: 2,
		TTLSeconds:   c.CacheTTLSeconds,
	}
}

// Queue returns the asynq settings
func (c *Config) Queue() *QueueConfig {
	return &QueueConfig{
		RedisHost:      c.RedisHost,
		RedisPort:      c.RedisPort,
		RedisPassword:  c.RedisPassword,
		RedisDB:        c.RedisDB,
		DialTimeout:    5,
		ReadTimeout:    3,
		WriteTimeout:   3,
		Concurrency:    c.QueueConcurrency,
		StrictPriority: c.QueueStrictPriority,
	}
}

// Database returns the PostgreSQL settings
func (c *Config) Database() *DatabaseConfig {
	return &DatabaseConfig{
		Host:            c.DBHost,
		Port:            c.DBPort,
		User:            c.DBUser,
		Password:        c.DBPassword,
		Database:        c.DBName,
		SSLMode:         c.DBSSLMode,
		LogLevel:        c.DBLogLevel,
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 3600,
		MaxConnIdleTime: 600,
	}
}

// GetDatabaseURL constructs the PostgreSQL connection string
func (c *Config) GetDatabaseURL() string {
	return c.Database().DSN()
}

// DSN builds the key/value connection string understood by pgx
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// GetRedisURL constructs the Redis address
func (c *Config) GetRedisURL() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// LogConfig logs the configuration (hiding sensitive data)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.String("environment", c.Environment),
		slog.String("refinery", c.RefineryVersion),
		slog.String("cache_backend", c.CacheBackend),
		slog.Int("batch_workers", c.BatchWorkers),
		slog.Bool("deduplicate", c.Deduplicate),
		slog.Bool("db_enabled", c.DBEnabled),
		slog.String("database", fmt.Sprintf("%s:%d/%s", c.DBHost, c.DBPort, c.DBName)),
		slog.String("redis", c.GetRedisURL()),
		slog.Bool("redis_password", c.RedisPassword != ""),
	)
}
