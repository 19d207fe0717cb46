package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Plans     PlansConfig     `mapstructure:"plans"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	PublicHost        string        `mapstructure:"public_host"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Database   string `mapstructure:"database"`
	SSLMode    string `mapstructure:"ssl_mode"`
	MaxConns   int32  `mapstructure:"max_conns"`
	MinConns   int32  `mapstructure:"min_conns"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	SecretKey     string        `mapstructure:"secret_key"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AgentTokenTTL time.Duration `mapstructure:"agent_token_ttl"`
	NotBeforeSkew time.Duration `mapstructure:"not_before_skew"`
	Leeway        time.Duration `mapstructure:"leeway"`
	DevLeeway     time.Duration `mapstructure:"dev_leeway"`
}

type LLMConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxResponseBytes int64         `mapstructure:"max_response_bytes"`
}

// Embedding providers
const (
	EmbeddingGemini = "gemini"
	EmbeddingOllama = "ollama"
)

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	OllamaHost string `mapstructure:"ollama_host"`
	Dimension  int    `mapstructure:"dimension"`
}

type VectorConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	APIKey        string        `mapstructure:"api_key"`
	UseTLS        bool          `mapstructure:"use_tls"`
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
	TopK          int           `mapstructure:"top_k"`
	ChunkWords    int           `mapstructure:"chunk_words"`
}

type PlansConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type SecurityConfig struct {
	DevMode   bool            `mapstructure:"dev_mode"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   string        `mapstructure:"file"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TokenLeeway returns the clock-skew allowance for token validation
func (c *Config) TokenLeeway() time.Duration {
	if c.Security.DevMode {
		return c.Auth.DevLeeway
	}
	return c.Auth.Leeway
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.SecretKey == "" {
		return nil, fmt.Errorf("auth.secret_key is required (SECRET_KEY)")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.middleware_timeout", "45s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Database
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "redbot")
	v.SetDefault("database.database", "redbot")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.sqlite_path", "redbot.db")

	// Redis
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "redbot:realtime")

	// Auth
	v.SetDefault("auth.token_ttl", "30m")
	v.SetDefault("auth.agent_token_ttl", "12h")
	v.SetDefault("auth.not_before_skew", "5s")
	v.SetDefault("auth.leeway", "120s")
	v.SetDefault("auth.dev_leeway", "300s")

	// LLM
	v.SetDefault("llm.request_timeout", "30s")
	v.SetDefault("llm.max_response_bytes", 2<<20)

	// Embedding
	v.SetDefault("embedding.provider", EmbeddingGemini)
	v.SetDefault("embedding.model", "text-embedding-004")
	v.SetDefault("embedding.ollama_host", "http://localhost:11434")
	v.SetDefault("embedding.dimension", 768)

	// Vector index
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.search_timeout", "15s")
	v.SetDefault("vector.top_k", 1)
	v.SetDefault("vector.chunk_words", 500)

	// Plans
	v.SetDefault("plans.sweep_interval", "10m")

	// Security
	v.SetDefault("security.dev_mode", false)
	v.SetDefault("security.rate_limit.requests_per_minute", 30)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_age", "168h")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.public_host", "PUBLIC_HOST")

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "POSTGRES_HOST")
	v.BindEnv("database.password", "POSTGRES_PASSWORD")
	v.BindEnv("database.sqlite_path", "SQLITE_PATH")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("auth.secret_key", "SECRET_KEY")

	// Embedding / vector index
	v.BindEnv("embedding.api_key", "GEMINI_API_KEY")
	v.BindEnv("embedding.ollama_host", "OLLAMA_HOST")
	v.BindEnv("vector.host", "QDRANT_HOST")
	v.BindEnv("vector.api_key", "QDRANT_API_KEY")

	v.BindEnv("security.dev_mode", "DEBUG")
}
