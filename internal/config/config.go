package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Tutor    TutorConfig    `mapstructure:"tutor"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig selects the persistence backend. Driver is one of
// "postgres", "sqlite" or "memory".
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
	Migrations string `mapstructure:"migrations"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Password           string        `mapstructure:"password"`
	DB                 int           `mapstructure:"db"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
	LockWait           time.Duration `mapstructure:"lock_wait"`
	EmbeddingCacheTTL  time.Duration `mapstructure:"embedding_cache_ttl"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LLMConfig struct {
	DefaultProvider   string       `mapstructure:"default_provider"`
	EmbeddingProvider string       `mapstructure:"embedding_provider"`
	Gemini            GeminiConfig `mapstructure:"gemini"`
	OpenAI            OpenAIConfig `mapstructure:"openai"`
	Ollama            OllamaConfig `mapstructure:"ollama"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	VisionModel    string `mapstructure:"vision_model"`
	AudioModel     string `mapstructure:"audio_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// OpenAIConfig also serves any OpenAI-compatible endpoint (DeepSeek and friends)
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

type OllamaConfig struct {
	Host           string `mapstructure:"host"`
	DefaultModel   string `mapstructure:"default_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// TutorConfig holds the pipeline tunables
type TutorConfig struct {
	MaxHistoryLength  int      `mapstructure:"max_history_length"`
	RetrievalK        int      `mapstructure:"retrieval_k"`
	MaxRetries        int      `mapstructure:"max_retries"`
	RetryDelaySeconds float64  `mapstructure:"retry_delay_seconds"`
	SystemPrompt      string   `mapstructure:"system_prompt"`
	TrivialInputs     []string `mapstructure:"trivial_inputs"`
	ResetCommands     []string `mapstructure:"reset_commands"`
}

// RetryDelay converts the fractional seconds setting into a duration
func (c TutorConfig) RetryDelay() time.Duration {
	if c.RetryDelaySeconds <= 0 {
		return 0
	}
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

type SheetsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Range           string `mapstructure:"range"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type IngestConfig struct {
	CorpusDir         string  `mapstructure:"corpus_dir"`
	ChunkSize         int     `mapstructure:"chunk_size"`
	ChunkOverlap      int     `mapstructure:"chunk_overlap"`
	BatchSize         int     `mapstructure:"batch_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
	// MaxAge and RotationTime only apply when File is set
	MaxAge       time.Duration `mapstructure:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "110s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.max_upload_bytes", 20<<20)

	// Database
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tutor")
	v.SetDefault("database.database", "tutor")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.sqlite_path", "./data/tutor.db")
	v.SetDefault("database.migrations", "file://migrations")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "3m")
	v.SetDefault("redis.lock_wait", "30s")
	v.SetDefault("redis.embedding_cache_ttl", "24h")
	v.SetDefault("redis.rate_limit_per_minute", 30)
	v.SetDefault("redis.rate_limit_burst", 5)

	// Auth
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.token_ttl", "8760h")

	// LLM
	v.SetDefault("llm.default_provider", "gemini")
	v.SetDefault("llm.embedding_provider", "gemini")
	v.SetDefault("llm.gemini.model", "gemini-2.5-pro")
	v.SetDefault("llm.gemini.vision_model", "gemini-2.5-flash")
	v.SetDefault("llm.gemini.audio_model", "gemini-2.5-flash")
	v.SetDefault("llm.gemini.embedding_model", "text-embedding-004")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.ollama.host", "http://localhost:11434")
	v.SetDefault("llm.ollama.default_model", "llama3")
	v.SetDefault("llm.ollama.embedding_model", "nomic-embed-text")

	// Tutor
	v.SetDefault("tutor.max_history_length", 20)
	v.SetDefault("tutor.retrieval_k", 3)
	v.SetDefault("tutor.max_retries", 2)
	v.SetDefault("tutor.retry_delay_seconds", 2.0)
	v.SetDefault("tutor.trivial_inputs", []string{
		"hi", "hello", "hey", "ok", "okay", "yes", "no", "thanks", "thank you",
		"好", "好的", "嗯", "對", "是", "不是", "謝謝", "你好", "哈囉",
	})
	v.SetDefault("tutor.reset_commands", []string{"/reset", "重新開始"})

	// Storage
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.prefix", "uploads")

	// Sheets
	v.SetDefault("sheets.enabled", false)
	v.SetDefault("sheets.range", "Sheet1!A1")

	// Ingest
	v.SetDefault("ingest.corpus_dir", "./corpus")
	v.SetDefault("ingest.chunk_size", 1000)
	v.SetDefault("ingest.chunk_overlap", 200)
	v.SetDefault("ingest.batch_size", 25)
	v.SetDefault("ingest.requests_per_second", 1.0)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_age", "168h")
	v.SetDefault("logging.rotation_time", "24h")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "POSTGRES_HOST")
	v.BindEnv("database.password", "POSTGRES_PASSWORD")
	v.BindEnv("database.sqlite_path", "SQLITE_PATH")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// LLM API Keys
	v.BindEnv("llm.default_provider", "LLM_PROVIDER")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")

	// Tutor
	v.BindEnv("tutor.max_history_length", "MAX_HISTORY_LENGTH")
	v.BindEnv("tutor.retrieval_k", "RETRIEVAL_K")
	v.BindEnv("tutor.max_retries", "MAX_RETRIES")
	v.BindEnv("tutor.retry_delay_seconds", "RETRY_DELAY_SECONDS")

	// Storage
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")

	// Sheets
	v.BindEnv("sheets.spreadsheet_id", "SPREADSHEET_ID")
	v.BindEnv("sheets.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
}
