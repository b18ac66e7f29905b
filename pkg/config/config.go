package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Transcription modes
const (
	TranscriptionModeV1      = "v1"
	TranscriptionModeV2      = "v2"
	TranscriptionModeTwoPass = "two-pass"
	TranscriptionModeChain   = "chain"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Assembly  AssemblyAIConfig
	GoogleSTT GoogleSTTConfig
	Groq      GroqConfig
	Notify    NotifyConfig
	Pipeline  PipelineConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds the shared secret used by internal services calling the trigger endpoint
type JWTConfig struct {
	ServiceSecret string
	Issuer        string
	TokenExpiry   time.Duration
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type            string // "minio" or "s3"
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	PresignExpiry   time.Duration
}

// AssemblyAIConfig configures the text-quality transcription provider
type AssemblyAIConfig struct {
	APIKey       string
	LanguageCode string
}

// GoogleSTTConfig configures the diarization-quality transcription provider.
// Credentials may be an API key, a service-account JSON string or a key file path.
type GoogleSTTConfig struct {
	Credentials  string
	LanguageCode string
	Endpoint     string
	SampleRate   int
	Encoding     string
}

// GroqConfig configures the chat completion provider
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

// NotifyConfig names the redis channels notifications are published on
type NotifyConfig struct {
	UserChannel string
	OpsChannel  string
}

// PipelineConfig holds the recording pipeline knobs, read from PIPELINE_* variables
type PipelineConfig struct {
	TranscriptionMode  string          `envconfig:"TRANSCRIPTION_MODE" default:"two-pass"`
	TranscriptionChain []string        `envconfig:"TRANSCRIPTION_CHAIN" default:"v2,v1"`
	KeywordHints       []string        `envconfig:"KEYWORD_HINTS"`
	SilenceThreshold   float64         `envconfig:"SILENCE_THRESHOLD_SECONDS" default:"3.0"`
	MaxAttempts        int             `envconfig:"MAX_ATTEMPTS" default:"3"`
	BackoffSchedule    []time.Duration `envconfig:"BACKOFF_SCHEDULE" default:"0s,5s,15s"`
	MaxSilenceSlots    int             `envconfig:"MAX_SILENCE_SLOTS" default:"3"`
	EnableProfiling    bool            `envconfig:"ENABLE_PROFILING" default:"true"`
	ScoringWeightsFile string          `envconfig:"SCORING_WEIGHTS_FILE"`
	WorkerCount        int             `envconfig:"WORKER_COUNT" default:"2"`
	QueueSize          int             `envconfig:"QUEUE_SIZE" default:"64"`
	PollInterval       time.Duration   `envconfig:"POLL_INTERVAL" default:"30s"`
	StaleAfter         time.Duration   `envconfig:"STALE_AFTER" default:"30m"`
	LockTTL            time.Duration   `envconfig:"LOCK_TTL" default:"45m"`
	MasteryScore       int             `envconfig:"MASTERY_SCORE" default:"80"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "playcoach"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			ServiceSecret: getEnv("JWT_SERVICE_SECRET", "your-service-secret-change-in-production"),
			Issuer:        getEnv("JWT_ISSUER", "playcoach-upload"),
			TokenExpiry:   getEnvAsDuration("JWT_SERVICE_TOKEN_EXPIRY", "15m"),
		},
		Storage: StorageConfig{
			Type:            getEnv("STORAGE_TYPE", "minio"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "play-sessions"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			PresignExpiry:   getEnvAsDuration("STORAGE_PRESIGN_EXPIRY", "168h"),
		},
		Assembly: AssemblyAIConfig{
			APIKey:       getEnv("ASSEMBLYAI_API_KEY", ""),
			LanguageCode: getEnv("ASSEMBLYAI_LANGUAGE_CODE", "en_us"),
		},
		GoogleSTT: GoogleSTTConfig{
			Credentials:  getEnv("GOOGLE_STT_CREDENTIALS", ""),
			LanguageCode: getEnv("GOOGLE_STT_LANGUAGE_CODE", "en-US"),
			Endpoint:     getEnv("GOOGLE_STT_ENDPOINT", "https://speech.googleapis.com/v1p1beta1"),
			SampleRate:   getEnvAsInt("GOOGLE_STT_SAMPLE_RATE", 16000),
			Encoding:     getEnv("GOOGLE_STT_ENCODING", "LINEAR16"),
		},
		Groq: GroqConfig{
			APIKey:      getEnv("GROQ_API_KEY", ""),
			BaseURL:     getEnv("GROQ_API_URL", "https://api.groq.com/openai/v1"),
			Model:       getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			Timeout:     getEnvAsDuration("GROQ_TIMEOUT", "3m"),
			MaxRetries:  getEnvAsInt("GROQ_MAX_RETRIES", 2),
			Temperature: getEnvAsFloat("GROQ_TEMPERATURE", 0.3),
		},
		Notify: NotifyConfig{
			UserChannel: getEnv("NOTIFY_USER_CHANNEL", "playcoach:user-events"),
			OpsChannel:  getEnv("NOTIFY_OPS_CHANNEL", "playcoach:ops-alerts"),
		},
	}

	if err := envconfig.Process("PIPELINE", &config.Pipeline); err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if c.Server.Environment == "production" {
		if c.Groq.APIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required")
		}
		if c.Pipeline.NeedsProvider(TranscriptionModeV2) && c.Assembly.APIKey == "" {
			return fmt.Errorf("ASSEMBLYAI_API_KEY is required for transcription mode %s", c.Pipeline.TranscriptionMode)
		}
	}
	return nil
}

// Validate checks the pipeline knobs are usable
func (p *PipelineConfig) Validate() error {
	switch p.TranscriptionMode {
	case TranscriptionModeV1, TranscriptionModeV2, TranscriptionModeTwoPass:
	case TranscriptionModeChain:
		if len(p.TranscriptionChain) == 0 {
			return fmt.Errorf("PIPELINE_TRANSCRIPTION_CHAIN must list at least one provider")
		}
		for _, name := range p.TranscriptionChain {
			if name != TranscriptionModeV1 && name != TranscriptionModeV2 {
				return fmt.Errorf("unknown provider %q in PIPELINE_TRANSCRIPTION_CHAIN", name)
			}
		}
	default:
		return fmt.Errorf("unknown PIPELINE_TRANSCRIPTION_MODE %q", p.TranscriptionMode)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("PIPELINE_MAX_ATTEMPTS must be at least 1")
	}
	if p.SilenceThreshold <= 0 {
		return fmt.Errorf("PIPELINE_SILENCE_THRESHOLD_SECONDS must be positive")
	}
	if p.MaxSilenceSlots < 0 {
		return fmt.Errorf("PIPELINE_MAX_SILENCE_SLOTS must not be negative")
	}
	if p.WorkerCount < 1 {
		return fmt.Errorf("PIPELINE_WORKER_COUNT must be at least 1")
	}
	// a live attempt must never look stale to the sweeper
	if p.LockTTL <= p.StaleAfter {
		return fmt.Errorf("PIPELINE_LOCK_TTL (%s) must be longer than PIPELINE_STALE_AFTER (%s)", p.LockTTL, p.StaleAfter)
	}
	return nil
}

// NeedsProvider reports whether the configured mode calls the named provider
func (p *PipelineConfig) NeedsProvider(name string) bool {
	switch p.TranscriptionMode {
	case TranscriptionModeTwoPass:
		return true
	case TranscriptionModeChain:
		for _, n := range p.TranscriptionChain {
			if n == name {
				return true
			}
		}
		return false
	default:
		return p.TranscriptionMode == name
	}
}

// BackoffBefore returns the delay to wait before the zero-based attempt.
// Attempts past the end of the schedule reuse its last entry.
func (p *PipelineConfig) BackoffBefore(attempt int) time.Duration {
	if len(p.BackoffSchedule) == 0 || attempt < 0 {
		return 0
	}
	if attempt >= len(p.BackoffSchedule) {
		return p.BackoffSchedule[len(p.BackoffSchedule)-1]
	}
	return p.BackoffSchedule[attempt]
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
