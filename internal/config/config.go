package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Supported LLM providers
const (
	ProviderOllama = "ollama"
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

// Supported job storage drivers
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	App        AppConfig        `yaml:"app"`
	Admission  AdmissionConfig  `yaml:"admission"`
	Extraction ExtractionConfig `yaml:"extraction"`
	LLM        LLMConfig        `yaml:"llm"`
	Worker     WorkerConfig     `yaml:"worker"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Storage    StorageConfig    `yaml:"storage"`
	Events     EventsConfig     `yaml:"events"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" env:"LOG_LEVEL"`
	Format       string `yaml:"format" env:"LOG_FORMAT"`
	Output       string `yaml:"output" env:"LOG_OUTPUT"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment" env:"APP_ENV"`
}

// AdmissionConfig holds the request admission settings for resume submission
type AdmissionConfig struct {
	MasterKey       string        `yaml:"master_key" env:"API_KEY"`
	GuestDailyLimit int           `yaml:"guest_daily_limit" env:"GUEST_USAGE_LIMIT"`
	Cooldown        time.Duration `yaml:"cooldown" env:"GUEST_COOLDOWN"`
	Header          string        `yaml:"header"`
}

// ExtractionConfig holds the text extraction tool settings
type ExtractionConfig struct {
	Pdftotext      string `yaml:"pdftotext" env:"PDFTOTEXT_PATH"`
	Pdftoppm       string `yaml:"pdftoppm" env:"PDFTOPPM_PATH"`
	Tesseract      string `yaml:"tesseract" env:"TESSERACT_PATH"`
	DPI            int    `yaml:"dpi"`
	Language       string `yaml:"language" env:"TESSERACT_LANG"`
	OCRConcurrency int    `yaml:"ocr_concurrency"`
	MaxPages       int    `yaml:"max_pages"`
}

// LLMConfig holds the language model backend selection and connection parameters
type LLMConfig struct {
	Provider    string        `yaml:"provider" env:"LLM_PROVIDER"`
	Timeout     time.Duration `yaml:"timeout" env:"LLM_TIMEOUT"`
	Temperature float64       `yaml:"temperature"`
	Ollama      OllamaConfig  `yaml:"ollama"`
	Google      GoogleConfig  `yaml:"google"`
	OpenAI      OpenAIConfig  `yaml:"openai"`
}

// OllamaConfig holds Ollama connection settings
type OllamaConfig struct {
	BaseURL string `yaml:"base_url" env:"OLLAMA_BASE_URL"`
	Model   string `yaml:"model" env:"OLLAMA_MODEL"`
}

// GoogleConfig holds Gemini API settings
type GoogleConfig struct {
	APIKey string `yaml:"api_key" env:"GOOGLE_API_KEY"`
	Model  string `yaml:"model" env:"GOOGLE_MODEL"`
}

// OpenAIConfig holds settings for OpenAI compatible chat completion APIs
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url" env:"OPENAI_BASE_URL"`
	APIKey  string `yaml:"api_key" env:"OPENAI_API_KEY"`
	Model   string `yaml:"model" env:"OPENAI_MODEL"`
}

// WorkerConfig holds background worker pool configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency" env:"WORKER_CONCURRENCY"`
	QueueSize       int           `yaml:"queue_size" env:"WORKER_QUEUE_SIZE"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// JobsConfig holds job retention settings
type JobsConfig struct {
	TTL           time.Duration `yaml:"ttl" env:"JOB_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// StorageConfig holds the job store configuration
type StorageConfig struct {
	Driver          string        `yaml:"driver" env:"STORAGE_DRIVER"`
	DSN             string        `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// EventsConfig holds job event publishing configuration
type EventsConfig struct {
	Enabled  bool           `yaml:"enabled" env:"EVENTS_ENABLED"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host" env:"RABBITMQ_HOST"`
	Port       int              `yaml:"port" env:"RABBITMQ_PORT"`
	User       string           `yaml:"user" env:"RABBITMQ_USER"`
	Password   string           `yaml:"password" env:"RABBITMQ_PASSWORD"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// Load reads and parses the configuration file, then applies environment overrides.
// Values absent from both keep their defaults; explicit values, zero included, are kept.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return config, nil
}

// Default returns the configuration used for every setting not given explicitly
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
		App: AppConfig{
			Name: "resume-extractor",
		},
		Admission: AdmissionConfig{
			MasterKey:       "test-secret-key",
			GuestDailyLimit: 3,
			Cooldown:        10 * time.Second,
			Header:          "X-API-Key",
		},
		Extraction: ExtractionConfig{
			Pdftotext:      "pdftotext",
			Pdftoppm:       "pdftoppm",
			Tesseract:      "tesseract",
			DPI:            300,
			Language:       "eng",
			OCRConcurrency: 2,
		},
		LLM: LLMConfig{
			Provider: ProviderOllama,
			Timeout:  120 * time.Second,
			Ollama: OllamaConfig{
				BaseURL: "http://localhost:11434",
				Model:   "gemma3",
			},
			Google: GoogleConfig{
				Model: "gemini-1.5-flash",
			},
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
			},
		},
		Worker: WorkerConfig{
			Concurrency:     4,
			QueueSize:       100,
			JobTimeout:      5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Jobs: JobsConfig{
			TTL:           24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Storage: StorageConfig{
			Driver: StorageMemory,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.ValidateServerConfig,
		c.ValidateAdmissionConfig,
		c.ValidateExtractionConfig,
		c.ValidateLLMConfig,
		c.ValidateWorkerConfig,
		c.ValidateStorageConfig,
		c.ValidateEventsConfig,
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}

	return nil
}

// ValidateServerConfig checks the HTTP server settings
func (c *Config) ValidateServerConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max_upload_bytes must be greater than 0")
	}

	return nil
}

// ValidateAdmissionConfig checks the admission gate settings
func (c *Config) ValidateAdmissionConfig() error {
	if c.Admission.GuestDailyLimit < 0 {
		return fmt.Errorf("admission guest_daily_limit must not be negative")
	}

	if c.Admission.Cooldown < 0 {
		return fmt.Errorf("admission cooldown must not be negative")
	}

	if c.Admission.Header == "" {
		return fmt.Errorf("admission header is required")
	}

	return nil
}

// ValidateExtractionConfig checks the extraction tool settings
func (c *Config) ValidateExtractionConfig() error {
	if c.Extraction.DPI <= 0 {
		return fmt.Errorf("extraction dpi must be greater than 0")
	}

	if c.Extraction.OCRConcurrency <= 0 {
		return fmt.Errorf("extraction ocr_concurrency must be greater than 0")
	}

	if c.Extraction.MaxPages < 0 {
		return fmt.Errorf("extraction max_pages must not be negative")
	}

	return nil
}

// ValidateLLMConfig checks the language model backend settings
func (c *Config) ValidateLLMConfig() error {
	switch c.LLM.Provider {
	case ProviderOllama:
		if c.LLM.Ollama.BaseURL == "" {
			return fmt.Errorf("llm ollama base_url is required")
		}
	case ProviderGoogle:
		if c.LLM.Google.APIKey == "" {
			return fmt.Errorf("llm google api_key is required")
		}
	case ProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("llm openai api_key is required")
		}
	default:
		return fmt.Errorf("unsupported llm provider: %q (must be one of %s, %s, %s)",
			c.LLM.Provider, ProviderOllama, ProviderGoogle, ProviderOpenAI)
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be greater than 0")
	}

	return nil
}

// ValidateWorkerConfig checks the worker pool settings
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker queue_size must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	return nil
}

// ValidateStorageConfig checks the job store settings
func (c *Config) ValidateStorageConfig() error {
	switch c.Storage.Driver {
	case StorageMemory:
		return nil
	case StoragePostgres, StorageSQLite:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage dsn is required for driver %q", c.Storage.Driver)
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.Storage.Driver)
	}
}

// ValidateEventsConfig checks the RabbitMQ settings when events are enabled
func (c *Config) ValidateEventsConfig() error {
	if !c.Events.Enabled {
		return nil
	}

	mq := c.Events.RabbitMQ
	if mq.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if mq.Port < MinPort || mq.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", mq.Port, MinPort, MaxPort)
	}

	if mq.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if mq.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}
