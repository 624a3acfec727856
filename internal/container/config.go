// Package container provides dependency injection and lifecycle management
// for the SGPD lifecycle engine.
package container

import (
	"fmt"
	"time"

	"github.com/sefapa/sgpd/internal/domain/deadline"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Lark messenger configuration
	Lark LarkConfig

	// OpenAI conference assistant configuration
	OpenAI OpenAIConfig

	// Accountability window
	Deadline DeadlineConfig

	// Daily job scheduling
	Scheduler SchedulerConfig

	// Storage configuration
	Storage StorageConfig

	// Server configuration
	Server ServerConfig

	// Workflow routing
	Workflow WorkflowConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the SQLite lock
	BusyTimeout time.Duration
}

// LarkConfig holds Lark messenger settings.
type LarkConfig struct {
	Enabled bool

	// AppID is the Lark application ID
	AppID string

	// AppSecret is the Lark application secret
	AppSecret string

	// ReceiveIDType is "email" or "open_id"
	ReceiveIDType string
}

// OpenAIConfig holds conference assistant settings.
type OpenAIConfig struct {
	Enabled bool

	// APIKey is the OpenAI API key
	APIKey string

	// BaseURL overrides the API endpoint (Azure or a compatible gateway)
	BaseURL string

	// Model is the chat model (e.g., "gpt-4o-mini")
	Model string

	// PromptsPath points to the prompts YAML; empty uses built-in prompts
	PromptsPath string

	// MaxPages caps PDF text extraction
	MaxPages int
}

// DeadlineConfig holds the accountability window settings.
type DeadlineConfig struct {
	WindowDays     int
	NearDueDays    int
	LegalReference string
}

// Policy converts the settings to a deadline policy
func (d DeadlineConfig) Policy() deadline.Policy {
	return deadline.Policy{WindowDays: d.WindowDays, NearDueDays: d.NearDueDays}
}

// SchedulerConfig holds daily job settings.
type SchedulerConfig struct {
	// Enabled starts the in-process daily worker
	Enabled bool

	Interval   time.Duration
	RunOnStart bool

	// Timeout bounds one daily run
	Timeout time.Duration
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// DocumentsDir is the base directory for accountability proofs
	DocumentsDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// MaxUploadBytes caps one uploaded file
	MaxUploadBytes int64
}

// WorkflowConfig holds approval chain settings.
type WorkflowConfig struct {
	// ChainMode is "flat" or "department"
	ChainMode string

	// BootstrapAdmin is created as an ADMIN profile on start when missing
	BootstrapAdmin string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	policy := deadline.DefaultPolicy()
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/sgpd.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Lark: LarkConfig{
			ReceiveIDType: "email",
		},
		OpenAI: OpenAIConfig{
			Model:    "gpt-4o-mini",
			MaxPages: 30,
		},
		Deadline: DeadlineConfig{
			WindowDays:  policy.WindowDays,
			NearDueDays: policy.NearDueDays,
		},
		Scheduler: SchedulerConfig{
			Enabled:    true,
			Interval:   24 * time.Hour,
			RunOnStart: true,
			Timeout:    10 * time.Minute,
		},
		Storage: StorageConfig{
			DocumentsDir: "data/documents",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: 20 << 20,
		},
		Workflow: WorkflowConfig{
			ChainMode: "flat",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if err := c.Deadline.Policy().Validate(); err != nil {
		return fmt.Errorf("deadline: %w", err)
	}

	// Validate Lark configuration
	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret are required when lark is enabled")
	}

	// Validate OpenAI configuration
	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when openai is enabled")
	}

	// Validate storage configuration
	if c.Storage.DocumentsDir == "" {
		return fmt.Errorf("storage.documents_dir is required")
	}

	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}

	return nil
}
