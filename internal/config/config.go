package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Lark      LarkConfig      `mapstructure:"lark"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Deadline  DeadlineConfig  `mapstructure:"deadline"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LarkConfig holds the outbound messenger configuration
type LarkConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
}

// OpenAIConfig holds the conference assistant configuration
type OpenAIConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	PromptsPath string `mapstructure:"prompts_path"`
	MaxPages    int    `mapstructure:"max_pages"`
}

// DeadlineConfig holds the accountability window
type DeadlineConfig struct {
	WindowDays     int    `mapstructure:"window_days"`
	NearDueDays    int    `mapstructure:"near_due_days"`
	LegalReference string `mapstructure:"legal_reference"`
}

// SchedulerConfig drives the in-process daily job
type SchedulerConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds file storage configuration
type StorageConfig struct {
	DocumentsDir string `mapstructure:"documents_dir"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	OutputFile string `mapstructure:"output_file"`
}

// WorkflowConfig selects the approval chain routing
type WorkflowConfig struct {
	// ChainMode is "flat" (any CHEFIA) or "department" (requester's department head)
	ChainMode      string `mapstructure:"chain_mode"`
	BootstrapAdmin string `mapstructure:"bootstrap_admin"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// A missing file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", 20<<20)

	// Database defaults
	v.SetDefault("database.path", "data/sgpd.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Lark defaults
	v.SetDefault("lark.enabled", false)
	v.SetDefault("lark.receive_id_type", "email")

	// OpenAI defaults
	v.SetDefault("openai.enabled", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.prompts_path", "configs/prompts.yaml")
	v.SetDefault("openai.max_pages", 30)

	// Deadline defaults
	v.SetDefault("deadline.window_days", 5)
	v.SetDefault("deadline.near_due_days", 2)
	v.SetDefault("deadline.legal_reference", "Decreto 3.792/2024")

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", 24*time.Hour)
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("scheduler.timeout", 10*time.Minute)

	v.SetDefault("storage.documents_dir", "data/documents")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("workflow.chain_mode", "flat")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"lark.app_id":              "LARK_APP_ID",
		"lark.app_secret":          "LARK_APP_SECRET",
		"openai.api_key":           "OPENAI_API_KEY",
		"openai.base_url":          "OPENAI_BASE_URL",
		"database.path":            "SGPD_DATABASE_PATH",
		"server.port":              "SGPD_PORT",
		"storage.documents_dir":    "SGPD_DOCUMENTS_DIR",
		"workflow.bootstrap_admin": "SGPD_BOOTSTRAP_ADMIN",
		"logger.level":             "SGPD_LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.DocumentsDir == "" {
		return fmt.Errorf("storage.documents_dir is required")
	}

	if c.Deadline.WindowDays <= 0 {
		return fmt.Errorf("deadline.window_days must be positive")
	}
	if c.Deadline.NearDueDays < 0 || c.Deadline.NearDueDays >= c.Deadline.WindowDays {
		return fmt.Errorf("deadline.near_due_days must be in [0, window_days)")
	}

	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}

	// Validate Lark credentials only when the messenger is on
	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
	}

	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}

	switch c.Workflow.ChainMode {
	case "flat", "department":
	default:
		return fmt.Errorf("workflow.chain_mode must be flat or department, got %q", c.Workflow.ChainMode)
	}

	return nil
}
