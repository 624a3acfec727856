package config

import (
	"github.com/sefapa/sgpd/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Lark: container.LarkConfig{
			Enabled:       c.Lark.Enabled,
			AppID:         c.Lark.AppID,
			AppSecret:     c.Lark.AppSecret,
			ReceiveIDType: c.Lark.ReceiveIDType,
		},
		OpenAI: container.OpenAIConfig{
			Enabled:     c.OpenAI.Enabled,
			APIKey:      c.OpenAI.APIKey,
			BaseURL:     c.OpenAI.BaseURL,
			Model:       c.OpenAI.Model,
			PromptsPath: c.OpenAI.PromptsPath,
			MaxPages:    c.OpenAI.MaxPages,
		},
		Deadline: container.DeadlineConfig{
			WindowDays:     c.Deadline.WindowDays,
			NearDueDays:    c.Deadline.NearDueDays,
			LegalReference: c.Deadline.LegalReference,
		},
		Scheduler: container.SchedulerConfig{
			Enabled:    c.Scheduler.Enabled,
			Interval:   c.Scheduler.Interval,
			RunOnStart: c.Scheduler.RunOnStart,
			Timeout:    c.Scheduler.Timeout,
		},
		Storage: container.StorageConfig{
			DocumentsDir: c.Storage.DocumentsDir,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			MaxUploadBytes: c.Server.MaxUploadBytes,
		},
		Workflow: container.WorkflowConfig{
			ChainMode:      c.Workflow.ChainMode,
			BootstrapAdmin: c.Workflow.BootstrapAdmin,
		},
	}
}
