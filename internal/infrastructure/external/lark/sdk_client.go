package lark

import (
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string

	// ReceiveIDType selects how recipients are addressed: "email" (default) or "open_id"
	ReceiveIDType string
}

// SDKClient wraps the Lark SDK client
type SDKClient struct {
	client        *lark.Client
	receiveIDType string
	logger        *zap.Logger
}

// NewSDKClient creates a new Lark SDK client
func NewSDKClient(cfg Config, logger *zap.Logger) *SDKClient {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	receiveIDType := cfg.ReceiveIDType
	if receiveIDType == "" {
		receiveIDType = ReceiveIDTypeEmail
	}

	return &SDKClient{
		client:        client,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

// GetClient returns the underlying Lark SDK client
func (c *SDKClient) GetClient() *lark.Client {
	return c.client
}

// ReceiveIDType returns the configured recipient addressing mode
func (c *SDKClient) ReceiveIDType() string {
	return c.receiveIDType
}
