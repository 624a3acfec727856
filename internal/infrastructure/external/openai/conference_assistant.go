package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sefapa/sgpd/internal/application/port"
)

// chatCompleter is the part of the OpenAI client used here
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ConferenceAssistant implements port.ConferenceAssistant using OpenAI chat completions
type ConferenceAssistant struct {
	client  chatCompleter
	model   string
	prompts *PromptConfig
	now     func() time.Time
	logger  *zap.Logger
}

// Config holds the OpenAI client settings
type Config struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible gateways
	Model   string
}

// NewConferenceAssistant creates a new OpenAI backed conference assistant. prompts may be nil.
func NewConferenceAssistant(cfg Config, prompts *PromptConfig, logger *zap.Logger) *ConferenceAssistant {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newConferenceAssistant(openai.NewClientWithConfig(clientCfg), cfg.Model, prompts, logger)
}

func newConferenceAssistant(client chatCompleter, model string, prompts *PromptConfig, logger *zap.Logger) *ConferenceAssistant {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &ConferenceAssistant{
		client:  client,
		model:   model,
		prompts: prompts,
		now:     time.Now,
		logger:  logger,
	}
}

type approvedRequest struct {
	ID            string `json:"id"`
	Destination   string `json:"destino"`
	DepartureDate string `json:"data_inicio"`
	ReturnDate    string `json:"data_fim"`
}

// Analyze compares the trip report text with the approved request
func (a *ConferenceAssistant) Analyze(ctx context.Context, in port.ConferenceInput) (*port.ConferenceResult, error) {
	a.logger.Debug("Running conference analysis",
		zap.String("request_id", in.RequestID),
		zap.Int("report_length", len(in.ReportText)))

	prompt, err := a.buildUserPrompt(in)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.prompts.Conference.Temperature,
		MaxTokens:   a.prompts.Conference.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: a.prompts.Conference.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		a.logger.Error("OpenAI API call failed", zap.String("request_id", in.RequestID), zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	analysis := strings.TrimSpace(resp.Choices[0].Message.Content)
	if analysis == "" {
		return nil, fmt.Errorf("empty analysis from OpenAI")
	}

	model := resp.Model
	if model == "" {
		model = a.model
	}

	a.logger.Info("Conference analysis completed",
		zap.String("request_id", in.RequestID),
		zap.String("model", model),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return &port.ConferenceResult{
		RequestID: in.RequestID,
		Analysis:  analysis,
		Model:     model,
		CreatedAt: a.now(),
	}, nil
}

func (a *ConferenceAssistant) buildUserPrompt(in port.ConferenceInput) (string, error) {
	requestJSON, err := json.MarshalIndent(approvedRequest{
		ID:            in.RequestID,
		Destination:   in.Destination,
		DepartureDate: in.DepartureDate.Format("2006-01-02"),
		ReturnDate:    in.ReturnDate.Format("2006-01-02"),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal request context: %w", err)
	}

	return renderTemplate(a.prompts.Conference.UserTemplate, map[string]string{
		"RequestJSON": string(requestJSON),
		"ReportText":  in.ReportText,
	})
}
