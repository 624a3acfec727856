package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/sefapa/sgpd/internal/application/port"
)

const (
	ReceiveIDTypeEmail  = "email"
	ReceiveIDTypeOpenID = "open_id"

	msgTypeText = "text"
)

// messageCreator is the slice of the IM API the messenger needs
type messageCreator interface {
	Create(ctx context.Context, req *larkIm.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkIm.CreateMessageResp, error)
}

// messageSender delivers one built message body
type messageSender interface {
	send(ctx context.Context, receiveIDType string, body *larkIm.CreateMessageReqBody) (*larkIm.CreateMessageResp, error)
}

type imSender struct {
	messages messageCreator
}

func (s imSender) send(ctx context.Context, receiveIDType string, body *larkIm.CreateMessageReqBody) (*larkIm.CreateMessageResp, error) {
	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(body).
		Build()
	return s.messages.Create(ctx, req)
}

// Messenger implements port.Messenger over Lark IM text messages.
// Recipients are profile ids; the profile email (or id, for open_id) is the Lark receive id.
type Messenger struct {
	sender        messageSender
	profiles      port.ProfileRepository
	receiveIDType string
	logger        *zap.Logger
}

// NewMessenger creates a new Lark messenger
func NewMessenger(sdkClient *SDKClient, profiles port.ProfileRepository, logger *zap.Logger) *Messenger {
	return newMessenger(imSender{messages: sdkClient.GetClient().Im.Message}, profiles, sdkClient.ReceiveIDType(), logger)
}

func newMessenger(sender messageSender, profiles port.ProfileRepository, receiveIDType string, logger *zap.Logger) *Messenger {
	return &Messenger{
		sender:        sender,
		profiles:      profiles,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

// SendText sends content as a plain text message to the recipient profile
func (m *Messenger) SendText(ctx context.Context, recipientID, content string) error {
	if recipientID == "" {
		return fmt.Errorf("recipientID cannot be empty")
	}
	if content == "" {
		return fmt.Errorf("content cannot be empty")
	}

	receiveID, err := m.receiveID(ctx, recipientID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return fmt.Errorf("failed to marshal text content: %w", err)
	}

	reqBody := larkIm.NewCreateMessageReqBodyBuilder().
		ReceiveId(receiveID).
		MsgType(msgTypeText).
		Content(string(body)).
		Build()

	resp, err := m.sender.send(ctx, m.receiveIDType, reqBody)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("recipient_id", recipientID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("recipient_id", recipientID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("recipient_id", recipientID))

	return nil
}

func (m *Messenger) receiveID(ctx context.Context, recipientID string) (string, error) {
	if m.receiveIDType == ReceiveIDTypeOpenID {
		return recipientID, nil
	}

	profile, err := m.profiles.GetByID(ctx, recipientID)
	if err != nil {
		return "", fmt.Errorf("failed to load recipient profile: %w", err)
	}
	if profile == nil || profile.Email == "" {
		return "", fmt.Errorf("recipient %s has no email on file", recipientID)
	}
	return profile.Email, nil
}
