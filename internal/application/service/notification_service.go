package service

import (
	"context"
	"fmt"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/entity"
	"github.com/sefapa/sgpd/internal/domain/event"
)

// NotificationService reads persisted notifications and forwards new ones to the messenger
type NotificationService interface {
	ListForRecipient(ctx context.Context, recipientID string, limit int) ([]*entity.Notification, error)

	// DeliverAlert is the deadline.alert subscriber. The notification is already stored;
	// delivery errors are returned for logging only.
	DeliverAlert(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	messenger        port.Messenger
	logger           Logger
}

// NewNotificationService creates a new NotificationService. messenger may be nil.
func NewNotificationService(
	notificationRepo port.NotificationRepository,
	messenger port.Messenger,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		messenger:        messenger,
		logger:           logger,
	}
}

func (s *notificationServiceImpl) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]*entity.Notification, error) {
	if recipientID == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	notifications, err := s.notificationRepo.ListByRecipient(ctx, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *notificationServiceImpl) DeliverAlert(ctx context.Context, evt *event.Event) error {
	if s.messenger == nil {
		return nil
	}

	recipientID := evt.GetPayloadString("recipient_id")
	message := evt.GetPayloadString("message")
	if recipientID == "" || message == "" {
		return fmt.Errorf("deadline alert %s is missing recipient or message", evt.ID)
	}

	if err := s.messenger.SendText(ctx, recipientID, message); err != nil {
		s.logger.Error("Failed to deliver deadline alert",
			"request_id", evt.RequestID,
			"recipient_id", recipientID,
			"notification_id", evt.GetPayloadInt("notification_id"),
			"error", err)
		return fmt.Errorf("send message: %w", err)
	}

	s.logger.Info("Deadline alert delivered",
		"request_id", evt.RequestID,
		"recipient_id", recipientID,
		"message_length", len(message))
	return nil
}
