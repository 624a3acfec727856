package entity

import "time"

// Notification is a persisted, write-once message to a user
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID string    `json:"recipient_id"`
	RequestID   string    `json:"request_id,omitempty"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// AlertDispatch records that the deadline alert for a request went out on a trigger date.
// (request_id, trigger_date) is unique.
type AlertDispatch struct {
	RequestID      string    `json:"request_id"`
	TriggerDate    time.Time `json:"trigger_date"`
	NotificationID int64     `json:"notification_id"`
	CreatedAt      time.Time `json:"created_at"`
}
