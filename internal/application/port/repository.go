package port

import (
	"context"
	"time"

	"github.com/sefapa/sgpd/internal/domain/entity"
)

// TravelRequestRepository defines persistence operations for TravelRequest.
// Lookups return (nil, nil) when the row does not exist.
type TravelRequestRepository interface {
	Create(ctx context.Context, req *entity.TravelRequest) error
	GetByID(ctx context.Context, id string) (*entity.TravelRequest, error)

	// UpdateDraft rewrites the editable fields of a request that is still in DRAFT
	UpdateDraft(ctx context.Context, req *entity.TravelRequest) error

	// UpdateStatus moves the request to newStatus only if it is still in expected.
	// Returns workflow.ErrConcurrentModification when no row matched.
	UpdateStatus(ctx context.Context, id, expected, newStatus string) error

	ListByStatusAndReturnDate(ctx context.Context, status string, returnDate time.Time) ([]*entity.TravelRequest, error)
	ListByStatusReturnedBefore(ctx context.Context, status string, before time.Time) ([]*entity.TravelRequest, error)
	List(ctx context.Context, filter entity.TravelRequestFilter) ([]*entity.TravelRequest, error)
}

// WorkflowEntryRepository is the append-only approval log
type WorkflowEntryRepository interface {
	Append(ctx context.Context, entry *entity.WorkflowEntry) error

	// ListByRequestID returns entries oldest first
	ListByRequestID(ctx context.Context, requestID string) ([]*entity.WorkflowEntry, error)

	// Latest returns the most recent entry or nil
	Latest(ctx context.Context, requestID string) (*entity.WorkflowEntry, error)
}

// ProfileRepository defines persistence operations for Profile
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
	Upsert(ctx context.Context, profile *entity.Profile) error
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*entity.Notification, error)
	CountByRequestID(ctx context.Context, requestID string) (int, error)
}

// AlertDispatchRepository guards the deadline alert against duplicates
type AlertDispatchRepository interface {
	// Claim reserves (requestID, triggerDate). It returns false when already claimed.
	Claim(ctx context.Context, requestID string, triggerDate time.Time) (bool, error)

	// Attach links the claimed slot to the notification written for it
	Attach(ctx context.Context, requestID string, triggerDate time.Time, notificationID int64) error
}

// AccountabilityRepository stores accountability submissions
type AccountabilityRepository interface {
	Create(ctx context.Context, sub *entity.AccountabilitySubmission) error
	GetByRequestID(ctx context.Context, requestID string) (*entity.AccountabilitySubmission, error)
}

// SettingRepository reads and writes system settings. Get returns "" for unknown keys.
type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
