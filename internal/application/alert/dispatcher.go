package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/sefapa/sgpd/internal/application/dispatcher"
	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/deadline"
	"github.com/sefapa/sgpd/internal/domain/entity"
	"github.com/sefapa/sgpd/internal/domain/event"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
	"github.com/sefapa/sgpd/pkg/tracing"
)

// DefaultLegalReference is the norm quoted in the deadline warning
const DefaultLegalReference = "Decreto 3.792/2024"

const messageTemplate = "Atenção, servidor %s. Faltam %d dias para o fim do seu prazo legal de prestação de contas conforme %s."

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// FailedSend is one request the batch could not notify
type FailedSend struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// BatchResult summarises one dispatcher run
type BatchResult struct {
	TriggerDate   time.Time    `json:"trigger_date"`
	ReturnDate    time.Time    `json:"return_date"`
	TotalSelected int          `json:"total_selected"`
	Sent          int          `json:"sent"`
	Skipped       int          `json:"skipped"`
	Failed        []FailedSend `json:"failed"`
}

// Dispatcher writes the near-due accountability warning, at most once per request and trigger date
type Dispatcher struct {
	requests      port.TravelRequestRepository
	profiles      port.ProfileRepository
	notifications port.NotificationRepository
	dispatches    port.AlertDispatchRepository
	txManager     port.TransactionManager

	events   dispatcher.Dispatcher
	policy   deadline.Policy
	legalRef string
	now      func() time.Time
	logger   Logger
}

// Option configures the alert dispatcher
type Option func(*Dispatcher)

// WithEvents publishes deadline.alert after each persisted notification
func WithEvents(d dispatcher.Dispatcher) Option {
	return func(a *Dispatcher) {
		a.events = d
	}
}

// WithPolicy sets the deadline policy
func WithPolicy(p deadline.Policy) Option {
	return func(a *Dispatcher) {
		a.policy = p
	}
}

// WithLegalReference replaces the quoted norm
func WithLegalReference(ref string) Option {
	return func(a *Dispatcher) {
		if ref != "" {
			a.legalRef = ref
		}
	}
}

// WithClock injects the time source used by Run
func WithClock(now func() time.Time) Option {
	return func(a *Dispatcher) {
		a.now = now
	}
}

// WithLogger sets the logger
func WithLogger(l Logger) Option {
	return func(a *Dispatcher) {
		a.logger = l
	}
}

// NewDispatcher creates a new alert dispatcher
func NewDispatcher(
	requests port.TravelRequestRepository,
	profiles port.ProfileRepository,
	notifications port.NotificationRepository,
	dispatches port.AlertDispatchRepository,
	txManager port.TransactionManager,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		requests:      requests,
		profiles:      profiles,
		notifications: notifications,
		dispatches:    dispatches,
		txManager:     txManager,
		policy:        deadline.DefaultPolicy(),
		legalRef:      DefaultLegalReference,
		now:           time.Now,
		logger:        nopLogger{},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// ComposeMessage builds the warning text sent to the requester
func ComposeMessage(name string, daysRemaining int, legalRef string) string {
	return fmt.Sprintf(messageTemplate, name, daysRemaining, legalRef)
}

// Run dispatches for today's date on the injected clock
func (d *Dispatcher) Run(ctx context.Context) (*BatchResult, error) {
	return d.RunFor(ctx, d.now())
}

// RunFor dispatches as if today were the given day. Only a failed selection returns an error;
// per-request failures land in BatchResult.Failed and the batch continues.
func (d *Dispatcher) RunFor(ctx context.Context, today time.Time) (result *BatchResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "alert.Dispatch", map[string]string{
		"today": today.Format("2006-01-02"),
	})
	defer func() { tracing.EndSpan(span, err) }()

	result = &BatchResult{
		TriggerDate: deadline.Date(today),
		ReturnDate:  d.policy.AlertReturnDate(today),
		Failed:      []FailedSend{},
	}

	selected, err := d.requests.ListByStatusAndReturnDate(ctx, domainwf.StateAwaitingAccountability.String(), result.ReturnDate)
	if err != nil {
		d.logger.Error("Failed to select requests for deadline alert", "return_date", result.ReturnDate, "error", err)
		return nil, fmt.Errorf("failed to select requests: %w", err)
	}
	result.TotalSelected = len(selected)

	for i, req := range selected {
		if ctxErr := ctx.Err(); ctxErr != nil {
			for _, rest := range selected[i:] {
				result.Failed = append(result.Failed, FailedSend{RequestID: rest.ID, Error: ctxErr.Error()})
			}
			d.logger.Error("Deadline alert batch interrupted", "remaining", len(selected)-i, "error", ctxErr)
			break
		}

		sent, err := d.dispatchOne(ctx, req, today, result.TriggerDate)
		switch {
		case err != nil:
			result.Failed = append(result.Failed, FailedSend{RequestID: req.ID, Error: err.Error()})
			d.logger.Error("Deadline alert failed", "request_id", req.ID, "error", err)
		case sent:
			result.Sent++
		default:
			result.Skipped++
		}
	}

	d.logger.Info("Deadline alert batch finished",
		"trigger_date", result.TriggerDate.Format("2006-01-02"),
		"selected", result.TotalSelected,
		"sent", result.Sent,
		"skipped", result.Skipped,
		"failed", len(result.Failed))

	return result, nil
}

// dispatchOne claims the (request, trigger date) slot and writes the notification in one transaction.
// It returns false without error when the slot was already claimed.
func (d *Dispatcher) dispatchOne(ctx context.Context, req *entity.TravelRequest, today, triggerDate time.Time) (bool, error) {
	profile, err := d.profiles.GetByID(ctx, req.RequesterID)
	if err != nil {
		return false, fmt.Errorf("failed to load requester: %w", err)
	}

	status := d.policy.Evaluate(req.ReturnDate, today)
	notification := &entity.Notification{
		RecipientID: req.RequesterID,
		RequestID:   req.ID,
		Message:     ComposeMessage(profile.DisplayName(), status.DaysRemaining, d.legalRef),
		CreatedAt:   d.now(),
	}

	var claimed bool
	err = d.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		claimed, err = d.dispatches.Claim(txCtx, req.ID, triggerDate)
		if err != nil || !claimed {
			return err
		}
		if err := d.notifications.Create(txCtx, notification); err != nil {
			return err
		}
		return d.dispatches.Attach(txCtx, req.ID, triggerDate, notification.ID)
	})
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	if d.events != nil {
		d.events.DispatchAsync(ctx, event.NewEvent(event.TypeDeadlineAlert, req.ID, map[string]interface{}{
			"recipient_id":    notification.RecipientID,
			"notification_id": notification.ID,
			"message":         notification.Message,
			"days_remaining":  status.DaysRemaining,
		}))
	}

	return true, nil
}
