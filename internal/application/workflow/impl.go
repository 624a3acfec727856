package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sefapa/sgpd/internal/application/dispatcher"
	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/application/service"
	"github.com/sefapa/sgpd/internal/domain/deadline"
	"github.com/sefapa/sgpd/internal/domain/entity"
	"github.com/sefapa/sgpd/internal/domain/event"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
	"github.com/sefapa/sgpd/pkg/tracing"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	requestRepo        port.TravelRequestRepository
	profileRepo        port.ProfileRepository
	accountabilityRepo port.AccountabilityRepository
	workflowLog        service.WorkflowLogService
	txManager          port.TransactionManager

	dispatcher dispatcher.Dispatcher
	resolver   ApproverResolver
	policy     deadline.Policy
	now        func() time.Time
	logger     Logger
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithResolver replaces the default flat approval chain
func WithResolver(r ApproverResolver) EngineOption {
	return func(e *engineImpl) {
		e.resolver = r
	}
}

// WithPolicy sets the accountability deadline policy used by the timed guards
func WithPolicy(p deadline.Policy) EngineOption {
	return func(e *engineImpl) {
		e.policy = p
	}
}

// WithClock injects the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	requestRepo port.TravelRequestRepository,
	profileRepo port.ProfileRepository,
	accountabilityRepo port.AccountabilityRepository,
	workflowLog service.WorkflowLogService,
	txManager port.TransactionManager,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		requestRepo:        requestRepo,
		profileRepo:        profileRepo,
		accountabilityRepo: accountabilityRepo,
		workflowLog:        workflowLog,
		txManager:          txManager,
		resolver:           NewFlatChainResolver(),
		policy:             deadline.DefaultPolicy(),
		now:                time.Now,
		logger:             nopLogger{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// transition is one engine call on its way to the conditional write
type transition struct {
	requestID string
	trigger   domainwf.Trigger
	actorID   string
	comment   string
	expected  domainwf.State

	// authorize runs after the edge is known to exist and returns the actor role to record
	authorize func(ctx context.Context, req *entity.TravelRequest, from domainwf.State) (string, error)

	// inTx runs inside the transaction after the status write
	inTx func(ctx context.Context, req *entity.TravelRequest) error
}

func (e *engineImpl) Submit(ctx context.Context, requestID, actorID string) (*TransitionResult, error) {
	return e.fire(ctx, transition{
		requestID: requestID,
		trigger:   domainwf.TriggerSubmit,
		actorID:   actorID,
		authorize: func(ctx context.Context, req *entity.TravelRequest, from domainwf.State) (string, error) {
			profile, err := e.requireRequester(ctx, req, actorID)
			if err != nil {
				return "", err
			}
			if missing := req.MissingSubmissionFields(); len(missing) > 0 {
				return "", fmt.Errorf("%w: missing %s", domainwf.ErrValidation, strings.Join(missing, ", "))
			}
			if !req.DatesInOrder() {
				return "", fmt.Errorf("%w: return_date before departure_date", domainwf.ErrValidation)
			}
			return profile.Role, nil
		},
	})
}

func (e *engineImpl) Approve(ctx context.Context, d Decision) (*TransitionResult, error) {
	return e.decide(ctx, domainwf.TriggerApprove, d)
}

func (e *engineImpl) Reject(ctx context.Context, d Decision) (*TransitionResult, error) {
	return e.decide(ctx, domainwf.TriggerReject, d)
}

func (e *engineImpl) ReturnForCorrection(ctx context.Context, d Decision) (*TransitionResult, error) {
	return e.decide(ctx, domainwf.TriggerReturnForCorrection, d)
}

func (e *engineImpl) decide(ctx context.Context, trigger domainwf.Trigger, d Decision) (*TransitionResult, error) {
	comment := strings.TrimSpace(d.Comment)
	if trigger.RequiresComment() && comment == "" {
		return nil, fmt.Errorf("%w: %s requires a comment", domainwf.ErrValidation, trigger)
	}

	return e.fire(ctx, transition{
		requestID: d.RequestID,
		trigger:   trigger,
		actorID:   d.ActorID,
		comment:   comment,
		expected:  d.ExpectedStatus,
		authorize: func(ctx context.Context, req *entity.TravelRequest, from domainwf.State) (string, error) {
			profile, err := e.requireActor(ctx, d.ActorID)
			if err != nil {
				return "", err
			}

			requirement, err := e.resolver.ResolveNextApprover(ctx, req, from)
			if err != nil {
				return "", err
			}
			if profile.Role != requirement.Role {
				return "", fmt.Errorf("%w: %s requires role %s, actor has %s", domainwf.ErrAuthorization, from, requirement.Role, profile.Role)
			}
			if requirement.Department != "" && profile.Department != requirement.Department {
				return "", fmt.Errorf("%w: %s requires department %s", domainwf.ErrAuthorization, from, requirement.Department)
			}

			if trigger == domainwf.TriggerApprove {
				if err := e.workflowLog.CheckReapproval(ctx, req.ID, d.ActorID, from); err != nil {
					return "", err
				}
			}

			return profile.Role, nil
		},
	})
}

func (e *engineImpl) OpenAccountability(ctx context.Context, requestID string) (*TransitionResult, error) {
	return e.fire(ctx, transition{
		requestID: requestID,
		trigger:   domainwf.TriggerOpenAccountability,
		actorID:   entity.SystemActorID,
		authorize: systemActor,
	})
}

func (e *engineImpl) MarkOverdue(ctx context.Context, requestID string) (*TransitionResult, error) {
	return e.fire(ctx, transition{
		requestID: requestID,
		trigger:   domainwf.TriggerMarkOverdue,
		actorID:   entity.SystemActorID,
		authorize: systemActor,
	})
}

func (e *engineImpl) CompleteAccountability(ctx context.Context, c Completion) (*TransitionResult, error) {
	var submittedAt time.Time

	return e.fire(ctx, transition{
		requestID: c.RequestID,
		trigger:   domainwf.TriggerCompleteAccountability,
		actorID:   c.ActorID,
		authorize: func(ctx context.Context, req *entity.TravelRequest, from domainwf.State) (string, error) {
			profile, err := e.requireRequester(ctx, req, c.ActorID)
			if err != nil {
				return "", err
			}

			missing := c.Checklist.Missing()
			if c.AttachmentCount < 1 {
				missing = append(missing, "attachments")
			}
			if len(missing) > 0 {
				return "", fmt.Errorf("%w: missing %s", domainwf.ErrIncompleteSubmission, strings.Join(missing, ", "))
			}

			submittedAt = e.now()
			return profile.Role, nil
		},
		inTx: func(ctx context.Context, req *entity.TravelRequest) error {
			return e.accountabilityRepo.Create(ctx, &entity.AccountabilitySubmission{
				RequestID:       req.ID,
				SubmittedBy:     c.ActorID,
				Checklist:       c.Checklist,
				AttachmentCount: c.AttachmentCount,
				SubmittedAt:     submittedAt,
			})
		},
	})
}

func (e *engineImpl) CurrentState(ctx context.Context, requestID string) (domainwf.State, error) {
	req, err := e.load(ctx, requestID)
	if err != nil {
		return "", err
	}
	return storedState(req)
}

func (e *engineImpl) PermittedTriggers(ctx context.Context, requestID string) ([]domainwf.Trigger, error) {
	req, err := e.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	state, err := storedState(req)
	if err != nil {
		return nil, err
	}
	machine := BuildTravelRequestStateMachine(state, DeadlineGuards(req, e.policy, e.now()))
	return machine.PermittedTriggers(), nil
}

// fire validates a transition against the stored status, then writes it conditionally
// together with its log entry. Conflicting writers fail with ErrConcurrentModification.
func (e *engineImpl) fire(ctx context.Context, t transition) (result *TransitionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Transition", map[string]string{
		"request_id": t.requestID,
		"trigger":    t.trigger.String(),
		"actor_id":   t.actorID,
	})
	defer func() { tracing.EndSpan(span, err) }()

	req, err := e.load(ctx, t.requestID)
	if err != nil {
		return nil, err
	}

	from, err := storedState(req)
	if err != nil {
		return nil, err
	}
	if t.expected != "" && t.expected != from {
		return nil, fmt.Errorf("%w: request %s is %s, expected %s", domainwf.ErrConcurrentModification, req.ID, from, t.expected)
	}

	now := e.now()
	machine := BuildTravelRequestStateMachine(from, DeadlineGuards(req, e.policy, now))
	to, err := machine.Target(ctx, t.trigger)
	if err != nil {
		return nil, err
	}

	actorRole, err := t.authorize(ctx, req, from)
	if err != nil {
		return nil, err
	}

	entry := &entity.WorkflowEntry{
		RequestID:  req.ID,
		ActorID:    t.actorID,
		ActorRole:  actorRole,
		Action:     t.trigger.String(),
		Comment:    t.comment,
		FromStatus: from.String(),
		ToStatus:   to.String(),
		CreatedAt:  now,
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.requestRepo.UpdateStatus(txCtx, req.ID, from.String(), to.String()); err != nil {
			return err
		}
		if err := e.workflowLog.Record(txCtx, entry); err != nil {
			return err
		}
		if t.inTx != nil {
			return t.inTx(txCtx, req)
		}
		return nil
	})
	if err != nil {
		e.logger.Error("Transition failed",
			"request_id", req.ID,
			"trigger", t.trigger,
			"from", from,
			"to", to,
			"error", err)
		return nil, err
	}

	e.logger.Info("Transition committed",
		"request_id", req.ID,
		"trigger", t.trigger,
		"from", from,
		"to", to,
		"actor_id", t.actorID)

	e.publish(ctx, req, entry, from, to)

	return &TransitionResult{
		RequestID: req.ID,
		From:      from,
		To:        to,
		Entry:     entry,
	}, nil
}

// publish emits events after commit; handler failures never undo the transition
func (e *engineImpl) publish(ctx context.Context, req *entity.TravelRequest, entry *entity.WorkflowEntry, from, to domainwf.State) {
	if e.dispatcher == nil {
		return
	}

	root := event.NewEvent(event.TypeStatusChanged, req.ID, map[string]interface{}{
		"from_status":  from.String(),
		"to_status":    to.String(),
		"action":       entry.Action,
		"actor_id":     entry.ActorID,
		"comment":      entry.Comment,
		"requester_id": req.RequesterID,
	})
	e.dispatcher.DispatchAsync(ctx, root)

	var followUp event.Type
	switch {
	case entry.Action == domainwf.TriggerApprove.String() && to == domainwf.StateApproved:
		followUp = event.TypeRequestApproved
	case entry.Action == domainwf.TriggerReject.String():
		followUp = event.TypeRequestRejected
	case entry.Action == domainwf.TriggerReturnForCorrection.String():
		followUp = event.TypeRequestReturned
	case entry.Action == domainwf.TriggerCompleteAccountability.String():
		followUp = event.TypeAccountabilityCompleted
	}
	if followUp != "" {
		e.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(followUp, req.ID, root.Payload, root.CorrelationID))
	}
}

func (e *engineImpl) load(ctx context.Context, requestID string) (*entity.TravelRequest, error) {
	req, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load travel request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: travel request %s", domainwf.ErrNotFound, requestID)
	}
	return req, nil
}

func (e *engineImpl) requireActor(ctx context.Context, actorID string) (*entity.Profile, error) {
	if actorID == "" {
		return nil, fmt.Errorf("%w: actor is required", domainwf.ErrAuthorization)
	}
	profile, err := e.profileRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actor profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: unknown actor %s", domainwf.ErrAuthorization, actorID)
	}
	return profile, nil
}

func (e *engineImpl) requireRequester(ctx context.Context, req *entity.TravelRequest, actorID string) (*entity.Profile, error) {
	if actorID != req.RequesterID {
		return nil, fmt.Errorf("%w: only the requester may act on request %s", domainwf.ErrAuthorization, req.ID)
	}
	return e.requireActor(ctx, actorID)
}

func systemActor(context.Context, *entity.TravelRequest, domainwf.State) (string, error) {
	return entity.RoleSystem, nil
}

func storedState(req *entity.TravelRequest) (domainwf.State, error) {
	state := domainwf.State(req.Status)
	if !state.IsValid() {
		return "", fmt.Errorf("%w: request %s has status %q", domainwf.ErrInvalidState, req.ID, req.Status)
	}
	return state, nil
}
