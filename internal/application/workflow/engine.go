package workflow

import (
	"context"

	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

// Engine drives travel requests through the approval and accountability lifecycle.
// Every successful call changes the status exactly once and appends exactly one log entry.
type Engine interface {
	// Submit sends a draft to the department head
	Submit(ctx context.Context, requestID, actorID string) (*TransitionResult, error)

	// Approve advances the request one stage along the approval chain
	Approve(ctx context.Context, d Decision) (*TransitionResult, error)

	// Reject ends the request. A comment is mandatory.
	Reject(ctx context.Context, d Decision) (*TransitionResult, error)

	// ReturnForCorrection sends the request back to DRAFT. A comment is mandatory.
	ReturnForCorrection(ctx context.Context, d Decision) (*TransitionResult, error)

	// OpenAccountability starts the accountability window once the trip has ended
	OpenAccountability(ctx context.Context, requestID string) (*TransitionResult, error)

	// MarkOverdue flags a request whose accountability window has closed
	MarkOverdue(ctx context.Context, requestID string) (*TransitionResult, error)

	// CompleteAccountability records the proof package and closes the request
	CompleteAccountability(ctx context.Context, c Completion) (*TransitionResult, error)

	// CurrentState returns the stored status
	CurrentState(ctx context.Context, requestID string) (domainwf.State, error)

	// PermittedTriggers lists the triggers configured for the stored status, guards not evaluated
	PermittedTriggers(ctx context.Context, requestID string) ([]domainwf.Trigger, error)
}

// Decision is an approver's action on a request waiting at an approval stage
type Decision struct {
	RequestID string `json:"request_id"`
	ActorID   string `json:"actor_id"`
	Comment   string `json:"comment"`

	// ExpectedStatus pins the status the approver was looking at. Empty means whatever is stored.
	ExpectedStatus domainwf.State `json:"expected_status,omitempty"`
}

// Completion is the requester's accountability submission
type Completion struct {
	RequestID       string                         `json:"request_id"`
	ActorID         string                         `json:"actor_id"`
	Checklist       entity.AccountabilityChecklist `json:"checklist"`
	AttachmentCount int                            `json:"attachment_count"`
}

// TransitionResult describes a committed transition
type TransitionResult struct {
	RequestID string                `json:"request_id"`
	From      domainwf.State        `json:"from"`
	To        domainwf.State        `json:"to"`
	Entry     *entity.WorkflowEntry `json:"entry"`
}
