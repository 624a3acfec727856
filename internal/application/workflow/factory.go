package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/sefapa/sgpd/internal/domain/deadline"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

// Guards holds the time checks of the two system transitions
type Guards struct {
	ReturnDatePassed domainwf.GuardFunc
	DeadlineOverdue  domainwf.GuardFunc
}

// DeadlineGuards builds the guards for one request as seen at now
func DeadlineGuards(req *entity.TravelRequest, policy deadline.Policy, now time.Time) Guards {
	return Guards{
		ReturnDatePassed: func(ctx context.Context) error {
			if req.ReturnDate.IsZero() {
				return fmt.Errorf("request has no return date")
			}
			if !deadline.Date(now).After(deadline.Date(req.ReturnDate)) {
				return fmt.Errorf("return date %s not yet passed", req.ReturnDate.Format("2006-01-02"))
			}
			return nil
		},
		DeadlineOverdue: func(ctx context.Context) error {
			if req.ReturnDate.IsZero() {
				return fmt.Errorf("request has no return date")
			}
			status := policy.Evaluate(req.ReturnDate, now)
			if !status.IsOverdue() {
				return fmt.Errorf("deadline not overdue: %d days remaining", status.DaysRemaining)
			}
			return nil
		},
	}
}

// BuildTravelRequestStateMachine creates a state machine configured for the travel request lifecycle
func BuildTravelRequestStateMachine(initialState domainwf.State, guards Guards) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StateAwaitingDeptHead)

	// approval chain: Chefia -> Subsecretario -> DAD
	builder.Configure(domainwf.StateAwaitingDeptHead).
		Permit(domainwf.TriggerApprove, domainwf.StateAwaitingDeputySecretary).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerReturnForCorrection, domainwf.StateDraft)

	builder.Configure(domainwf.StateAwaitingDeputySecretary).
		Permit(domainwf.TriggerApprove, domainwf.StateAwaitingAudit).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerReturnForCorrection, domainwf.StateDraft)

	builder.Configure(domainwf.StateAwaitingAudit).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerReturnForCorrection, domainwf.StateDraft)

	builder.Configure(domainwf.StateApproved).
		PermitIf(domainwf.TriggerOpenAccountability, domainwf.StateAwaitingAccountability, guardOrRefuse(guards.ReturnDatePassed))

	builder.Configure(domainwf.StateAwaitingAccountability).
		PermitIf(domainwf.TriggerMarkOverdue, domainwf.StateOverdue, guardOrRefuse(guards.DeadlineOverdue)).
		Permit(domainwf.TriggerCompleteAccountability, domainwf.StateCompleted)

	builder.Configure(domainwf.StateOverdue).
		Permit(domainwf.TriggerCompleteAccountability, domainwf.StateCompleted)

	// REJECTED and COMPLETED are terminal states - no outgoing transitions

	return builder.Build(initialState)
}

// guardOrRefuse keeps a missing guard from turning a timed transition into an unconditional one
func guardOrRefuse(g domainwf.GuardFunc) domainwf.GuardFunc {
	if g != nil {
		return g
	}
	return func(ctx context.Context) error {
		return fmt.Errorf("no guard configured")
	}
}
