package workflow

// Trigger is an action that can move a request between states.
// The trigger code doubles as the action recorded in the workflow log.
type Trigger string

const (
	TriggerSubmit                 Trigger = "SUBMIT"
	TriggerApprove                Trigger = "APPROVE"
	TriggerReject                 Trigger = "REJECT"
	TriggerReturnForCorrection    Trigger = "RETURN_FOR_CORRECTION"
	TriggerOpenAccountability     Trigger = "OPEN_ACCOUNTABILITY"
	TriggerMarkOverdue            Trigger = "MARK_OVERDUE"
	TriggerCompleteAccountability Trigger = "COMPLETE_ACCOUNTABILITY"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsSystem returns true for triggers fired by the scheduler rather than a person
func (t Trigger) IsSystem() bool {
	return t == TriggerOpenAccountability || t == TriggerMarkOverdue
}

// RequiresComment returns true when the log entry must carry a justification
func (t Trigger) RequiresComment() bool {
	return t == TriggerReject || t == TriggerReturnForCorrection
}
