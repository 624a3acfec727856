package workflow

// State is a travel request lifecycle status as stored in travel_requests.status
type State string

const (
	StateDraft                   State = "DRAFT"
	StateAwaitingDeptHead        State = "AWAITING_DEPT_HEAD"
	StateAwaitingDeputySecretary State = "AWAITING_DEPUTY_SECRETARY"
	StateAwaitingAudit           State = "AWAITING_AUDIT"
	StateApproved                State = "APPROVED"
	StateRejected                State = "REJECTED"
	StateAwaitingAccountability  State = "AWAITING_ACCOUNTABILITY"
	StateOverdue                 State = "OVERDUE"
	StateCompleted               State = "COMPLETED"
)

var stateLabels = map[State]string{
	StateDraft:                   "Rascunho",
	StateAwaitingDeptHead:        "Aguardando Chefia",
	StateAwaitingDeputySecretary: "Aguardando Subsecretario",
	StateAwaitingAudit:           "Aguardando DAD",
	StateApproved:                "Aprovado",
	StateRejected:                "Rejeitado",
	StateAwaitingAccountability:  "Aguardando Prestacao de Contas",
	StateOverdue:                 "Em Atraso",
	StateCompleted:               "Concluido",
}

var terminalStates = map[State]bool{
	StateRejected:  true,
	StateCompleted: true,
}

var approvalStages = map[State]bool{
	StateAwaitingDeptHead:        true,
	StateAwaitingDeputySecretary: true,
	StateAwaitingAudit:           true,
}

// AllStates returns every lifecycle state in flow order
func AllStates() []State {
	return []State{
		StateDraft,
		StateAwaitingDeptHead,
		StateAwaitingDeputySecretary,
		StateAwaitingAudit,
		StateApproved,
		StateRejected,
		StateAwaitingAccountability,
		StateOverdue,
		StateCompleted,
	}
}

// IsTerminal returns true if no further transitions are allowed from the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsApprovalStage returns true for the states that wait on a human approver
func (s State) IsApprovalStage() bool {
	return approvalStages[s]
}

// IsPostApproval returns true once the chain has fully approved the request
func (s State) IsPostApproval() bool {
	switch s {
	case StateApproved, StateAwaitingAccountability, StateOverdue, StateCompleted:
		return true
	default:
		return false
	}
}

// String returns the stored code
func (s State) String() string {
	return string(s)
}

// Label returns the Portuguese display name shown to users
func (s State) Label() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	_, ok := stateLabels[s]
	return ok
}
