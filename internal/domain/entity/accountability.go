package entity

import "time"

// AccountabilityChecklist marks which proof documents were attached
type AccountabilityChecklist struct {
	Tickets bool `json:"tickets"` // boarding passes / bilhetes
	Report  bool `json:"report"`  // relatório de viagem
	Refund  bool `json:"refund"`  // GRU de devolução, optional
}

// Missing returns the mandatory items that are not present
func (c AccountabilityChecklist) Missing() []string {
	var missing []string
	if !c.Tickets {
		missing = append(missing, "tickets")
	}
	if !c.Report {
		missing = append(missing, "report")
	}
	return missing
}

// AccountabilitySubmission is the post-travel proof package
type AccountabilitySubmission struct {
	ID              int64                   `json:"id"`
	RequestID       string                  `json:"request_id"`
	SubmittedBy     string                  `json:"submitted_by"`
	Checklist       AccountabilityChecklist `json:"checklist"`
	AttachmentCount int                     `json:"attachment_count"`
	SubmittedAt     time.Time               `json:"submitted_at"`
}
