package entity

import "time"

// WorkflowEntry is one append-only line of a request's approval log
type WorkflowEntry struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	Comment    string    `json:"comment,omitempty"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	CreatedAt  time.Time `json:"created_at"`
}
