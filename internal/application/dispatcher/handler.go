package dispatcher

import (
	"context"

	"github.com/sefapa/sgpd/internal/domain/event"
)

// Handler reacts to a domain event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}
