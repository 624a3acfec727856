package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"status changed", TypeStatusChanged, true},
		{"approved", TypeRequestApproved, true},
		{"deadline alert", TypeDeadlineAlert, true},
		{"accountability completed", TypeAccountabilityCompleted, true},
		{"unknown", Type("unknown.type"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeStatusChanged, "req-1", map[string]interface{}{
		"to_status": "AWAITING_DEPT_HEAD",
	})

	if evt.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if evt.Type != TypeStatusChanged {
		t.Errorf("Event Type = %v, want %v", evt.Type, TypeStatusChanged)
	}
	if evt.RequestID != "req-1" {
		t.Errorf("Event RequestID = %v, want req-1", evt.RequestID)
	}
	if evt.CorrelationID != evt.ID {
		t.Errorf("root event should correlate to itself, got %v", evt.CorrelationID)
	}
	if time.Since(evt.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}

	other := NewEvent(TypeStatusChanged, "req-1", nil)
	if other.ID == evt.ID {
		t.Error("event IDs must be unique")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	root := NewEvent(TypeStatusChanged, "req-1", nil)
	child := NewEventWithCorrelation(TypeRequestApproved, "req-1", nil, root.CorrelationID)

	if child.CorrelationID != root.ID {
		t.Errorf("CorrelationID = %v, want %v", child.CorrelationID, root.ID)
	}
	if child.ID == root.ID {
		t.Error("child event needs its own ID")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeDeadlineAlert, "req-1", map[string]interface{}{
		"recipient_id": "u-1",
	})

	modified := original.WithPayload("notification_id", int64(7))

	if _, exists := original.Payload["notification_id"]; exists {
		t.Error("original event should not be modified")
	}
	if modified.GetPayloadString("recipient_id") != "u-1" {
		t.Error("modified event should retain original payload")
	}
	if modified.GetPayloadInt("notification_id") != 7 {
		t.Error("modified event should carry the new entry")
	}
	if modified.ID != original.ID || modified.RequestID != original.RequestID {
		t.Error("modified event should keep identity fields")
	}
}

func TestEvent_PayloadAccessors(t *testing.T) {
	evt := NewEvent(TypeDeadlineAlert, "req-1", map[string]interface{}{
		"message":        "Atenção",
		"days_remaining": 2,
		"float":          3.9,
	})

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"string", evt.GetPayloadString("message"), "Atenção"},
		{"string wrong type", evt.GetPayloadString("days_remaining"), ""},
		{"string missing", evt.GetPayloadString("nope"), ""},
		{"int", evt.GetPayloadInt("days_remaining"), int64(2)},
		{"int from float", evt.GetPayloadInt("float"), int64(3)},
		{"int wrong type", evt.GetPayloadInt("message"), int64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
