// Package deadline computes the post-travel accountability deadline for a request.
// Everything here is a pure function of the return date and the evaluation instant.
package deadline

import (
	"fmt"
	"time"
)

// Classification buckets a request by how close it is to its accountability deadline
type Classification string

const (
	ClassificationOnTime  Classification = "ON_TIME"
	ClassificationNearDue Classification = "NEAR_DUE"
	ClassificationOverdue Classification = "OVERDUE"
)

const (
	// DefaultWindowDays is the number of calendar days after return that accountability stays open
	DefaultWindowDays = 5

	// DefaultNearDueDays is the remaining-days threshold at or below which a request is near due
	DefaultNearDueDays = 2
)

// Policy holds the statutory window parameters
type Policy struct {
	WindowDays  int
	NearDueDays int
}

// DefaultPolicy returns the window used by Decreto 3.792/2024
func DefaultPolicy() Policy {
	return Policy{
		WindowDays:  DefaultWindowDays,
		NearDueDays: DefaultNearDueDays,
	}
}

// Validate checks the policy is internally consistent
func (p Policy) Validate() error {
	if p.WindowDays <= 0 {
		return fmt.Errorf("window_days must be positive, got %d", p.WindowDays)
	}
	if p.NearDueDays < 0 || p.NearDueDays >= p.WindowDays {
		return fmt.Errorf("near_due_days must be in [0, %d), got %d", p.WindowDays, p.NearDueDays)
	}
	return nil
}

// Status is the evaluated deadline view of one request
type Status struct {
	ReturnDate     time.Time      `json:"return_date"`
	DueDate        time.Time      `json:"due_date"`
	DaysElapsed    int            `json:"days_elapsed"`
	DaysRemaining  int            `json:"days_remaining"`
	Classification Classification `json:"classification"`
}

// IsOverdue reports whether the window has closed
func (s Status) IsOverdue() bool {
	return s.Classification == ClassificationOverdue
}

// Evaluate classifies a return date as seen at now.
// Days are counted on the calendar of now's location; time of day is ignored.
func (p Policy) Evaluate(returnDate, now time.Time) Status {
	ret := Date(returnDate)
	elapsed := DaysBetween(ret, now)
	remaining := p.WindowDays - elapsed

	return Status{
		ReturnDate:     ret,
		DueDate:        ret.AddDate(0, 0, p.WindowDays),
		DaysElapsed:    elapsed,
		DaysRemaining:  remaining,
		Classification: p.Classify(remaining),
	}
}

// Classify maps a remaining-days count to its bucket
func (p Policy) Classify(daysRemaining int) Classification {
	switch {
	case daysRemaining < 0:
		return ClassificationOverdue
	case daysRemaining <= p.NearDueDays:
		return ClassificationNearDue
	default:
		return ClassificationOnTime
	}
}

// AlertReturnDate is the single return date whose requests get the near-due warning on today,
// i.e. the date for which exactly NearDueDays remain.
func (p Policy) AlertReturnDate(today time.Time) time.Time {
	return Date(today).AddDate(0, 0, -(p.WindowDays - p.NearDueDays))
}

// Evaluate classifies using the default policy
func Evaluate(returnDate, now time.Time) Status {
	return DefaultPolicy().Evaluate(returnDate, now)
}

// Date truncates t to its calendar date, expressed as midnight UTC
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from one date to another, negative when to is earlier
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}
