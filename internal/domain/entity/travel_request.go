package entity

import "time"

// TravelRequest is an employee's request for an official trip (passagens e diárias)
type TravelRequest struct {
	ID             string    `json:"id"`
	RequesterID    string    `json:"requester_id"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureDate  time.Time `json:"departure_date"`
	ReturnDate     time.Time `json:"return_date"`
	Justification  string    `json:"justification"`
	TransportType  string    `json:"transport_type"`
	Itinerary      string    `json:"itinerary"`
	FundingSource  string    `json:"funding_source"`
	EstimatedValue float64   `json:"estimated_value"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TravelRequestFilter narrows a request listing
type TravelRequestFilter struct {
	RequesterID string
	Status      string
	Limit       int
	Offset      int
}

// MissingSubmissionFields lists the fields that must be filled before the request leaves DRAFT
func (r *TravelRequest) MissingSubmissionFields() []string {
	var missing []string
	if r.Destination == "" {
		missing = append(missing, "destination")
	}
	if r.DepartureDate.IsZero() {
		missing = append(missing, "departure_date")
	}
	if r.ReturnDate.IsZero() {
		missing = append(missing, "return_date")
	}
	if r.Justification == "" {
		missing = append(missing, "justification")
	}
	if r.FundingSource == "" {
		missing = append(missing, "funding_source")
	}
	return missing
}

// DatesInOrder reports whether the return date is not before departure. Unset dates pass.
func (r *TravelRequest) DatesInOrder() bool {
	if r.DepartureDate.IsZero() || r.ReturnDate.IsZero() {
		return true
	}
	return !r.ReturnDate.Before(r.DepartureDate)
}
