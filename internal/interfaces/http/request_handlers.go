package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sefapa/sgpd/internal/application/service"
	"github.com/sefapa/sgpd/internal/domain/entity"
)

const dateLayout = "2006-01-02"

// TravelRequestBody is the JSON body of create and update. Dates are YYYY-MM-DD.
type TravelRequestBody struct {
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	DepartureDate  string  `json:"departure_date"`
	ReturnDate     string  `json:"return_date"`
	Justification  string  `json:"justification"`
	TransportType  string  `json:"transport_type"`
	Itinerary      string  `json:"itinerary"`
	FundingSource  string  `json:"funding_source"`
	EstimatedValue float64 `json:"estimated_value"`
}

// ListRequestsQuery holds the query parameters of GET /requests
type ListRequestsQuery struct {
	Status      string `form:"status"`
	RequesterID string `form:"requester_id"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

func (b TravelRequestBody) toInput() (service.TravelRequestInput, error) {
	departure, err := parseDate("departure_date", b.DepartureDate)
	if err != nil {
		return service.TravelRequestInput{}, err
	}
	ret, err := parseDate("return_date", b.ReturnDate)
	if err != nil {
		return service.TravelRequestInput{}, err
	}
	return service.TravelRequestInput{
		Origin:         b.Origin,
		Destination:    b.Destination,
		DepartureDate:  departure,
		ReturnDate:     ret,
		Justification:  b.Justification,
		TransportType:  b.TransportType,
		Itinerary:      b.Itinerary,
		FundingSource:  strings.ToUpper(b.FundingSource),
		EstimatedValue: b.EstimatedValue,
	}, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return t, nil
}

// CreateRequest handles POST /api/v1/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body TravelRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	in, err := body.toInput()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	req, err := h.services.Requests.Create(c.Request.Context(), actorID(c), in)
	if err != nil {
		h.fail(c, "create request", err)
		return
	}
	ok(c, http.StatusCreated, req)
}

// ListRequests handles GET /api/v1/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	requests, err := h.services.Requests.List(c.Request.Context(), entity.TravelRequestFilter{
		Status:      q.Status,
		RequesterID: q.RequesterID,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
	if err != nil {
		h.fail(c, "list requests", err)
		return
	}
	if requests == nil {
		requests = []*entity.TravelRequest{}
	}
	ok(c, http.StatusOK, requests)
}

// GetRequest handles GET /api/v1/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.services.Requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get request", err)
		return
	}
	ok(c, http.StatusOK, req)
}

// UpdateRequest handles PUT /api/v1/requests/:id
func (h *Handlers) UpdateRequest(c *gin.Context) {
	var body TravelRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	in, err := body.toInput()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	req, err := h.services.Requests.UpdateDraft(c.Request.Context(), actorID(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, "update request", err)
		return
	}
	ok(c, http.StatusOK, req)
}

// History handles GET /api/v1/requests/:id/history
func (h *Handlers) History(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.services.Requests.Get(c.Request.Context(), id); err != nil {
		h.fail(c, "get request", err)
		return
	}

	entries, err := h.services.WorkflowLog.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "load history", err)
		return
	}
	if entries == nil {
		entries = []*entity.WorkflowEntry{}
	}
	ok(c, http.StatusOK, entries)
}

// Deadline handles GET /api/v1/requests/:id/deadline
func (h *Handlers) Deadline(c *gin.Context) {
	status, err := h.services.Requests.Deadline(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "evaluate deadline", err)
		return
	}
	ok(c, http.StatusOK, status)
}

// Portaria handles GET /api/v1/requests/:id/portaria
func (h *Handlers) Portaria(c *gin.Context) {
	doc, err := h.services.Portaria.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "generate portaria", err)
		return
	}
	ok(c, http.StatusOK, doc)
}
