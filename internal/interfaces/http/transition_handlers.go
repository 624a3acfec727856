package http

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sefapa/sgpd/internal/application/accountability"
	"github.com/sefapa/sgpd/internal/application/service"
	"github.com/sefapa/sgpd/internal/application/workflow"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

// DecisionBody is the optional body of approve, reject and return
type DecisionBody struct {
	Comment        string `json:"comment"`
	ExpectedStatus string `json:"expected_status"`
}

// ConferenceBody carries raw report text when no PDF is uploaded
type ConferenceBody struct {
	Text string `json:"text"`
}

// Submit handles POST /api/v1/requests/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	result, err := h.services.Engine.Submit(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		h.fail(c, "submit", err)
		return
	}
	ok(c, http.StatusOK, result)
}

// Approve handles POST /api/v1/requests/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	h.decide(c, "approve", h.services.Engine.Approve)
}

// Reject handles POST /api/v1/requests/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	h.decide(c, "reject", h.services.Engine.Reject)
}

// ReturnForCorrection handles POST /api/v1/requests/:id/return
func (h *Handlers) ReturnForCorrection(c *gin.Context) {
	h.decide(c, "return", h.services.Engine.ReturnForCorrection)
}

func (h *Handlers) decide(c *gin.Context, op string, fn func(ctx context.Context, d workflow.Decision) (*workflow.TransitionResult, error)) {
	var body DecisionBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	expected := domainwf.State(body.ExpectedStatus)
	if expected != "" && !expected.IsValid() {
		badRequest(c, fmt.Sprintf("unknown expected_status %q", body.ExpectedStatus))
		return
	}

	result, err := fn(c.Request.Context(), workflow.Decision{
		RequestID:      c.Param("id"),
		ActorID:        actorID(c),
		Comment:        body.Comment,
		ExpectedStatus: expected,
	})
	if err != nil {
		h.fail(c, op, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// PermittedTriggers handles GET /api/v1/requests/:id/permitted
func (h *Handlers) PermittedTriggers(c *gin.Context) {
	id := c.Param("id")
	state, err := h.services.Engine.CurrentState(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "load state", err)
		return
	}
	triggers, err := h.services.Engine.PermittedTriggers(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "load triggers", err)
		return
	}
	if triggers == nil {
		triggers = []domainwf.Trigger{}
	}
	ok(c, http.StatusOK, gin.H{
		"status":   state,
		"label":    state.Label(),
		"triggers": triggers,
	})
}

// SubmitAccountability handles POST /api/v1/requests/:id/accountability (multipart).
// Form fields tickets, report and refund are booleans; proof files go under "files".
func (h *Handlers) SubmitAccountability(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "multipart form expected")
		return
	}

	checklist := entity.AccountabilityChecklist{
		Tickets: formBool(form, "tickets"),
		Report:  formBool(form, "report"),
		Refund:  formBool(form, "refund"),
	}

	var uploads []accountability.Upload
	for _, fh := range form.File["files"] {
		content, err := h.readUpload(fh)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		uploads = append(uploads, accountability.Upload{Name: fh.Filename, Content: content})
	}

	receipt, err := h.services.Accountability.Submit(c.Request.Context(), accountability.Submission{
		RequestID: c.Param("id"),
		ActorID:   actorID(c),
		Checklist: checklist,
		Files:     uploads,
	})
	if err != nil {
		h.fail(c, "submit accountability", err)
		return
	}
	ok(c, http.StatusOK, receipt)
}

// Conference handles POST /api/v1/requests/:id/conference.
// Accepts a multipart "report" PDF or a JSON body with the report text.
func (h *Handlers) Conference(c *gin.Context) {
	in := service.ConferenceRequest{
		RequestID: c.Param("id"),
		ActorID:   actorID(c),
	}

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fh, err := c.FormFile("report")
		if err != nil {
			badRequest(c, "report file is required")
			return
		}
		if in.PDF, err = h.readUpload(fh); err != nil {
			badRequest(c, err.Error())
			return
		}
	} else {
		var body ConferenceBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		in.Text = body.Text
	}

	result, err := h.services.Conference.Review(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "conference", err)
		return
	}
	ok(c, http.StatusOK, result)
}

func (h *Handlers) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.maxUploadBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", fh.Filename, h.maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot read %s", fh.Filename)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("cannot read %s", fh.Filename)
	}
	if int64(len(content)) > h.maxUploadBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", fh.Filename, h.maxUploadBytes)
	}
	return content, nil
}

func formBool(form *multipart.Form, key string) bool {
	values := form.Value[key]
	if len(values) == 0 {
		return false
	}
	b, _ := strconv.ParseBool(values[0])
	return b
}
