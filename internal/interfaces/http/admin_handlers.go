package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sefapa/sgpd/internal/application/service"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TemplateBody is the body of PUT /settings/portaria-template
type TemplateBody struct {
	Template string `json:"template"`
}

// ListNotifications handles GET /api/v1/notifications for the calling profile
func (h *Handlers) ListNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	notifications, err := h.services.Notifications.ListForRecipient(c.Request.Context(), actorID(c), limit)
	if err != nil {
		h.fail(c, "list notifications", err)
		return
	}
	if notifications == nil {
		notifications = []*entity.Notification{}
	}
	ok(c, http.StatusOK, notifications)
}

// GetProfile handles GET /api/v1/profiles/:id
func (h *Handlers) GetProfile(c *gin.Context) {
	profile, err := h.services.Profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get profile", err)
		return
	}
	ok(c, http.StatusOK, profile)
}

// SaveProfile handles PUT /api/v1/profiles/:id
func (h *Handlers) SaveProfile(c *gin.Context) {
	var in service.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	profile, err := h.services.Profiles.Save(c.Request.Context(), actorID(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, "save profile", err)
		return
	}
	ok(c, http.StatusOK, profile)
}

// SetPortariaTemplate handles PUT /api/v1/settings/portaria-template
func (h *Handlers) SetPortariaTemplate(c *gin.Context) {
	var body TemplateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := h.services.Portaria.SetTemplate(c.Request.Context(), actorID(c), body.Template); err != nil {
		h.fail(c, "save template", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"key": entity.SettingPortariaTemplate})
}

// AccountabilityReport handles GET /api/v1/reports/accountability.xlsx (DAD and ADMIN)
func (h *Handlers) AccountabilityReport(c *gin.Context) {
	if err := h.requireRole(c, entity.RoleDAD, entity.RoleAdmin); err != nil {
		h.fail(c, "accountability report", err)
		return
	}

	data, err := h.services.Reports.ExportAccountability(c.Request.Context())
	if err != nil {
		h.fail(c, "accountability report", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="prestacao_de_contas.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// RunDailyJob handles POST /api/v1/jobs/daily (ADMIN). The run is idempotent per day.
func (h *Handlers) RunDailyJob(c *gin.Context) {
	if err := h.requireRole(c, entity.RoleAdmin); err != nil {
		h.fail(c, "daily job", err)
		return
	}

	result, err := h.services.DailyJob.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("Daily job finished with errors", "actor_id", actorID(c), "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Data: result, Error: err.Error()})
		return
	}
	ok(c, http.StatusOK, result)
}

func (h *Handlers) requireRole(c *gin.Context, roles ...string) error {
	profile, err := h.services.Profiles.Get(c.Request.Context(), actorID(c))
	if errors.Is(err, domainwf.ErrNotFound) {
		return fmt.Errorf("%w: unknown actor %s", domainwf.ErrAuthorization, actorID(c))
	}
	if err != nil {
		return err
	}
	for _, role := range roles {
		if profile.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not allowed here", domainwf.ErrAuthorization, profile.Role)
}
