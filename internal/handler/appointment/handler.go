package appointment

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/pkg/errors"
	"github.com/jwalitptl/visitor-api/pkg/httputil"
)

type Service interface {
	CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next model.Status) error
	ListAppointments(ctx context.Context, q model.AppointmentQuery) ([]*model.Appointment, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the appointment routes on r. The admin handlers guard
// the filter and status routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, admin ...gin.HandlerFunc) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListByUser)
		appointments.GET("/filter", guarded(admin, h.Filter)...)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id/status/:status", guarded(admin, h.UpdateStatus)...)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid request body"))
		return
	}

	appt, err := h.service.CreateAppointment(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithData(c, http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid appointment ID"))
		return
	}

	appt, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithData(c, http.StatusOK, appt)
}

func (h *Handler) ListByUser(c *gin.Context) {
	raw := c.Query("userId")
	if raw == "" {
		httputil.RespondWithError(c, errors.Validation("userId is required"))
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid user ID"))
		return
	}

	appts, err := h.service.ListAppointments(c.Request.Context(), model.AppointmentQuery{UserID: &userID})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithData(c, http.StatusOK, appts)
}

func (h *Handler) Filter(c *gin.Context) {
	q := model.AppointmentQuery{
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
		Statuses:  splitList(c.QueryArray("statuses")),
	}

	appts, err := h.service.ListAppointments(c.Request.Context(), q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithData(c, http.StatusOK, appts)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid appointment ID"))
		return
	}

	next, err := model.ParseStatus(c.Param("status"))
	if err != nil {
		// Unrecognised values still go through the service so a missing
		// appointment reports 404 first.
		next = model.StatusUnknown
	}

	if err := h.service.UpdateStatus(c.Request.Context(), id, next); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

func guarded(admin []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(admin)+1)
	return append(append(chain, admin...), h)
}

// splitList flattens repeated and comma separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
