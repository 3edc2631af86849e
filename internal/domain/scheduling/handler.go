package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
	"github.com/clinic/clinic/pkg/timeofday"
)

const adminRole = "Administrador"

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/availability", h.GetAvailability)

	api.POST("/appointments", h.BookAppointment)
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.GET("/appointments/:id/observations", h.GetObservations)
	api.PUT("/appointments/:id/reschedule", h.RescheduleAppointment)
	api.PUT("/appointments/:id/transition", h.TransitionAppointment)

	api.GET("/config/business-hours", h.GetBusinessHours)

	admin := api.Group("/config", auth.RequireRole(adminRole))
	admin.PUT("/business-hours", h.SetBusinessHours)
	admin.PUT("/business-hours/overrides/:date", h.SetHoursOverride)
	admin.DELETE("/business-hours/overrides/:date", h.DeleteHoursOverride)
}

// httpError maps domain errors to HTTP statuses. Expected user-facing
// conditions keep their message; anything unrecognized is logged and
// hidden behind a generic 500.
func (h *Handler) httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlotTaken),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrIllegalTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidSlot),
		errors.Is(err, ErrPastDate),
		errors.Is(err, ErrBadConfig):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDoctorUnknown):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error().Err(err).Str("path", c.Path()).Msg("scheduling operation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// actor identifies who performed a mutation, for observation notes.
func actor(c echo.Context) string {
	if id := auth.IdentityFromContext(c.Request().Context()); id != nil {
		return id.Subject
	}
	return "anonymous"
}

func (h *Handler) GetAvailability(c echo.Context) error {
	date, err := ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var doctorID *uuid.UUID
	if raw := c.QueryParam("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		doctorID = &id
	}

	avail, err := h.svc.AvailableSlots(c.Request().Context(), date, doctorID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, avail)
}

type bookRequest struct {
	DoctorID     uuid.UUID           `json:"doctor_id"`
	Date         Date                `json:"date"`
	Time         timeofday.TimeOfDay `json:"time"`
	PatientRef   string              `json:"patient_ref"`
	RequestToken *string             `json:"request_token,omitempty"`
}

func (h *Handler) BookAppointment(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	if req.PatientRef == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_ref is required")
	}
	if req.Date.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}

	a, err := h.svc.Book(c.Request().Context(), BookRequest{
		DoctorID:     req.DoctorID,
		Date:         req.Date,
		Time:         req.Time,
		PatientRef:   req.PatientRef,
		RequestToken: req.RequestToken,
		Actor:        actor(c),
	})
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)

	var f ListFilter
	if raw := c.QueryParam("date"); raw != "" {
		date, err := ParseDate(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.Date = &date
	}
	if raw := c.QueryParam("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		f.DoctorID = &id
	}
	if raw := c.QueryParam("state"); raw != "" {
		state, err := ParseState(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.State = &state
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetObservations(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	obs, err := h.svc.Observations(c.Request().Context(), id)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, obs)
}

type rescheduleRequest struct {
	Date Date                `json:"date"`
	Time timeofday.TimeOfDay `json:"time"`
}

func (h *Handler) RescheduleAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Date.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}

	a, err := h.svc.Reschedule(c.Request().Context(), id, req.Date, req.Time, actor(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

type transitionRequest struct {
	State string `json:"state"`
}

func (h *Handler) TransitionAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	target, err := ParseState(req.State)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a, err := h.svc.Transition(c.Request().Context(), id, target, actor(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GetBusinessHours(c echo.Context) error {
	hours, err := h.svc.GetHours(c.Request().Context())
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, hours)
}

func (h *Handler) SetBusinessHours(c echo.Context) error {
	var hours BusinessHours
	if err := c.Bind(&hours); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetHours(c.Request().Context(), &hours); err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, hours)
}

func (h *Handler) SetHoursOverride(c echo.Context) error {
	date, err := ParseDate(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var hours BusinessHours
	if err := c.Bind(&hours); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetHoursOverride(c.Request().Context(), date, &hours); err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, hours)
}

func (h *Handler) DeleteHoursOverride(c echo.Context) error {
	date, err := ParseDate(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.DeleteHoursOverride(c.Request().Context(), date); err != nil {
		return h.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
