package booking

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Akil08/booking-api/internal/platform/auth"
	"github.com/Akil08/booking-api/pkg/pagination"
)

// BookingResponse is the envelope every mutation endpoint returns. Expected
// rejections come back as 400 with Success false; only transient store
// failures surface as 5xx.
type BookingResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patientGroup := api.Group("/bookings", auth.RequireRole(auth.RolePatient))
	patientGroup.POST("/book", h.Book)
	patientGroup.POST("/cancel", h.Cancel)
	patientGroup.POST("/priority/subscribe", h.SubscribePriority)

	doctorGroup := api.Group("/bookings/doctor", auth.RequireRole(auth.RoleDoctor))
	doctorGroup.POST("/cancel-day", h.CancelDay)
	doctorGroup.GET("/day", h.ListDay)
	doctorGroup.GET("/day/state", h.DayState)
}

func (h *Handler) Book(c echo.Context) error {
	res, err := h.svc.Book(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return rejectOrFail(c, err)
	}
	return c.JSON(http.StatusOK, BookingResponse{Success: true, Message: res.Message, BookingID: res.BookingID})
}

func (h *Handler) Cancel(c echo.Context) error {
	res, err := h.svc.Cancel(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return rejectOrFail(c, err)
	}
	return c.JSON(http.StatusOK, BookingResponse{Success: true, Message: res.Message})
}

func (h *Handler) SubscribePriority(c echo.Context) error {
	res, err := h.svc.SubscribePriority(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return rejectOrFail(c, err)
	}
	return c.JSON(http.StatusOK, BookingResponse{Success: true, Message: res.Message})
}

func (h *Handler) CancelDay(c echo.Context) error {
	res, err := h.svc.DoctorCancelDay(c.Request().Context())
	if err != nil {
		return rejectOrFail(c, err)
	}
	return c.JSON(http.StatusOK, BookingResponse{Success: true, Message: res.Message})
}

func (h *Handler) ListDay(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListToday(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DayState(c echo.Context) error {
	day, err := h.svc.TodayState(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, day)
}

func rejectOrFail(c echo.Context, err error) error {
	if IsExpected(err) {
		return c.JSON(http.StatusBadRequest, BookingResponse{Success: false, Message: rejectMessage(err)})
	}
	return echo.NewHTTPError(http.StatusServiceUnavailable, "temporary failure, please retry")
}

// rejectMessage maps an expected outcome to its fixed client-facing text.
func rejectMessage(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyBooked):
		return "Already booked for today"
	case errors.Is(err, ErrNoSlotsAvailable):
		return "No slots available"
	case errors.Is(err, ErrNoActiveBooking):
		return "No active booking found"
	case errors.Is(err, ErrDayAlreadyCancelled):
		return "Day already cancelled"
	default:
		return "Booking failed"
	}
}
