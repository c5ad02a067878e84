// Package identity issues the signed tokens the booking endpoints trust.
// There is no credential store behind it: callers assert an id and a role and
// receive a token carrying exactly those claims. Everything downstream reads
// identity from the token only, never from request bodies.
package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Akil08/booking-api/internal/platform/auth"
)

// LoginRequest asserts who the caller is.
type LoginRequest struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// LoginResponse carries the signed bearer token.
type LoginResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	issuer *auth.TokenIssuer
}

func NewHandler(issuer *auth.TokenIssuer) *Handler {
	return &Handler{issuer: issuer}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/login", h.Login)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, err := h.issuer.Issue(req.ID, req.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, LoginResponse{Token: token})
}
