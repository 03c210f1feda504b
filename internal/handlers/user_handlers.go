package handlers

import (
	"net/http"
	"strings"

	"bizdesk/internal/common"
	"bizdesk/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// UserHandlers handles the self-service profile endpoints.
type UserHandlers struct {
	userService services.UserService
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(userService services.UserService) *UserHandlers {
	return &UserHandlers{userService: userService}
}

func callerID(c echo.Context) (uuid.UUID, error) {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return userID, nil
}

// GetProfile returns the caller's profile.
func (h *UserHandlers) GetProfile(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	profile, err := h.userService.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile applies a partial update to the caller's profile.
func (h *UserHandlers) UpdateProfile(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	var req struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Phone     *string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FirstName != nil && strings.TrimSpace(*req.FirstName) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "first name cannot be empty")
	}
	if req.LastName != nil && strings.TrimSpace(*req.LastName) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "last name cannot be empty")
	}

	profile, err := h.userService.UpdateProfile(c.Request().Context(), userID, services.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// ChangePassword rotates the caller's password after verifying the current
// one.
func (h *UserHandlers) ChangePassword(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CurrentPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "current password is required")
	}
	if len(req.NewPassword) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	if err := h.userService.ChangePassword(c.Request().Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password changed"})
}
