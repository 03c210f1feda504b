package handlers

import (
	"net/http"
	"strings"

	"bizdesk/internal/metrics"
	"bizdesk/internal/services"
	"bizdesk/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthHandlers handles the authentication and password recovery endpoints.
type AuthHandlers struct {
	authService services.AuthService
}

// NewAuthHandlers creates a new auth handlers instance.
func NewAuthHandlers(authService services.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// Register creates a company and its owner account in one step and returns a
// live session.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req struct {
		Email              string  `json:"email"`
		Password           string  `json:"password"`
		FirstName          string  `json:"firstName"`
		LastName           string  `json:"lastName"`
		Phone              *string `json:"phone"`
		CompanyName        string  `json:"companyName"`
		CompanyINN         *string `json:"companyInn"`
		CompanyDescription *string `json:"companyDescription"`
		CompanyAddress     *string `json:"companyAddress"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "first and last name are required")
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "company name is required")
	}

	pair, err := h.authService.Register(c.Request().Context(), services.RegisterInput{
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		Password:           req.Password,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Phone:              req.Phone,
		CompanyName:        req.CompanyName,
		CompanyINN:         req.CompanyINN,
		CompanyDescription: req.CompanyDescription,
		CompanyAddress:     req.CompanyAddress,
	})
	if err != nil {
		return httpError(err)
	}

	metrics.RegistrationCounter.Inc()
	return c.JSON(http.StatusCreated, pair)
}

// Login exchanges credentials for a token pair. Every credential failure
// reads the same way.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user := h.authService.ValidateUser(c.Request().Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if user == nil {
		metrics.LoginCounter.WithLabelValues("failure").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	pair, err := h.authService.Login(c.Request().Context(), user)
	if err != nil {
		logger.FromEcho(c).Error("login failed after credential validation", zap.Error(err))
		return httpError(err)
	}

	metrics.LoginCounter.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandlers) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh_token is required")
	}

	pair, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return httpError(err)
	}

	metrics.TokenRefreshCounter.Inc()
	return c.JSON(http.StatusOK, pair)
}

// ForgotPassword issues a reset token for a known address. The raw token is
// returned in the response body for delivery.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	token, err := h.authService.ForgotPassword(c.Request().Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return httpError(err)
	}

	metrics.PasswordResetCounter.WithLabelValues("requested").Inc()
	return c.JSON(http.StatusOK, map[string]string{
		"message":    "password reset token issued",
		"resetToken": token,
	})
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	if len(req.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
	}

	if err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return httpError(err)
	}

	metrics.PasswordResetCounter.WithLabelValues("completed").Inc()
	return c.JSON(http.StatusOK, map[string]string{"message": "password has been reset"})
}

// Logout revokes the presented access token for the remainder of its life.
func (h *AuthHandlers) Logout(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" || tokenString == authHeader {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	if err := h.authService.Logout(c.Request().Context(), tokenString); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}
