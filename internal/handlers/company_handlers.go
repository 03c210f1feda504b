package handlers

import (
	"net/http"
	"strings"

	"bizdesk/internal/common"
	"bizdesk/internal/metrics"
	"bizdesk/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CompanyHandlers handles company management and the invitation endpoints.
type CompanyHandlers struct {
	companyService services.CompanyService
}

// NewCompanyHandlers creates a new company handlers instance.
func NewCompanyHandlers(companyService services.CompanyService) *CompanyHandlers {
	return &CompanyHandlers{companyService: companyService}
}

func (h *CompanyHandlers) callerCompanyID(c echo.Context) (uuid.UUID, error) {
	companyID, ok := common.GetCompanyIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "no company attached")
	}
	return companyID, nil
}

// GetMyCompany returns the caller's company.
func (h *CompanyHandlers) GetMyCompany(c echo.Context) error {
	companyID, err := h.callerCompanyID(c)
	if err != nil {
		return err
	}

	company, err := h.companyService.GetByID(c.Request().Context(), companyID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, company)
}

// UpdateMyCompany applies a partial update to the caller's company.
func (h *CompanyHandlers) UpdateMyCompany(c echo.Context) error {
	companyID, err := h.callerCompanyID(c)
	if err != nil {
		return err
	}

	var req struct {
		Name        *string `json:"name"`
		INN         *string `json:"inn"`
		Description *string `json:"description"`
		Address     *string `json:"address"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "company name cannot be empty")
	}

	company, err := h.companyService.Update(c.Request().Context(), companyID, services.UpdateCompanyInput{
		Name:        req.Name,
		INN:         req.INN,
		Description: req.Description,
		Address:     req.Address,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, company)
}

// InviteEmployee sends an invitation to the given address.
func (h *CompanyHandlers) InviteEmployee(c echo.Context) error {
	companyID, err := h.callerCompanyID(c)
	if err != nil {
		return err
	}

	// firstName/lastName/position are accepted for forward compatibility but
	// the invitee supplies their real name when accepting.
	var req struct {
		Email     string  `json:"email"`
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Position  *string `json:"position"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	result, err := h.companyService.InviteEmployee(c.Request().Context(), companyID, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return httpError(err)
	}

	metrics.InvitationCounter.WithLabelValues("sent").Inc()
	resp := map[string]any{
		"success": true,
		"message": result.Message,
	}
	if result.Token != "" {
		resp["invitationToken"] = result.Token
	}
	return c.JSON(http.StatusOK, resp)
}

// GetEmployees lists the company's employees.
func (h *CompanyHandlers) GetEmployees(c echo.Context) error {
	companyID, err := h.callerCompanyID(c)
	if err != nil {
		return err
	}

	employees, err := h.companyService.GetEmployees(c.Request().Context(), companyID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, employees)
}

// RemoveEmployee detaches an employee from the company.
func (h *CompanyHandlers) RemoveEmployee(c echo.Context) error {
	companyID, err := h.callerCompanyID(c)
	if err != nil {
		return err
	}

	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid employee id")
	}

	if err := h.companyService.RemoveEmployee(c.Request().Context(), companyID, employeeID); err != nil {
		return httpError(err)
	}

	metrics.InvitationCounter.WithLabelValues("removed").Inc()
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "employee removed from company",
	})
}

// CheckInvitation resolves an invitation token without consuming it. Public.
func (h *CompanyHandlers) CheckInvitation(c echo.Context) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	status, err := h.companyService.CheckInvitation(c.Request().Context(), req.Token)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, status)
}

// AcceptInvitation activates a dormant employee account. Public.
func (h *CompanyHandlers) AcceptInvitation(c echo.Context) error {
	var req struct {
		Token     string `json:"token"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Password  string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "first and last name are required")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	user, err := h.companyService.AcceptInvitation(c.Request().Context(), services.AcceptInvitationInput{
		Token:     req.Token,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return httpError(err)
	}

	metrics.InvitationCounter.WithLabelValues("accepted").Inc()
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "invitation accepted",
		"user":    user,
	})
}
