package account

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/platform/apperr"
	"github.com/medvault/medvault/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the auth, admin bootstrap and account read endpoints.
// Credential endpoints go through limiter.
func (h *Handler) RegisterRoutes(api *echo.Group, limiter echo.MiddlewareFunc) {
	authGroup := api.Group("/auth", limiter)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/first-login-password", h.ChangeFirstLoginPassword)
	authGroup.POST("/password-reset/request", h.RequestPasswordReset)
	authGroup.POST("/password-reset", h.ResetPassword)

	adminGroup := api.Group("/admin", limiter)
	adminGroup.POST("/register", h.RegisterAdmin)
	adminGroup.POST("/reset-password", h.ResetAdminPassword)

	api.GET("/accounts", h.ListAccounts)
	api.GET("/accounts/:id", h.GetAccount)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	res, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

type firstLoginPasswordRequest struct {
	Username        string `json:"username"`
	UserID          string `json:"user_id"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) ChangeFirstLoginPassword(c echo.Context) error {
	var req firstLoginPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "current_password and new_password are required")
	}
	pc := PasswordChange{Current: req.CurrentPassword, New: req.NewPassword, Confirm: req.ConfirmPassword}

	ctx := c.Request().Context()
	var err error
	switch {
	case req.Username != "":
		err = h.svc.ChangeFirstLoginPasswordByUsername(ctx, req.Username, pc)
	case req.UserID != "":
		id, perr := uuid.Parse(req.UserID)
		if perr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		err = h.svc.ChangeFirstLoginPasswordByID(ctx, id, pc)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "username or user_id is required")
	}
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

func (h *Handler) RequestPasswordReset(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	if _, err := h.svc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password reset email sent"})
}

type resetPasswordRequest struct {
	ResetToken      string `json:"reset_token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ResetToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reset_token is required")
	}
	if err := h.svc.ResetPassword(c.Request().Context(), req.ResetToken, req.NewPassword, req.ConfirmPassword); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password reset successful"})
}

func (h *Handler) RegisterAdmin(c echo.Context) error {
	var req AdminRegistration
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.RegisterAdmin(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

type adminPasswordResetRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) ResetAdminPassword(c echo.Context) error {
	var req adminPasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ResetAdminPassword(c.Request().Context(), req.Email, req.NewPassword); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password reset successful"})
}

func (h *Handler) GetAccount(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAccount(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAccounts(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListAccounts(c.Request().Context(), Status(c.QueryParam("status")), p.Limit, p.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}
