package onboarding

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

// RegisterRoutes mounts the registration endpoints. Only the public
// submission goes through limiter.
func (h *Handler) RegisterRoutes(api *echo.Group, limiter echo.MiddlewareFunc) {
	g := api.Group("/registration")
	g.POST("/requests", h.Submit, limiter)
	g.GET("/requests", h.ListRequests)
	g.GET("/requests/:id", h.GetRequest)
	g.GET("/stats", h.Stats)
	g.POST("/requests/:id/approve", h.Approve)
	g.POST("/requests/:id/reject", h.Reject)
	g.POST("/accounts", h.CreateDirect)
}

func (h *Handler) Submit(c echo.Context) error {
	var in Submission
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.Submit(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.GetRequest(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ListRequests(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListRequests(c.Request().Context(), Status(c.QueryParam("status")), p.Limit, p.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}

func bindDecision(c echo.Context) (uuid.UUID, Decision, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, Decision{}, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var d Decision
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&d); err != nil {
			return uuid.Nil, Decision{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return id, d, nil
}

func (h *Handler) Approve(c echo.Context) error {
	id, d, err := bindDecision(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Approve(c.Request().Context(), id, d)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Reject(c echo.Context) error {
	id, d, err := bindDecision(c)
	if err != nil {
		return err
	}
	d.AdminPassword = ""
	res, err := h.svc.Reject(c.Request().Context(), id, d)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateDirect(c echo.Context) error {
	var in DirectAccount
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.CreateDirect(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, res)
}
