package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devmadlani/auth-service/internal/service"
)

// TenantHandler exposes tenant administration. Every route is admin-only;
// the router mounts the guards.
type TenantHandler struct {
	Tenants *service.TenantService
}

func NewTenantHandler(s *service.TenantService) *TenantHandler { return &TenantHandler{Tenants: s} }

func (h *TenantHandler) Create(c echo.Context) error {
	var req service.TenantInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := h.Tenants.Create(ctx, actorID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, idResp{ID: id})
}

func (h *TenantHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.Tenants.List(ctx, listQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *TenantHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Tenants.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"tenant": t})
}

func (h *TenantHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req service.TenantInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Tenants.Update(ctx, actorID(c), id, req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idResp{ID: id})
}

func (h *TenantHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Tenants.Delete(ctx, actorID(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idResp{ID: id})
}
