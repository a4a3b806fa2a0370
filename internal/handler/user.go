package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devmadlani/auth-service/internal/service"
)

// UserHandler exposes user administration (admin-only).
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(s *service.UserService) *UserHandler { return &UserHandler{Users: s} }

func (h *UserHandler) Create(c echo.Context) error {
	var req service.CreateUserInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := h.Users.Create(ctx, actorID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, idResp{ID: id})
}

// List supports ?currentPage, ?perPage, ?q (name or email) and ?role.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.Users.List(ctx, listQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateUserInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Users.Update(ctx, actorID(c), id, req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idResp{ID: id})
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Users.Delete(ctx, actorID(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idResp{ID: id})
}
