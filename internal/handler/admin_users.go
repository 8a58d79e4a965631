package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/service"
)

// AccountService is the part of the session manager used by the admin
// user endpoints.
type AccountService interface {
	GetUser(ctx context.Context, id uint64) (service.Account, error)
	SetBlocked(ctx context.Context, id uint64, blocked bool) error
	SetRole(ctx context.Context, id uint64, role string) (model.Role, error)
	RevokeAllSessions(ctx context.Context, userID uint64) (int64, error)
}

// AdminUserHandler serves /v1/admin/users.
type AdminUserHandler struct {
	Accounts AccountService
	Log      logrus.FieldLogger
}

func NewAdminUserHandler(a AccountService, log logrus.FieldLogger) *AdminUserHandler {
	return &AdminUserHandler{Accounts: a, Log: log}
}

type accountResp struct {
	ID             uint64     `json:"id"`
	Email          string     `json:"email"`
	Role           model.Role `json:"role"`
	Blocked        bool       `json:"blocked"`
	ActiveSessions int        `json:"active_sessions"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type blockReq struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

type roleReq struct {
	Role string `json:"role"`
}

func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// Get returns an account with its number of live sessions.
func (h *AdminUserHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Accounts.GetUser(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err, true)
	}
	return c.JSON(http.StatusOK, accountResp{
		ID:             a.ID,
		Email:          a.Email,
		Role:           a.Role,
		Blocked:        a.Blocked,
		ActiveSessions: a.ActiveSessions,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	})
}

// SetBlocked blocks or unblocks an account. Blocking signs the user out
// everywhere.
func (h *AdminUserHandler) SetBlocked(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req blockReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, h.Log, err, true)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Accounts.SetBlocked(ctx, id, *req.Blocked); err != nil {
		return writeError(c, h.Log, err, true)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "blocked": *req.Blocked})
}

// SetRole changes an account's role. The new role takes effect at the
// user's next login or refresh.
func (h *AdminUserHandler) SetRole(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	role, err := h.Accounts.SetRole(ctx, id, req.Role)
	if err != nil {
		return writeError(c, h.Log, err, true)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "role": role})
}

// RevokeSessions deletes every session of the user.
func (h *AdminUserHandler) RevokeSessions(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	n, err := h.Accounts.RevokeAllSessions(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err, true)
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": n})
}
