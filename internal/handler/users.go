package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/streamverse/catalog-api/internal/auth"
	"github.com/streamverse/catalog-api/internal/config"
	"github.com/streamverse/catalog-api/internal/middleware"
	"github.com/streamverse/catalog-api/internal/repository"
	"github.com/streamverse/catalog-api/internal/utils"
)

// UsersHandler implements the admin-only account management endpoints.
// Every state-changing operation writes an audit entry.
type UsersHandler struct {
	Cfg   config.Config
	Users UserStore
	Audit AuditRecorder
}

func NewUsersHandler(cfg config.Config, u UserStore, a AuditRecorder) *UsersHandler {
	return &UsersHandler{Cfg: cfg, Users: u, Audit: a}
}

type updateUserReq struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Fullname *string `json:"fullname"`
	Admin    *bool   `json:"admin"`
}

type resetPasswordReq struct {
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type statusReq struct {
	Reason string `json:"reason"`
}

// List returns a page of users with optional active/inactive filtering and
// sorting. Sensitive fields never leave the repository projection.
func (h *UsersHandler) List(c echo.Context) error {
	admin, _ := middleware.CurrentUser(c)

	pageNum := queryInt(c, "pn", 1)
	pageSize := queryInt(c, "ps", 10)
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	status := strings.ToLower(c.QueryParam("account_status"))
	if status == "" {
		status = "all"
	}
	sortBy := c.QueryParam("sort_by")
	if sortBy == "" {
		sortBy = "created_at"
	}
	asc := strings.ToLower(c.QueryParam("sort_order")) == "asc"

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, filtered, total, err := h.Users.List(ctx, pageNum, pageSize, status, sortBy, asc)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	h.Audit.Record(ctx, admin.Username, "view_all_users", "system", nil)
	return utils.JSON(c, http.StatusOK, echo.Map{
		"page_num":       pageNum,
		"page_size":      pageSize,
		"total_filtered": filtered,
		"total_all":      total,
		"status_filter":  status,
		"returned":       len(users),
		"users":          users,
	})
}

// Get returns a single user profile.
func (h *UsersHandler) Get(c echo.Context) error {
	admin, _ := middleware.CurrentUser(c)
	username := strings.ToLower(c.Param("username"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.Error(c, http.StatusNotFound, fmt.Sprintf("User '%s' not found.", username))
	}
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	h.Audit.Record(ctx, admin.Username, "get_user", "system",
		map[string]string{"action": "previewed user profile: " + username})
	return utils.JSON(c, http.StatusOK, echo.Map{"user": u})
}

// Update applies a partial edit of a user's details. Username changes are
// normalized and conflict-checked before the update.
func (h *UsersHandler) Update(c echo.Context) error {
	admin, _ := middleware.CurrentUser(c)
	username := strings.ToLower(c.Param("username"))

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return utils.Error(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	fields := map[string]any{}
	if req.Username != nil {
		newName := strings.ToLower(strings.TrimSpace(*req.Username))
		taken, err := h.Users.Exists(ctx, newName)
		if err != nil {
			return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
		}
		if taken {
			return utils.Error(c, http.StatusConflict, "Username already exists")
		}
		fields["username"] = newName
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			return utils.Error(c, http.StatusBadRequest, "Invalid email address")
		}
		fields["email"] = email
	}
	if req.Fullname != nil {
		fields["fullname"] = strings.TrimSpace(*req.Fullname)
	}
	if req.Admin != nil {
		fields["admin"] = *req.Admin
	}
	if len(fields) == 0 {
		return utils.Error(c, http.StatusBadRequest, "No valid fields to update")
	}

	changed := make([]string, 0, len(fields))
	for k := range fields {
		changed = append(changed, k)
	}
	now := time.Now().UTC()
	fields["last_updated_at"] = now

	err := h.Users.UpdateDetails(ctx, username, fields)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return utils.Error(c, http.StatusNotFound, fmt.Sprintf("User '%s' not found.", username))
	case errors.Is(err, repository.ErrNotModified):
		return utils.JSON(c, http.StatusOK, echo.Map{
			"message": fmt.Sprintf("No changes applied for user '%s'.", username),
		})
	case err != nil:
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	h.Audit.Record(ctx, admin.Username, "update_user", username,
		map[string]string{"action": fmt.Sprintf("Updated user details. Fields updated: %v.", changed)})
	return utils.JSON(c, http.StatusOK, echo.Map{
		"message":        fmt.Sprintf("User '%s' updated successfully.", username),
		"changed_fields": changed,
		"updated_at":     now,
	})
}

// ResetPassword sets a new password for a user after a confirm-match check.
func (h *UsersHandler) ResetPassword(c echo.Context) error {
	admin, _ := middleware.CurrentUser(c)
	username := strings.ToLower(c.Param("username"))

	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return utils.Error(c, http.StatusBadRequest, "Invalid request body")
	}

	var missing []string
	if req.NewPassword == "" {
		missing = append(missing, "new_password")
	}
	if req.ConfirmPassword == "" {
		missing = append(missing, "confirm_password")
	}
	if len(missing) > 0 {
		return utils.Error(c, http.StatusBadRequest, "Missing required field(s): "+strings.Join(missing, ", "))
	}
	if req.NewPassword != req.ConfirmPassword {
		return utils.Error(c, http.StatusBadRequest, "New passwords do not match")
	}

	digest, err := auth.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Users.ResetPassword(ctx, username, digest)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return utils.Error(c, http.StatusNotFound, fmt.Sprintf("User '%s' not found.", username))
	case errors.Is(err, repository.ErrNotModified):
		// a fresh bcrypt digest always differs; zero modified means the
		// store silently dropped a security-relevant write
		return utils.Error(c, http.StatusInternalServerError,
			fmt.Sprintf("Password update was not applied for user '%s'; investigate store health.", username))
	case err != nil:
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	h.Audit.Record(ctx, admin.Username, "reset_user_password", username,
		map[string]string{"action": fmt.Sprintf("Reset user '%s' password.", username)})
	return utils.JSON(c, http.StatusOK, echo.Map{
		"message":    fmt.Sprintf("Password for user '%s' reset successfully", username),
		"updated_at": time.Now().UTC(),
	})
}

// Activate re-enables a deactivated account.
func (h *UsersHandler) Activate(c echo.Context) error {
	return h.setActiveStatus(c, true)
}

// Deactivate disables an account, recording when and why.
func (h *UsersHandler) Deactivate(c echo.Context) error {
	return h.setActiveStatus(c, false)
}

func (h *UsersHandler) setActiveStatus(c echo.Context, active bool) error {
	admin, _ := middleware.CurrentUser(c)
	username := strings.ToLower(c.Param("username"))

	var req statusReq
	_ = c.Bind(&req)
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "No reason provided"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.Error(c, http.StatusNotFound, "User not found")
	}
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	// idempotent no-op: same state requested, nothing written, no audit
	if u.Active == active {
		state := "active"
		if !active {
			state = "inactive"
		}
		return utils.JSON(c, http.StatusOK, echo.Map{"message": "User already " + state})
	}

	if err := h.Users.SetActiveStatus(ctx, username, active, reason); err != nil {
		// includes ErrNotModified: a lifecycle change that silently failed
		// must surface loudly, not report success
		return utils.Error(c, http.StatusInternalServerError, "Failed to update user status unexpectedly.")
	}

	action, message := "deactivate_user", fmt.Sprintf("User '%s' deactivated", username)
	if active {
		action, message = "reactivate_user", fmt.Sprintf("User '%s' reactivated", username)
	}
	h.Audit.Record(ctx, admin.Username, action, username, map[string]string{"reason": reason})

	resp := echo.Map{"message": message}
	if !active {
		resp["reason"] = reason
	}
	return utils.JSON(c, http.StatusOK, resp)
}

// Delete permanently removes a user. Self-deletion is always forbidden and
// the target must already be deactivated, so destructive removal is a
// deliberate two-step action.
func (h *UsersHandler) Delete(c echo.Context) error {
	admin, _ := middleware.CurrentUser(c)
	username := strings.ToLower(c.Param("username"))

	if admin.Username == username {
		return utils.Error(c, http.StatusBadRequest, "Admins cannot delete their own account.")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.Error(c, http.StatusNotFound, fmt.Sprintf("User '%s' not found.", username))
	}
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	if u.Active {
		return utils.Error(c, http.StatusBadRequest, "User must be deactivated before deletion.")
	}

	if err := h.Users.Delete(ctx, username); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Error(c, http.StatusNotFound, fmt.Sprintf("User '%s' not found.", username))
		}
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	h.Audit.Record(ctx, admin.Username, "delete_user", username,
		map[string]string{"action": fmt.Sprintf("User '%s' permanently deleted.", username)})
	return c.NoContent(http.StatusNoContent)
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
