package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/streamverse/catalog-api/internal/auth"
	"github.com/streamverse/catalog-api/internal/config"
	"github.com/streamverse/catalog-api/internal/middleware"
	"github.com/streamverse/catalog-api/internal/model"
	"github.com/streamverse/catalog-api/internal/repository"
	"github.com/streamverse/catalog-api/internal/utils"
)

// AuthHandler bundles dependencies for credential issuance and the token
// lifecycle endpoints.
type AuthHandler struct {
	Cfg       config.Config
	Tokens    *auth.Service
	Users     UserStore
	Blacklist BlacklistStore
	Audit     AuditRecorder
}

func NewAuthHandler(cfg config.Config, t *auth.Service, u UserStore, b BlacklistStore, a AuditRecorder) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Tokens: t, Users: u, Blacklist: b, Audit: a}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Register: create a user account. Admin rights are never grantable here.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return utils.Error(c, http.StatusBadRequest, "Invalid request body")
	}

	var missing []string
	for _, f := range []struct{ name, val string }{
		{"username", req.Username},
		{"fullname", req.Fullname},
		{"email", req.Email},
		{"password", req.Password},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return utils.Error(c, http.StatusBadRequest, "Missing or empty field(s): "+strings.Join(missing, ", "))
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	fullname := strings.TrimSpace(req.Fullname)
	password := strings.TrimSpace(req.Password)

	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return utils.Error(c, http.StatusBadRequest, "Invalid email address")
	}

	digest, err := auth.HashPassword(password, h.Cfg.BcryptCost)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	user := model.User{
		Username:  username,
		Fullname:  fullname,
		Email:     email,
		Password:  digest,
		Admin:     false, // always false at registration
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if h.Cfg.RequireAPIKey {
		key, err := auth.NewAPIKey()
		if err != nil {
			return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
		}
		user.APIKey = key
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return utils.Error(c, http.StatusConflict, "Username already in use")
		case errors.Is(err, repository.ErrEmailExists):
			return utils.Error(c, http.StatusConflict, "Email already in use")
		}
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	resp := echo.Map{
		"message":  "User registered successfully",
		"username": username,
	}
	if user.APIKey != "" {
		resp["api_key"] = user.APIKey
		resp["info"] = "Take note of your unique API key for future requests."
	}
	return utils.JSON(c, http.StatusCreated, resp)
}

// Login: verify credentials and issue an access/refresh token pair bound to
// this endpoint's URL as issuer.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return utils.Error(c, http.StatusBadRequest, "Invalid request body")
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	password := strings.TrimSpace(req.Password)
	apiKey := c.Request().Header.Get(middleware.APIKeyHeader)

	var missing []string
	if username == "" {
		missing = append(missing, "username")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if h.Cfg.RequireAPIKey && apiKey == "" {
		missing = append(missing, "x-api-key header")
	}
	if len(missing) > 0 {
		return utils.Error(c, http.StatusBadRequest, "Missing required field(s): "+strings.Join(missing, ", "))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		// deliberately the same message as a bad password; responses must
		// not reveal which credential field was wrong
		return utils.Error(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	if h.Cfg.RequireAPIKey && subtle.ConstantTimeCompare([]byte(u.APIKey), []byte(apiKey)) != 1 {
		return utils.Error(c, http.StatusForbidden, "Invalid API key")
	}
	if !auth.VerifyPassword(u.Password, password) {
		return utils.Error(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if !u.Active {
		return utils.Error(c, http.StatusForbidden, "Account is deactivated. Contact an administrator.")
	}

	issuer := requestURL(c)
	access, accessExp, err := h.Tokens.Issue(u.Username, u.Admin, auth.ClassAccess, issuer)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	refresh, _, err := h.Tokens.Issue(u.Username, u.Admin, auth.ClassRefresh, issuer)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}

	return utils.JSON(c, http.StatusOK, echo.Map{
		"message":       "Login successful",
		"access_token":  access,
		"expiration":    accessExp.Unix(),
		"refresh_token": refresh,
	})
}

// Logout: blacklist the presented token's id. The token only needs an
// authentic signature, not full validity, so a token at or past expiry can
// still be revoked explicitly. Revoking twice is an idempotent success.
func (h *AuthHandler) Logout(c echo.Context) error {
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return utils.Error(c, http.StatusBadRequest, "Missing JWT token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	id, exp, err := h.Tokens.DecodeExpired(raw)
	if err != nil {
		return utils.Error(c, http.StatusUnauthorized, "Invalid token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	revoked, err := h.Blacklist.IsRevoked(ctx, id.TokenID)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	if revoked {
		return utils.JSON(c, http.StatusOK, echo.Map{"message": "Token already blacklisted"})
	}

	entry := model.RevocationEntry{
		JTI:           id.TokenID,
		Username:      id.Username,
		BlacklistedAt: time.Now().UTC(),
		ExpiresAt:     exp,
	}
	if err := h.Blacklist.Insert(ctx, entry); err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	return utils.JSON(c, http.StatusOK, echo.Map{"message": "Logout successful"})
}

// Refresh: exchange a valid refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until its own expiry
// or explicit revocation.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return utils.Error(c, http.StatusBadRequest, "Please provide refresh token in body of request")
	}

	id, err := h.Tokens.Validate(strings.TrimSpace(req.RefreshToken), auth.ClassRefresh)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return utils.Error(c, http.StatusUnauthorized, "Refresh token expired")
		case errors.Is(err, auth.ErrWrongTokenClass):
			return utils.Error(c, http.StatusUnauthorized, "Invalid refresh token type")
		case errors.Is(err, auth.ErrUnknownIssuer):
			return utils.Error(c, http.StatusForbidden, "Invalid token issuer")
		default:
			return utils.Error(c, http.StatusUnauthorized, "Invalid refresh token")
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	revoked, err := h.Blacklist.IsRevoked(ctx, id.TokenID)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	if revoked {
		return utils.Error(c, http.StatusUnauthorized, "Refresh token has been blacklisted")
	}

	access, accessExp, err := h.Tokens.Issue(id.Username, id.Admin, auth.ClassAccess, requestURL(c))
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	return utils.JSON(c, http.StatusOK, echo.Map{
		"access_token": access,
		"expiration":   accessExp.Unix(),
	})
}

// PruneBlacklist: admin maintenance that drops revocation entries whose
// token has already expired on its own.
func (h *AuthHandler) PruneBlacklist(c echo.Context) error {
	admin, _ := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	removed, err := h.Blacklist.PruneExpired(ctx)
	if err != nil {
		return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
	}
	h.Audit.Record(ctx, admin.Username, "prune_blacklist", model.SystemTarget, nil)
	return utils.JSON(c, http.StatusOK, echo.Map{
		"message": "Expired blacklist entries removed",
		"removed": removed,
	})
}

// requestURL reconstructs the URL that received the request; tokens record
// it as their issuer for provenance checks.
func requestURL(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host + c.Request().URL.Path
}
