package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fintraq/auth-gateway/internal/config"
	"github.com/fintraq/auth-gateway/internal/middleware"
	"github.com/fintraq/auth-gateway/internal/model"
	"github.com/fintraq/auth-gateway/internal/queue"
	"github.com/fintraq/auth-gateway/internal/repository"
	"github.com/fintraq/auth-gateway/internal/utils"
)

// Cookie pair carried on the auth path. rt holds the raw refresh token and is
// HTTP-only; rm is a readable marker remembering whether the session should
// survive browser close, so rotation can reapply the same persistence.
const (
	refreshCookieName  = "rt"
	rememberCookieName = "rm"
	authCookiePath     = "/api/auth"
)

// UserStore is the slice of the credential store the auth handlers need.
// *repository.UserRepo satisfies it; tests substitute an in-memory fake.
type UserStore interface {
	Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists refresh-token records. *repository.TokenRepo satisfies it.
type TokenStore interface {
	Store(ctx context.Context, rec model.RefreshTokenRecord) error
	FindByHash(ctx context.Context, tokenHash string) (model.RefreshTokenRecord, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	Rotate(ctx context.Context, userID uint64, oldHash string, newRec model.RefreshTokenRecord) error
	PruneExpired(ctx context.Context, userID uint64, now time.Time) error
}

// EventPublisher emits audit events. May be nil when no broker is configured.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Events EventPublisher
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, ev EventPublisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Events: ev}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember *bool  `json:"remember"` // default true when omitted
}

type authResp struct {
	User        model.PublicUser `json:"user"`
	AccessToken string           `json:"accessToken"`
}

// Register creates a user and opens a session: one access token in the body,
// one refresh token in a persistent cookie pair.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := strings.TrimSpace(req.Name)
	email := utils.NormalizeEmail(req.Email)
	password := strings.TrimSpace(req.Password)
	if err := utils.ValidateRegister(name, email, password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, name, email, password, model.RoleUser, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return h.serverError(c, "register: create user", err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return h.serverError(c, "register: load user", err)
	}

	access, refresh, err := h.issueTokens(ctx, c, u)
	if err != nil {
		return h.serverError(c, "register: issue tokens", err)
	}

	// Register always opens a persistent session.
	h.setRefreshCookie(c, refresh.Raw, true)
	h.publish(queue.AuthEvent{Type: queue.EventUserRegistered, UserID: u.ID, Email: u.Email, IP: c.RealIP(), UserAgent: c.Request().UserAgent()})
	return c.JSON(http.StatusCreated, authResp{User: u.Public(), AccessToken: access.Token})
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password produce byte-identical 401 responses so accounts cannot be
// enumerated.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := utils.NormalizeEmail(req.Email)
	password := strings.TrimSpace(req.Password)
	if err := utils.ValidateLogin(email, password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return h.serverError(c, "login: load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Opportunistic cleanup keeps the per-user token list bounded.
	if err := h.Tokens.PruneExpired(ctx, u.ID, time.Now().UTC()); err != nil {
		log.Printf("auth[%s]: prune expired tokens for user %d: %v", requestID(c), u.ID, err)
	}

	access, refresh, err := h.issueTokens(ctx, c, u)
	if err != nil {
		return h.serverError(c, "login: issue tokens", err)
	}

	persistent := req.Remember == nil || *req.Remember
	h.setRefreshCookie(c, refresh.Raw, persistent)
	return c.JSON(http.StatusOK, authResp{User: u.Public(), AccessToken: access.Token})
}

// Refresh rotates the refresh token presented in the cookie and returns a new
// access token. Rotation is one-time-use: the presented token's row is
// deleted in the same transaction that inserts its replacement, so a second
// presentation — including the loser of a concurrent race — fails with 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		h.clearRefreshCookie(c)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	oldHash := utils.HashRefreshRaw(cookie.Value)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Tokens.FindByHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			// Possibly a rotated-out token being replayed; worth an audit
			// trail even though the response stays an opaque 401.
			h.publish(queue.AuthEvent{Type: queue.EventTokenRejected, IP: c.RealIP(), UserAgent: c.Request().UserAgent()})
			h.clearRefreshCookie(c)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return h.serverError(c, "refresh: lookup token", err)
	}
	if rec.Expired(time.Now().UTC()) {
		// Lazy cleanup of the stale row; absence is fine.
		if err := h.Tokens.DeleteByHash(ctx, oldHash); err != nil {
			log.Printf("auth[%s]: delete expired token: %v", requestID(c), err)
		}
		h.clearRefreshCookie(c)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	u, err := h.Users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.clearRefreshCookie(c)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return h.serverError(c, "refresh: load user", err)
	}

	next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return h.serverError(c, "refresh: generate token", err)
	}
	if err := h.Tokens.Rotate(ctx, u.ID, oldHash, h.record(c, u.ID, next)); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			h.publish(queue.AuthEvent{Type: queue.EventTokenRejected, UserID: u.ID, IP: c.RealIP(), UserAgent: c.Request().UserAgent()})
			h.clearRefreshCookie(c)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return h.serverError(c, "refresh: rotate token", err)
	}

	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, claimsFor(u), h.Cfg.AccessTTLMin)
	if err != nil {
		return h.serverError(c, "refresh: issue access", err)
	}

	// Persistence is read back from the remember cookie, never re-derived.
	persistent := false
	if rm, err := c.Cookie(rememberCookieName); err == nil && rm.Value == "1" {
		persistent = true
	}
	h.setRefreshCookie(c, next.Raw, persistent)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": access.Token})
}

// Logout removes the presented refresh token's record (best-effort) and
// clears the cookie pair. Always succeeds; logging out twice is fine.
func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := h.Tokens.DeleteByHash(ctx, utils.HashRefreshRaw(cookie.Value)); err != nil {
			log.Printf("auth[%s]: logout delete token: %v", requestID(c), err)
		}
	}
	h.clearRefreshCookie(c)
	h.clearRememberCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the sanitized user for the authenticated subject. Runs behind
// JWTAuth.
func (h *AuthHandler) Me(c echo.Context) error {
	uid := middleware.SubjectID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return h.serverError(c, "me: load user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u.Public()})
}

// ----- helpers -----

func claimsFor(u model.User) utils.AccessClaims {
	return utils.AccessClaims{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// issueTokens signs an access token and persists a fresh refresh record
// carrying the request's user-agent/IP context.
func (h *AuthHandler) issueTokens(ctx context.Context, c echo.Context, u model.User) (utils.AccessToken, utils.RefreshToken, error) {
	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, claimsFor(u), h.Cfg.AccessTTLMin)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	if err := h.Tokens.Store(ctx, h.record(c, u.ID, refresh)); err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	return access, refresh, nil
}

func (h *AuthHandler) record(c echo.Context, userID uint64, rt utils.RefreshToken) model.RefreshTokenRecord {
	return model.RefreshTokenRecord{
		UserID:    userID,
		TokenHash: utils.HashRefreshRaw(rt.Raw),
		ExpiresAt: rt.Exp,
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	}
}

// setRefreshCookie writes the cookie pair. Persistent sessions get a fixed
// MaxAge equal to the refresh TTL; session cookies carry no expiry and the
// remember marker is cleared so rotation keeps the same behavior.
func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, persistent bool) {
	rt := h.baseCookie(refreshCookieName, token)
	rt.HttpOnly = true
	if persistent {
		rt.MaxAge = h.Cfg.RefreshTTLDays * 24 * 60 * 60
	}
	c.SetCookie(rt)

	if persistent {
		rm := h.baseCookie(rememberCookieName, "1")
		rm.MaxAge = h.Cfg.RefreshTTLDays * 24 * 60 * 60
		c.SetCookie(rm)
	} else {
		h.clearRememberCookie(c)
	}
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	rt := h.baseCookie(refreshCookieName, "")
	rt.HttpOnly = true
	rt.MaxAge = -1
	c.SetCookie(rt)
}

func (h *AuthHandler) clearRememberCookie(c echo.Context) {
	rm := h.baseCookie(rememberCookieName, "")
	rm.MaxAge = -1
	c.SetCookie(rm)
}

func (h *AuthHandler) baseCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     authCookiePath,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.Cfg.IsProd(),
	}
}

// publish emits an audit event without blocking the request path. Publish
// failures are already logged by the publisher.
func (h *AuthHandler) publish(ev queue.AuthEvent) {
	if h.Events == nil {
		return
	}
	ev.At = time.Now().UTC().Format(time.RFC3339)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Events.Publish(ctx, ev)
	}()
}

// serverError logs the failure with the request id and returns a generic 500
// so internals never leak to the client.
func (h *AuthHandler) serverError(c echo.Context, op string, err error) error {
	log.Printf("auth[%s]: %s: %v", requestID(c), op, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
