package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/courseflow/courseflow/internal/database"
	"github.com/courseflow/courseflow/internal/httputil"
	"github.com/courseflow/courseflow/internal/language"
	"github.com/courseflow/courseflow/internal/validate"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const userIDKey contextKey = "userID"

// ActivationSender delivers the localized account-activation email. Delivery
// failure never fails registration; the account simply stays unconfirmed
// until a resend.
type ActivationSender interface {
	SendActivation(ctx context.Context, toEmail, toName, locale, confirmURL string) error
}

type Handler struct {
	db            database.DBTX
	jwtSecret     string
	secureCookies bool
	baseURL       string
	activation    ActivationSender
}

func NewHandler(db database.DBTX, jwtSecret string, secureCookies bool) *Handler {
	return &Handler{db: db, jwtSecret: jwtSecret, secureCookies: secureCookies}
}

func (h *Handler) SetActivationSender(s ActivationSender, baseURL string) {
	h.activation = s
	h.baseURL = baseURL
}

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Language        string `json:"language"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Language string `json:"language"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type authError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeAuthError(w http.ResponseWriter, status int, code, locale string) {
	httputil.WriteJSON(w, status, authError{Error: Message(code, locale), Code: code})
}

// displayName derives the default profile name from the email local part.
func displayName(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	locale := language.Normalize(req.Language)

	// All validation happens before any database call.
	if _, err := mail.ParseAddress(req.Email); err != nil || validate.Email(req.Email) != "" {
		writeAuthError(w, http.StatusBadRequest, CodeInvalidEmail, locale)
		return
	}
	if validate.Password(req.Password) != "" {
		writeAuthError(w, http.StatusBadRequest, CodeWeakPassword, locale)
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		writeAuthError(w, http.StatusBadRequest, CodePasswordMismatch, locale)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeAuthError(w, http.StatusInternalServerError, CodeGeneric, locale)
		return
	}

	var userID string
	err = h.db.QueryRow(r.Context(),
		"INSERT INTO users (email, password, name, preferred_language) VALUES ($1, $2, $3, $4) RETURNING id",
		req.Email, string(hashedPassword), displayName(req.Email), locale,
	).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeAuthError(w, http.StatusConflict, CodeDuplicateEmail, locale)
			return
		}
		writeAuthError(w, http.StatusInternalServerError, CodeGeneric, locale)
		return
	}

	h.sendActivation(r.Context(), req.Email, displayName(req.Email), locale, userID)

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "confirmation_sent"})
}

func (h *Handler) sendActivation(ctx context.Context, email, name, locale, userID string) {
	if h.activation == nil {
		return
	}
	token, err := GenerateConfirmToken(h.jwtSecret, userID)
	if err != nil {
		slog.Error("auth: failed to sign confirm token", "error", err)
		return
	}
	confirmURL := h.baseURL + "/api/auth/confirm?token=" + url.QueryEscape(token)
	if err := h.activation.SendActivation(ctx, email, name, locale, confirmURL); err != nil {
		slog.Error("auth: failed to send activation email", "error", err)
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	locale := language.Normalize(req.Language)

	if req.Email == "" || req.Password == "" {
		writeAuthError(w, http.StatusBadRequest, CodeInvalidCredentials, locale)
		return
	}

	var userID, hashedPassword string
	var confirmedAt *time.Time
	err := h.db.QueryRow(r.Context(),
		"SELECT id, password, confirmed_at FROM users WHERE email = $1", req.Email,
	).Scan(&userID, &hashedPassword, &confirmedAt)
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, CodeInvalidCredentials, locale)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(req.Password)); err != nil {
		writeAuthError(w, http.StatusUnauthorized, CodeInvalidCredentials, locale)
		return
	}

	if confirmedAt == nil {
		writeAuthError(w, http.StatusForbidden, CodeEmailNotConfirmed, locale)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(r.Context(), userID)
	if err != nil {
		writeAuthError(w, http.StatusInternalServerError, CodeGeneric, locale)
		return
	}

	h.setRefreshTokenCookie(w, refreshToken)
	httputil.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: accessToken})
}

// Confirm activates an account from the emailed link, then sends the visitor
// to the dashboard.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		httputil.WriteError(w, http.StatusBadRequest, "token required")
		return
	}

	claims, err := ValidateToken(h.jwtSecret, tokenStr)
	if err != nil || claims.TokenType != "confirm" {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid or expired activation link")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		"UPDATE users SET confirmed_at = now() WHERE id = $1 AND confirmed_at IS NULL",
		claims.UserID,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to activate account")
		return
	}

	http.Redirect(w, r, "/today", http.StatusSeeOther)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refresh_token")
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "refresh token not found")
		return
	}

	claims, err := ValidateToken(h.jwtSecret, cookie.Value)
	if err != nil || claims.TokenType != "refresh" || claims.TokenID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	if err := h.validateStoredRefreshToken(r.Context(), claims.UserID, claims.TokenID); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	if err := h.revokeRefreshToken(r.Context(), claims.TokenID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to revoke refresh token")
		return
	}

	accessToken, refreshToken, err := h.issueTokens(r.Context(), claims.UserID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	h.setRefreshTokenCookie(w, refreshToken)
	httputil.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: accessToken})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("refresh_token"); err == nil {
		if claims, err := ValidateToken(h.jwtSecret, cookie.Value); err == nil && claims.TokenType == "refresh" && claims.TokenID != "" {
			_ = h.revokeRefreshToken(r.Context(), claims.TokenID)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/api/auth",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Me resolves the current session. Clients treat a 401 here as "no session"
// during their initial auth check.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var resp meResponse
	resp.ID = userID
	err := h.db.QueryRow(r.Context(),
		"SELECT email, name, preferred_language FROM users WHERE id = $1", userID,
	).Scan(&resp.Email, &resp.Name, &resp.Language)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := ValidateToken(h.jwtSecret, tokenStr)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if claims.TokenType != "access" {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token type")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionUserID reports whether the request carries a valid access token,
// without writing an error response. Page-level route gating uses it.
func (h *Handler) SessionUserID(r *http.Request) (string, bool) {
	var tokenStr string
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		tokenStr, _ = strings.CutPrefix(authHeader, "Bearer ")
	} else if cookie, err := r.Cookie("access_token"); err == nil {
		tokenStr = cookie.Value
	}
	if tokenStr == "" {
		return "", false
	}
	claims, err := ValidateToken(h.jwtSecret, tokenStr)
	if err != nil || claims.TokenType != "access" {
		return "", false
	}
	return claims.UserID, true
}

func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

func (h *Handler) setRefreshTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    token,
		Path:     "/api/auth",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(RefreshTokenDuration / time.Second),
	})
}

func (h *Handler) issueTokens(ctx context.Context, userID string) (accessToken, refreshToken string, err error) {
	tokenID, err := newTokenID()
	if err != nil {
		return "", "", err
	}

	expiresAt := time.Now().Add(RefreshTokenDuration)
	if _, err := h.db.Exec(ctx, "INSERT INTO refresh_tokens (token_id, user_id, expires_at, revoked) VALUES ($1, $2, $3, false)", tokenID, userID, expiresAt); err != nil {
		return "", "", err
	}

	accessToken, err = GenerateAccessToken(h.jwtSecret, userID)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = GenerateRefreshToken(h.jwtSecret, userID, tokenID)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (h *Handler) validateStoredRefreshToken(ctx context.Context, userID, tokenID string) error {
	var revoked bool
	var expiresAt time.Time
	err := h.db.QueryRow(ctx, "SELECT revoked, expires_at FROM refresh_tokens WHERE token_id = $1 AND user_id = $2", tokenID, userID).Scan(&revoked, &expiresAt)
	if err != nil {
		return err
	}
	if revoked || time.Now().After(expiresAt) {
		return errors.New("token revoked or expired")
	}
	return nil
}

func (h *Handler) revokeRefreshToken(ctx context.Context, tokenID string) error {
	_, err := h.db.Exec(ctx, "UPDATE refresh_tokens SET revoked = true, revoked_at = now() WHERE token_id = $1", tokenID)
	return err
}

func newTokenID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
