package subscription

import (
	"errors"
	"net/http"
	"time"

	"github.com/courseflow/courseflow/internal/auth"
	"github.com/courseflow/courseflow/internal/database"
	"github.com/courseflow/courseflow/internal/httputil"
	"github.com/jackc/pgx/v5"
)

type Subscription struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	IsPremium bool       `json:"isPremium"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// HasPremiumAccess derives the entitlement: premium holds iff the record is
// premium and either never expires or expires strictly after now. Access is
// always derived, never stored.
func HasPremiumAccess(isPremium bool, expiresAt *time.Time, now time.Time) bool {
	if !isPremium {
		return false
	}
	return expiresAt == nil || expiresAt.After(now)
}

func (s *Subscription) PremiumAccess(now time.Time) bool {
	if s == nil {
		return false
	}
	return HasPremiumAccess(s.IsPremium, s.ExpiresAt, now)
}

type Handler struct {
	db database.DBTX
}

func NewHandler(db database.DBTX) *Handler {
	return &Handler{db: db}
}

type currentResponse struct {
	Subscription     *Subscription `json:"subscription"`
	HasPremiumAccess bool          `json:"hasPremiumAccess"`
}

// Current returns the viewer's subscription record. A missing row is not an
// error; it simply means no premium access.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var sub Subscription
	err := h.db.QueryRow(r.Context(),
		"SELECT id, user_id, is_premium, created_at, expires_at FROM subscriptions WHERE user_id = $1",
		userID,
	).Scan(&sub.ID, &sub.UserID, &sub.IsPremium, &sub.CreatedAt, &sub.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteJSON(w, http.StatusOK, currentResponse{})
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, currentResponse{
		Subscription:     &sub,
		HasPremiumAccess: sub.PremiumAccess(time.Now()),
	})
}

// PremiumAccessFor looks up the viewer's entitlement for other handlers
// (course affordances, paid embeds). Lookup failures read as no access.
func PremiumAccessFor(r *http.Request, db database.DBTX, userID string) bool {
	if userID == "" {
		return false
	}
	var isPremium bool
	var expiresAt *time.Time
	err := db.QueryRow(r.Context(),
		"SELECT is_premium, expires_at FROM subscriptions WHERE user_id = $1", userID,
	).Scan(&isPremium, &expiresAt)
	if err != nil {
		return false
	}
	return HasPremiumAccess(isPremium, expiresAt, time.Now())
}
