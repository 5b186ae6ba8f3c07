package subscription

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/courseflow/courseflow/internal/auth"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var errDatabase = errors.New("connection refused")

func TestHasPremiumAccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name      string
		isPremium bool
		expiresAt *time.Time
		want      bool
	}{
		{"premium without expiry", true, nil, true},
		{"premium expiring in the future", true, &future, true},
		{"premium already expired", true, &past, false},
		{"premium expiring exactly now", true, &now, false},
		{"free without expiry", false, nil, false},
		{"free with future expiry", false, &future, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPremiumAccess(tt.isPremium, tt.expiresAt, now); got != tt.want {
				t.Errorf("HasPremiumAccess(%v, %v) = %v, want %v", tt.isPremium, tt.expiresAt, got, tt.want)
			}
		})
	}
}

func TestNilSubscriptionHasNoAccess(t *testing.T) {
	var sub *Subscription
	if sub.PremiumAccess(time.Now()) {
		t.Error("nil subscription must not grant access")
	}
}

const testSecret = "test-jwt-secret-key"
const testUserID = "550e8400-e29b-41d4-a716-446655440000"

func authenticated(t *testing.T, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	token, err := auth.GenerateAccessToken(testSecret, testUserID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(t *testing.T, h *Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	middleware := auth.NewHandler(nil, testSecret, false).Middleware
	middleware(http.HandlerFunc(h.Current)).ServeHTTP(rec, req)
	return rec
}

func TestCurrentReturnsDerivedAccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock pool: %v", err)
	}
	defer mock.Close()

	future := time.Now().Add(30 * 24 * time.Hour)
	mock.ExpectQuery(`SELECT id, user_id, is_premium, created_at, expires_at FROM subscriptions`).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "is_premium", "created_at", "expires_at"}).
			AddRow("sub-1", testUserID, true, time.Now(), &future))

	rec := serve(t, NewHandler(mock), authenticated(t, "/api/subscription"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Subscription     *Subscription `json:"subscription"`
		HasPremiumAccess bool          `json:"hasPremiumAccess"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Subscription == nil || !resp.HasPremiumAccess {
		t.Errorf("expected premium access, got %+v", resp)
	}
}

func TestCurrentExpiredSubscriptionHasNoAccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock pool: %v", err)
	}
	defer mock.Close()

	past := time.Now().Add(-time.Hour)
	mock.ExpectQuery(`SELECT id, user_id, is_premium, created_at, expires_at FROM subscriptions`).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "is_premium", "created_at", "expires_at"}).
			AddRow("sub-1", testUserID, true, time.Now().Add(-48*time.Hour), &past))

	rec := serve(t, NewHandler(mock), authenticated(t, "/api/subscription"))

	var resp struct {
		HasPremiumAccess bool `json:"hasPremiumAccess"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.HasPremiumAccess {
		t.Error("expired subscription must not grant access")
	}
}

func TestCurrentMissingRowIsNotAnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, is_premium, created_at, expires_at FROM subscriptions`).
		WithArgs(testUserID).
		WillReturnError(pgx.ErrNoRows)

	rec := serve(t, NewHandler(mock), authenticated(t, "/api/subscription"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for missing subscription, got %d", rec.Code)
	}

	var resp struct {
		Subscription     *Subscription `json:"subscription"`
		HasPremiumAccess bool          `json:"hasPremiumAccess"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Subscription != nil || resp.HasPremiumAccess {
		t.Errorf("expected empty response, got %+v", resp)
	}
}

func TestCurrentQueryFailureIsGenericError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, is_premium, created_at, expires_at FROM subscriptions`).
		WithArgs(testUserID).
		WillReturnError(errDatabase)

	rec := serve(t, NewHandler(mock), authenticated(t, "/api/subscription"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
