package course

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/courseflow/courseflow/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

const testSecret = "test-jwt-secret-key"
const testUserID = "550e8400-e29b-41d4-a716-446655440000"

type mockStorage struct {
	thumbnailURL string
	thumbnailErr error
	uploadURL    string
	uploadErr    error
	lastKey      string
}

func (m *mockStorage) ThumbnailURL(_ context.Context, key string, _ time.Duration) (string, error) {
	m.lastKey = key
	return m.thumbnailURL, m.thumbnailErr
}

func (m *mockStorage) ThumbnailUploadURL(_ context.Context, key string, _ string, _ int64, _ time.Duration) (string, error) {
	m.lastKey = key
	return m.uploadURL, m.uploadErr
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock pool: %v", err)
	}
	return mock
}

func authenticatedRequest(t *testing.T, method, target string, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	token, err := auth.GenerateAccessToken(testSecret, testUserID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func newRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.NewHandler(nil, testSecret, false).Middleware)
	r.Get("/api/courses", h.List)
	r.Get("/api/courses/{id}", h.Get)
	r.Post("/api/courses/{id}/thumbnail-upload", h.ThumbnailUpload)
	return r
}

func courseColumns() []string {
	return []string{"id", "title", "description", "thumbnail_key", "video_id",
		"next_video_id", "playback_id", "is_premium", "created_at", "updated_at"}
}

func expectNoSubscription(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(`SELECT is_premium, expires_at FROM subscriptions`).
		WithArgs(testUserID).
		WillReturnError(errors.New("no rows in result set"))
}

func expectPremiumSubscription(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(`SELECT is_premium, expires_at FROM subscriptions`).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"is_premium", "expires_at"}).
			AddRow(true, (*time.Time)(nil)))
}

func TestListMixedCatalogWithoutPremium(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	now := time.Now()
	expectNoSubscription(mock)
	mock.ExpectQuery(`SELECT id, title, description, thumbnail_key, video_id, next_video_id, playback_id, is_premium, created_at, updated_at`).
		WillReturnRows(pgxmock.NewRows(courseColumns()).
			AddRow("c1", "Premium course", "", (*string)(nil), "vid-1", (*string)(nil), (*string)(nil), true, now, now).
			AddRow("c2", "Free course", "", (*string)(nil), "vid-2", (*string)(nil), (*string)(nil), false, now.Add(-time.Hour), now))

	rec := httptest.NewRecorder()
	newRouter(NewHandler(mock, nil)).ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/api/courses", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var courses []Course
	if err := json.NewDecoder(rec.Body).Decode(&courses); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(courses))
	}
	if courses[0].Affordance != AffordanceLock {
		t.Errorf("premium course should be locked for free viewer, got %s", courses[0].Affordance)
	}
	if courses[1].Affordance != AffordancePlay {
		t.Errorf("free course should be playable, got %s", courses[1].Affordance)
	}
}

func TestListMixedCatalogWithPremium(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	now := time.Now()
	expectPremiumSubscription(mock)
	mock.ExpectQuery(`SELECT id, title, description, thumbnail_key, video_id, next_video_id, playback_id, is_premium, created_at, updated_at`).
		WillReturnRows(pgxmock.NewRows(courseColumns()).
			AddRow("c1", "Premium course", "", (*string)(nil), "vid-1", (*string)(nil), (*string)(nil), true, now, now).
			AddRow("c2", "Free course", "", (*string)(nil), "vid-2", (*string)(nil), (*string)(nil), false, now, now))

	rec := httptest.NewRecorder()
	newRouter(NewHandler(mock, nil)).ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/api/courses", ""))

	var courses []Course
	if err := json.NewDecoder(rec.Body).Decode(&courses); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, c := range courses {
		if c.Affordance != AffordancePlay {
			t.Errorf("course %s: premium viewer should see play, got %s", c.ID, c.Affordance)
		}
	}
}

func TestListFetchErrorIsGeneric(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	expectNoSubscription(mock)
	mock.ExpectQuery(`SELECT id, title, description`).
		WillReturnError(errors.New("connection reset"))

	rec := httptest.NewRecorder()
	newRouter(NewHandler(mock, nil)).ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/api/courses", ""))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Error("raw database error must not leak to the client")
	}
}

func TestListResolvesThumbnails(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	storage := &mockStorage{thumbnailURL: "https://cdn.example.com/thumbnails/c1.jpg"}

	now := time.Now()
	key := "thumbnails/c1.jpg"
	expectNoSubscription(mock)
	mock.ExpectQuery(`SELECT id, title, description, thumbnail_key`).
		WillReturnRows(pgxmock.NewRows(courseColumns()).
			AddRow("c1", "Course", "", &key, "vid-1", (*string)(nil), (*string)(nil), false, now, now))

	rec := httptest.NewRecorder()
	newRouter(NewHandler(mock, storage)).ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/api/courses", ""))

	var courses []Course
	if err := json.NewDecoder(rec.Body).Decode(&courses); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if courses[0].ThumbnailURL != storage.thumbnailURL {
		t.Errorf("expected presigned thumbnail URL, got %q", courses[0].ThumbnailURL)
	}
	if storage.lastKey != key {
		t.Errorf("expected key %s, got %s", key, storage.lastKey)
	}
}

func TestListThumbnailFailureDoesNotBreakCatalog(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	storage := &mockStorage{thumbnailErr: errors.New("presign failed")}

	now := time.Now()
	key := "thumbnails/c1.jpg"
	expectNoSubscription(mock)
	mock.ExpectQuery(`SELECT id, title, description, thumbnail_key`).
		WillReturnRows(pgxmock.NewRows(courseColumns()).
			AddRow("c1", "Course", "", &key, "vid-1", (*string)(nil), (*string)(nil), false, now, now))

	rec := httptest.NewRecorder()
	newRouter(NewHandler(mock, storage)).ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/api/courses", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite thumbnail failure, got %d", rec.Code)
	}
}

func TestGetUnknownCourse(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	expectNoSubscription(mock)
	mock.ExpectQuery(`SELECT id, title, description`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	rec := httptest.NewRecorder()
	newRouter(NewHandler(mock, nil)).ServeHTTP(rec, authenticatedRequest(t, http.MethodGet, "/api/courses/nope", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestThumbnailUploadPresignsAndRecordsKey(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	storage := &mockStorage{uploadURL: "https://bucket.example.com/put"}

	mock.ExpectExec(`UPDATE courses SET thumbnail_key`).
		WithArgs("thumbnails/c1.jpg", "c1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rec := httptest.NewRecorder()
	newRouter(NewHandler(mock, storage)).ServeHTTP(rec,
		authenticatedRequest(t, http.MethodPost, "/api/courses/c1/thumbnail-upload",
			`{"contentType":"image/jpeg","contentLength":1024}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["uploadUrl"] != storage.uploadURL {
		t.Errorf("expected presigned PUT URL, got %q", resp["uploadUrl"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestThumbnailUploadRejectsUnsupportedType(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	rec := httptest.NewRecorder()
	newRouter(NewHandler(mock, &mockStorage{})).ServeHTTP(rec,
		authenticatedRequest(t, http.MethodPost, "/api/courses/c1/thumbnail-upload",
			`{"contentType":"application/pdf","contentLength":1024}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAffordanceFor(t *testing.T) {
	tests := []struct {
		isPremium  bool
		hasPremium bool
		want       string
	}{
		{false, false, AffordancePlay},
		{false, true, AffordancePlay},
		{true, false, AffordanceLock},
		{true, true, AffordancePlay},
	}
	for _, tt := range tests {
		if got := AffordanceFor(tt.isPremium, tt.hasPremium); got != tt.want {
			t.Errorf("AffordanceFor(%v, %v) = %s, want %s", tt.isPremium, tt.hasPremium, got, tt.want)
		}
	}
}
