package course

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/courseflow/courseflow/internal/auth"
	"github.com/courseflow/courseflow/internal/database"
	"github.com/courseflow/courseflow/internal/httputil"
	"github.com/courseflow/courseflow/internal/subscription"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

// Affordance is what the catalog renders on a course card: premium items show
// a lock to viewers without premium access, everything else shows play.
const (
	AffordancePlay = "play"
	AffordanceLock = "lock"
)

// ThumbnailStore is the slice of object storage the catalog needs.
type ThumbnailStore interface {
	ThumbnailURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	ThumbnailUploadURL(ctx context.Context, key string, contentType string, contentLength int64, expiry time.Duration) (string, error)
}

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	VideoID      string    `json:"videoId"`
	NextVideoID  string    `json:"nextVideoId,omitempty"`
	PlaybackID   string    `json:"playbackId,omitempty"`
	IsPremium    bool      `json:"isPremium"`
	Affordance   string    `json:"affordance"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Handler struct {
	db      database.DBTX
	storage ThumbnailStore
}

func NewHandler(db database.DBTX, storage ThumbnailStore) *Handler {
	return &Handler{db: db, storage: storage}
}

// AffordanceFor derives the card affordance from the premium flag and the
// viewer's entitlement.
func AffordanceFor(isPremium, hasPremiumAccess bool) string {
	if isPremium && !hasPremiumAccess {
		return AffordanceLock
	}
	return AffordancePlay
}

// List returns the full catalog, newest first, replacing whatever the client
// held before. Fetch errors carry no detail beyond the generic flag.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	hasPremium := subscription.PremiumAccessFor(r, h.db, userID)

	rows, err := h.db.Query(r.Context(),
		`SELECT id, title, description, thumbnail_key, video_id, next_video_id, playback_id, is_premium, created_at, updated_at
		 FROM courses ORDER BY created_at DESC`)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load courses")
		return
	}
	defer rows.Close()

	courses := make([]Course, 0)
	for rows.Next() {
		c, err := h.scanCourse(r.Context(), rows, hasPremium)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to load courses")
			return
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load courses")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, courses)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	hasPremium := subscription.PremiumAccessFor(r, h.db, userID)
	courseID := chi.URLParam(r, "id")

	row := h.db.QueryRow(r.Context(),
		`SELECT id, title, description, thumbnail_key, video_id, next_video_id, playback_id, is_premium, created_at, updated_at
		 FROM courses WHERE id = $1`, courseID)

	c, err := h.scanCourse(r.Context(), row, hasPremium)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteError(w, http.StatusNotFound, "course not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load course")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, c)
}

type scanner interface {
	Scan(dest ...any) error
}

func (h *Handler) scanCourse(ctx context.Context, row scanner, hasPremium bool) (Course, error) {
	var c Course
	var thumbnailKey, nextVideoID, playbackID *string
	err := row.Scan(&c.ID, &c.Title, &c.Description, &thumbnailKey, &c.VideoID,
		&nextVideoID, &playbackID, &c.IsPremium, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Course{}, err
	}

	if nextVideoID != nil {
		c.NextVideoID = *nextVideoID
	}
	if playbackID != nil {
		c.PlaybackID = *playbackID
	}
	c.Affordance = AffordanceFor(c.IsPremium, hasPremium)

	if thumbnailKey != nil && h.storage != nil {
		url, err := h.storage.ThumbnailURL(ctx, *thumbnailKey, time.Hour)
		if err != nil {
			// a broken thumbnail never breaks the catalog
			slog.Error("course: failed to presign thumbnail", "key", *thumbnailKey, "error", err)
		} else {
			c.ThumbnailURL = url
		}
	}
	return c, nil
}

type uploadRequest struct {
	ContentType   string `json:"contentType"`
	ContentLength int64  `json:"contentLength"`
}

// ThumbnailUpload presigns a PUT URL for a course's thumbnail and records the
// key on the course row.
func (h *Handler) ThumbnailUpload(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ContentType != "image/jpeg" && req.ContentType != "image/png" && req.ContentType != "image/webp" {
		httputil.WriteError(w, http.StatusBadRequest, "unsupported thumbnail content type")
		return
	}
	if h.storage == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	key := "thumbnails/" + courseID + extensionFor(req.ContentType)
	url, err := h.storage.ThumbnailUploadURL(r.Context(), key, req.ContentType, req.ContentLength, 15*time.Minute)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to presign upload")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		"UPDATE courses SET thumbnail_key = $1, updated_at = now() WHERE id = $2",
		key, courseID,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to record thumbnail")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"uploadUrl": url, "key": key})
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
