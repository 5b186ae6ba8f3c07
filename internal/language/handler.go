package language

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/courseflow/courseflow/internal/database"
	"github.com/courseflow/courseflow/internal/httputil"
)

// Handler persists each user's preferred UI language. The user-ID resolver is
// injected so this package stays below auth in the dependency graph.
type Handler struct {
	db          database.DBTX
	broadcaster *Broadcaster
	userID      func(context.Context) string
}

func NewHandler(db database.DBTX, broadcaster *Broadcaster, userID func(context.Context) string) *Handler {
	if userID == nil {
		userID = func(context.Context) string { return "" }
	}
	return &Handler{db: db, broadcaster: broadcaster, userID: userID}
}

// List is public; the language selector renders before any session exists.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, Supported())
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r.Context())

	var locale string
	err := h.db.QueryRow(r.Context(),
		"SELECT preferred_language FROM users WHERE id = $1", userID,
	).Scan(&locale)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"language": Normalize(locale)})
}

type updateRequest struct {
	Language string `json:"language"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r.Context())

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !IsSupported(req.Language) {
		httputil.WriteError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		"UPDATE users SET preferred_language = $1 WHERE id = $2",
		req.Language, userID,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to update language")
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.Notify(req.Language)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"language": req.Language})
}
