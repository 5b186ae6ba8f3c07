// Package consent stores the viewer's cookie-banner decision. The choice
// lives in a long-lived cookie; until one exists the client is told to
// show the banner after a short delay so it never flashes during page
// load.
package consent

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/courseflow/courseflow/internal/httputil"
)

const (
	ChoiceAccepted = "accepted"
	ChoiceDeclined = "declined"

	cookieName = "cookie_consent"
	// BannerDelay is how long the client waits before first showing the
	// banner.
	BannerDelay = 1500 * time.Millisecond

	cookieMaxAge = 365 * 24 * 60 * 60
)

type Handler struct {
	secureCookies bool
}

func NewHandler(secureCookies bool) *Handler {
	return &Handler{secureCookies: secureCookies}
}

type statusResponse struct {
	Choice  string `json:"choice,omitempty"`
	Show    bool   `json:"show"`
	DelayMs int64  `json:"delayMs,omitempty"`
}

// Status reports the stored choice, or tells the client to show the
// banner. An unrecognized cookie value counts as no choice.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(cookieName)
	if err == nil && (cookie.Value == ChoiceAccepted || cookie.Value == ChoiceDeclined) {
		httputil.WriteJSON(w, http.StatusOK, statusResponse{Choice: cookie.Value})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		Show:    true,
		DelayMs: BannerDelay.Milliseconds(),
	})
}

type updateRequest struct {
	Choice string `json:"choice"`
}

// Update records the viewer's decision. Declining is stored too, so the
// banner stays dismissed.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Choice != ChoiceAccepted && req.Choice != ChoiceDeclined {
		httputil.WriteError(w, http.StatusBadRequest, "Choice must be accepted or declined")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    req.Choice,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Choice: req.Choice})
}
