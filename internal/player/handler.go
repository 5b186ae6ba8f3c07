package player

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/courseflow/courseflow/internal/httputil"
)

// Handler exposes playback sessions over HTTP. Each session is backed by a
// Bridge; the embed client posts platform events and telemetry and polls
// for queued commands.
type Handler struct {
	manager *Manager

	mu      sync.Mutex
	bridges map[string]*Bridge
}

func NewHandler() *Handler {
	h := &Handler{
		bridges: make(map[string]*Bridge),
	}
	h.manager = NewManager(func(videoID string) (Control, error) {
		return NewBridge(), nil
	})
	return h
}

// Manager exposes the session manager for shutdown and locale wiring.
func (h *Handler) Manager() *Manager {
	return h.manager
}

type createRequest struct {
	VideoID     string `json:"videoId"`
	NextVideoID string `json:"nextVideoId"`
	Header      bool   `json:"header"`
	Autoplay    bool   `json:"autoplay"`
	Language    string `json:"language"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VideoID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Video ID is required")
		return
	}
	session, err := h.manager.Create(Config{
		VideoID:     req.VideoID,
		NextVideoID: req.NextVideoID,
		Header:      req.Header,
		Autoplay:    req.Autoplay || req.Header,
		Locale:      req.Language,
	})
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to create playback session")
		return
	}
	if bridge, ok := controlBridge(session); ok {
		h.mu.Lock()
		h.bridges[session.ID()] = bridge
		h.mu.Unlock()
	}
	httputil.WriteJSON(w, http.StatusCreated, session.Snapshot())
}

func controlBridge(s *Session) (*Bridge, bool) {
	if s == nil {
		return nil, false
	}
	bridge, ok := s.control.(*Bridge)
	return bridge, ok
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "sessionID")
	session, ok := h.manager.Get(id)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "Playback session not found")
		return nil, false
	}
	return session, true
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.Snapshot())
}

type eventRequest struct {
	Type        string   `json:"type"`
	CurrentTime float64  `json:"currentTime"`
	Duration    float64  `json:"duration"`
	Qualities   []string `json:"qualities"`
	Level       string   `json:"level"`
	Code        string   `json:"code"`
}

// Event ingests one platform event from the embed client. Telemetry is
// applied before the state machine runs so ready/ended branches see fresh
// duration readings.
func (h *Handler) Event(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.mu.Lock()
	bridge := h.bridges[session.ID()]
	h.mu.Unlock()
	if bridge != nil {
		bridge.UpdateTelemetry(req.CurrentTime, req.Duration, req.Qualities)
	}

	var err error
	switch req.Type {
	case "ready":
		err = session.HandleReady()
	case "playing":
		err = session.HandlePlaying()
	case "paused":
		err = session.HandlePaused()
	case "ended":
		err = session.HandleEnded()
	case "quality":
		session.HandleQualityChanged(req.Level)
	case "error":
		session.HandleError(req.Code)
	default:
		httputil.WriteError(w, http.StatusBadRequest, "Unknown event type")
		return
	}
	if err != nil && !errors.Is(err, ErrNotApplicable) {
		httputil.WriteError(w, http.StatusBadGateway, "Player event failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.Snapshot())
}

type commandRequest struct {
	Action  string  `json:"action"`
	Percent float64 `json:"percent"`
	Rate    float64 `json:"rate"`
	Level   string  `json:"level"`
}

// Command executes one viewer command against the session.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var err error
	switch req.Action {
	case "play":
		err = session.Play()
	case "pause":
		err = session.Pause()
	case "seek":
		err = session.SeekPercent(req.Percent)
	case "rate":
		err = session.SetPlaybackRate(req.Rate)
	case "quality":
		err = session.SetQuality(req.Level)
	case "captions":
		err = session.ToggleCaptions()
	default:
		httputil.WriteError(w, http.StatusBadRequest, "Unknown command")
		return
	}
	switch {
	case errors.Is(err, ErrNotApplicable):
		httputil.WriteError(w, http.StatusConflict, "Command not applicable")
		return
	case err != nil:
		httputil.WriteError(w, http.StatusBadGateway, "Player command failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.Snapshot())
}

type resumeRequest struct {
	Fraction float64 `json:"fraction"`
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	err := session.SelectResumePoint(req.Fraction)
	switch {
	case errors.Is(err, ErrNotApplicable):
		httputil.WriteError(w, http.StatusConflict, "No resume choice pending")
		return
	case err != nil:
		httputil.WriteError(w, http.StatusBadGateway, "Failed to load next video")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.Snapshot())
}

// Commands drains the queued client commands for the embed to execute.
func (h *Handler) Commands(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.mu.Lock()
	bridge := h.bridges[session.ID()]
	h.mu.Unlock()
	var commands []Command
	if bridge != nil {
		commands = bridge.Drain()
	}
	if commands == nil {
		commands = []Command{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]Command{"commands": commands})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !h.manager.Remove(id) {
		httputil.WriteError(w, http.StatusNotFound, "Playback session not found")
		return
	}
	h.mu.Lock()
	delete(h.bridges, id)
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
