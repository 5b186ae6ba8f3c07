package player

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// Config describes one playback session.
type Config struct {
	VideoID     string
	NextVideoID string
	// Header sessions auto-play and chain straight into the next video on
	// end; non-header sessions offer resume points instead.
	Header   bool
	Autoplay bool
	Locale   string
	// SampleInterval is how often progress is read while playing. Zero
	// means one second.
	SampleInterval time.Duration
	// OnComplete fires when the current video finishes, before any
	// follow-up video is loaded. At most once per loaded video.
	OnComplete func()
}

// ResumePoint is one of the fixed re-entry offsets offered after a
// non-header video ends. Seconds is derived from the finished video's
// duration, not the next one's.
type ResumePoint struct {
	Label    string  `json:"label"`
	Fraction float64 `json:"fraction"`
	Seconds  int     `json:"seconds"`
}

var resumeFractions = []float64{0, 0.25, 0.5, 0.75}

// Session is the server-side state machine for one player widget. All
// methods are safe for concurrent use.
type Session struct {
	id  string
	cfg Config

	mu      sync.Mutex
	control Control
	state   State
	// generation increments on every video load and teardown; in-flight
	// sampler ticks and stale platform events from a previous video check
	// it and drop themselves.
	generation int
	closed     bool

	duration     float64
	progress     float64
	playbackRate float64
	quality      string
	available    []string
	captionsOn   bool
	captionLang  string
	advanced     bool

	samplerStop chan struct{}
	interval    time.Duration
}

func newSession(id string, control Control, cfg Config) *Session {
	interval := cfg.SampleInterval
	if interval <= 0 {
		interval = time.Second
	}
	locale := cfg.Locale
	if locale == "" {
		locale = "fr"
	}
	cfg.Locale = locale
	return &Session{
		id:           id,
		cfg:          cfg,
		control:      control,
		state:        StateUninitialized,
		playbackRate: 1,
		quality:      AutoQuality,
		captionLang:  locale,
		interval:     interval,
	}
}

func (s *Session) ID() string { return s.id }

// Snapshot is a read-only view of the session for API responses.
type Snapshot struct {
	ID           string        `json:"id"`
	State        State         `json:"state"`
	VideoID      string        `json:"videoId"`
	Duration     float64       `json:"duration"`
	Progress     float64       `json:"progress"`
	PlaybackRate float64       `json:"playbackRate"`
	Quality      string        `json:"quality"`
	QualityLabel string        `json:"qualityLabel"`
	Qualities    []Quality     `json:"qualities"`
	Captions     bool          `json:"captions"`
	ResumePoints []ResumePoint `json:"resumePoints,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:           s.id,
		State:        s.state,
		VideoID:      s.cfg.VideoID,
		Duration:     s.duration,
		Progress:     s.progress,
		PlaybackRate: s.playbackRate,
		Quality:      s.quality,
		QualityLabel: QualityLabel(s.quality),
		Qualities:    AvailableOptions(s.available),
		Captions:     s.captionsOn,
	}
	if s.state == StateAwaitingResumeChoice {
		snap.ResumePoints = s.resumePointsLocked()
	}
	return snap
}

// HandleReady processes the platform's ready signal: capture duration and
// quality tiers, lock in the highest available quality, and start playback
// for autoplaying sessions. A platform failure here leaves the session
// uninitialized.
func (s *Session) HandleReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotApplicable
	}
	if s.state != StateUninitialized && s.state != StateLoadingNext {
		return ErrNotApplicable
	}
	d, err := s.control.Duration()
	if err != nil {
		return &PlatformError{Op: "duration", Err: err}
	}
	levels, err := s.control.AvailableQualityLevels()
	if err != nil {
		return &PlatformError{Op: "quality levels", Err: err}
	}
	s.duration = d
	s.available = levels
	if len(levels) > 0 {
		// Platform reports highest first.
		s.quality = levels[0]
		if err := s.control.SetQuality(s.quality); err != nil {
			slog.Error("set initial quality", "session", s.id, "error", err)
		}
	}
	s.state = StateReady
	s.progress = 0
	if s.cfg.Autoplay {
		if err := s.control.Play(); err != nil {
			slog.Error("autoplay", "session", s.id, "error", err)
		} else {
			s.state = StatePlaying
			s.startSamplerLocked()
		}
	}
	return nil
}

// HandlePlaying starts the progress sampler. Ticks from a sampler belonging
// to an earlier video or an earlier play are dropped by generation check.
func (s *Session) HandlePlaying() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state == StateUninitialized {
		return ErrNotApplicable
	}
	if s.state == StatePlaying {
		return nil
	}
	s.state = StatePlaying
	s.startSamplerLocked()
	return nil
}

func (s *Session) HandlePaused() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StatePlaying {
		return ErrNotApplicable
	}
	s.state = StatePaused
	s.stopSamplerLocked()
	return nil
}

// HandleEnded runs the end-of-video branch. With a follow-up video, a
// header session chains into it immediately at the current quality while a
// non-header session waits for a resume choice; either way the follow-up
// happens at most once no matter how many ended events arrive. Without a
// follow-up, the player is parked a fraction of a second before the end so
// the final frame stays on screen.
func (s *Session) HandleEnded() error {
	s.mu.Lock()
	var complete func()
	switch {
	case s.closed, s.state == StateUninitialized:
		s.mu.Unlock()
		return ErrNotApplicable
	case s.state == StateAwaitingResumeChoice, s.state == StateLoadingNext:
		// Duplicate ended event, already handled.
		s.mu.Unlock()
		return nil
	}
	s.stopSamplerLocked()
	s.progress = 100
	if s.cfg.NextVideoID != "" && !s.advanced {
		complete = s.cfg.OnComplete
		if s.cfg.Header {
			s.advanced = true
			load := Load{VideoID: s.cfg.NextVideoID, SuggestedQuality: s.quality}
			if err := s.control.LoadVideo(load); err != nil {
				slog.Error("load next video", "session", s.id, "error", err)
				s.state = StateEnded
				s.mu.Unlock()
				if complete != nil {
					complete()
				}
				return &PlatformError{Op: "load video", Err: err}
			}
			s.advanceToLocked(s.cfg.NextVideoID)
			s.state = StateLoadingNext
		} else {
			s.state = StateAwaitingResumeChoice
		}
	} else {
		if s.duration > 0 {
			if err := s.control.SeekTo(s.duration - 0.1); err != nil {
				slog.Error("seek to end", "session", s.id, "error", err)
			}
		}
		if err := s.control.Pause(); err != nil {
			slog.Error("pause at end", "session", s.id, "error", err)
		}
		s.state = StateEnded
	}
	s.mu.Unlock()
	if complete != nil {
		complete()
	}
	return nil
}

// HandleError is the platform's error signal. Progress sampling stops;
// the session stays in its current state so the client can recover or tear
// down.
func (s *Session) HandleError(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slog.Error("platform playback error", "session", s.id, "code", code)
	s.stopSamplerLocked()
}

// HandleQualityChanged mirrors a platform-initiated quality switch.
func (s *Session) HandleQualityChanged(level string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || level == "" {
		return
	}
	s.quality = level
}

// ResumePoints lists the fixed re-entry offsets. Only valid while waiting
// for a resume choice.
func (s *Session) ResumePoints() ([]ResumePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingResumeChoice {
		return nil, ErrNotApplicable
	}
	return s.resumePointsLocked(), nil
}

func (s *Session) resumePointsLocked() []ResumePoint {
	points := make([]ResumePoint, 0, len(resumeFractions))
	for _, f := range resumeFractions {
		label := "Début"
		switch f {
		case 0.25:
			label = "25%"
		case 0.5:
			label = "50%"
		case 0.75:
			label = "75%"
		}
		points = append(points, ResumePoint{
			Label:    label,
			Fraction: f,
			Seconds:  int(math.Floor(f * s.duration)),
		})
	}
	return points
}

// SelectResumePoint loads the follow-up video starting at the chosen
// fraction of the finished video's duration.
func (s *Session) SelectResumePoint(fraction float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingResumeChoice {
		return ErrNotApplicable
	}
	valid := false
	for _, f := range resumeFractions {
		if f == fraction {
			valid = true
			break
		}
	}
	if !valid {
		return ErrNotApplicable
	}
	start := int(math.Floor(fraction * s.duration))
	load := Load{
		VideoID:          s.cfg.NextVideoID,
		StartSeconds:     start,
		SuggestedQuality: s.quality,
	}
	if err := s.control.LoadVideo(load); err != nil {
		return &PlatformError{Op: "load video", Err: err}
	}
	s.advanced = true
	s.advanceToLocked(s.cfg.NextVideoID)
	s.state = StateLoadingNext
	return nil
}

// advanceToLocked rolls the session over to a newly loaded video. The
// generation bump invalidates sampler ticks and late events that belong to
// the previous video.
func (s *Session) advanceToLocked(videoID string) {
	s.generation++
	s.cfg.VideoID = videoID
	s.cfg.NextVideoID = ""
	s.progress = 0
	s.duration = 0
	s.available = nil
}

// Play resumes playback. Not applicable before the player is ready.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		return ErrNotApplicable
	}
	if err := s.control.Play(); err != nil {
		return &PlatformError{Op: "play", Err: err}
	}
	return nil
}

func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		return ErrNotApplicable
	}
	if err := s.control.Pause(); err != nil {
		return &PlatformError{Op: "pause", Err: err}
	}
	return nil
}

// SeekPercent maps a progress-bar position to a timestamp and seeks there.
func (s *Session) SeekPercent(percent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() || s.duration <= 0 {
		return ErrNotApplicable
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	seconds := percent / 100 * s.duration
	if err := s.control.SeekTo(seconds); err != nil {
		return &PlatformError{Op: "seek", Err: err}
	}
	s.progress = percent
	return nil
}

func (s *Session) SetPlaybackRate(rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		return ErrNotApplicable
	}
	if !ValidSpeed(rate) {
		return ErrNotApplicable
	}
	if err := s.control.SetPlaybackRate(rate); err != nil {
		return &PlatformError{Op: "playback rate", Err: err}
	}
	s.playbackRate = rate
	return nil
}

func (s *Session) SetQuality(level string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		return ErrNotApplicable
	}
	valid := level == AutoQuality
	for _, available := range s.available {
		if available == level {
			valid = true
			break
		}
	}
	if !valid {
		return ErrNotApplicable
	}
	if err := s.control.SetQuality(level); err != nil {
		return &PlatformError{Op: "set quality", Err: err}
	}
	s.quality = level
	return nil
}

// ToggleCaptions turns the caption track on or off in the session's
// locale.
func (s *Session) ToggleCaptions() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		return ErrNotApplicable
	}
	if s.captionsOn {
		if err := s.control.UnloadCaptions(); err != nil {
			return &PlatformError{Op: "unload captions", Err: err}
		}
		s.captionsOn = false
		return nil
	}
	if err := s.control.LoadCaptions(s.captionLang); err != nil {
		return &PlatformError{Op: "load captions", Err: err}
	}
	s.captionsOn = true
	return nil
}

// SetCaptionLanguage follows a locale change. Active captions are reloaded
// in the new language.
func (s *Session) SetCaptionLanguage(locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || locale == "" || locale == s.captionLang {
		return
	}
	s.captionLang = locale
	if !s.captionsOn {
		return
	}
	if err := s.control.UnloadCaptions(); err != nil {
		slog.Error("reload captions", "session", s.id, "error", err)
		return
	}
	if err := s.control.LoadCaptions(locale); err != nil {
		slog.Error("reload captions", "session", s.id, "error", err)
		s.captionsOn = false
	}
}

// Teardown stops sampling and destroys the platform player. Safe to call
// more than once.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.stopSamplerLocked()
	if err := s.control.Destroy(); err != nil {
		slog.Error("destroy player", "session", s.id, "error", err)
	}
	s.state = StateUninitialized
}

func (s *Session) readyLocked() bool {
	if s.closed {
		return false
	}
	switch s.state {
	case StateUninitialized, StateLoadingNext:
		return false
	}
	return true
}

func (s *Session) startSamplerLocked() {
	s.stopSamplerLocked()
	stop := make(chan struct{})
	s.samplerStop = stop
	go s.sample(stop, s.generation)
}

func (s *Session) stopSamplerLocked() {
	if s.samplerStop != nil {
		close(s.samplerStop)
		s.samplerStop = nil
	}
}

func (s *Session) sample(stop chan struct{}, generation int) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.sampleOnce(stop, generation) {
				return
			}
		}
	}
}

// sampleOnce reads progress under the session lock. It returns false when
// the sampler must stop: the session moved on, the video changed, or the
// platform read failed.
func (s *Session) sampleOnce(stop chan struct{}, generation int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation || s.state != StatePlaying {
		return false
	}
	current, err := s.control.CurrentTime()
	if err != nil {
		slog.Error("read current time", "session", s.id, "error", err)
		s.abandonSamplerLocked(stop)
		return false
	}
	duration, err := s.control.Duration()
	if err != nil || duration <= 0 {
		if err != nil {
			slog.Error("read duration", "session", s.id, "error", err)
		}
		s.abandonSamplerLocked(stop)
		return false
	}
	s.duration = duration
	s.progress = current / duration * 100
	return true
}

// abandonSamplerLocked clears the stop handle when the sampler exits on its
// own, so a later stop does not close an orphaned channel.
func (s *Session) abandonSamplerLocked(stop chan struct{}) {
	if s.samplerStop == stop {
		s.samplerStop = nil
	}
}
