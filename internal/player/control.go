package player

import (
	"errors"
	"fmt"
)

// State of a playback session. Transitions are driven by platform events
// relayed from the embed client and by viewer commands.
type State string

const (
	StateUninitialized        State = "uninitialized"
	StateReady                State = "ready"
	StatePlaying              State = "playing"
	StatePaused               State = "paused"
	StateEnded                State = "ended"
	StateAwaitingResumeChoice State = "awaiting_resume_choice"
	StateLoadingNext          State = "loading_next"
)

// ErrNotApplicable means the command cannot run in the session's current
// state (e.g. seeking before the player is ready). Distinct from a platform
// failure so callers can tell the two apart.
var ErrNotApplicable = errors.New("command not applicable in current state")

// PlatformError wraps a failure reported by the underlying video platform.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// Quality is a platform quality tier. Values follow the platform's naming;
// the ordering is highest first.
type Quality struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// AutoQuality is always offered regardless of what the platform reports.
const AutoQuality = "default"

var QualityOptions = []Quality{
	{Label: "4K", Value: "hd2160"},
	{Label: "1440p", Value: "hd1440"},
	{Label: "1080p HD", Value: "hd1080"},
	{Label: "720p HD", Value: "hd720"},
	{Label: "480p", Value: "large"},
	{Label: "360p", Value: "medium"},
	{Label: "Auto", Value: AutoQuality},
}

func QualityLabel(value string) string {
	for _, q := range QualityOptions {
		if q.Value == value {
			return q.Label
		}
	}
	return "Auto"
}

// AvailableOptions filters the catalog down to what the platform reported,
// keeping Auto always selectable.
func AvailableOptions(reported []string) []Quality {
	available := make([]Quality, 0, len(QualityOptions))
	for _, q := range QualityOptions {
		if q.Value == AutoQuality {
			available = append(available, q)
			continue
		}
		for _, r := range reported {
			if r == q.Value {
				available = append(available, q)
				break
			}
		}
	}
	return available
}

var SpeedOptions = []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2}

func ValidSpeed(rate float64) bool {
	for _, s := range SpeedOptions {
		if s == rate {
			return true
		}
	}
	return false
}

// Load describes a video-load command, optionally starting mid-video.
type Load struct {
	VideoID          string
	StartSeconds     int
	SuggestedQuality string
}

// Control is the imperative surface of one platform player instance. Every
// call can fail; failures are *PlatformError and are absorbed at the call
// site, never surfaced to the viewer.
type Control interface {
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	SetPlaybackRate(rate float64) error
	SetQuality(level string) error
	LoadVideo(load Load) error
	LoadCaptions(lang string) error
	UnloadCaptions() error
	CurrentTime() (float64, error)
	Duration() (float64, error)
	AvailableQualityLevels() ([]string, error)
	Destroy() error
}
