package player

import (
	"errors"
	"sync"
)

// Command is one instruction queued for the embed client to execute
// against its platform player.
type Command struct {
	Name         string  `json:"name"`
	Seconds      float64 `json:"seconds,omitempty"`
	Rate         float64 `json:"rate,omitempty"`
	Level        string  `json:"level,omitempty"`
	Language     string  `json:"language,omitempty"`
	VideoID      string  `json:"videoId,omitempty"`
	StartSeconds int     `json:"startSeconds,omitempty"`
}

var errDestroyed = errors.New("player destroyed")

// Bridge implements Control for a browser-embedded player. Commands are
// queued until the client polls for them; telemetry flows the other way,
// reported by the client alongside its platform events.
type Bridge struct {
	mu          sync.Mutex
	queue       []Command
	currentTime float64
	duration    float64
	qualities   []string
	destroyed   bool
}

func NewBridge() *Bridge {
	return &Bridge{}
}

// UpdateTelemetry records the client's latest player readings.
func (b *Bridge) UpdateTelemetry(currentTime, duration float64, qualities []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	b.currentTime = currentTime
	if duration > 0 {
		b.duration = duration
	}
	if qualities != nil {
		b.qualities = qualities
	}
}

// Drain returns the pending commands and clears the queue.
func (b *Bridge) Drain() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	commands := b.queue
	b.queue = nil
	return commands
}

func (b *Bridge) enqueue(cmd Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return errDestroyed
	}
	b.queue = append(b.queue, cmd)
	return nil
}

func (b *Bridge) Play() error  { return b.enqueue(Command{Name: "play"}) }
func (b *Bridge) Pause() error { return b.enqueue(Command{Name: "pause"}) }

func (b *Bridge) SeekTo(seconds float64) error {
	return b.enqueue(Command{Name: "seek", Seconds: seconds})
}

func (b *Bridge) SetPlaybackRate(rate float64) error {
	return b.enqueue(Command{Name: "rate", Rate: rate})
}

func (b *Bridge) SetQuality(level string) error {
	return b.enqueue(Command{Name: "quality", Level: level})
}

func (b *Bridge) LoadVideo(load Load) error {
	return b.enqueue(Command{
		Name:         "load",
		VideoID:      load.VideoID,
		StartSeconds: load.StartSeconds,
		Level:        load.SuggestedQuality,
	})
}

func (b *Bridge) LoadCaptions(lang string) error {
	return b.enqueue(Command{Name: "captions", Language: lang})
}

func (b *Bridge) UnloadCaptions() error {
	return b.enqueue(Command{Name: "captions_off"})
}

func (b *Bridge) CurrentTime() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return 0, errDestroyed
	}
	return b.currentTime, nil
}

func (b *Bridge) Duration() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return 0, errDestroyed
	}
	return b.duration, nil
}

func (b *Bridge) AvailableQualityLevels() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return nil, errDestroyed
	}
	return b.qualities, nil
}

// Destroy drops any queued commands and rejects everything afterwards.
func (b *Bridge) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = true
	b.queue = nil
	return nil
}
