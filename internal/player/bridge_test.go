package player

import (
	"testing"
)

func TestBridgeQueuesCommandsUntilDrained(t *testing.T) {
	b := NewBridge()

	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := b.SeekTo(42.5); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	if err := b.LoadVideo(Load{VideoID: "vid2", StartSeconds: 45, SuggestedQuality: "hd1080"}); err != nil {
		t.Fatalf("LoadVideo: %v", err)
	}

	commands := b.Drain()
	if len(commands) != 3 {
		t.Fatalf("drained %d commands, want 3", len(commands))
	}
	if commands[0].Name != "play" {
		t.Errorf("command 0 = %q, want play", commands[0].Name)
	}
	if commands[1].Name != "seek" || commands[1].Seconds != 42.5 {
		t.Errorf("command 1 = %+v, want seek 42.5", commands[1])
	}
	load := commands[2]
	if load.Name != "load" || load.VideoID != "vid2" || load.StartSeconds != 45 || load.Level != "hd1080" {
		t.Errorf("command 2 = %+v, want load vid2 at 45s in hd1080", load)
	}

	if got := b.Drain(); len(got) != 0 {
		t.Errorf("second drain returned %d commands, want 0", len(got))
	}
}

func TestBridgeTelemetryReads(t *testing.T) {
	b := NewBridge()
	b.UpdateTelemetry(30, 120, []string{"hd1080", "hd720"})

	current, err := b.CurrentTime()
	if err != nil || current != 30 {
		t.Errorf("CurrentTime = %v, %v, want 30", current, err)
	}
	duration, err := b.Duration()
	if err != nil || duration != 120 {
		t.Errorf("Duration = %v, %v, want 120", duration, err)
	}
	levels, err := b.AvailableQualityLevels()
	if err != nil || len(levels) != 2 {
		t.Errorf("AvailableQualityLevels = %v, %v, want 2 levels", levels, err)
	}

	// Zero duration and nil qualities keep the previous readings.
	b.UpdateTelemetry(35, 0, nil)
	duration, _ = b.Duration()
	if duration != 120 {
		t.Errorf("Duration after partial update = %v, want 120", duration)
	}
}

func TestBridgeRejectsEverythingAfterDestroy(t *testing.T) {
	b := NewBridge()
	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := b.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if got := b.Drain(); len(got) != 0 {
		t.Errorf("drain after destroy returned %d commands, want 0", len(got))
	}
	if err := b.Pause(); err == nil {
		t.Error("Pause after destroy succeeded")
	}
	if _, err := b.CurrentTime(); err == nil {
		t.Error("CurrentTime after destroy succeeded")
	}
}
