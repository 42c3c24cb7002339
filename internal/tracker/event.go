package tracker

import "github.com/olivier-w/sonoscope/internal/analysis"

// Event is one inbound upload or playback notification.
type Event interface {
	Name() string
}

// UploadCompleted carries a freshly received analysis result.
type UploadCompleted struct {
	Result *analysis.Result
}

// UploadFailed reports an upload that produced no result.
type UploadFailed struct {
	Err error
}

// MetadataLoaded carries the clip duration in seconds.
type MetadataLoaded struct {
	Duration float64
}

// PlaybackBegan is sent when playback (re)starts from the beginning.
type PlaybackBegan struct{}

// PositionChanged carries the current playback time in seconds.
type PositionChanged struct {
	CurrentTime float64
}

func (UploadCompleted) Name() string { return "upload_completed" }
func (UploadFailed) Name() string { return "upload_failed" }
func (MetadataLoaded) Name() string { return "metadata_loaded" }
func (PlaybackBegan) Name() string { return "playback_began" }
func (PositionChanged) Name() string { return "position_changed" }

func eventName(ev Event) string {
	if ev == nil {
		return "nil"
	}
	return ev.Name()
}
