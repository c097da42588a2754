package media

import "fmt"

// Limits accepted by the engine.
const (
	MaxSampleRate   = 96000
	MaxChannelCount = 2
)

// ConstraintError reports a description field outside the range the engine
// accepts.
type ConstraintError struct {
	Field   string
	Message string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("invalid media description: %s - %s", e.Field, e.Message)
}

// Validate checks the audio parameters against the engine limits.
func (a *AudioDescription) Validate() error {
	if a.Input == "" {
		return &ConstraintError{Field: "audio.input", Message: "input locator is empty"}
	}
	if a.SampleRate > MaxSampleRate {
		return &ConstraintError{
			Field:   "audio.sample_rate",
			Message: fmt.Sprintf("maximum is %d, got %d", MaxSampleRate, a.SampleRate),
		}
	}
	if a.BitsPerSample != 8 && a.BitsPerSample != 16 {
		return &ConstraintError{
			Field:   "audio.bits_per_sample",
			Message: fmt.Sprintf("requires 8 or 16, got %d", a.BitsPerSample),
		}
	}
	if a.ChannelCount < 1 || a.ChannelCount > MaxChannelCount {
		return &ConstraintError{
			Field:   "audio.channel_count",
			Message: fmt.Sprintf("requires 1 to %d, got %d", MaxChannelCount, a.ChannelCount),
		}
	}
	return nil
}

// Validate checks the video parameters.
func (v *VideoDescription) Validate() error {
	if v.Input == "" {
		return &ConstraintError{Field: "video.input", Message: "input locator is empty"}
	}
	if v.Width == 0 || v.Height == 0 {
		return &ConstraintError{
			Field:   "video.size",
			Message: fmt.Sprintf("requires non-zero dimensions, got %dx%d", v.Width, v.Height),
		}
	}
	if v.FPS == 0 {
		return &ConstraintError{Field: "video.fps", Message: "requires a non-zero frame rate"}
	}
	return nil
}
