// Package media provides the value types describing the media a call plays
// and the state the engine reports back.
package media

import "strings"

// InputMode selects how an input locator is interpreted.
// Modes are bit flags and compose with |.
type InputMode int32

const (
	// InputFile reads raw PCM or YUV data from a file path.
	InputFile InputMode = 1 << 0
	// InputShell runs the locator as a shell command and reads its stdout.
	InputShell InputMode = 1 << 1
	// InputFFmpeg hands the locator to an FFmpeg pipeline.
	InputFFmpeg InputMode = 1 << 2
	// InputNoLatency is experimental: the engine skips its input buffering.
	InputNoLatency InputMode = 1 << 3
)

// Has reports whether every flag of f is set in m.
func (m InputMode) Has(f InputMode) bool {
	return m&f == f
}

func (m InputMode) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		mode InputMode
		name string
	}{
		{InputFile, "file"},
		{InputShell, "shell"},
		{InputFFmpeg, "ffmpeg"},
		{InputNoLatency, "no_latency"},
	} {
		if m.Has(f.mode) {
			parts = append(parts, f.name)
			m &^= f.mode
		}
	}
	if m != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}

// StreamType identifies the stream an end-of-stream event refers to.
type StreamType int32

const (
	StreamAudio StreamType = 0
	StreamVideo StreamType = 1
)

func (t StreamType) String() string {
	switch t {
	case StreamAudio:
		return "audio"
	case StreamVideo:
		return "video"
	default:
		return "unknown"
	}
}

// StreamStatus is the playback state of a call as reported by the engine.
type StreamStatus int32

const (
	StatusPlaying StreamStatus = 0
	StatusPaused  StreamStatus = 1
	StatusIdling  StreamStatus = 2
)

func (s StreamStatus) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusIdling:
		return "idling"
	default:
		return "unknown"
	}
}

// AudioDescription configures the audio source of a call.
type AudioDescription struct {
	InputMode InputMode
	// Input is a file path, shell command or pipeline description depending on
	// InputMode. Anything after a NUL byte is ignored.
	Input         string
	SampleRate    uint32
	BitsPerSample uint8
	ChannelCount  uint8
}

// NewAudio returns an audio description.
func NewAudio(mode InputMode, input string, sampleRate uint32, bitsPerSample, channelCount uint8) *AudioDescription {
	return &AudioDescription{
		InputMode:     mode,
		Input:         input,
		SampleRate:    sampleRate,
		BitsPerSample: bitsPerSample,
		ChannelCount:  channelCount,
	}
}

// VideoDescription configures the video source of a call.
type VideoDescription struct {
	InputMode InputMode
	Input     string
	Width     uint16
	Height    uint16
	FPS       uint8
}

// NewVideo returns a video description.
func NewVideo(mode InputMode, input string, width, height uint16, fps uint8) *VideoDescription {
	return &VideoDescription{
		InputMode: mode,
		Input:     input,
		Width:     width,
		Height:    height,
		FPS:       fps,
	}
}

// MediaDescription pairs an optional audio and an optional video source.
// The zero value describes a call without media.
type MediaDescription struct {
	Audio *AudioDescription
	Video *VideoDescription
}

// Validate checks whichever descriptions are present.
func (d MediaDescription) Validate() error {
	if d.Audio != nil {
		if err := d.Audio.Validate(); err != nil {
			return err
		}
	}
	if d.Video != nil {
		if err := d.Video.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GroupCall is a snapshot of one call hosted by a session.
type GroupCall struct {
	ChatID int64
	Status StreamStatus
}

// MediaState is a snapshot of the flags of a call.
type MediaState struct {
	Muted        bool
	VideoPaused  bool
	VideoStopped bool
}
