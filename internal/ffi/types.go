package ffi

import (
	"bytes"
	"unsafe"
)

// InputMode matches ntg_input_mode_enum in ntgcalls.h. Values are bit flags.
type InputMode int32

const (
	InputModeFile      InputMode = 1
	InputModeShell     InputMode = 2
	InputModeFFmpeg    InputMode = 4
	InputModeNoLatency InputMode = 8
)

// StreamType matches ntg_stream_type_enum in ntgcalls.h.
type StreamType int32

const (
	StreamTypeAudio StreamType = 0
	StreamTypeVideo StreamType = 1
)

// StreamStatus matches ntg_stream_status_enum in ntgcalls.h.
type StreamStatus int32

const (
	StreamStatusPlaying StreamStatus = 0
	StreamStatusPaused  StreamStatus = 1
	StreamStatusIdling  StreamStatus = 2
)

// AudioDescription matches ntg_audio_description_struct in ntgcalls.h.
type AudioDescription struct {
	InputMode     int32
	_             [4]byte // padding
	Input         *byte   // C string pointer
	SampleRate    uint32
	BitsPerSample uint8
	ChannelCount  uint8
	_             [2]byte // padding
}

// VideoDescription matches ntg_video_description_struct in ntgcalls.h.
type VideoDescription struct {
	InputMode int32
	_         [4]byte // padding
	Input     *byte   // C string pointer
	Width     uint16
	Height    uint16
	FPS       uint8
	_         [3]byte // padding
}

// MediaDescription matches ntg_media_description_struct in ntgcalls.h.
// A nil member tells the engine the stream is absent.
type MediaDescription struct {
	Audio *AudioDescription
	Video *VideoDescription
}

// GroupCall matches ntg_group_call_struct in ntgcalls.h.
type GroupCall struct {
	ChatID int64
	Status int32
	_      [4]byte // padding
}

// MediaState matches ntg_media_state_struct in ntgcalls.h.
type MediaState struct {
	Muted        bool
	VideoPaused  bool
	VideoStopped bool
}

// CString allocates a null-terminated C string from a Go string.
// The string is cut at the first NUL byte, the engine would stop there anyway.
// The caller is responsible for keeping the returned byte slice alive
// (and pinned) for as long as the C code needs it.
func CString(s string) []byte {
	if i := indexNUL(s); i >= 0 {
		s = s[:i]
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	b[len(s)] = 0
	return b
}

func indexNUL(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return i
		}
	}
	return -1
}

// cPrefix returns the filled prefix of a C string buffer, up to the first NUL.
func cPrefix(buf []byte) []byte {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return buf[:i]
	}
	return buf
}

// GoString copies a NUL-terminated C string into a Go string.
// A nil pointer yields the empty string.
func GoString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
