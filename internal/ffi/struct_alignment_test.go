//go:build amd64 || arm64

package ffi

import (
	"testing"
	"unsafe"
)

// TestStructLayout pins the byte layout of every view against the native
// declarations in ntgcalls.h on 64-bit targets.
func TestStructLayout(t *testing.T) {
	t.Run("AudioDescription", func(t *testing.T) {
		var d AudioDescription
		checkSizeEqual(t, "AudioDescription", unsafe.Sizeof(d), 24)
		checkAlign(t, "AudioDescription", unsafe.Alignof(d), 8)
		checkOffsetEqual(t, "AudioDescription.InputMode", unsafe.Offsetof(d.InputMode), 0)
		checkOffsetEqual(t, "AudioDescription.Input", unsafe.Offsetof(d.Input), 8)
		checkOffsetEqual(t, "AudioDescription.SampleRate", unsafe.Offsetof(d.SampleRate), 16)
		checkOffsetEqual(t, "AudioDescription.BitsPerSample", unsafe.Offsetof(d.BitsPerSample), 20)
		checkOffsetEqual(t, "AudioDescription.ChannelCount", unsafe.Offsetof(d.ChannelCount), 21)
	})

	t.Run("VideoDescription", func(t *testing.T) {
		var d VideoDescription
		checkSizeEqual(t, "VideoDescription", unsafe.Sizeof(d), 24)
		checkAlign(t, "VideoDescription", unsafe.Alignof(d), 8)
		checkOffsetEqual(t, "VideoDescription.InputMode", unsafe.Offsetof(d.InputMode), 0)
		checkOffsetEqual(t, "VideoDescription.Input", unsafe.Offsetof(d.Input), 8)
		checkOffsetEqual(t, "VideoDescription.Width", unsafe.Offsetof(d.Width), 16)
		checkOffsetEqual(t, "VideoDescription.Height", unsafe.Offsetof(d.Height), 18)
		checkOffsetEqual(t, "VideoDescription.FPS", unsafe.Offsetof(d.FPS), 20)
	})

	t.Run("MediaDescription", func(t *testing.T) {
		var d MediaDescription
		checkSizeEqual(t, "MediaDescription", unsafe.Sizeof(d), 16)
		checkOffsetEqual(t, "MediaDescription.Audio", unsafe.Offsetof(d.Audio), 0)
		checkOffsetEqual(t, "MediaDescription.Video", unsafe.Offsetof(d.Video), 8)
	})

	t.Run("GroupCall", func(t *testing.T) {
		var c GroupCall
		checkSizeEqual(t, "GroupCall", unsafe.Sizeof(c), 16)
		checkOffsetEqual(t, "GroupCall.ChatID", unsafe.Offsetof(c.ChatID), 0)
		checkOffsetEqual(t, "GroupCall.Status", unsafe.Offsetof(c.Status), 8)
	})

	t.Run("MediaState", func(t *testing.T) {
		var s MediaState
		checkSizeEqual(t, "MediaState", unsafe.Sizeof(s), 3)
		checkAlign(t, "MediaState", unsafe.Alignof(s), 1)
		checkOffsetEqual(t, "MediaState.Muted", unsafe.Offsetof(s.Muted), 0)
		checkOffsetEqual(t, "MediaState.VideoPaused", unsafe.Offsetof(s.VideoPaused), 1)
		checkOffsetEqual(t, "MediaState.VideoStopped", unsafe.Offsetof(s.VideoStopped), 2)
	})
}

func TestEnumTags(t *testing.T) {
	if InputModeFile != 1 || InputModeShell != 2 || InputModeFFmpeg != 4 || InputModeNoLatency != 8 {
		t.Fatal("input mode tags do not match ntg_input_mode_enum")
	}
	if StreamTypeAudio != 0 || StreamTypeVideo != 1 {
		t.Fatal("stream type tags do not match ntg_stream_type_enum")
	}
	if StreamStatusPlaying != 0 || StreamStatusPaused != 1 || StreamStatusIdling != 2 {
		t.Fatal("stream status tags do not match ntg_stream_status_enum")
	}
}

func checkSizeEqual(t *testing.T, name string, goSize, cSize uintptr) {
	t.Helper()
	if goSize != cSize {
		t.Errorf("%s size = %d, want %d", name, goSize, cSize)
	}
}

func checkOffsetEqual(t *testing.T, name string, goOffset, cOffset uintptr) {
	t.Helper()
	if goOffset != cOffset {
		t.Errorf("%s offset = %d, want %d", name, goOffset, cOffset)
	}
}

func checkAlign(t *testing.T, name string, got, want uintptr) {
	t.Helper()
	if got != want {
		t.Errorf("%s alignment = %d, want %d", name, got, want)
	}
}
