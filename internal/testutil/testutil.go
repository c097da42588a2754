// Package testutil provides shared test utilities for libntgcalls tests.
package testutil

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/thesyncim/libntgcalls/internal/ffi"
)

// EnvE2E enables tests that need the real engine library.
const EnvE2E = "NTGCALLS_E2E"

// RequireEngine skips the test unless NTGCALLS_E2E is set, and fails it if
// the engine library cannot be loaded.
func RequireEngine(tb testing.TB) {
	tb.Helper()
	if os.Getenv(EnvE2E) == "" {
		tb.Skipf("set %s=1 to run tests against the ntgcalls library", EnvE2E)
	}
	if err := ffi.LoadLibrary(); err != nil {
		tb.Fatalf("ntgcalls library required: %v", err)
	}
}

// WriteTestAudio writes a 440 Hz sine wave as raw s16le PCM and returns the
// file path. The pattern is recognizable when played back.
func WriteTestAudio(tb testing.TB, sampleRate, channels int, seconds float64) string {
	tb.Helper()

	frequency := 440.0
	amplitude := 10000.0

	samples := int(float64(sampleRate) * seconds)
	buf := make([]byte, samples*channels*2)
	for i := 0; i < samples; i++ {
		t := float64(i) / float64(sampleRate)
		value := int16(amplitude * math.Sin(2*math.Pi*frequency*t))
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(buf[(i*channels+ch)*2:], uint16(value))
		}
	}
	return writeTemp(tb, "audio.raw", buf)
}

// WriteSilentAudio writes silent s16le PCM and returns the file path.
func WriteSilentAudio(tb testing.TB, sampleRate, channels int, seconds float64) string {
	tb.Helper()
	samples := int(float64(sampleRate) * seconds)
	return writeTemp(tb, "silence.raw", make([]byte, samples*channels*2))
}

// WriteTestVideo writes frames of raw I420 video with a diagonal gradient
// and returns the file path.
func WriteTestVideo(tb testing.TB, width, height, frames int) string {
	tb.Helper()

	ySize := width * height
	uvSize := ((width + 1) / 2) * ((height + 1) / 2)
	frame := make([]byte, ySize+2*uvSize)
	for i := 0; i < ySize; i++ {
		y := i / width
		x := i % width
		frame[i] = byte((x + y) % 256)
	}
	for i := ySize; i < len(frame); i++ {
		frame[i] = 128
	}

	buf := make([]byte, 0, len(frame)*frames)
	for i := 0; i < frames; i++ {
		buf = append(buf, frame...)
	}
	return writeTemp(tb, "video.yuv", buf)
}

func writeTemp(tb testing.TB, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", name, err)
	}
	return path
}
