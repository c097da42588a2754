package benchmark

import (
	"testing"

	"github.com/thesyncim/libntgcalls/internal/ffi/ffitest"
	"github.com/thesyncim/libntgcalls/pkg/media"
	"github.com/thesyncim/libntgcalls/pkg/ntgcalls"
)

const transportAnswer = `{"transport":{"ufrag":"a","pwd":"b","fingerprints":[],"candidates":[]}}`

func connected(b *testing.B, chatID int64) *ntgcalls.Session {
	b.Helper()
	s, err := ntgcalls.New()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = s.Close() })
	if _, err := s.GetParams(chatID, media.MediaDescription{
		Audio: media.NewAudio(media.InputFile, "song.raw", 48000, 16, 2),
	}); err != nil {
		b.Fatal(err)
	}
	if err := s.Connect(chatID, transportAnswer); err != nil {
		b.Fatal(err)
	}
	return s
}

// ============================================================================
// Lifecycle Benchmarks
// ============================================================================

// BenchmarkSessionCreateDestroy measures New followed by Destroy.
func BenchmarkSessionCreateDestroy(b *testing.B) {
	ffitest.Install(b)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s, _ := ntgcalls.New()
		_ = s.Destroy()
	}
}

// BenchmarkSessionClone measures taking and releasing a reference.
func BenchmarkSessionClone(b *testing.B) {
	ffitest.Install(b)
	s, _ := ntgcalls.New()
	defer s.Close()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = s.Clone().Close()
	}
}

// ============================================================================
// Operation Benchmarks
// ============================================================================

// BenchmarkToggle measures the wrapper overhead of a toggle.
func BenchmarkToggle(b *testing.B) {
	ffitest.Install(b)
	s := connected(b, 1)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Mute(1)
	}
}

// BenchmarkGetParams measures projection and the growable buffer protocol.
func BenchmarkGetParams(b *testing.B) {
	engine := ffitest.Install(b)
	engine.SetParamsPadding(2048)
	s, _ := ntgcalls.New()
	defer s.Close()
	desc := media.MediaDescription{
		Audio: media.NewAudio(media.InputFile, "song.raw", 48000, 16, 2),
		Video: media.NewVideo(media.InputFile, "clip.yuv", 1280, 720, 30),
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.GetParams(1, desc)
		_ = s.Stop(1)
	}
}

// BenchmarkCalls measures the two-phase call listing.
func BenchmarkCalls(b *testing.B) {
	ffitest.Install(b)
	s := connected(b, 1)
	for chatID := int64(2); chatID <= 32; chatID++ {
		if _, err := s.GetParams(chatID, media.MediaDescription{}); err != nil {
			b.Fatal(err)
		}
		if err := s.Connect(chatID, transportAnswer); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Calls()
	}
}

// BenchmarkParallelToggle measures concurrent operations on one instance.
func BenchmarkParallelToggle(b *testing.B) {
	ffitest.Install(b)
	s := connected(b, 1)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ref := s.Clone()
		defer ref.Close()
		for pb.Next() {
			_, _ = ref.Mute(1)
		}
	})
}
