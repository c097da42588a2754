// Package e2e provides end-to-end tests for libntgcalls against the real
// engine library. They only run when NTGCALLS_E2E is set.
package e2e

import (
	"testing"

	"github.com/thesyncim/libntgcalls/internal/testutil"
	"github.com/thesyncim/libntgcalls/pkg/media"
	"github.com/thesyncim/libntgcalls/pkg/ntgcalls"
)

const (
	testSampleRate = 48000
	testChannels   = 2
	testSeconds    = 2
)

// newSession creates a session on the real engine and closes it when the
// test ends.
func newSession(t *testing.T) *ntgcalls.Session {
	t.Helper()
	testutil.RequireEngine(t)

	s, err := ntgcalls.New()
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// testAudio describes a short sine wave file.
func testAudio(t *testing.T) media.MediaDescription {
	t.Helper()
	path := testutil.WriteTestAudio(t, testSampleRate, testChannels, testSeconds)
	return media.MediaDescription{
		Audio: media.NewAudio(media.InputFile, path, testSampleRate, 16, testChannels),
	}
}

// testAudioVideo describes a sine wave file and a gradient video file.
func testAudioVideo(t *testing.T) media.MediaDescription {
	t.Helper()
	desc := testAudio(t)
	path := testutil.WriteTestVideo(t, 320, 240, 30)
	desc.Video = media.NewVideo(media.InputFile, path, 320, 240, 30)
	return desc
}
