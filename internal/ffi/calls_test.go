package ffi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libntgcalls/internal/ffi"
	"github.com/thesyncim/libntgcalls/internal/ffi/ffitest"
)

const transportAnswer = `{"transport":{"ufrag":"a","pwd":"b","fingerprints":[],"candidates":[]}}`

func audioDesc(input string) (*ffi.MediaDescription, []byte) {
	buf := ffi.CString(input)
	return &ffi.MediaDescription{
		Audio: &ffi.AudioDescription{
			InputMode:     int32(ffi.InputModeFile),
			Input:         &buf[0],
			SampleRate:    48000,
			BitsPerSample: 16,
			ChannelCount:  2,
		},
	}, buf
}

func connectCall(t *testing.T, uid uint32, chatID int64) {
	t.Helper()
	desc, _ := audioDesc("song.raw")
	_, err := ffi.GetParams(uid, chatID, desc)
	require.NoError(t, err)
	require.NoError(t, ffi.Connect(uid, chatID, transportAnswer))
}

func TestCallsRequireLoadedLibrary(t *testing.T) {
	if ffi.IsLoaded() {
		t.Skip("a real engine library is loaded in this process")
	}

	_, err := ffi.Init()
	assert.ErrorIs(t, err, ffi.ErrLibraryNotLoaded)
	_, err = ffi.Version()
	assert.ErrorIs(t, err, ffi.ErrLibraryNotLoaded)
	_, err = ffi.Mute(0, 1)
	assert.ErrorIs(t, err, ffi.ErrLibraryNotLoaded)
}

func TestInitReturnsDistinctUIDs(t *testing.T) {
	ffitest.Install(t)

	seen := make(map[uint32]bool)
	var last uint32
	for i := 0; i < 10; i++ {
		uid, err := ffi.Init()
		require.NoError(t, err)
		require.False(t, seen[uid], "uid %d reused", uid)
		if i > 0 {
			require.Greater(t, uid, last)
		}
		seen[uid] = true
		last = uid
	}
}

func TestDestroy(t *testing.T) {
	engine := ffitest.Install(t)

	uid, err := ffi.Init()
	require.NoError(t, err)
	require.NoError(t, ffi.Destroy(uid))
	assert.False(t, engine.Live(uid))

	assert.ErrorIs(t, ffi.Destroy(uid), ffi.ErrDestroyFailed)
}

func TestGetParamsAndConnect(t *testing.T) {
	engine := ffitest.Install(t)
	uid, _ := ffi.Init()

	desc, _ := audioDesc("song.raw")
	params, err := ffi.GetParams(uid, 7, desc)
	require.NoError(t, err)
	assert.Equal(t, engine.ParamsFor(uid, 7), params)

	stream, ok := engine.StreamOf(uid, 7)
	require.True(t, ok)
	assert.Equal(t, "song.raw", stream.AudioInput)
	assert.Equal(t, uint32(48000), stream.SampleRate)
	assert.Equal(t, uint8(16), stream.BitsPerSample)
	assert.Equal(t, uint8(2), stream.ChannelCount)
	assert.False(t, stream.HasVideo)

	_, err = ffi.GetParams(uid, 7, desc)
	assert.ErrorIs(t, err, ffi.ErrConnectionAlreadyExists)

	require.NoError(t, ffi.Connect(uid, 7, transportAnswer))
	assert.ErrorIs(t, ffi.Connect(uid, 8, transportAnswer), ffi.ErrConnectionNotFound)
}

func TestGetParamsGrowsBuffer(t *testing.T) {
	engine := ffitest.Install(t)
	engine.SetParamsPadding(5000)
	uid, _ := ffi.Init()

	params, err := ffi.GetParams(uid, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.ParamsFor(uid, 1), params)
	assert.Greater(t, engine.NativeCalls(ffitest.OpGetParams), 1)
}

func TestGetParamsEmptyDescription(t *testing.T) {
	engine := ffitest.Install(t)
	uid, _ := ffi.Init()

	_, err := ffi.GetParams(uid, 3, &ffi.MediaDescription{})
	require.NoError(t, err)

	stream, ok := engine.StreamOf(uid, 3)
	require.True(t, ok)
	assert.False(t, stream.HasAudio)
	assert.False(t, stream.HasVideo)
}

func TestGetParamsMissingSource(t *testing.T) {
	ffitest.Install(t)
	uid, _ := ffi.Init()

	desc, _ := audioDesc("missing.raw")
	_, err := ffi.GetParams(uid, 1, desc)
	assert.ErrorIs(t, err, ffi.ErrFileNotFound)

	desc.Audio.InputMode = int32(ffi.InputModeShell)
	_, err = ffi.GetParams(uid, 1, desc)
	assert.ErrorIs(t, err, ffi.ErrShellError)
}

func TestConnectRejectsRTMPAndBadTransport(t *testing.T) {
	ffitest.Install(t)
	uid, _ := ffi.Init()
	_, err := ffi.GetParams(uid, 1, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, ffi.Connect(uid, 1, `{"rtmp":true}`), ffi.ErrRTMPNeeded)
	assert.ErrorIs(t, ffi.Connect(uid, 1, `not json`), ffi.ErrInvalidTransport)
}

func TestToggles(t *testing.T) {
	ffitest.Install(t)
	uid, _ := ffi.Init()
	connectCall(t, uid, 1)

	toggles := []struct {
		name string
		on   func(uint32, int64) (bool, error)
		off  func(uint32, int64) (bool, error)
	}{
		{"mute", ffi.Mute, ffi.Unmute},
		{"pause", ffi.Pause, ffi.Resume},
	}

	for _, tc := range toggles {
		t.Run(tc.name, func(t *testing.T) {
			changed, err := tc.on(uid, 1)
			require.NoError(t, err)
			assert.True(t, changed)

			changed, err = tc.on(uid, 1)
			require.NoError(t, err)
			assert.False(t, changed)

			changed, err = tc.off(uid, 1)
			require.NoError(t, err)
			assert.True(t, changed)

			changed, err = tc.off(uid, 1)
			require.NoError(t, err)
			assert.False(t, changed)
		})
	}

	_, err := ffi.Mute(uid, 99)
	assert.ErrorIs(t, err, ffi.ErrConnectionNotFound)
}

func TestStateTimeAndStop(t *testing.T) {
	engine := ffitest.Install(t)
	uid, _ := ffi.Init()
	connectCall(t, uid, 5)

	_, err := ffi.Mute(uid, 5)
	require.NoError(t, err)
	state, err := ffi.GetState(uid, 5)
	require.NoError(t, err)
	assert.Equal(t, ffi.MediaState{Muted: true}, state)

	engine.SetPlayedTime(uid, 5, 1234)
	played, err := ffi.Time(uid, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), played)

	// A failure below the int32 range must not wrap into a success code.
	engine.SetPlayedTime(uid, 5, -1<<32)
	_, err = ffi.Time(uid, 5)
	assert.ErrorIs(t, err, ffi.ErrUnknownException)
	engine.SetPlayedTime(uid, 5, 1234)

	require.NoError(t, ffi.Stop(uid, 5))
	assert.ErrorIs(t, ffi.Stop(uid, 5), ffi.ErrConnectionNotFound)

	_, err = ffi.Time(uid, 5)
	assert.ErrorIs(t, err, ffi.ErrConnectionNotFound)
	_, err = ffi.GetState(uid, 5)
	assert.ErrorIs(t, err, ffi.ErrConnectionNotFound)
}

func TestChangeStream(t *testing.T) {
	engine := ffitest.Install(t)
	uid, _ := ffi.Init()
	connectCall(t, uid, 2)

	buf := ffi.CString("clip.raw")
	desc := &ffi.MediaDescription{
		Video: &ffi.VideoDescription{
			InputMode: int32(ffi.InputModeFFmpeg | ffi.InputModeNoLatency),
			Input:     &buf[0],
			Width:     1280,
			Height:    720,
			FPS:       30,
		},
	}
	require.NoError(t, ffi.ChangeStream(uid, 2, desc))

	stream, ok := engine.StreamOf(uid, 2)
	require.True(t, ok)
	assert.True(t, stream.HasVideo)
	assert.False(t, stream.HasAudio)
	assert.Equal(t, "clip.raw", stream.VideoInput)
	assert.Equal(t, uint16(1280), stream.Width)
	assert.Equal(t, uint16(720), stream.Height)
	assert.Equal(t, uint8(30), stream.FPS)

	assert.ErrorIs(t, ffi.ChangeStream(uid, 3, desc), ffi.ErrConnectionNotFound)
}

func TestCallsTwoPhase(t *testing.T) {
	engine := ffitest.Install(t)
	uid, _ := ffi.Init()

	calls, err := ffi.Calls(uid)
	require.NoError(t, err)
	assert.Empty(t, calls)
	assert.Zero(t, engine.NativeCalls(ffitest.OpCalls), "empty list must skip the fill call")

	engine.AddCall(uid, 10, ffi.StreamStatusPlaying)
	engine.AddCall(uid, 20, ffi.StreamStatusPaused)

	count, err := ffi.CallsCount(uid)
	require.NoError(t, err)
	calls, err = ffi.Calls(uid)
	require.NoError(t, err)
	require.Len(t, calls, count)
	assert.Equal(t, int64(10), calls[0].ChatID)
	assert.Equal(t, int32(ffi.StreamStatusPlaying), calls[0].Status)
	assert.Equal(t, int64(20), calls[1].ChatID)
	assert.Equal(t, int32(ffi.StreamStatusPaused), calls[1].Status)
}

func TestCallsRefetchWhenListGrows(t *testing.T) {
	engine := ffitest.Install(t)
	uid, _ := ffi.Init()
	engine.AddCall(uid, 1, ffi.StreamStatusPlaying)

	grown := false
	engine.BeforeCallsFill = func() {
		if !grown {
			grown = true
			engine.AddCall(uid, 2, ffi.StreamStatusIdling)
		}
	}

	calls, err := ffi.Calls(uid)
	require.NoError(t, err)
	assert.Len(t, calls, 2)
	assert.Equal(t, 2, engine.NativeCalls(ffitest.OpCallsCount))
}

func TestCallsGiveUpWhenListKeepsGrowing(t *testing.T) {
	engine := ffitest.Install(t)
	uid, _ := ffi.Init()
	engine.AddCall(uid, 1, ffi.StreamStatusPlaying)

	next := int64(100)
	engine.BeforeCallsFill = func() {
		next++
		engine.AddCall(uid, next, ffi.StreamStatusPlaying)
	}

	_, err := ffi.Calls(uid)
	assert.ErrorIs(t, err, ffi.ErrUnknownException)
}

func TestCallsInvalidUID(t *testing.T) {
	ffitest.Install(t)

	_, err := ffi.Calls(42)
	assert.ErrorIs(t, err, ffi.ErrInvalidUID)
	_, err = ffi.CallsCount(42)
	assert.ErrorIs(t, err, ffi.ErrInvalidUID)
}

func TestVersion(t *testing.T) {
	engine := ffitest.Install(t)

	v, err := ffi.Version()
	require.NoError(t, err)
	assert.Equal(t, ffitest.DefaultVersion, v)

	engine.SetVersion("1.2.0-very-long-development-build-identifier")
	v, err = ffi.Version()
	require.NoError(t, err)
	assert.Equal(t, "1.2.0-very-long-development-build-identifier", v)
}

func TestCPUUsage(t *testing.T) {
	engine := ffitest.Install(t)
	uid, _ := ffi.Init()
	engine.SetCPUUsage(12.5)

	usage, err := ffi.CPUUsage(uid)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, usage, 1e-9)
}

func TestCPUUsageUnbound(t *testing.T) {
	ffitest.InstallWithoutCPUUsage(t)
	uid, _ := ffi.Init()

	_, err := ffi.CPUUsage(uid)
	assert.ErrorIs(t, err, ffi.ErrUnknownException)
}

func TestInjectedFailures(t *testing.T) {
	engine := ffitest.Install(t)
	uid, _ := ffi.Init()
	connectCall(t, uid, 1)

	engine.Fail(ffitest.OpStop, ffi.NtgConnectionFailed)
	assert.ErrorIs(t, ffi.Stop(uid, 1), ffi.ErrConnectionFailed)

	engine.Fail(ffitest.OpMute, -77)
	_, err := ffi.Mute(uid, 1)
	assert.ErrorIs(t, err, ffi.ErrUnknownException)

	engine.Fail(ffitest.OpTime, ffi.NtgErrTooSmall)
	_, err = ffi.Time(uid, 1)
	assert.ErrorIs(t, err, ffi.ErrUnknownException)
}
