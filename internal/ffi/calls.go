package ffi

import (
	"math"
	"runtime"
)

// Init creates a new engine instance and returns its uid.
func Init() (uint32, error) {
	if !libLoaded.Load() {
		return 0, ErrLibraryNotLoaded
	}
	return fns.Init(), nil
}

// Destroy releases an engine instance. Any nonzero result is a failure.
func Destroy(uid uint32) error {
	if !libLoaded.Load() {
		return ErrLibraryNotLoaded
	}
	if result := fns.Destroy(uid); result != NtgOK {
		return ErrDestroyFailed
	}
	return nil
}

// pinDescription pins the views referenced from desc so the engine may
// read them while the call is in flight.
func pinDescription(p *runtime.Pinner, desc *MediaDescription) {
	p.Pin(desc)
	if desc.Audio != nil {
		p.Pin(desc.Audio)
		if desc.Audio.Input != nil {
			p.Pin(desc.Audio.Input)
		}
	}
	if desc.Video != nil {
		p.Pin(desc.Video)
		if desc.Video.Input != nil {
			p.Pin(desc.Video.Input)
		}
	}
}

// GetParams negotiates local connection parameters for a call.
func GetParams(uid uint32, chatID int64, desc *MediaDescription) (string, error) {
	if !libLoaded.Load() {
		return "", ErrLibraryNotLoaded
	}
	if desc == nil {
		desc = &MediaDescription{}
	}

	var pinner runtime.Pinner
	pinDescription(&pinner, desc)
	defer pinner.Unpin()

	return readString("params", paramsBufferSize, paramsBufferLimit, func(buf *byte, size int32) int32 {
		return fns.GetParams(uid, chatID, desc, buf, size)
	})
}

// Connect joins a call using the parameters returned by the remote side.
func Connect(uid uint32, chatID int64, params string) error {
	if !libLoaded.Load() {
		return ErrLibraryNotLoaded
	}
	cParams := CString(params)
	result := fns.Connect(uid, chatID, &cParams[0])
	runtime.KeepAlive(cParams)
	return ResultError(result)
}

// ChangeStream swaps the media source of a call.
func ChangeStream(uid uint32, chatID int64, desc *MediaDescription) error {
	if !libLoaded.Load() {
		return ErrLibraryNotLoaded
	}
	if desc == nil {
		desc = &MediaDescription{}
	}

	var pinner runtime.Pinner
	pinDescription(&pinner, desc)
	defer pinner.Unpin()

	return ResultError(fns.ChangeStream(uid, chatID, desc))
}

// toggle interprets the result of the pause/resume/mute/unmute family:
// 0 means the state changed, a positive value means it already held.
func toggle(result int32) (bool, error) {
	if err := ResultError(result); err != nil {
		return false, err
	}
	return result == 0, nil
}

// Pause pauses the streams of a call.
func Pause(uid uint32, chatID int64) (bool, error) {
	if !libLoaded.Load() {
		return false, ErrLibraryNotLoaded
	}
	return toggle(fns.Pause(uid, chatID))
}

// Resume resumes the streams of a call.
func Resume(uid uint32, chatID int64) (bool, error) {
	if !libLoaded.Load() {
		return false, ErrLibraryNotLoaded
	}
	return toggle(fns.Resume(uid, chatID))
}

// Mute mutes the outgoing audio of a call.
func Mute(uid uint32, chatID int64) (bool, error) {
	if !libLoaded.Load() {
		return false, ErrLibraryNotLoaded
	}
	return toggle(fns.Mute(uid, chatID))
}

// Unmute unmutes the outgoing audio of a call.
func Unmute(uid uint32, chatID int64) (bool, error) {
	if !libLoaded.Load() {
		return false, ErrLibraryNotLoaded
	}
	return toggle(fns.Unmute(uid, chatID))
}

// Stop terminates a call.
func Stop(uid uint32, chatID int64) error {
	if !libLoaded.Load() {
		return ErrLibraryNotLoaded
	}
	return ResultError(fns.Stop(uid, chatID))
}

// Time returns the played time of a call as reported by the engine.
func Time(uid uint32, chatID int64) (int64, error) {
	if !libLoaded.Load() {
		return 0, ErrLibraryNotLoaded
	}
	result := fns.Time(uid, chatID)
	if result < math.MinInt32 {
		return 0, ErrUnknownException
	}
	if result < 0 {
		return 0, ResultError(int32(result))
	}
	return result, nil
}

// GetState returns the media state of a call.
func GetState(uid uint32, chatID int64) (MediaState, error) {
	if !libLoaded.Load() {
		return MediaState{}, ErrLibraryNotLoaded
	}
	var state MediaState
	if err := ResultError(fns.GetState(uid, chatID, &state)); err != nil {
		return MediaState{}, err
	}
	return state, nil
}

// CallsCount returns the number of calls the instance is connected to.
func CallsCount(uid uint32) (int, error) {
	if !libLoaded.Load() {
		return 0, ErrLibraryNotLoaded
	}
	result := fns.CallsCount(uid)
	if err := ResultError(result); err != nil {
		return 0, err
	}
	return int(result), nil
}

// Calls lists the calls the instance is connected to.
func Calls(uid uint32) ([]GroupCall, error) {
	if !libLoaded.Load() {
		return nil, ErrLibraryNotLoaded
	}
	return readCalls(uid)
}

// Version returns the engine version string.
func Version() (string, error) {
	if !libLoaded.Load() {
		return "", ErrLibraryNotLoaded
	}
	return readString("version", versionBufferSize, versionBufferLimit, fns.GetVersion)
}

// CPUUsage returns the CPU usage reported by the engine for an instance.
func CPUUsage(uid uint32) (float64, error) {
	if !libLoaded.Load() {
		return 0, ErrLibraryNotLoaded
	}
	if fns.CPUUsage == nil {
		return 0, ErrUnknownException
	}
	var usage float64
	if err := ResultError(fns.CPUUsage(uid, &usage)); err != nil {
		return 0, err
	}
	return usage, nil
}
