// Package ntgcalls is a safe Go interface to the NTgCalls group call engine.
//
// A Session owns one engine instance. Sessions are safe for concurrent use;
// Clone hands out additional references to the same instance, and the
// instance is torn down when the last reference is closed, collected or
// explicitly destroyed.
//
// Basic usage:
//
//	s, err := ntgcalls.New()
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	params, err := s.GetParams(chatID, media.MediaDescription{
//	    Audio: media.NewAudio(media.InputFile, "song.raw", 48000, 16, 2),
//	})
//	// exchange params with the signalling server, then
//	err = s.Connect(chatID, answer)
package ntgcalls

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/thesyncim/libntgcalls/internal/ffi"
	"github.com/thesyncim/libntgcalls/internal/metrics"
	"github.com/thesyncim/libntgcalls/pkg/media"
)

// Session is one reference to an engine instance.
//
// Event handlers registered on a Session are held by the package until the
// instance is torn down; a handler that captures its Session keeps that
// reference reachable, so such sessions must be closed explicitly.
type Session struct {
	cell     *handleCell
	released atomic.Bool
	cleanup  runtime.Cleanup
}

// New loads the engine library if needed and creates a new engine instance.
func New() (*Session, error) {
	if err := ffi.LoadLibrary(); err != nil {
		return nil, err
	}

	var uid uint32
	err := record(opInit, func() (err error) {
		uid, err = ffi.Init()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ntgcalls: init: %w", err)
	}
	metrics.RecordSessionCreated()

	logrus.WithFields(logrus.Fields{
		"function": "New",
		"uid":      uid,
	}).Debug("Created ntgcalls instance")

	return newSession(newHandleCell(uid)), nil
}

func newSession(cell *handleCell) *Session {
	s := &Session{cell: cell}
	s.cleanup = runtime.AddCleanup(s, (*handleCell).release, cell)
	return s
}

// Clone returns a new reference to the same engine instance. Cloning a
// closed or destroyed reference yields a reference that is already released.
func (s *Session) Clone() *Session {
	if s.released.Load() {
		c := &Session{cell: s.cell}
		c.released.Store(true)
		return c
	}
	s.cell.retain()
	return newSession(s.cell)
}

// UID returns the engine identifier of the instance.
func (s *Session) UID() uint32 {
	return s.cell.uid
}

// Destroy tears the engine instance down for every reference and consumes
// this one. It returns ErrInvalidUID if the instance is already gone or this
// reference was released, and ErrDestroyFailed if the engine reports a
// failure. A failed teardown is not retried.
func (s *Session) Destroy() error {
	if !s.released.CompareAndSwap(false, true) {
		return fmt.Errorf("ntgcalls: destroy: %w", ErrInvalidUID)
	}
	s.cleanup.Stop()
	defer s.cell.release()

	if err := s.cell.destroy(); err != nil {
		if errors.Is(err, ErrDestroyFailed) {
			metrics.RecordTeardownFailure(metrics.PathExplicit)
			logrus.WithFields(logrus.Fields{
				"function": "Destroy",
				"uid":      s.cell.uid,
			}).Warn("ntgcalls instance teardown failed, native resources may leak")
		}
		return fmt.Errorf("ntgcalls: destroy: %w", err)
	}
	return nil
}

// Close releases this reference. The instance is torn down once every
// reference is released; a teardown failure at that point is logged only.
// Close is idempotent and always returns nil.
func (s *Session) Close() error {
	if s.released.CompareAndSwap(false, true) {
		s.cleanup.Stop()
		s.cell.release()
	}
	return nil
}

func (s *Session) use(fn func(uid uint32) error) error {
	if s.released.Load() {
		return ErrInvalidUID
	}
	err := s.cell.use(fn)
	runtime.KeepAlive(s)
	return err
}

// callOp runs a native operation addressed to one call.
func (s *Session) callOp(op string, chatID int64, fn func(uid uint32) error) error {
	err := s.use(func(uid uint32) error {
		return record(op, func() error { return fn(uid) })
	})
	if err != nil {
		return fmt.Errorf("ntgcalls: %s chat %d: %w", op, chatID, err)
	}
	return nil
}

// sessionOp runs a native operation addressed to the whole instance.
func (s *Session) sessionOp(op string, fn func(uid uint32) error) error {
	err := s.use(func(uid uint32) error {
		return record(op, func() error { return fn(uid) })
	})
	if err != nil {
		return fmt.Errorf("ntgcalls: %s: %w", op, err)
	}
	return nil
}

// GetParams prepares a call with the given media and returns the local
// connection parameters to hand to the signalling server.
func (s *Session) GetParams(chatID int64, desc media.MediaDescription) (string, error) {
	var params string
	err := s.callOp(opGetParams, chatID, func(uid uint32) (err error) {
		p := project(desc)
		params, err = ffi.GetParams(uid, chatID, &p.desc)
		runtime.KeepAlive(p)
		return err
	})
	return params, err
}

// Connect completes a call prepared with GetParams using the remote
// parameters.
func (s *Session) Connect(chatID int64, params string) error {
	return s.callOp(opConnect, chatID, func(uid uint32) error {
		return ffi.Connect(uid, chatID, params)
	})
}

// ChangeStream replaces the media of a call.
func (s *Session) ChangeStream(chatID int64, desc media.MediaDescription) error {
	return s.callOp(opChangeStream, chatID, func(uid uint32) error {
		p := project(desc)
		err := ffi.ChangeStream(uid, chatID, &p.desc)
		runtime.KeepAlive(p)
		return err
	})
}

// Stop leaves a call.
func (s *Session) Stop(chatID int64) error {
	return s.callOp(opStop, chatID, func(uid uint32) error {
		return ffi.Stop(uid, chatID)
	})
}

func (s *Session) toggle(op string, chatID int64, fn func(uid uint32, chatID int64) (bool, error)) (bool, error) {
	var changed bool
	err := s.callOp(op, chatID, func(uid uint32) (err error) {
		changed, err = fn(uid, chatID)
		return err
	})
	return changed, err
}

// Pause pauses the streams of a call. It reports whether the state changed.
func (s *Session) Pause(chatID int64) (bool, error) {
	return s.toggle(opPause, chatID, ffi.Pause)
}

// Resume resumes the streams of a call. It reports whether the state changed.
func (s *Session) Resume(chatID int64) (bool, error) {
	return s.toggle(opResume, chatID, ffi.Resume)
}

// Mute mutes the outgoing audio of a call. It reports whether the state
// changed.
func (s *Session) Mute(chatID int64) (bool, error) {
	return s.toggle(opMute, chatID, ffi.Mute)
}

// Unmute unmutes the outgoing audio of a call. It reports whether the state
// changed.
func (s *Session) Unmute(chatID int64) (bool, error) {
	return s.toggle(opUnmute, chatID, ffi.Unmute)
}

// PlayedTime returns the played time of a call as reported by the engine.
func (s *Session) PlayedTime(chatID int64) (int64, error) {
	var played int64
	err := s.callOp(opTime, chatID, func(uid uint32) (err error) {
		played, err = ffi.Time(uid, chatID)
		return err
	})
	return played, err
}

// State returns the media state of a call.
func (s *Session) State(chatID int64) (media.MediaState, error) {
	var state ffi.MediaState
	err := s.callOp(opGetState, chatID, func(uid uint32) (err error) {
		state, err = ffi.GetState(uid, chatID)
		return err
	})
	if err != nil {
		return media.MediaState{}, err
	}
	return decodeState(state), nil
}

// CountCalls returns the number of calls hosted by the instance.
func (s *Session) CountCalls() (int, error) {
	var n int
	err := s.sessionOp(opCallsCount, func(uid uint32) (err error) {
		n, err = ffi.CallsCount(uid)
		return err
	})
	return n, err
}

// Calls returns a snapshot of the calls hosted by the instance.
func (s *Session) Calls() ([]media.GroupCall, error) {
	var calls []ffi.GroupCall
	err := s.sessionOp(opCalls, func(uid uint32) (err error) {
		calls, err = ffi.Calls(uid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return decodeCalls(calls), nil
}

// CPUUsage returns the CPU usage the engine reports for the instance.
func (s *Session) CPUUsage() (float64, error) {
	var usage float64
	err := s.sessionOp(opCPUUsage, func(uid uint32) (err error) {
		usage, err = ffi.CPUUsage(uid)
		return err
	})
	return usage, err
}

// Version loads the engine library if needed and returns its version.
func Version() (string, error) {
	if err := ffi.LoadLibrary(); err != nil {
		return "", err
	}
	var v string
	err := record(opVersion, func() (err error) {
		v, err = ffi.Version()
		return err
	})
	return v, err
}
