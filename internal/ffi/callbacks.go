package ffi

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// StreamEndCallback is called when the engine finishes a stream of a call.
type StreamEndCallback func(chatID int64, streamType StreamType)

// UpgradeCallback is called when the engine changes the media state of a call.
type UpgradeCallback func(chatID int64, state MediaState)

// DisconnectCallback is called when a call drops its connection.
type DisconnectCallback func(chatID int64)

// CallbackPanicHook is invoked after a panic in a user callback was recovered.
// The metrics layer hooks into it; nil by default.
var CallbackPanicHook func(event string)

// safeCallback wraps a callback invocation with panic recovery.
// This prevents panics in user callbacks from unwinding through C stack frames,
// which would cause undefined behavior.
func safeCallback(event string, uid uint32, chatID int64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function": "safeCallback",
				"event":    event,
				"uid":      uid,
				"chat_id":  chatID,
				"panic":    r,
			}).Error("Panic recovered in engine callback")
			if hook := CallbackPanicHook; hook != nil {
				hook(event)
			}
		}
	}()
	fn()
}

// sinks is the per-session capability table entry.
// The engine only hands back the session uid and chat id, so handlers are
// looked up by uid.
type sinks struct {
	streamEnd  StreamEndCallback
	upgrade    UpgradeCallback
	disconnect DisconnectCallback
}

var (
	sinkMu    sync.RWMutex
	sinkTable = make(map[uint32]*sinks)

	// purego callback function pointers (must be kept alive).
	// One trampoline per event kind serves every session.
	trampolineMu  sync.Mutex
	streamEndPtr  uintptr
	upgradePtr    uintptr
	disconnectPtr uintptr
)

// resetCallbacks drops the trampolines and the capability table. Called
// whenever the entry-point table is replaced; must hold libMu.
func resetCallbacks() {
	trampolineMu.Lock()
	streamEndPtr, upgradePtr, disconnectPtr = 0, 0, 0
	trampolineMu.Unlock()

	sinkMu.Lock()
	sinkTable = make(map[uint32]*sinks)
	sinkMu.Unlock()
}

func streamEndTrampoline(uid uint32, chatID int64, streamType int32) {
	sinkMu.RLock()
	s := sinkTable[uid]
	var cb StreamEndCallback
	if s != nil {
		cb = s.streamEnd
	}
	sinkMu.RUnlock()

	if cb == nil {
		return
	}
	safeCallback("stream_end", uid, chatID, func() {
		cb(chatID, StreamType(streamType))
	})
}

func dispatchUpgrade(uid uint32, chatID int64, state MediaState) {
	sinkMu.RLock()
	s := sinkTable[uid]
	var cb UpgradeCallback
	if s != nil {
		cb = s.upgrade
	}
	sinkMu.RUnlock()

	if cb == nil {
		return
	}
	safeCallback("upgrade", uid, chatID, func() {
		cb(chatID, state)
	})
}

func disconnectTrampoline(uid uint32, chatID int64) {
	sinkMu.RLock()
	s := sinkTable[uid]
	var cb DisconnectCallback
	if s != nil {
		cb = s.disconnect
	}
	sinkMu.RUnlock()

	if cb == nil {
		return
	}
	safeCallback("disconnect", uid, chatID, func() {
		cb(chatID)
	})
}

// trampoline returns the C function pointer for fn, creating it on first use.
func trampoline(slot *uintptr, fn any) uintptr {
	trampolineMu.Lock()
	defer trampolineMu.Unlock()
	if *slot == 0 {
		*slot = fns.NewCallback(fn)
	}
	return *slot
}

func updateSinks(uid uint32, update func(s *sinks)) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	s := sinkTable[uid]
	if s == nil {
		s = &sinks{}
		sinkTable[uid] = s
	}
	update(s)
	if s.streamEnd == nil && s.upgrade == nil && s.disconnect == nil {
		delete(sinkTable, uid)
	}
}

// SetOnStreamEnd registers the stream-end handler for a session.
// A nil handler removes it. The engine-side registration is left in place;
// the trampoline ignores sessions without a handler.
func SetOnStreamEnd(uid uint32, cb StreamEndCallback) error {
	if !libLoaded.Load() {
		return ErrLibraryNotLoaded
	}
	updateSinks(uid, func(s *sinks) { s.streamEnd = cb })
	if cb == nil {
		return nil
	}
	ptr := trampoline(&streamEndPtr, streamEndTrampoline)
	if err := ResultError(fns.OnStreamEnd(uid, ptr)); err != nil {
		updateSinks(uid, func(s *sinks) { s.streamEnd = nil })
		return err
	}
	return nil
}

// SetOnUpgrade registers the media-upgrade handler for a session.
func SetOnUpgrade(uid uint32, cb UpgradeCallback) error {
	if !libLoaded.Load() {
		return ErrLibraryNotLoaded
	}
	updateSinks(uid, func(s *sinks) { s.upgrade = cb })
	if cb == nil {
		return nil
	}
	ptr := trampoline(&upgradePtr, upgradeTrampoline)
	if err := ResultError(fns.OnUpgrade(uid, ptr)); err != nil {
		updateSinks(uid, func(s *sinks) { s.upgrade = nil })
		return err
	}
	return nil
}

// SetOnDisconnect registers the disconnect handler for a session.
func SetOnDisconnect(uid uint32, cb DisconnectCallback) error {
	if !libLoaded.Load() {
		return ErrLibraryNotLoaded
	}
	updateSinks(uid, func(s *sinks) { s.disconnect = cb })
	if cb == nil {
		return nil
	}
	ptr := trampoline(&disconnectPtr, disconnectTrampoline)
	if err := ResultError(fns.OnDisconnect(uid, ptr)); err != nil {
		updateSinks(uid, func(s *sinks) { s.disconnect = nil })
		return err
	}
	return nil
}

// ReleaseCallbacks removes every handler of a session. Called once the
// session handle is destroyed; later engine events for the uid are dropped.
func ReleaseCallbacks(uid uint32) {
	sinkMu.Lock()
	delete(sinkTable, uid)
	sinkMu.Unlock()
}

// CallbackCount returns the number of sessions with registered handlers.
func CallbackCount() int {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return len(sinkTable)
}
