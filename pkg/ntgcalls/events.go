package ntgcalls

import (
	"github.com/thesyncim/libntgcalls/internal/ffi"
	"github.com/thesyncim/libntgcalls/pkg/media"
)

// OnStreamEnd sets the handler called when a stream of a call ends.
// Handlers run on the engine thread and must not block. A nil handler
// removes the current one.
func (s *Session) OnStreamEnd(fn func(chatID int64, streamType media.StreamType)) error {
	var cb ffi.StreamEndCallback
	if fn != nil {
		cb = func(chatID int64, t ffi.StreamType) {
			fn(chatID, media.StreamType(t))
		}
	}
	return s.sessionOp(opOnStreamEnd, func(uid uint32) error {
		return ffi.SetOnStreamEnd(uid, cb)
	})
}

// OnUpgrade sets the handler called when the media state of a call changes.
func (s *Session) OnUpgrade(fn func(chatID int64, state media.MediaState)) error {
	var cb ffi.UpgradeCallback
	if fn != nil {
		cb = func(chatID int64, state ffi.MediaState) {
			fn(chatID, decodeState(state))
		}
	}
	return s.sessionOp(opOnUpgrade, func(uid uint32) error {
		return ffi.SetOnUpgrade(uid, cb)
	})
}

// OnDisconnect sets the handler called when a call loses its connection.
func (s *Session) OnDisconnect(fn func(chatID int64)) error {
	return s.sessionOp(opOnDisconnect, func(uid uint32) error {
		return ffi.SetOnDisconnect(uid, fn)
	})
}
