package ntgcalls

import "github.com/thesyncim/libntgcalls/internal/ffi"

// ErrorKind is the closed set of failures reported by the engine. Every
// error returned by a Session operation wraps one of the values below;
// test for them with errors.Is or extract them with errors.As.
type ErrorKind = ffi.ErrorKind

const (
	ErrUnknownException        = ffi.ErrUnknownException
	ErrConnectionAlreadyExists = ffi.ErrConnectionAlreadyExists
	ErrConnectionNotFound      = ffi.ErrConnectionNotFound
	ErrFileNotFound            = ffi.ErrFileNotFound
	ErrEncoderNotFound         = ffi.ErrEncoderNotFound
	ErrFFmpegNotFound          = ffi.ErrFFmpegNotFound
	ErrShellError              = ffi.ErrShellError
	ErrRTMPNeeded              = ffi.ErrRTMPNeeded
	ErrInvalidTransport        = ffi.ErrInvalidTransport
	ErrConnectionFailed        = ffi.ErrConnectionFailed
	ErrInvalidUID              = ffi.ErrInvalidUID
	ErrDestroyFailed           = ffi.ErrDestroyFailed
)

// Loader errors.
var (
	ErrLibraryNotLoaded    = ffi.ErrLibraryNotLoaded
	ErrLibraryNotFound     = ffi.ErrLibraryNotFound
	ErrSymbolNotFound      = ffi.ErrSymbolNotFound
	ErrUnsupportedPlatform = ffi.ErrUnsupportedPlatform
)
