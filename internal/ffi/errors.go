package ffi

// Result codes from ntgcalls.h (int32 to match C int).
const (
	NtgOK                      int32 = 0
	NtgUnknownException        int32 = -1
	NtgInvalidUID              int32 = -2
	NtgErrTooSmall             int32 = -3
	NtgConnectionAlreadyExists int32 = -100
	NtgConnectionNotFound      int32 = -101
	NtgFileNotFound            int32 = -200
	NtgEncoderNotFound         int32 = -201
	NtgFFmpegNotFound          int32 = -202
	NtgShellError              int32 = -203
	NtgRTMPNeeded              int32 = -300
	NtgInvalidTransport        int32 = -301
	NtgConnectionFailed        int32 = -302
)

// ErrorKind is the closed set of failures the engine can report.
// It implements error, so kinds work directly with errors.Is and errors.As.
type ErrorKind int32

const (
	ErrUnknownException ErrorKind = iota
	ErrConnectionAlreadyExists
	ErrConnectionNotFound
	ErrFileNotFound
	ErrEncoderNotFound
	ErrFFmpegNotFound
	ErrShellError
	ErrRTMPNeeded
	ErrInvalidTransport
	ErrConnectionFailed
	ErrInvalidUID
	// ErrDestroyFailed is only reported by explicit destruction.
	ErrDestroyFailed
)

var kindMessages = [...]string{
	ErrUnknownException:        "unknown exception",
	ErrConnectionAlreadyExists: "a connection with the specified chat id already exists",
	ErrConnectionNotFound:      "the specified connection was not found",
	ErrFileNotFound:            "the specified file was not found",
	ErrEncoderNotFound:         "the required encoder was not found",
	ErrFFmpegNotFound:          "ffmpeg is not found in the system",
	ErrShellError:              "an error occurred while executing a shell command",
	ErrRTMPNeeded:              "the group call requires an RTMP transport",
	ErrInvalidTransport:        "the specified transport is invalid",
	ErrConnectionFailed:        "the WebRTC connection failed",
	ErrInvalidUID:              "the session uid is invalid or destroyed",
	ErrDestroyFailed:           "ntgcalls cleanup failed",
}

var kindCodes = [...]int32{
	ErrUnknownException:        NtgUnknownException,
	ErrConnectionAlreadyExists: NtgConnectionAlreadyExists,
	ErrConnectionNotFound:      NtgConnectionNotFound,
	ErrFileNotFound:            NtgFileNotFound,
	ErrEncoderNotFound:         NtgEncoderNotFound,
	ErrFFmpegNotFound:          NtgFFmpegNotFound,
	ErrShellError:              NtgShellError,
	ErrRTMPNeeded:              NtgRTMPNeeded,
	ErrInvalidTransport:        NtgInvalidTransport,
	ErrConnectionFailed:        NtgConnectionFailed,
	ErrInvalidUID:              NtgInvalidUID,
	ErrDestroyFailed:           NtgUnknownException,
}

var kindNames = [...]string{
	ErrUnknownException:        "UnknownException",
	ErrConnectionAlreadyExists: "ConnectionAlreadyExists",
	ErrConnectionNotFound:      "ConnectionNotFound",
	ErrFileNotFound:            "FileNotFound",
	ErrEncoderNotFound:         "EncoderNotFound",
	ErrFFmpegNotFound:          "FFmpegNotFound",
	ErrShellError:              "ShellError",
	ErrRTMPNeeded:              "RtmpNeeded",
	ErrInvalidTransport:        "InvalidTransport",
	ErrConnectionFailed:        "ConnectionFailed",
	ErrInvalidUID:              "InvalidUid",
	ErrDestroyFailed:           "DestroyError",
}

func (k ErrorKind) valid() bool {
	return k >= ErrUnknownException && k <= ErrDestroyFailed
}

// Error implements error.
func (k ErrorKind) Error() string {
	if !k.valid() {
		return "[UnknownException]: " + kindMessages[ErrUnknownException]
	}
	return "[" + kindNames[k] + "]: " + kindMessages[k]
}

// String returns the symbolic name of the kind.
func (k ErrorKind) String() string {
	if !k.valid() {
		return kindNames[ErrUnknownException]
	}
	return kindNames[k]
}

// Code returns the native result code the kind was translated from.
func (k ErrorKind) Code() int32 {
	if !k.valid() {
		return NtgUnknownException
	}
	return kindCodes[k]
}

// ResultError converts a native result code to a Go error.
// Nonnegative codes are success. Negative codes outside the known set,
// including a buffer-size signal from an entry point that takes no buffer,
// collapse to ErrUnknownException so raw codes never reach callers.
func ResultError(code int32) error {
	if code >= 0 {
		return nil
	}
	switch code {
	case NtgConnectionAlreadyExists:
		return ErrConnectionAlreadyExists
	case NtgConnectionNotFound:
		return ErrConnectionNotFound
	case NtgFileNotFound:
		return ErrFileNotFound
	case NtgEncoderNotFound:
		return ErrEncoderNotFound
	case NtgFFmpegNotFound:
		return ErrFFmpegNotFound
	case NtgShellError:
		return ErrShellError
	case NtgRTMPNeeded:
		return ErrRTMPNeeded
	case NtgInvalidTransport:
		return ErrInvalidTransport
	case NtgConnectionFailed:
		return ErrConnectionFailed
	case NtgInvalidUID:
		return ErrInvalidUID
	default:
		return ErrUnknownException
	}
}
