package ffi

import (
	"fmt"
	"unicode/utf8"
)

// Initial and maximum sizes for caller-supplied output buffers.
// The engine rejects a short buffer with NtgErrTooSmall; the buffer is
// doubled and the call repeated until it fits or the limit is reached.
const (
	versionBufferSize  = 16
	versionBufferLimit = 4 << 10
	paramsBufferSize   = 512
	paramsBufferLimit  = 1 << 20

	// maxCallsRefetch bounds how often the count-then-fill fetch restarts
	// when calls appear between the two phases.
	maxCallsRefetch = 3
)

// readString runs call against a growing scratch buffer and decodes the
// NUL-terminated result. Only a wrapper defect can exhaust limit or produce
// invalid UTF-8, so both panic.
func readString(what string, initial, limit int, call func(buf *byte, size int32) int32) (string, error) {
	size := initial
	for {
		buf := make([]byte, size)
		result := call(&buf[0], int32(len(buf)))

		if result == NtgErrTooSmall {
			if size >= limit {
				panic(fmt.Sprintf("libntgcalls: %s buffer of %d bytes is too small, this is an internal error, report it", what, size))
			}
			size *= 2
			continue
		}
		if err := ResultError(result); err != nil {
			return "", err
		}

		out := cPrefix(buf)
		if !utf8.Valid(out) {
			panic(fmt.Sprintf("libntgcalls: engine returned an invalid %s string, this is an internal error, report it", what))
		}
		return string(out), nil
	}
}

// readCalls implements the two-phase count-then-fill protocol of
// ntg_calls_count / ntg_calls. A fill rejected as too small means calls
// were added in between; the fetch restarts from the count.
func readCalls(uid uint32) ([]GroupCall, error) {
	for attempt := 0; attempt < maxCallsRefetch; attempt++ {
		count := fns.CallsCount(uid)
		if err := ResultError(count); err != nil {
			return nil, err
		}
		if count == 0 {
			return []GroupCall{}, nil
		}

		buf := make([]GroupCall, count)
		result := fns.Calls(uid, &buf[0], count)
		if result == NtgErrTooSmall {
			continue
		}
		if err := ResultError(result); err != nil {
			return nil, err
		}
		return buf, nil
	}
	return nil, ErrUnknownException
}
