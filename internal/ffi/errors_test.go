package ffi

import (
	"errors"
	"fmt"
	"testing"
)

func TestResultErrorMapping(t *testing.T) {
	testCases := []struct {
		code int32
		want error
	}{
		{NtgConnectionAlreadyExists, ErrConnectionAlreadyExists},
		{NtgConnectionNotFound, ErrConnectionNotFound},
		{NtgFileNotFound, ErrFileNotFound},
		{NtgEncoderNotFound, ErrEncoderNotFound},
		{NtgFFmpegNotFound, ErrFFmpegNotFound},
		{NtgShellError, ErrShellError},
		{NtgRTMPNeeded, ErrRTMPNeeded},
		{NtgInvalidTransport, ErrInvalidTransport},
		{NtgConnectionFailed, ErrConnectionFailed},
		{NtgInvalidUID, ErrInvalidUID},
		{NtgUnknownException, ErrUnknownException},
		{NtgErrTooSmall, ErrUnknownException},
		{-4, ErrUnknownException},
		{-999, ErrUnknownException},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
			err := ResultError(tc.code)
			if !errors.Is(err, tc.want) {
				t.Fatalf("ResultError(%d) = %v, want %v", tc.code, err, tc.want)
			}
		})
	}
}

func TestResultErrorSuccess(t *testing.T) {
	for _, code := range []int32{0, 1, 2, 1 << 20} {
		if err := ResultError(code); err != nil {
			t.Errorf("ResultError(%d) = %v, want nil", code, err)
		}
	}
}

func TestErrorKindCodesRoundTrip(t *testing.T) {
	for k := ErrConnectionAlreadyExists; k <= ErrInvalidUID; k++ {
		if got := ResultError(k.Code()); got != error(k) {
			t.Errorf("%s: ResultError(Code()) = %v", k, got)
		}
	}
}

func TestErrorKindFormatting(t *testing.T) {
	if got := ErrConnectionNotFound.Error(); got != "[ConnectionNotFound]: the specified connection was not found" {
		t.Errorf("Error() = %q", got)
	}
	if got := ErrDestroyFailed.String(); got != "DestroyError" {
		t.Errorf("String() = %q", got)
	}
	if got := ErrorKind(99).String(); got != "UnknownException" {
		t.Errorf("out of range String() = %q", got)
	}
	if got := ErrorKind(-1).Code(); got != NtgUnknownException {
		t.Errorf("out of range Code() = %d", got)
	}
}

func TestErrorKindWrapping(t *testing.T) {
	err := fmt.Errorf("mute chat %d: %w", 42, ResultError(NtgConnectionNotFound))

	var kind ErrorKind
	if !errors.As(err, &kind) {
		t.Fatal("errors.As did not find ErrorKind")
	}
	if kind != ErrConnectionNotFound {
		t.Fatalf("kind = %s, want ConnectionNotFound", kind)
	}
	if errors.Is(err, ErrInvalidUID) {
		t.Fatal("unexpected match for ErrInvalidUID")
	}
}
