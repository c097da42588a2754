package ffi

import (
	"errors"
	"strings"
	"testing"
	"unsafe"
)

// fillWith answers every call with s, or NtgErrTooSmall while it doesn't fit.
func fillWith(s string, sizes *[]int32) func(buf *byte, size int32) int32 {
	return func(buf *byte, size int32) int32 {
		*sizes = append(*sizes, size)
		if int(size) < len(s)+1 {
			return NtgErrTooSmall
		}
		dst := unsafe.Slice(buf, size)
		copy(dst, s)
		dst[len(s)] = 0
		return NtgOK
	}
}

func TestReadStringFitsFirstTry(t *testing.T) {
	var sizes []int32
	got, err := readString("version", 16, 1024, fillWith("1.1.3", &sizes))
	if err != nil {
		t.Fatalf("readString: %v", err)
	}
	if got != "1.1.3" {
		t.Fatalf("got %q, want %q", got, "1.1.3")
	}
	if len(sizes) != 1 || sizes[0] != 16 {
		t.Fatalf("sizes = %v, want [16]", sizes)
	}
}

func TestReadStringGrows(t *testing.T) {
	want := strings.Repeat("p", 100)
	var sizes []int32
	got, err := readString("params", 16, 1024, fillWith(want, &sizes))
	if err != nil {
		t.Fatalf("readString: %v", err)
	}
	if got != want {
		t.Fatalf("got %d bytes, want %d", len(got), len(want))
	}
	wantSizes := []int32{16, 32, 64, 128}
	if len(sizes) != len(wantSizes) {
		t.Fatalf("sizes = %v, want %v", sizes, wantSizes)
	}
	for i := range wantSizes {
		if sizes[i] != wantSizes[i] {
			t.Fatalf("sizes = %v, want %v", sizes, wantSizes)
		}
	}
}

func TestReadStringDiscardsTrailingCapacity(t *testing.T) {
	call := func(buf *byte, size int32) int32 {
		dst := unsafe.Slice(buf, size)
		copy(dst, "ok\x00garbage")
		return NtgOK
	}
	got, err := readString("version", 32, 32, call)
	if err != nil {
		t.Fatalf("readString: %v", err)
	}
	if got != "ok" {
		t.Fatalf("got %q, want %q", got, "ok")
	}
}

func TestReadStringTranslatesErrors(t *testing.T) {
	call := func(*byte, int32) int32 { return NtgInvalidUID }
	_, err := readString("params", 16, 64, call)
	if !errors.Is(err, ErrInvalidUID) {
		t.Fatalf("err = %v, want ErrInvalidUID", err)
	}
}

func TestReadStringLimitPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic once the buffer limit is reached")
		}
	}()
	call := func(*byte, int32) int32 { return NtgErrTooSmall }
	_, _ = readString("version", 16, 64, call)
}

func TestReadStringInvalidUTF8Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on invalid UTF-8")
		}
	}()
	call := func(buf *byte, size int32) int32 {
		dst := unsafe.Slice(buf, size)
		dst[0], dst[1], dst[2] = 0xff, 0xfe, 0
		return NtgOK
	}
	_, _ = readString("version", 16, 64, call)
}

func TestCString(t *testing.T) {
	b := CString("file.mp3")
	if len(b) != len("file.mp3")+1 || b[len(b)-1] != 0 {
		t.Fatalf("CString not NUL terminated: %v", b)
	}
	if got := GoString(&b[0]); got != "file.mp3" {
		t.Fatalf("GoString = %q", got)
	}

	cut := CString("a\x00b")
	if len(cut) != 2 || GoString(&cut[0]) != "a" {
		t.Fatalf("CString did not stop at NUL: %v", cut)
	}

	if GoString(nil) != "" {
		t.Fatal("GoString(nil) should be empty")
	}
}
