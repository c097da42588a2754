package ffi

import "github.com/ebitengine/purego"

// Bindings is the table of engine entry points. registerFunctions fills it
// from the loaded library; tests install an in-memory engine with Install.
//
// Entry points taking ntg_media_description_struct by value are normalized
// to a pointer parameter here; the platform-specific binding in
// func_bind_sysv.go / func_bind_windows.go adapts it to the native ABI.
type Bindings struct {
	Init         func() uint32
	Destroy      func(uid uint32) int32
	GetParams    func(uid uint32, chatID int64, desc *MediaDescription, buffer *byte, size int32) int32
	Connect      func(uid uint32, chatID int64, params *byte) int32
	ChangeStream func(uid uint32, chatID int64, desc *MediaDescription) int32
	Pause        func(uid uint32, chatID int64) int32
	Resume       func(uid uint32, chatID int64) int32
	Mute         func(uid uint32, chatID int64) int32
	Unmute       func(uid uint32, chatID int64) int32
	Stop         func(uid uint32, chatID int64) int32
	Time         func(uid uint32, chatID int64) int64
	GetState     func(uid uint32, chatID int64, state *MediaState) int32
	Calls        func(uid uint32, buffer *GroupCall, size int32) int32
	CallsCount   func(uid uint32) int32
	OnStreamEnd  func(uid uint32, callback uintptr) int32
	OnUpgrade    func(uid uint32, callback uintptr) int32
	OnDisconnect func(uid uint32, callback uintptr) int32
	GetVersion   func(buffer *byte, size int32) int32
	// CPUUsage is optional; older engine builds do not export it.
	CPUUsage func(uid uint32, usage *float64) int32

	// NewCallback turns a Go function into a C function pointer.
	// Defaults to purego.NewCallback.
	NewCallback func(fn any) uintptr
}

var fns Bindings

// Install replaces the entry-point table and marks the library as loaded.
// The returned function restores the previous state.
func Install(b Bindings) (restore func()) {
	libMu.Lock()
	defer libMu.Unlock()

	if b.NewCallback == nil {
		b.NewCallback = purego.NewCallback
	}

	prev := fns
	prevLoaded := libLoaded.Load()

	fns = b
	resetCallbacks()
	libLoaded.Store(true)

	return func() {
		libMu.Lock()
		defer libMu.Unlock()
		fns = prev
		resetCallbacks()
		libLoaded.Store(prevLoaded)
	}
}
