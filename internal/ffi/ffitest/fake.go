// Package ffitest provides an in-memory engine that stands in for the
// native library in tests.
package ffitest

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unsafe"

	"github.com/thesyncim/libntgcalls/internal/ffi"
)

// DefaultVersion is the version string reported by a new Engine.
const DefaultVersion = "1.1.3"

// Operation names accepted by Fail and NativeCalls.
const (
	OpInit         = "init"
	OpDestroy      = "destroy"
	OpGetParams    = "get_params"
	OpConnect      = "connect"
	OpChangeStream = "change_stream"
	OpPause        = "pause"
	OpResume       = "resume"
	OpMute         = "mute"
	OpUnmute       = "unmute"
	OpStop         = "stop"
	OpTime         = "time"
	OpGetState     = "get_state"
	OpCalls        = "calls"
	OpCallsCount   = "calls_count"
	OpOnStreamEnd  = "on_stream_end"
	OpOnUpgrade    = "on_upgrade"
	OpOnDisconnect = "on_disconnect"
	OpGetVersion   = "get_version"
	OpCPUUsage     = "cpu_usage"
)

// Stream records the media description a call was configured with.
type Stream struct {
	AudioInput    string
	AudioMode     int32
	SampleRate    uint32
	BitsPerSample uint8
	ChannelCount  uint8
	HasAudio      bool

	VideoInput string
	VideoMode  int32
	Width      uint16
	Height     uint16
	FPS        uint8
	HasVideo   bool
}

type call struct {
	stream Stream
	state  ffi.MediaState
	status ffi.StreamStatus
	played int64
}

type instance struct {
	pending map[int64]*call
	active  map[int64]*call
	order   []int64

	streamEnd  uintptr
	upgrade    uintptr
	disconnect uintptr
}

// Engine is a goroutine-safe fake of the native engine. Its semantics follow
// the documented result codes: unknown uids report NtgInvalidUID, unknown
// chats NtgConnectionNotFound, and short buffers NtgErrTooSmall.
type Engine struct {
	mu        sync.Mutex
	nextUID   uint32
	instances map[uint32]*instance
	failures  map[string]int32
	calls     map[string]int
	funcs     map[uintptr]any
	nextFunc  uintptr

	version       string
	paramsPadding int
	cpuUsage      float64
	noCPUUsage    bool

	// BeforeCallsFill runs between the count and fill phases of a call
	// listing, outside the engine lock.
	BeforeCallsFill func()

	// BeforeDestroy runs at the start of destroy, outside the engine lock,
	// where a real engine joins its worker threads.
	BeforeDestroy func(uid uint32)
}

// New returns an empty engine.
func New() *Engine {
	return &Engine{
		instances: make(map[uint32]*instance),
		failures:  make(map[string]int32),
		calls:     make(map[string]int),
		funcs:     make(map[uintptr]any),
		version:   DefaultVersion,
		cpuUsage:  0.5,
	}
}

// Install creates an engine, installs it as the entry-point table and
// restores the previous table when the test ends.
func Install(tb testing.TB) *Engine {
	tb.Helper()
	e := New()
	restore := ffi.Install(e.Bindings())
	tb.Cleanup(restore)
	return e
}

// InstallWithoutCPUUsage is like Install but leaves the optional cpu usage
// entry point unbound, as older engine builds do.
func InstallWithoutCPUUsage(tb testing.TB) *Engine {
	tb.Helper()
	e := New()
	e.noCPUUsage = true
	restore := ffi.Install(e.Bindings())
	tb.Cleanup(restore)
	return e
}

// Bindings returns the entry-point table backed by e.
func (e *Engine) Bindings() ffi.Bindings {
	b := ffi.Bindings{
		Init:         e.newInstance,
		Destroy:      e.destroy,
		GetParams:    e.getParams,
		Connect:      e.connect,
		ChangeStream: e.changeStream,
		Pause:        e.pause,
		Resume:       e.resume,
		Mute:         e.mute,
		Unmute:       e.unmute,
		Stop:         e.stop,
		Time:         e.time,
		GetState:     e.getState,
		Calls:        e.fillCalls,
		CallsCount:   e.callsCount,
		OnStreamEnd:  e.onStreamEnd,
		OnUpgrade:    e.onUpgrade,
		OnDisconnect: e.onDisconnect,
		GetVersion:   e.getVersion,
		CPUUsage:     e.getCPUUsage,
		NewCallback:  e.newCallback,
	}
	if e.noCPUUsage {
		b.CPUUsage = nil
	}
	return b
}

// Fail makes the next invocation of op return code.
func (e *Engine) Fail(op string, code int32) {
	e.mu.Lock()
	e.failures[op] = code
	e.mu.Unlock()
}

// NativeCalls reports how often op was invoked.
func (e *Engine) NativeCalls(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[op]
}

// SetVersion changes the reported version string.
func (e *Engine) SetVersion(v string) {
	e.mu.Lock()
	e.version = v
	e.mu.Unlock()
}

// SetParamsPadding grows every params blob by n bytes.
func (e *Engine) SetParamsPadding(n int) {
	e.mu.Lock()
	e.paramsPadding = n
	e.mu.Unlock()
}

// SetCPUUsage changes the reported cpu usage.
func (e *Engine) SetCPUUsage(v float64) {
	e.mu.Lock()
	e.cpuUsage = v
	e.mu.Unlock()
}

// SetPlayedTime changes the played time of a connected call.
func (e *Engine) SetPlayedTime(uid uint32, chatID int64, played int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c := e.activeCall(uid, chatID); c != nil {
		c.played = played
	}
}

// AddCall inserts a connected call directly.
func (e *Engine) AddCall(uid uint32, chatID int64, status ffi.StreamStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst := e.instances[uid]
	if inst == nil {
		return
	}
	if _, ok := inst.active[chatID]; !ok {
		inst.order = append(inst.order, chatID)
	}
	inst.active[chatID] = &call{status: status}
}

// Live reports whether uid is an instance that was not destroyed.
func (e *Engine) Live(uid uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instances[uid] != nil
}

// Instances returns the number of live instances.
func (e *Engine) Instances() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.instances)
}

// StreamOf returns the media description recorded for a call.
func (e *Engine) StreamOf(uid uint32, chatID int64) (Stream, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst := e.instances[uid]
	if inst == nil {
		return Stream{}, false
	}
	if c := inst.active[chatID]; c != nil {
		return c.stream, true
	}
	if c := inst.pending[chatID]; c != nil {
		return c.stream, true
	}
	return Stream{}, false
}

// EndStream fires the stream-end callback registered for uid.
func (e *Engine) EndStream(uid uint32, chatID int64, streamType ffi.StreamType) bool {
	fn := e.callback(uid, func(inst *instance) uintptr { return inst.streamEnd })
	cb, ok := fn.(func(uint32, int64, int32))
	if !ok {
		return false
	}
	cb(uid, chatID, int32(streamType))
	return true
}

// Upgrade fires the media-upgrade callback registered for uid.
func (e *Engine) Upgrade(uid uint32, chatID int64, state ffi.MediaState) bool {
	fn := e.callback(uid, func(inst *instance) uintptr { return inst.upgrade })
	switch cb := fn.(type) {
	case func(uint32, int64, uintptr):
		cb(uid, chatID, packState(state))
	case func(uint32, int64, *ffi.MediaState):
		cb(uid, chatID, &state)
	default:
		return false
	}
	return true
}

// Disconnect fires the disconnect callback registered for uid.
func (e *Engine) Disconnect(uid uint32, chatID int64) bool {
	fn := e.callback(uid, func(inst *instance) uintptr { return inst.disconnect })
	cb, ok := fn.(func(uint32, int64))
	if !ok {
		return false
	}
	cb(uid, chatID)
	return true
}

func (e *Engine) callback(uid uint32, pick func(*instance) uintptr) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst := e.instances[uid]
	if inst == nil {
		return nil
	}
	return e.funcs[pick(inst)]
}

func packState(state ffi.MediaState) uintptr {
	var v uintptr
	if state.Muted {
		v |= 1
	}
	if state.VideoPaused {
		v |= 1 << 8
	}
	if state.VideoStopped {
		v |= 1 << 16
	}
	return v
}

// enter records an invocation and returns an injected failure, if any.
// Must hold e.mu.
func (e *Engine) enter(op string) (int32, bool) {
	e.calls[op]++
	if code, ok := e.failures[op]; ok {
		delete(e.failures, op)
		return code, true
	}
	return 0, false
}

func (e *Engine) activeCall(uid uint32, chatID int64) *call {
	inst := e.instances[uid]
	if inst == nil {
		return nil
	}
	return inst.active[chatID]
}

// lookup resolves a connected call, returning the result code on failure.
func (e *Engine) lookup(uid uint32, chatID int64) (*call, int32) {
	inst := e.instances[uid]
	if inst == nil {
		return nil, ffi.NtgInvalidUID
	}
	c := inst.active[chatID]
	if c == nil {
		return nil, ffi.NtgConnectionNotFound
	}
	return c, ffi.NtgOK
}

func (e *Engine) newInstance() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[OpInit]++
	uid := e.nextUID
	e.nextUID++
	e.instances[uid] = &instance{
		pending: make(map[int64]*call),
		active:  make(map[int64]*call),
	}
	return uid
}

func (e *Engine) destroy(uid uint32) int32 {
	e.mu.Lock()
	hook := e.BeforeDestroy
	e.mu.Unlock()
	if hook != nil {
		hook(uid)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpDestroy); ok {
		return code
	}
	if e.instances[uid] == nil {
		return ffi.NtgInvalidUID
	}
	delete(e.instances, uid)
	return ffi.NtgOK
}

func readStream(desc *ffi.MediaDescription) (Stream, int32) {
	var s Stream
	if desc == nil {
		return s, ffi.NtgOK
	}
	if a := desc.Audio; a != nil {
		s.HasAudio = true
		s.AudioMode = a.InputMode
		s.AudioInput = ffi.GoString(a.Input)
		s.SampleRate = a.SampleRate
		s.BitsPerSample = a.BitsPerSample
		s.ChannelCount = a.ChannelCount
		if code := checkInput(a.InputMode, s.AudioInput); code != ffi.NtgOK {
			return Stream{}, code
		}
	}
	if v := desc.Video; v != nil {
		s.HasVideo = true
		s.VideoMode = v.InputMode
		s.VideoInput = ffi.GoString(v.Input)
		s.Width = v.Width
		s.Height = v.Height
		s.FPS = v.FPS
		if code := checkInput(v.InputMode, s.VideoInput); code != ffi.NtgOK {
			return Stream{}, code
		}
	}
	return s, ffi.NtgOK
}

// checkInput mimics the engine's source validation. Inputs starting with
// "missing" do not exist.
func checkInput(mode int32, input string) int32 {
	if !strings.HasPrefix(input, "missing") {
		return ffi.NtgOK
	}
	switch {
	case mode&int32(ffi.InputModeShell) != 0:
		return ffi.NtgShellError
	case mode&int32(ffi.InputModeFFmpeg) != 0:
		return ffi.NtgFFmpegNotFound
	default:
		return ffi.NtgFileNotFound
	}
}

// joinPayload mirrors the JSON blob the engine hands out from get_params.
type joinPayload struct {
	Ufrag        string        `json:"ufrag"`
	Pwd          string        `json:"pwd"`
	Fingerprints []fingerprint `json:"fingerprints"`
	SSRC         uint32        `json:"ssrc"`
	SSRCGroups   []ssrcGroup   `json:"ssrc-groups"`
	Padding      string        `json:"padding,omitempty"`
}

type fingerprint struct {
	Hash        string `json:"hash"`
	Setup       string `json:"setup"`
	Fingerprint string `json:"fingerprint"`
}

type ssrcGroup struct {
	Semantics string   `json:"semantics"`
	Sources   []uint32 `json:"sources"`
}

// ParamsFor returns the params blob the engine produces for a call.
func (e *Engine) ParamsFor(uid uint32, chatID int64) string {
	e.mu.Lock()
	padding := e.paramsPadding
	e.mu.Unlock()
	return paramsBlob(uid, chatID, padding)
}

func paramsBlob(uid uint32, chatID int64, padding int) string {
	ssrc := uint32(chatID)*31 + uid + 1
	p := joinPayload{
		Ufrag: fmt.Sprintf("uf%d%d", uid, chatID),
		Pwd:   fmt.Sprintf("pwd-%d-%d-0123456789abcdef", uid, chatID),
		Fingerprints: []fingerprint{{
			Hash:        "sha-256",
			Setup:       "active",
			Fingerprint: "AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89",
		}},
		SSRC:       ssrc,
		SSRCGroups: []ssrcGroup{{Semantics: "FID", Sources: []uint32{ssrc + 1, ssrc + 2}}},
		Padding:    strings.Repeat("x", padding),
	}
	out, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	return string(out)
}

// writeString copies s and a terminating NUL into the caller buffer.
func writeString(buffer *byte, size int32, s string) int32 {
	if int(size) < len(s)+1 {
		return ffi.NtgErrTooSmall
	}
	dst := unsafe.Slice(buffer, size)
	copy(dst, s)
	dst[len(s)] = 0
	return ffi.NtgOK
}

func (e *Engine) getParams(uid uint32, chatID int64, desc *ffi.MediaDescription, buffer *byte, size int32) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpGetParams); ok {
		return code
	}
	inst := e.instances[uid]
	if inst == nil {
		return ffi.NtgInvalidUID
	}
	if inst.pending[chatID] != nil || inst.active[chatID] != nil {
		return ffi.NtgConnectionAlreadyExists
	}
	stream, code := readStream(desc)
	if code != ffi.NtgOK {
		return code
	}
	if code := writeString(buffer, size, paramsBlob(uid, chatID, e.paramsPadding)); code != ffi.NtgOK {
		return code
	}
	inst.pending[chatID] = &call{stream: stream, status: ffi.StreamStatusPlaying}
	return ffi.NtgOK
}

func (e *Engine) connect(uid uint32, chatID int64, params *byte) int32 {
	blob := ffi.GoString(params)

	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpConnect); ok {
		return code
	}
	inst := e.instances[uid]
	if inst == nil {
		return ffi.NtgInvalidUID
	}
	c := inst.pending[chatID]
	if c == nil {
		return ffi.NtgConnectionNotFound
	}

	var answer struct {
		Transport *json.RawMessage `json:"transport"`
		RTMP      bool             `json:"rtmp"`
	}
	if err := json.Unmarshal([]byte(blob), &answer); err != nil {
		return ffi.NtgInvalidTransport
	}
	if answer.RTMP {
		return ffi.NtgRTMPNeeded
	}
	if answer.Transport == nil {
		return ffi.NtgInvalidTransport
	}

	delete(inst.pending, chatID)
	inst.active[chatID] = c
	inst.order = append(inst.order, chatID)
	return ffi.NtgOK
}

func (e *Engine) changeStream(uid uint32, chatID int64, desc *ffi.MediaDescription) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpChangeStream); ok {
		return code
	}
	c, code := e.lookup(uid, chatID)
	if code != ffi.NtgOK {
		return code
	}
	stream, code := readStream(desc)
	if code != ffi.NtgOK {
		return code
	}
	c.stream = stream
	c.status = ffi.StreamStatusPlaying
	return ffi.NtgOK
}

// toggle flips a flag, returning 1 when it already had the wanted value.
func (e *Engine) toggle(op string, uid uint32, chatID int64, apply func(c *call) bool) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(op); ok {
		return code
	}
	c, code := e.lookup(uid, chatID)
	if code != ffi.NtgOK {
		return code
	}
	if !apply(c) {
		return 1
	}
	return ffi.NtgOK
}

func (e *Engine) pause(uid uint32, chatID int64) int32 {
	return e.toggle(OpPause, uid, chatID, func(c *call) bool {
		if c.status == ffi.StreamStatusPaused {
			return false
		}
		c.status = ffi.StreamStatusPaused
		c.state.VideoPaused = true
		return true
	})
}

func (e *Engine) resume(uid uint32, chatID int64) int32 {
	return e.toggle(OpResume, uid, chatID, func(c *call) bool {
		if c.status != ffi.StreamStatusPaused {
			return false
		}
		c.status = ffi.StreamStatusPlaying
		c.state.VideoPaused = false
		return true
	})
}

func (e *Engine) mute(uid uint32, chatID int64) int32 {
	return e.toggle(OpMute, uid, chatID, func(c *call) bool {
		if c.state.Muted {
			return false
		}
		c.state.Muted = true
		return true
	})
}

func (e *Engine) unmute(uid uint32, chatID int64) int32 {
	return e.toggle(OpUnmute, uid, chatID, func(c *call) bool {
		if !c.state.Muted {
			return false
		}
		c.state.Muted = false
		return true
	})
}

func (e *Engine) stop(uid uint32, chatID int64) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpStop); ok {
		return code
	}
	inst := e.instances[uid]
	if inst == nil {
		return ffi.NtgInvalidUID
	}
	if inst.pending[chatID] != nil {
		delete(inst.pending, chatID)
		return ffi.NtgOK
	}
	if inst.active[chatID] == nil {
		return ffi.NtgConnectionNotFound
	}
	delete(inst.active, chatID)
	for i, id := range inst.order {
		if id == chatID {
			inst.order = append(inst.order[:i], inst.order[i+1:]...)
			break
		}
	}
	return ffi.NtgOK
}

func (e *Engine) time(uid uint32, chatID int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpTime); ok {
		return int64(code)
	}
	c, code := e.lookup(uid, chatID)
	if code != ffi.NtgOK {
		return int64(code)
	}
	return c.played
}

func (e *Engine) getState(uid uint32, chatID int64, state *ffi.MediaState) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpGetState); ok {
		return code
	}
	c, code := e.lookup(uid, chatID)
	if code != ffi.NtgOK {
		return code
	}
	*state = c.state
	return ffi.NtgOK
}

func (e *Engine) callsCount(uid uint32) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpCallsCount); ok {
		return code
	}
	inst := e.instances[uid]
	if inst == nil {
		return ffi.NtgInvalidUID
	}
	return int32(len(inst.order))
}

func (e *Engine) fillCalls(uid uint32, buffer *ffi.GroupCall, size int32) int32 {
	e.mu.Lock()
	hook := e.BeforeCallsFill
	e.mu.Unlock()
	if hook != nil {
		hook()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpCalls); ok {
		return code
	}
	inst := e.instances[uid]
	if inst == nil {
		return ffi.NtgInvalidUID
	}
	if int(size) < len(inst.order) {
		return ffi.NtgErrTooSmall
	}
	dst := unsafe.Slice(buffer, size)
	for i, chatID := range inst.order {
		dst[i] = ffi.GroupCall{ChatID: chatID, Status: int32(inst.active[chatID].status)}
	}
	return ffi.NtgOK
}

func (e *Engine) register(op string, uid uint32, callback uintptr, slot func(*instance) *uintptr) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(op); ok {
		return code
	}
	inst := e.instances[uid]
	if inst == nil {
		return ffi.NtgInvalidUID
	}
	*slot(inst) = callback
	return ffi.NtgOK
}

func (e *Engine) onStreamEnd(uid uint32, callback uintptr) int32 {
	return e.register(OpOnStreamEnd, uid, callback, func(inst *instance) *uintptr { return &inst.streamEnd })
}

func (e *Engine) onUpgrade(uid uint32, callback uintptr) int32 {
	return e.register(OpOnUpgrade, uid, callback, func(inst *instance) *uintptr { return &inst.upgrade })
}

func (e *Engine) onDisconnect(uid uint32, callback uintptr) int32 {
	return e.register(OpOnDisconnect, uid, callback, func(inst *instance) *uintptr { return &inst.disconnect })
}

func (e *Engine) getVersion(buffer *byte, size int32) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpGetVersion); ok {
		return code
	}
	return writeString(buffer, size, e.version)
}

func (e *Engine) getCPUUsage(uid uint32, usage *float64) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.enter(OpCPUUsage); ok {
		return code
	}
	if e.instances[uid] == nil {
		return ffi.NtgInvalidUID
	}
	*usage = e.cpuUsage
	return ffi.NtgOK
}

// newCallback stands in for purego.NewCallback: the function is kept in a
// table and its key serves as the function pointer.
func (e *Engine) newCallback(fn any) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextFunc++
	e.funcs[e.nextFunc] = fn
	return e.nextFunc
}
