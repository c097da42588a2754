package ntgcalls

import (
	"time"

	"github.com/thesyncim/libntgcalls/internal/metrics"
)

// Operation names used in error messages and metric labels.
const (
	opInit         = "init"
	opDestroy      = "destroy"
	opGetParams    = "get_params"
	opConnect      = "connect"
	opChangeStream = "change_stream"
	opStop         = "stop"
	opPause        = "pause"
	opResume       = "resume"
	opMute         = "mute"
	opUnmute       = "unmute"
	opTime         = "played_time"
	opGetState     = "get_state"
	opCallsCount   = "count_calls"
	opCalls        = "calls"
	opCPUUsage     = "cpu_usage"
	opVersion      = "version"
	opOnStreamEnd  = "on_stream_end"
	opOnUpgrade    = "on_upgrade"
	opOnDisconnect = "on_disconnect"
)

// record runs one native call and records its outcome.
func record(op string, call func() error) error {
	start := time.Now()
	err := call()
	metrics.RecordNativeCall(op, err, time.Since(start))
	return err
}
