package ffi

import (
	"fmt"

	"github.com/ebitengine/purego"
	"github.com/sirupsen/logrus"
)

// bindFunc resolves symbol in the loaded library and binds it to fptr.
func bindFunc(handle uintptr, fptr any, symbol string) error {
	sym, err := lookupSymbol(handle, symbol)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSymbolNotFound, symbol, err)
	}
	purego.RegisterFunc(fptr, sym)
	return nil
}

// registerFunctions populates the entry-point table from the engine library.
func registerFunctions(handle uintptr) error {
	b := Bindings{NewCallback: purego.NewCallback}

	required := []struct {
		fptr   any
		symbol string
	}{
		{&b.Init, "ntg_init"},
		{&b.Destroy, "ntg_destroy"},
		{&b.Connect, "ntg_connect"},
		{&b.Pause, "ntg_pause"},
		{&b.Resume, "ntg_resume"},
		{&b.Mute, "ntg_mute"},
		{&b.Unmute, "ntg_unmute"},
		{&b.Stop, "ntg_stop"},
		{&b.Time, "ntg_time"},
		{&b.GetState, "ntg_get_state"},
		{&b.Calls, "ntg_calls"},
		{&b.CallsCount, "ntg_calls_count"},
		{&b.OnStreamEnd, "ntg_on_stream_end"},
		{&b.OnUpgrade, "ntg_on_upgrade"},
		{&b.OnDisconnect, "ntg_on_disconnect"},
		{&b.GetVersion, "ntg_get_version"},
	}
	for _, fn := range required {
		if err := bindFunc(handle, fn.fptr, fn.symbol); err != nil {
			return err
		}
	}

	if err := bindMediaDescriptionFuncs(handle, &b); err != nil {
		return err
	}

	if err := bindFunc(handle, &b.CPUUsage, "ntg_cpu_usage"); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "registerFunctions",
			"symbol":   "ntg_cpu_usage",
		}).Debug("Optional engine symbol not exported")
		b.CPUUsage = nil
	}

	fns = b
	resetCallbacks()
	return nil
}
