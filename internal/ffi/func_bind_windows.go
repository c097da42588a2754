//go:build windows

package ffi

// The Windows x64 convention passes aggregates larger than 8 bytes by
// reference to a caller-owned copy, so ntg_media_description_struct is
// bound as a single pointer.
func bindMediaDescriptionFuncs(handle uintptr, b *Bindings) error {
	if err := bindFunc(handle, &b.GetParams, "ntg_get_params"); err != nil {
		return err
	}
	return bindFunc(handle, &b.ChangeStream, "ntg_change_stream")
}

// upgradeTrampoline receives ntg_media_state_struct by reference: a 3-byte
// aggregate is not a power-of-two size, so Windows x64 does not pass it in
// a register.
func upgradeTrampoline(uid uint32, chatID int64, state *MediaState) {
	if state == nil {
		return
	}
	dispatchUpgrade(uid, chatID, *state)
}
