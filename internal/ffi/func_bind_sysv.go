//go:build !windows

package ffi

// On SysV x86-64 and AAPCS64 a 16-byte aggregate of two pointers is passed
// in two consecutive integer registers, exactly like two pointer arguments.
// ntg_media_description_struct is bound that way.
func bindMediaDescriptionFuncs(handle uintptr, b *Bindings) error {
	var getParams func(uid uint32, chatID int64, audio *AudioDescription, video *VideoDescription, buffer *byte, size int32) int32
	if err := bindFunc(handle, &getParams, "ntg_get_params"); err != nil {
		return err
	}
	var changeStream func(uid uint32, chatID int64, audio *AudioDescription, video *VideoDescription) int32
	if err := bindFunc(handle, &changeStream, "ntg_change_stream"); err != nil {
		return err
	}

	b.GetParams = func(uid uint32, chatID int64, desc *MediaDescription, buffer *byte, size int32) int32 {
		return getParams(uid, chatID, desc.Audio, desc.Video, buffer, size)
	}
	b.ChangeStream = func(uid uint32, chatID int64, desc *MediaDescription) int32 {
		return changeStream(uid, chatID, desc.Audio, desc.Video)
	}
	return nil
}

// upgradeTrampoline receives ntg_media_state_struct (3 bytes) packed into a
// single integer register, one bool per byte.
func upgradeTrampoline(uid uint32, chatID int64, state uintptr) {
	dispatchUpgrade(uid, chatID, MediaState{
		Muted:        state&0xff != 0,
		VideoPaused:  (state>>8)&0xff != 0,
		VideoStopped: (state>>16)&0xff != 0,
	})
}
