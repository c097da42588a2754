package ntgcalls

import (
	"github.com/thesyncim/libntgcalls/internal/ffi"
	"github.com/thesyncim/libntgcalls/pkg/media"
)

// projection owns the native views of a media description and the
// NUL-terminated input buffers they point into. It must stay reachable for
// the duration of the native call it is passed to.
type projection struct {
	desc       ffi.MediaDescription
	audio      ffi.AudioDescription
	video      ffi.VideoDescription
	audioInput []byte
	videoInput []byte
}

func project(d media.MediaDescription) *projection {
	p := &projection{}
	if a := d.Audio; a != nil {
		p.audioInput = ffi.CString(a.Input)
		p.audio = ffi.AudioDescription{
			InputMode:     int32(a.InputMode),
			Input:         &p.audioInput[0],
			SampleRate:    a.SampleRate,
			BitsPerSample: a.BitsPerSample,
			ChannelCount:  a.ChannelCount,
		}
		p.desc.Audio = &p.audio
	}
	if v := d.Video; v != nil {
		p.videoInput = ffi.CString(v.Input)
		p.video = ffi.VideoDescription{
			InputMode: int32(v.InputMode),
			Input:     &p.videoInput[0],
			Width:     v.Width,
			Height:    v.Height,
			FPS:       v.FPS,
		}
		p.desc.Video = &p.video
	}
	return p
}

func decodeState(s ffi.MediaState) media.MediaState {
	return media.MediaState{
		Muted:        s.Muted,
		VideoPaused:  s.VideoPaused,
		VideoStopped: s.VideoStopped,
	}
}

func decodeCalls(calls []ffi.GroupCall) []media.GroupCall {
	out := make([]media.GroupCall, len(calls))
	for i, c := range calls {
		out[i] = media.GroupCall{ChatID: c.ChatID, Status: media.StreamStatus(c.Status)}
	}
	return out
}
