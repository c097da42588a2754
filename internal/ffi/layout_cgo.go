//go:build ffigo_cgo

package ffi

// C mirrors of the ntgcalls.h view types, compared against the Go views in
// struct_layout_cgo_test.go.

/*
#include <stdbool.h>
#include <stdint.h>

typedef enum {
    NTG_FILE = 1 << 0,
    NTG_SHELL = 1 << 1,
    NTG_FFMPEG = 1 << 2,
    NTG_NO_LATENCY = 1 << 3,
} ntg_input_mode_enum;

typedef struct {
    ntg_input_mode_enum inputMode;
    char* input;
    uint32_t sampleRate;
    uint8_t bitsPerSample;
    uint8_t channelCount;
} ntg_audio_description_struct;

typedef struct {
    ntg_input_mode_enum inputMode;
    char* input;
    uint16_t width;
    uint16_t height;
    uint8_t fps;
} ntg_video_description_struct;

typedef struct {
    ntg_audio_description_struct* audio;
    ntg_video_description_struct* video;
} ntg_media_description_struct;

typedef enum {
    NTG_PLAYING,
    NTG_PAUSED,
    NTG_IDLING,
} ntg_stream_status_enum;

typedef struct {
    int64_t chatId;
    ntg_stream_status_enum status;
} ntg_group_call_struct;

typedef struct {
    bool muted;
    bool videoPaused;
    bool videoStopped;
} ntg_media_state_struct;
*/
import "C"

type cAudioDescription C.ntg_audio_description_struct
type cVideoDescription C.ntg_video_description_struct
type cMediaDescription C.ntg_media_description_struct
type cGroupCall C.ntg_group_call_struct
type cMediaState C.ntg_media_state_struct

