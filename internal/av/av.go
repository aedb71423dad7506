// Package av opens media files and streams as media.Sources.
//
// The FFmpeg-backed implementation needs cgo and the FFmpeg development
// libraries and is compiled with the ffmpeg build tag. Without it Open
// returns ErrUnavailable.
package av

import "errors"

// ErrUnavailable is returned by Open when the binary was built without
// FFmpeg support.
var ErrUnavailable = errors.New("av: built without ffmpeg support (rebuild with -tags ffmpeg)")

// Filter graphs applied to decoded frames. Video is converted to planar
// 4:2:0; audio is resampled to 48 kHz interleaved stereo s32.
const (
	VideoFilter = "format=pix_fmts=yuv420p"
	AudioFilter = "aresample=48000,aformat=sample_fmts=s32:channel_layouts=stereo"
)

// nanosecond is the time base of every timestamp a Source produces.
const nanosecond = 1_000_000_000

// packedLinesizes returns the strides of a tightly packed 4:2:0 image.
func packedLinesizes(width int) []int {
	chroma := (width + 1) / 2
	return []int{width, chroma, chroma}
}
