//go:build !ffmpeg

package av

import "github.com/agiangrant/sjik/media"

// Open reports ErrUnavailable.
func Open(url, hwaccel string) (media.Source, error) {
	return nil, ErrUnavailable
}
