package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandle is returned for a handle that was never issued or
	// names a different kind of resource.
	ErrInvalidHandle = errors.New("gpu: invalid handle")

	// ErrReleased is returned for a handle whose resource was destroyed.
	ErrReleased = errors.New("gpu: resource released")
)

// Kind identifies the resource type a Handle refers to.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBuffer
	KindTexture
	KindView
	KindSampler
	KindBindGroupLayout
	KindBindGroup
	KindPipeline
)

func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	case KindView:
		return "view"
	case KindSampler:
		return "sampler"
	case KindBindGroupLayout:
		return "bind group layout"
	case KindBindGroup:
		return "bind group"
	case KindPipeline:
		return "pipeline"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

const (
	kindShift = 56
	indexMask = 1<<kindShift - 1
)

// Handle is an opaque reference to a GPU resource owned by a Manager. The
// top byte holds the Kind; the rest is an index that is never reused.
type Handle uint64

// InvalidHandle is the zero handle. It never refers to a resource.
const InvalidHandle Handle = 0

func makeHandle(k Kind, index uint64) Handle {
	return Handle(uint64(k)<<kindShift | index&indexMask)
}

// Kind returns the resource kind encoded in h.
func (h Handle) Kind() Kind { return Kind(h >> kindShift) }

func (h Handle) index() uint64 { return uint64(h) & indexMask }

// Valid reports whether h is non-zero and carries a known kind.
func (h Handle) Valid() bool {
	return h.index() != 0 && h.Kind() > KindInvalid && h.Kind() <= KindPipeline
}

func (h Handle) String() string {
	if h == InvalidHandle {
		return "gpu.Handle(invalid)"
	}
	return fmt.Sprintf("gpu.Handle(%s#%d)", h.Kind(), h.index())
}
