package retained

import (
	"image"
	"slices"
	"sync"
)

// TextureID identifies an image owned by the texture manager. IDs are never
// reused; 0 means no texture.
type TextureID uint64

// NoTexture is the zero TextureID.
const NoTexture TextureID = 0

// TextureSet is a pending upload.
type TextureSet struct {
	ID    TextureID
	Image *image.RGBA
}

// Delta is the set of texture changes since the last TakeDelta. Sets are
// ordered by submission; a texture never appears in both lists.
type Delta struct {
	Set  []TextureSet
	Free []TextureID
}

// Empty reports whether the delta carries no work.
func (d Delta) Empty() bool { return len(d.Set) == 0 && len(d.Free) == 0 }

// Textures issues texture IDs and records pending uploads and releases for
// the compositor to apply. It is safe for concurrent use.
type Textures struct {
	mu      sync.Mutex
	next    TextureID
	live    map[TextureID]struct{}
	fresh   map[TextureID]struct{}
	pending []TextureSet
	freed   []TextureID
}

// NewTextures returns an empty manager.
func NewTextures() *Textures {
	return &Textures{
		live:  make(map[TextureID]struct{}),
		fresh: make(map[TextureID]struct{}),
	}
}

// Alloc issues a new ID for img and queues its upload.
func (t *Textures) Alloc(img *image.RGBA) TextureID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	id := t.next
	t.live[id] = struct{}{}
	t.fresh[id] = struct{}{}
	t.pending = append(t.pending, TextureSet{ID: id, Image: img})
	return id
}

// Set queues a replacement upload for a live texture. A newer Set for the same
// ID supersedes an older pending one.
func (t *Textures) Set(id TextureID, img *image.RGBA) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.live[id]; !ok {
		return false
	}
	for i := range t.pending {
		if t.pending[i].ID == id {
			t.pending[i].Image = img
			return true
		}
	}
	t.pending = append(t.pending, TextureSet{ID: id, Image: img})
	return true
}

// Free releases id. A pending upload for id is dropped; a texture that was
// never handed to the compositor produces no release.
func (t *Textures) Free(id TextureID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.live[id]; !ok {
		return
	}
	delete(t.live, id)
	t.pending = slices.DeleteFunc(t.pending, func(s TextureSet) bool { return s.ID == id })
	if _, ok := t.fresh[id]; ok {
		delete(t.fresh, id)
		return
	}
	t.freed = append(t.freed, id)
}

// Live reports whether id has been allocated and not freed.
func (t *Textures) Live(id TextureID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.live[id]
	return ok
}

// LiveCount returns the number of live textures.
func (t *Textures) LiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// TakeDelta drains the pending uploads and releases.
func (t *Textures) TakeDelta() Delta {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := Delta{Set: t.pending, Free: t.freed}
	t.pending = nil
	t.freed = nil
	clear(t.fresh)
	return d
}
