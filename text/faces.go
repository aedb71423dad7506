// Package text provides font faces, single-line text measurement and a glyph
// atlas for the compositor.
//
// Fonts are parsed with golang.org/x/image/font/opentype. The Go fonts are
// registered by default:
//
//   - "sans" (goregular)
//   - "mono" (gomono)
//   - "bold" (gobold)
//
// Unknown family names fall back to sans. Shaping is not performed: glyphs are
// laid out by advance width and kerning only.
package text

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/agiangrant/sjik/tw"
)

// Measurer measures a single line of text.
type Measurer interface {
	Measure(s string, f tw.Font) (width, height float32)
}

type faceKey struct {
	family tw.FontFamily
	size   float32
}

// Faces caches parsed fonts and sized faces. It is safe for concurrent use.
type Faces struct {
	mu    sync.Mutex
	fonts map[tw.FontFamily]*opentype.Font
	faces map[faceKey]font.Face
}

// NewFaces returns a cache with the Go fonts registered.
func NewFaces() *Faces {
	f := &Faces{
		fonts: make(map[tw.FontFamily]*opentype.Font),
		faces: make(map[faceKey]font.Face),
	}
	builtin := map[tw.FontFamily][]byte{
		tw.FamilySans: goregular.TTF,
		tw.FamilyMono: gomono.TTF,
		"bold":        gobold.TTF,
	}
	for family, ttf := range builtin {
		if err := f.Register(family, ttf); err != nil {
			panic(fmt.Sprintf("text: builtin font %s: %v", family, err))
		}
	}
	return f
}

// Register parses a TTF/OTF font and makes it available under family.
func (f *Faces) Register(family tw.FontFamily, data []byte) error {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %q: %w", family, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fonts[family] = parsed
	for k, face := range f.faces {
		if k.family == family {
			_ = face.Close()
			delete(f.faces, k)
		}
	}
	return nil
}

// Face returns the face for fnt, creating it on first use.
func (f *Faces) Face(fnt tw.Font) (font.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faceLocked(fnt)
}

func (f *Faces) faceLocked(fnt tw.Font) (font.Face, error) {
	if fnt.Size <= 0 {
		fnt.Size = tw.DefaultFontSize
	}
	if _, ok := f.fonts[fnt.Family]; !ok {
		fnt.Family = tw.FamilySans
	}
	key := faceKey{fnt.Family, fnt.Size}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}

	face, err := opentype.NewFace(f.fonts[fnt.Family], &opentype.FaceOptions{
		Size:    float64(fnt.Size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face %s/%v: %w", fnt.Family, fnt.Size, err)
	}
	f.faces[key] = face
	return face, nil
}

// Do runs fn with the face for fnt while holding the cache lock. Faces are
// not safe for concurrent use, so every rasterization goes through Do.
func (f *Faces) Do(fnt tw.Font, fn func(font.Face)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	face, err := f.faceLocked(fnt)
	if err != nil {
		return err
	}
	fn(face)
	return nil
}

// Measure returns the advance width of s and the line height of fnt.
func (f *Faces) Measure(s string, fnt tw.Font) (width, height float32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	face, err := f.faceLocked(fnt)
	if err != nil {
		return 0, 0
	}

	var adv fixed.Int26_6
	prev := rune(-1)
	for _, r := range s {
		if prev >= 0 {
			adv += face.Kern(prev, r)
		}
		a, ok := face.GlyphAdvance(r)
		if !ok {
			a, _ = face.GlyphAdvance('?')
		}
		adv += a
		prev = r
	}

	m := face.Metrics()
	return fixedToFloat(adv), fixedToFloat(m.Height)
}

// Close releases all cached faces.
func (f *Faces) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, face := range f.faces {
		_ = face.Close()
		delete(f.faces, k)
	}
	return nil
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
