package tw

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pelletier/go-toml/v2"
)

//go:embed palette.toml
var defaultPaletteTOML []byte

// Palette maps a color family to its shades, each an sRGB triple.
//
//	[blue]
//	"500" = [59, 130, 246]
type Palette map[string]map[string][3]uint8

// LoadPalette decodes a TOML palette.
func LoadPalette(r io.Reader) (Palette, error) {
	var p Palette
	if err := toml.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode palette: %w", err)
	}
	return p, nil
}

var defaultPalette = sync.OnceValue(func() Palette {
	var p Palette
	if err := toml.Unmarshal(defaultPaletteTOML, &p); err != nil {
		panic(fmt.Sprintf("tw: embedded palette: %v", err))
	}
	return p
})

// DefaultPalette returns the built-in palette. The returned map must not be
// modified.
func DefaultPalette() Palette {
	return defaultPalette()
}

// registeredPalette holds the consumer's palette, merged over the default.
// If nil, the default palette is used.
var registeredPalette atomic.Pointer[Palette]

// SetPalette registers additional or overriding colors. Families present in
// p replace shade-by-shade the default ones. Passing nil restores the
// default palette.
//
// SetPalette should be called at startup before any styles are resolved;
// styles resolved earlier are not recomputed.
func SetPalette(p Palette) {
	if p == nil {
		registeredPalette.Store(nil)
		return
	}
	merged := make(Palette, len(defaultPalette())+len(p))
	for family, shades := range defaultPalette() {
		m := make(map[string][3]uint8, len(shades))
		for k, v := range shades {
			m[k] = v
		}
		merged[family] = m
	}
	for family, shades := range p {
		m := merged[family]
		if m == nil {
			m = make(map[string][3]uint8, len(shades))
			merged[family] = m
		}
		for k, v := range shades {
			m[k] = v
		}
	}
	registeredPalette.Store(&merged)
}

// ActivePalette returns the palette used by Resolve.
func ActivePalette() Palette {
	if p := registeredPalette.Load(); p != nil {
		return *p
	}
	return defaultPalette()
}

// Shade returns the color for family-shade.
func (p Palette) Shade(family, shade string) ([3]uint8, bool) {
	shades, ok := p[family]
	if !ok {
		return [3]uint8{}, false
	}
	rgb, ok := shades[shade]
	return rgb, ok
}

// defaultShade is used when a class names only a family (e.g. bg-blue).
const defaultShade = "500"

// Family returns the representative color of a family: its 500 shade, or the
// lightest shade when the family has no 500.
func (p Palette) Family(family string) ([3]uint8, bool) {
	shades, ok := p[family]
	if !ok || len(shades) == 0 {
		return [3]uint8{}, false
	}
	if rgb, ok := shades[defaultShade]; ok {
		return rgb, true
	}
	keys := make([]string, 0, len(shades))
	for k := range shades {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return shades[keys[0]], true
}
