package retained

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageLoader resolves an img src to decoded pixels.
type ImageLoader interface {
	Load(src string) (*image.RGBA, error)
}

// ImageLoaderFunc adapts a function to ImageLoader.
type ImageLoaderFunc func(src string) (*image.RGBA, error)

// Load calls f(src).
func (f ImageLoaderFunc) Load(src string) (*image.RGBA, error) { return f(src) }

// AssetLoader loads images from a directory. PNG, JPEG, GIF, BMP and WebP
// are decoded; SVG is rasterized at its viewBox size.
type AssetLoader struct {
	Dir string
}

// Load decodes Dir/src. Paths escaping Dir are rejected.
func (l AssetLoader) Load(src string) (*image.RGBA, error) {
	clean := filepath.Clean("/" + src)
	path := filepath.Join(l.Dir, clean)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", src, err)
	}

	if isSVG(src, data) {
		img, err := rasterizeSVG(data)
		if err != nil {
			return nil, fmt.Errorf("parse svg %s: %w", src, err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", src, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA converts img to a tightly packed RGBA image with origin (0,0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
