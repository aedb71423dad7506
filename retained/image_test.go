package retained

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agiangrant/sjik/tw"
)

const redSquareSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10" viewBox="0 0 10 10">
<rect x="0" y="0" width="10" height="10" fill="#ff0000"/>
</svg>`

func writeAsset(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newAssetDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	f, err := os.Create(filepath.Join(dir, "dot.png"))
	if err != nil {
		t.Fatal(err)
	}
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.RGBA{0, 255, 0, 255})
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	writeAsset(t, dir, "icon.svg", []byte(redSquareSVG))
	writeAsset(t, dir, "icon.img", []byte(redSquareSVG))
	writeAsset(t, dir, "broken.svg", []byte(`<svg viewBox="0 0 10 10"><rect width="4"`))
	writeAsset(t, dir, "empty.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`))
	writeAsset(t, dir, "notes.txt", []byte("plain text"))
	return dir
}

func TestAssetLoader(t *testing.T) {
	dir := newAssetDir(t)
	loader := AssetLoader{Dir: dir}

	tests := []struct {
		name     string
		src      string
		wantErr  string
		validate func(*testing.T, *image.RGBA)
	}{
		{
			name: "png",
			src:  "dot.png",
			validate: func(t *testing.T, img *image.RGBA) {
				if img.Bounds() != image.Rect(0, 0, 3, 2) {
					t.Errorf("bounds = %v", img.Bounds())
				}
				if c := img.RGBAAt(1, 1); c.G != 255 {
					t.Errorf("pixel = %v", c)
				}
			},
		},
		{
			name: "svg rasterized at its viewBox size",
			src:  "icon.svg",
			validate: func(t *testing.T, img *image.RGBA) {
				if img.Bounds() != image.Rect(0, 0, 10, 10) {
					t.Fatalf("bounds = %v, want 10x10", img.Bounds())
				}
				if c := img.RGBAAt(5, 5); c.R < 250 || c.G > 5 || c.A < 250 {
					t.Errorf("center pixel = %v, want opaque red", c)
				}
			},
		},
		{
			name: "svg recognized by content",
			src:  "icon.img",
			validate: func(t *testing.T, img *image.RGBA) {
				if img.Bounds().Dx() != 10 {
					t.Errorf("bounds = %v", img.Bounds())
				}
			},
		},
		{name: "malformed svg", src: "broken.svg", wantErr: "parse svg broken.svg"},
		{name: "svg without a size", src: "empty.svg", wantErr: "parse svg empty.svg"},
		{name: "unknown format", src: "notes.txt", wantErr: "decode image notes.txt"},
		{name: "missing file", src: "nope.png", wantErr: "open image nope.png"},
		{name: "paths stay inside the directory", src: "../" + filepath.Base(dir) + "/dot.png", wantErr: "open image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := loader.Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.validate(t, img)
		})
	}
}

func TestSVGImageSwap(t *testing.T) {
	ctx := StateContext{Images: AssetLoader{Dir: newAssetDir(t)}}
	d := newSizedDOM(200, 100)

	step(t, d, ctx, AppendChild{Parent: RootID, Node: img(2, "icon.svg")})
	n, _ := d.Get(2)
	first, ok := n.Image()
	if !ok || first.Size != (tw.ImageSize{10, 10}) {
		t.Fatalf("image = %+v", first)
	}

	step(t, d, ctx, SetAttribute{ID: 2, Name: "src", Value: "broken.svg"})
	got, _ := n.Image()
	if got.Path != "icon.svg" || got.Texture != first.Texture || !d.Textures().Live(first.Texture) {
		t.Errorf("malformed svg replaced the image: %+v", got)
	}
}
