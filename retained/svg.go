package retained

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// maxSVGSide bounds the rasterized size of a vector asset.
const maxSVGSide = 4096

// isSVG reports whether the asset is SVG markup, by extension or by an
// <svg element near the start of the data.
func isSVG(src string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(src), ".svg") {
		return true
	}
	head := data[:min(len(data), 512)]
	return bytes.Contains(head, []byte("<svg"))
}

// rasterizeSVG renders SVG markup at its viewBox size.
func rasterizeSVG(data []byte) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg has no viewBox size")
	}
	if w > maxSVGSide || h > maxSVGSide {
		return nil, fmt.Errorf("svg viewBox %dx%d exceeds %d", w, h, maxSVGSide)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return img, nil
}
