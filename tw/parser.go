package tw

import (
	"strconv"
	"strings"
)

// hoverPrefix marks a token that only applies while the pointer is over the node.
const hoverPrefix = "hover:"

// Style is the result of resolving a class string: the layout record, the
// paint record and the font the node passes on to its children.
type Style struct {
	Layout LayoutStyle
	Paint  PaintStyle
	Font   Font
}

// Resolve converts a class string into layout and paint styles.
//
// Tokens are applied left to right. When hover is true, tokens prefixed with
// "hover:" are applied after all base tokens (again left to right), so they
// win on any field they share with a base token. When hover is false they are
// ignored. Unknown tokens, unknown colors and unparsable values leave the
// field unchanged.
//
// parent is the font inherited from the parent node; text-NN and font-* tokens
// override it. image is the intrinsic size of the node's image, or zero.
//
// Resolve is pure for a fixed palette.
func Resolve(classes string, hover bool, parent Font, image ImageSize) Style {
	s := Style{
		Layout: LayoutStyle{},
		Paint:  DefaultPaint(),
		Font:   parent,
	}
	if s.Font.Size == 0 {
		s.Font.Size = DefaultFontSize
	}
	if s.Font.Family == "" {
		s.Font.Family = FamilySans
	}

	pal := ActivePalette()
	tokens := strings.Fields(classes)
	for _, tok := range tokens {
		if strings.HasPrefix(tok, hoverPrefix) {
			continue
		}
		applyToken(&s, tok, pal)
	}
	if hover {
		for _, tok := range tokens {
			if rest, ok := strings.CutPrefix(tok, hoverPrefix); ok {
				applyToken(&s, rest, pal)
			}
		}
	}

	applyIntrinsicSize(&s.Layout, image)
	return s
}

// TextStyle derives the layout of a text node from its measured width and the
// inherited font. Text nodes never process class tokens.
func TextStyle(measuredWidth float32, f Font) LayoutStyle {
	return LayoutStyle{
		Width:  Length(measuredWidth + f.Size/7.5),
		Height: Length(f.Size * 1.15),
	}
}

// applyToken applies a single (non-variant) utility class.
func applyToken(s *Style, tok string, pal Palette) {
	switch tok {
	case "flex-col":
		s.Layout.Display = DisplayFlex
		s.Layout.Direction = FlexColumn
		return
	case "flex-row":
		s.Layout.Display = DisplayFlex
		s.Layout.Direction = FlexRow
		return
	case "flex-wrap":
		s.Layout.Wrap = FlexWrapWrap
		return
	case "flex-wrap-reverse":
		s.Layout.Wrap = FlexWrapReverse
		return
	case "flex-nowrap":
		s.Layout.Wrap = FlexNoWrap
		return
	case "hidden":
		s.Layout.Display = DisplayNone
		return
	case "flex":
		s.Layout.Display = DisplayFlex
		return
	}

	prefix, value, ok := splitToken(tok)
	if !ok {
		return
	}

	switch prefix {
	case "w":
		if d, ok := parseDimension(value); ok {
			s.Layout.Width = d
		}
	case "h":
		if d, ok := parseDimension(value); ok {
			s.Layout.Height = d
		}

	case "bg":
		if c, ok := parseColor(value, pal); ok {
			s.Paint.Background = c
		}
	case "text":
		switch value {
		case "left":
			s.Paint.TextAlign = AlignLeft
		case "center":
			s.Paint.TextAlign = AlignCenterText
		case "right":
			s.Paint.TextAlign = AlignRight
		default:
			if size, ok := parseNumber(value); ok {
				s.Font.Size = size
			} else if c, ok := parseColor(value, pal); ok {
				s.Paint.TextColor = c
			}
		}
	case "font":
		switch value {
		case "sans":
			s.Font.Family = FamilySans
		case "mono":
			s.Font.Family = FamilyMono
		default:
			s.Font.Family = FontFamily(value)
		}
	case "border":
		// A color if it parses as one, otherwise a width
		if c, ok := parseColor(value, pal); ok {
			s.Paint.Border.Color = c
		} else if w, ok := parseNumber(value); ok {
			s.Paint.Border.Width = w
		}
	case "rounded":
		if r, ok := parseNumber(value); ok {
			s.Paint.Border.Radius = UniformRadius(r)
		}

	case "p":
		if v, ok := parseNumber(value); ok {
			s.Layout.Padding = Uniform(v)
		}
	case "px":
		if v, ok := parseNumber(value); ok {
			s.Layout.Padding.Left = v
			s.Layout.Padding.Right = v
		}
	case "py":
		if v, ok := parseNumber(value); ok {
			s.Layout.Padding.Top = v
			s.Layout.Padding.Bottom = v
		}
	case "pt":
		if v, ok := parseNumber(value); ok {
			s.Layout.Padding.Top = v
		}
	case "pb":
		if v, ok := parseNumber(value); ok {
			s.Layout.Padding.Bottom = v
		}
	case "pl":
		if v, ok := parseNumber(value); ok {
			s.Layout.Padding.Left = v
		}
	case "pr":
		if v, ok := parseNumber(value); ok {
			s.Layout.Padding.Right = v
		}

	case "gap":
		if axis, rest, ok := strings.Cut(value, "-"); ok && (axis == "x" || axis == "y") {
			v, ok := parseNumber(rest)
			if !ok {
				return
			}
			if axis == "x" {
				s.Layout.Gap.X = v
			} else {
				s.Layout.Gap.Y = v
			}
			return
		}
		if v, ok := parseNumber(value); ok {
			s.Layout.Gap = Gap{X: v, Y: v}
		}

	case "justify":
		if j, ok := justifyValues[value]; ok {
			s.Layout.Justify = j
		}
	case "items":
		if a, ok := alignValues[value]; ok {
			s.Layout.Align = a
		}
	}
	// Unknown class, silently ignore (like Tailwind CSS)
}

var justifyValues = map[string]JustifyContent{
	"start":   JustifyStart,
	"end":     JustifyEnd,
	"center":  JustifyCenter,
	"between": JustifyBetween,
	"around":  JustifyAround,
	"evenly":  JustifyEvenly,
	"stretch": JustifyStretch,
}

var alignValues = map[string]AlignItems{
	"start":    AlignStart,
	"end":      AlignEnd,
	"center":   AlignCenter,
	"baseline": AlignBaseline,
	"stretch":  AlignStretch,
}

// splitToken splits "bg-blue-500" into ("bg", "blue-500").
func splitToken(tok string) (prefix, value string, ok bool) {
	i := strings.IndexByte(tok, '-')
	if i <= 0 || i == len(tok)-1 {
		return "", "", false
	}
	return tok[:i], tok[i+1:], true
}

// parseDimension handles the w-/h- value forms: full, auto, NN% and NN.
func parseDimension(value string) (Dimension, bool) {
	switch value {
	case "full":
		return Percent(1), true
	case "auto":
		return Auto, true
	}
	if pct, ok := strings.CutSuffix(value, "%"); ok {
		v, ok := parseNumber(pct)
		if !ok {
			return Dimension{}, false
		}
		return Percent(v / 100), true
	}
	v, ok := parseNumber(value)
	if !ok {
		return Dimension{}, false
	}
	return Length(v), true
}

func parseNumber(value string) (float32, bool) {
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return 0, false
	}
	return float32(f), true
}

// ParseColor resolves a color value such as "blue-500", "white/50" or
// "transparent" against the active palette.
func ParseColor(value string) (Color, bool) {
	return parseColor(value, ActivePalette())
}

func parseColor(value string, pal Palette) (Color, bool) {
	name, alphaStr, hasAlpha := strings.Cut(value, "/")
	alpha := uint8(255)
	if hasAlpha {
		a, err := strconv.ParseUint(alphaStr, 10, 16)
		if err != nil || a > 100 {
			return 0, false
		}
		alpha = uint8(a * 255 / 100)
	}

	family, shade, hasShade := strings.Cut(name, "-")
	if !hasShade {
		switch family {
		case "transparent":
			return Transparent, true
		case "white":
			return RGBA(255, 255, 255, alpha), true
		case "black":
			return RGBA(0, 0, 0, alpha), true
		}
		rgb, ok := pal.Family(family)
		if !ok {
			return 0, false
		}
		return RGBA(rgb[0], rgb[1], rgb[2], alpha), true
	}

	rgb, ok := pal.Shade(family, shade)
	if !ok {
		return 0, false
	}
	return RGBA(rgb[0], rgb[1], rgb[2], alpha), true
}

// applyIntrinsicSize fills auto dimensions from an image's intrinsic size,
// preserving its aspect ratio when only one axis is given.
func applyIntrinsicSize(l *LayoutStyle, image ImageSize) {
	if image[0] == 0 || image[1] == 0 {
		return
	}
	aspect := image[0] / image[1]

	switch {
	case l.Width.IsAuto() && l.Height.IsAuto():
		l.Width = Length(image[0])
		l.Height = Length(image[1])
	case !l.Width.IsAuto() && l.Height.IsAuto():
		w := image[0]
		if l.Width.Kind == DimLength {
			w = l.Width.Value
		}
		l.Height = Length(w / aspect)
	case l.Width.IsAuto() && !l.Height.IsAuto():
		h := image[1]
		if l.Height.Kind == DimLength {
			h = l.Height.Value
		}
		l.Width = Length(h * aspect)
	}
}
