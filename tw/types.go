package tw

// Color is a packed non-premultiplied RGBA color (0xRRGGBBAA).
type Color uint32

// RGB creates a color from RGB values (alpha = 255).
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | 0xFF)
}

// RGBA creates a color from RGBA values.
func RGBA(r, g, b, a uint8) Color {
	return Color(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a))
}

func (c Color) R() uint8 { return uint8(c >> 24) }
func (c Color) G() uint8 { return uint8(c >> 16) }
func (c Color) B() uint8 { return uint8(c >> 8) }
func (c Color) A() uint8 { return uint8(c) }

// RGBA8 returns the color as a 4-byte array in memory order.
func (c Color) RGBA8() [4]uint8 {
	return [4]uint8{c.R(), c.G(), c.B(), c.A()}
}

// Common colors.
const (
	Transparent Color = 0x00000000
	White       Color = 0xFFFFFFFF
	Black       Color = 0x000000FF
)

// DimensionKind specifies how a width or height is interpreted.
type DimensionKind uint8

const (
	// DimAuto sizes to content (or to the intrinsic image size).
	DimAuto DimensionKind = iota

	// DimLength is an absolute size in pixels.
	DimLength

	// DimPercent is a fraction (0..1) of the parent's content box.
	DimPercent
)

// Dimension is a width or height value.
type Dimension struct {
	Kind  DimensionKind
	Value float32
}

// Auto is the zero Dimension.
var Auto = Dimension{}

// Length returns an absolute dimension in pixels.
func Length(px float32) Dimension { return Dimension{Kind: DimLength, Value: px} }

// Percent returns a dimension as a fraction of the parent (1.0 = 100%).
func Percent(fraction float32) Dimension { return Dimension{Kind: DimPercent, Value: fraction} }

// IsAuto reports whether the dimension is auto.
func (d Dimension) IsAuto() bool { return d.Kind == DimAuto }

// Display controls whether a node participates in layout.
type Display uint8

const (
	DisplayFlex Display = iota
	DisplayNone
)

// FlexDirection determines the main axis for flex layout.
type FlexDirection uint8

const (
	FlexRow FlexDirection = iota
	FlexColumn
)

// JustifyContent controls alignment along the main axis.
type JustifyContent uint8

const (
	JustifyStart JustifyContent = iota
	JustifyEnd
	JustifyCenter
	JustifyBetween
	JustifyAround
	JustifyEvenly
	JustifyStretch
)

// AlignItems controls alignment along the cross axis.
type AlignItems uint8

const (
	AlignStretch AlignItems = iota
	AlignStart
	AlignEnd
	AlignCenter
	AlignBaseline
)

// FlexWrap controls whether items wrap to new lines.
type FlexWrap uint8

const (
	FlexNoWrap FlexWrap = iota
	FlexWrapWrap
	FlexWrapReverse
)

// Edges holds per-side values in CSS order.
type Edges struct {
	Top, Right, Bottom, Left float32
}

// Uniform returns Edges with all four sides set to v.
func Uniform(v float32) Edges { return Edges{v, v, v, v} }

// Horizontal returns Left + Right.
func (e Edges) Horizontal() float32 { return e.Left + e.Right }

// Vertical returns Top + Bottom.
func (e Edges) Vertical() float32 { return e.Top + e.Bottom }

// Gap holds the spacing between flex items per axis.
type Gap struct {
	X, Y float32
}

// LayoutStyle holds every field the layout engine consumes.
// It is comparable; two styles are equal iff layout must not be redone.
type LayoutStyle struct {
	Display   Display
	Direction FlexDirection
	Wrap      FlexWrap
	Justify   JustifyContent
	Align     AlignItems
	Width     Dimension
	Height    Dimension
	Padding   Edges
	Gap       Gap
}

// Radius holds per-corner radii.
type Radius struct {
	NW, NE, SE, SW float32
}

// UniformRadius returns a Radius with all four corners set to r.
func UniformRadius(r float32) Radius { return Radius{r, r, r, r} }

// Max returns the largest corner radius.
func (r Radius) Max() float32 {
	m := r.NW
	for _, v := range [...]float32{r.NE, r.SE, r.SW} {
		if v > m {
			m = v
		}
	}
	return m
}

// Border describes the stroke drawn around an element.
type Border struct {
	Color  Color
	Width  float32
	Radius Radius
}

// TextAlign is the horizontal anchor used when drawing text.
type TextAlign uint8

const (
	AlignLeft TextAlign = iota
	AlignCenterText
	AlignRight
)

// PaintStyle holds every paint-only field. Changing it never triggers layout.
type PaintStyle struct {
	Background Color
	Border     Border
	TextColor  Color
	TextAlign  TextAlign
}

// DefaultPaint returns the paint style of an element with no classes.
func DefaultPaint() PaintStyle {
	return PaintStyle{
		Background: Transparent,
		Border:     Border{Color: Transparent},
		TextColor:  White,
		TextAlign:  AlignLeft,
	}
}

// FontFamily names a font family. "sans" and "mono" are built in; any other
// name is resolved by the text package.
type FontFamily string

const (
	FamilySans FontFamily = "sans"
	FamilyMono FontFamily = "mono"
)

// DefaultFontSize is the font size of the root and of any node with no
// text-NN class in its ancestry.
const DefaultFontSize float32 = 16

// Font identifies a face by family and pixel size.
type Font struct {
	Family FontFamily
	Size   float32
}

// DefaultFont returns the font used at the root.
func DefaultFont() Font {
	return Font{Family: FamilySans, Size: DefaultFontSize}
}

// ImageSize is the intrinsic size of an image component; zero means none.
type ImageSize [2]float32
