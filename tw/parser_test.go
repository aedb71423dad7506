package tw

import (
	"strings"
	"testing"
)

func TestResolveClasses(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		hover    bool
		validate func(*testing.T, Style)
	}{
		{
			name:  "defaults with no classes",
			input: "",
			validate: func(t *testing.T, s Style) {
				if s.Paint != DefaultPaint() {
					t.Errorf("expected default paint, got %+v", s.Paint)
				}
				if s.Layout != (LayoutStyle{}) {
					t.Errorf("expected zero layout, got %+v", s.Layout)
				}
			},
		},
		{
			name:  "flex column with size and padding",
			input: "flex-col w-full h-50% p-4 px-8",
			validate: func(t *testing.T, s Style) {
				if s.Layout.Direction != FlexColumn || s.Layout.Display != DisplayFlex {
					t.Errorf("expected flex column, got %+v", s.Layout)
				}
				if s.Layout.Width != Percent(1) {
					t.Errorf("expected width 100%%, got %+v", s.Layout.Width)
				}
				if s.Layout.Height != Percent(0.5) {
					t.Errorf("expected height 50%%, got %+v", s.Layout.Height)
				}
				want := Edges{Top: 4, Right: 8, Bottom: 4, Left: 8}
				if s.Layout.Padding != want {
					t.Errorf("expected padding %+v, got %+v", want, s.Layout.Padding)
				}
			},
		},
		{
			name:  "absolute sizes and auto",
			input: "w-120 h-auto",
			validate: func(t *testing.T, s Style) {
				if s.Layout.Width != Length(120) {
					t.Errorf("expected width 120, got %+v", s.Layout.Width)
				}
				if !s.Layout.Height.IsAuto() {
					t.Errorf("expected auto height, got %+v", s.Layout.Height)
				}
			},
		},
		{
			name:  "palette colors",
			input: "bg-red-500 text-blue-500 border-slate-50",
			validate: func(t *testing.T, s Style) {
				if s.Paint.Background != RGB(239, 68, 68) {
					t.Errorf("expected red-500 background, got %08x", uint32(s.Paint.Background))
				}
				if s.Paint.TextColor != RGB(59, 130, 246) {
					t.Errorf("expected blue-500 text, got %08x", uint32(s.Paint.TextColor))
				}
				if s.Paint.Border.Color != RGB(248, 250, 252) {
					t.Errorf("expected slate-50 border, got %08x", uint32(s.Paint.Border.Color))
				}
			},
		},
		{
			name:  "special colors and alpha",
			input: "bg-black/50 text-transparent border-white",
			validate: func(t *testing.T, s Style) {
				if s.Paint.Background != RGBA(0, 0, 0, 127) {
					t.Errorf("expected black at 50%%, got %08x", uint32(s.Paint.Background))
				}
				if s.Paint.TextColor != Transparent {
					t.Errorf("expected transparent text, got %08x", uint32(s.Paint.TextColor))
				}
				if s.Paint.Border.Color != White {
					t.Errorf("expected white border, got %08x", uint32(s.Paint.Border.Color))
				}
			},
		},
		{
			name:  "single word family uses the 500 shade",
			input: "bg-blue",
			validate: func(t *testing.T, s Style) {
				if s.Paint.Background != RGB(59, 130, 246) {
					t.Errorf("expected blue-500, got %08x", uint32(s.Paint.Background))
				}
			},
		},
		{
			name:  "unknown color leaves field unchanged",
			input: "bg-nonexistent-500 text-red-9999",
			validate: func(t *testing.T, s Style) {
				if s.Paint.Background != Transparent {
					t.Errorf("expected default background, got %08x", uint32(s.Paint.Background))
				}
				if s.Paint.TextColor != White {
					t.Errorf("expected default text color, got %08x", uint32(s.Paint.TextColor))
				}
			},
		},
		{
			name:  "unknown color keeps earlier value",
			input: "bg-green-500 bg-nonexistent-500",
			validate: func(t *testing.T, s Style) {
				if s.Paint.Background != RGB(34, 197, 94) {
					t.Errorf("expected green-500 to survive, got %08x", uint32(s.Paint.Background))
				}
			},
		},
		{
			name:  "border width versus color",
			input: "border-2 border-red-500 rounded-6",
			validate: func(t *testing.T, s Style) {
				if s.Paint.Border.Width != 2 {
					t.Errorf("expected border width 2, got %v", s.Paint.Border.Width)
				}
				if s.Paint.Border.Color != RGB(239, 68, 68) {
					t.Errorf("expected red border, got %08x", uint32(s.Paint.Border.Color))
				}
				if s.Paint.Border.Radius != UniformRadius(6) {
					t.Errorf("expected uniform radius 6, got %+v", s.Paint.Border.Radius)
				}
			},
		},
		{
			name:  "gap axes",
			input: "gap-4 gap-x-10",
			validate: func(t *testing.T, s Style) {
				if s.Layout.Gap != (Gap{X: 10, Y: 4}) {
					t.Errorf("expected gap {10 4}, got %+v", s.Layout.Gap)
				}
			},
		},
		{
			name:  "gap-y only touches y",
			input: "gap-y-3",
			validate: func(t *testing.T, s Style) {
				if s.Layout.Gap != (Gap{X: 0, Y: 3}) {
					t.Errorf("expected gap {0 3}, got %+v", s.Layout.Gap)
				}
			},
		},
		{
			name:  "alignment and wrapping",
			input: "justify-between items-center flex-wrap-reverse",
			validate: func(t *testing.T, s Style) {
				if s.Layout.Justify != JustifyBetween {
					t.Errorf("expected justify between, got %v", s.Layout.Justify)
				}
				if s.Layout.Align != AlignCenter {
					t.Errorf("expected items center, got %v", s.Layout.Align)
				}
				if s.Layout.Wrap != FlexWrapReverse {
					t.Errorf("expected wrap reverse, got %v", s.Layout.Wrap)
				}
			},
		},
		{
			name:  "unknown justify value is ignored",
			input: "justify-center justify-sideways",
			validate: func(t *testing.T, s Style) {
				if s.Layout.Justify != JustifyCenter {
					t.Errorf("expected justify center, got %v", s.Layout.Justify)
				}
			},
		},
		{
			name:  "hover tokens inert without hover",
			input: "bg-red-500 hover:bg-blue-500",
			hover: false,
			validate: func(t *testing.T, s Style) {
				if s.Paint.Background != RGB(239, 68, 68) {
					t.Errorf("expected red-500, got %08x", uint32(s.Paint.Background))
				}
			},
		},
		{
			name:  "hover tokens win with hover",
			input: "bg-red-500 hover:bg-blue-500",
			hover: true,
			validate: func(t *testing.T, s Style) {
				if s.Paint.Background != RGB(59, 130, 246) {
					t.Errorf("expected blue-500, got %08x", uint32(s.Paint.Background))
				}
			},
		},
		{
			name:  "hover token listed before base still wins",
			input: "hover:p-8 p-2",
			hover: true,
			validate: func(t *testing.T, s Style) {
				if s.Layout.Padding != Uniform(8) {
					t.Errorf("expected hover padding 8, got %+v", s.Layout.Padding)
				}
			},
		},
		{
			name:  "font size and family",
			input: "text-24 font-mono text-center",
			validate: func(t *testing.T, s Style) {
				if s.Font != (Font{Family: FamilyMono, Size: 24}) {
					t.Errorf("expected mono 24, got %+v", s.Font)
				}
				if s.Paint.TextAlign != AlignCenterText {
					t.Errorf("expected center alignment, got %v", s.Paint.TextAlign)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Resolve(tt.input, tt.hover, DefaultFont(), ImageSize{})
			tt.validate(t, s)
		})
	}
}

func TestResolveFontInheritance(t *testing.T) {
	parent := Font{Family: "serif", Size: 20}

	s := Resolve("bg-red-500", false, parent, ImageSize{})
	if s.Font != parent {
		t.Errorf("expected inherited font %+v, got %+v", parent, s.Font)
	}

	s = Resolve("text-12", false, parent, ImageSize{})
	if s.Font != (Font{Family: "serif", Size: 12}) {
		t.Errorf("expected serif 12, got %+v", s.Font)
	}

	s = Resolve("", false, Font{}, ImageSize{})
	if s.Font != DefaultFont() {
		t.Errorf("expected default font for zero parent, got %+v", s.Font)
	}
}

func TestResolveIntrinsicImageSize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		validate func(*testing.T, LayoutStyle)
	}{
		{
			name:  "both auto uses image size",
			input: "",
			validate: func(t *testing.T, l LayoutStyle) {
				if l.Width != Length(400) || l.Height != Length(200) {
					t.Errorf("expected 400x200, got %+v x %+v", l.Width, l.Height)
				}
			},
		},
		{
			name:  "width derives height",
			input: "w-100",
			validate: func(t *testing.T, l LayoutStyle) {
				if l.Height != Length(50) {
					t.Errorf("expected height 50, got %+v", l.Height)
				}
			},
		},
		{
			name:  "height derives width",
			input: "h-100",
			validate: func(t *testing.T, l LayoutStyle) {
				if l.Width != Length(200) {
					t.Errorf("expected width 200, got %+v", l.Width)
				}
			},
		},
		{
			name:  "percent width uses image width for the ratio",
			input: "w-full",
			validate: func(t *testing.T, l LayoutStyle) {
				if l.Width != Percent(1) || l.Height != Length(200) {
					t.Errorf("expected 100%% x 200, got %+v x %+v", l.Width, l.Height)
				}
			},
		},
		{
			name:  "both set leaves sizes alone",
			input: "w-10 h-10",
			validate: func(t *testing.T, l LayoutStyle) {
				if l.Width != Length(10) || l.Height != Length(10) {
					t.Errorf("expected 10x10, got %+v x %+v", l.Width, l.Height)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Resolve(tt.input, false, DefaultFont(), ImageSize{400, 200})
			tt.validate(t, s.Layout)
		})
	}
}

func TestResolveIsPure(t *testing.T) {
	inputs := []string{
		"flex-col w-full bg-red-500 hover:bg-blue-500 p-4 gap-x-2 rounded-4 border-2",
		"text-24 font-mono bg-white/20 justify-evenly items-baseline",
		"bg-nonexistent-500 w-abc h-%",
	}
	for _, in := range inputs {
		for _, hover := range []bool{false, true} {
			a := Resolve(in, hover, DefaultFont(), ImageSize{32, 16})
			b := Resolve(in, hover, DefaultFont(), ImageSize{32, 16})
			if a != b {
				t.Errorf("Resolve(%q, %v) not deterministic: %+v vs %+v", in, hover, a, b)
			}
		}
	}
}

func TestTextStyle(t *testing.T) {
	l := TextStyle(100, Font{Family: FamilySans, Size: 15})
	if l.Width != Length(102) {
		t.Errorf("expected width 102, got %+v", l.Width)
	}
	if l.Height != Length(15*1.15) {
		t.Errorf("expected height %v, got %+v", float32(15*1.15), l.Height)
	}
}

func TestPalette(t *testing.T) {
	t.Run("default palette families", func(t *testing.T) {
		p := DefaultPalette()
		if len(p) != 22 {
			t.Errorf("expected 22 families, got %d", len(p))
		}
		for family, shades := range p {
			if len(shades) != 11 {
				t.Errorf("family %s: expected 11 shades, got %d", family, len(shades))
			}
		}
	})

	t.Run("custom palette merges over default", func(t *testing.T) {
		custom, err := LoadPalette(strings.NewReader(`
[brand]
"500" = [1, 2, 3]

[red]
"500" = [9, 9, 9]
`))
		if err != nil {
			t.Fatalf("LoadPalette: %v", err)
		}
		SetPalette(custom)
		defer SetPalette(nil)

		if c, ok := ParseColor("brand-500"); !ok || c != RGB(1, 2, 3) {
			t.Errorf("expected brand-500 = 010203ff, got %08x (ok=%v)", uint32(c), ok)
		}
		if c, ok := ParseColor("red-500"); !ok || c != RGB(9, 9, 9) {
			t.Errorf("expected overridden red-500, got %08x", uint32(c))
		}
		if c, ok := ParseColor("red-600"); !ok || c != RGB(220, 38, 38) {
			t.Errorf("expected default red-600 to survive, got %08x", uint32(c))
		}
	})

	t.Run("invalid palette", func(t *testing.T) {
		if _, err := LoadPalette(strings.NewReader("[red\n")); err == nil {
			t.Error("expected error for malformed TOML")
		}
	})

	t.Run("alpha out of range", func(t *testing.T) {
		if _, ok := ParseColor("red-500/150"); ok {
			t.Error("expected alpha > 100 to be rejected")
		}
	})
}
