package vdom

import (
	"strings"
	"testing"

	"github.com/agiangrant/sjik/retained"
)

func TestParseHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		validate func(*testing.T, *VNode)
	}{
		{
			name:  "single body element becomes the root",
			input: `<html><head><title>t</title></head><body><div class="flex p-4"><span>hi</span></div></body></html>`,
			validate: func(t *testing.T, v *VNode) {
				if v.Tag != "div" {
					t.Fatalf("root tag = %q, want div", v.Tag)
				}
				if c, _ := v.Attr("class"); c != "flex p-4" {
					t.Errorf("class = %q", c)
				}
				if len(v.Children) != 1 || v.Children[0].Tag != "span" {
					t.Fatalf("children = %+v", v.Children)
				}
				if txt := v.Children[0].Children[0]; txt.Kind != retained.KindText || txt.Text != "hi" {
					t.Errorf("text = %+v", txt)
				}
			},
		},
		{
			name:  "several top-level nodes are wrapped",
			input: `<p>a</p><p>b</p>`,
			validate: func(t *testing.T, v *VNode) {
				if v.Tag != "div" || len(v.Children) != 2 {
					t.Fatalf("root = %s with %d children", v.Tag, len(v.Children))
				}
			},
		},
		{
			name:  "bare text is wrapped",
			input: `hello`,
			validate: func(t *testing.T, v *VNode) {
				if v.Tag != "div" || len(v.Children) != 1 || v.Children[0].Text != "hello" {
					t.Errorf("root = %+v", v)
				}
			},
		},
		{
			name:  "whitespace collapses",
			input: "<div>\n  <span>  two\n\twords  </span>\n</div>",
			validate: func(t *testing.T, v *VNode) {
				if len(v.Children) != 1 {
					t.Fatalf("whitespace-only text kept: %d children", len(v.Children))
				}
				if got := v.Children[0].Children[0].Text; got != "two words" {
					t.Errorf("text = %q, want %q", got, "two words")
				}
			},
		},
		{
			name:  "scripts styles and comments are skipped",
			input: `<div><script>alert(1)</script><style>p{}</style><!-- c --><b>x</b></div>`,
			validate: func(t *testing.T, v *VNode) {
				if len(v.Children) != 1 || v.Children[0].Tag != "b" {
					t.Errorf("children = %+v", v.Children)
				}
			},
		},
		{
			name:  "on attributes become listeners",
			input: `<button onclick="ignored" onmouseenter="" title="go">Go</button>`,
			validate: func(t *testing.T, v *VNode) {
				if got := strings.Join(v.listenerNames(), ","); got != "click,mouseenter" {
					t.Errorf("listeners = %s", got)
				}
				if _, ok := v.Attr("onclick"); ok {
					t.Error("onclick kept as an attribute")
				}
				if title, _ := v.Attr("title"); title != "go" {
					t.Errorf("title = %q", title)
				}
			},
		},
		{
			name:  "key attribute",
			input: `<ul><li key="a">1</li><li key="b">2</li></ul>`,
			validate: func(t *testing.T, v *VNode) {
				if v.Children[0].Key != "a" || v.Children[1].Key != "b" {
					t.Errorf("keys = %q %q", v.Children[0].Key, v.Children[1].Key)
				}
				if _, ok := v.Children[0].Attr("key"); ok {
					t.Error("key kept as an attribute")
				}
			},
		},
		{
			name:  "img",
			input: `<img src="poster.png" class="w-10">`,
			validate: func(t *testing.T, v *VNode) {
				if src, _ := v.Attr("src"); v.Tag != "img" || src != "poster.png" {
					t.Errorf("img = %+v", v)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseHTML(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseHTML: %v", err)
			}
			tt.validate(t, v)
		})
	}
}

func TestParseHTMLMounts(t *testing.T) {
	v, err := ParseHTML(strings.NewReader(`<div class="flex-col"><span onclick="">a</span><span>b</span></div>`))
	if err != nil {
		t.Fatal(err)
	}
	d := retained.NewDOM(nil)
	render(t, d, NewDiffer(), v)
	if got := shape(d, v.ID()); got != `div(span("a") span("b"))` {
		t.Errorf("dom = %s", got)
	}
	n, _ := d.Get(v.Children[0].ID())
	if !n.HasListener("click") {
		t.Error("listener not mounted")
	}
}
