package retained

import (
	"errors"
	"image"
	"slices"
	"testing"

	"github.com/agiangrant/sjik/tw"
)

// charMeasurer gives every rune a width of 8.
type charMeasurer struct{}

func (charMeasurer) Measure(s string, f tw.Font) (float32, float32) {
	return float32(len([]rune(s))) * 8, f.Size
}

func div(id NodeID, classes string) NodeSpec {
	return NodeSpec{ID: id, Kind: KindElement, Tag: "div", Attrs: []Attr{{Name: "class", Value: classes}}}
}

func textNode(id NodeID, s string) NodeSpec {
	return NodeSpec{ID: id, Kind: KindText, Text: s}
}

func img(id NodeID, src string) NodeSpec {
	return NodeSpec{ID: id, Kind: KindElement, Tag: "img", Attrs: []Attr{{Name: "src", Value: src}}}
}

// step applies muts and runs the state pass under the write lock.
func step(t *testing.T, d *DOM, ctx StateContext, muts ...Mutation) []NodeID {
	t.Helper()
	var changed []NodeID
	err := d.Update(func() error {
		if err := d.ApplyMutations(muts); err != nil {
			return err
		}
		var err error
		changed, err = d.UpdateState(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	return changed
}

func newSizedDOM(w, h float32) *DOM {
	d := NewDOM(nil)
	d.Update(func() error {
		d.SetSize(w, h)
		return nil
	})
	return d
}

func TestUpdateState(t *testing.T) {
	ctx := StateContext{Measurer: charMeasurer{}}

	tests := []struct {
		name     string
		muts     []Mutation
		validate func(*testing.T, *DOM)
	}{
		{
			name: "second pass without mutations is empty",
			muts: []Mutation{
				AppendChild{Parent: RootID, Node: div(2, "p-4 bg-gray-800")},
				AppendChild{Parent: 2, Node: textNode(3, "hello")},
			},
			validate: func(t *testing.T, d *DOM) {
				if changed := step(t, d, ctx); len(changed) != 0 {
					t.Errorf("changed = %v, want none", changed)
				}
			},
		},
		{
			name: "class change restyles only the affected nodes",
			muts: []Mutation{
				AppendChild{Parent: RootID, Node: div(2, "w-10 h-10 bg-red-500")},
				AppendChild{Parent: RootID, Node: div(3, "w-10 h-10")},
			},
			validate: func(t *testing.T, d *DOM) {
				changed := step(t, d, ctx, SetAttribute{ID: 2, Name: "class", Value: "w-10 h-10 bg-blue-500"})
				if !slices.Equal(changed, []NodeID{2}) {
					t.Errorf("changed = %v, want [2]", changed)
				}
				n, _ := d.Get(2)
				st, _ := n.Style()
				if want, _ := tw.ParseColor("blue-500"); st.Paint.Background != want {
					t.Errorf("background = %v, want %v", st.Paint.Background, want)
				}
			},
		},
		{
			name: "resize moves dependent boxes",
			muts: []Mutation{
				AppendChild{Parent: RootID, Node: div(2, "w-50% h-10")},
			},
			validate: func(t *testing.T, d *DOM) {
				d.Update(func() error {
					d.SetSize(400, 100)
					return nil
				})
				changed := step(t, d, ctx)
				if !slices.Contains(changed, RootID) || !slices.Contains(changed, 2) {
					t.Errorf("changed = %v, want root and 2", changed)
				}
				if l, _ := d.LayoutOf(2); l.Width != 200 {
					t.Errorf("width = %v, want 200", l.Width)
				}
			},
		},
		{
			name: "text is measured with the inherited font",
			muts: []Mutation{
				AppendChild{Parent: RootID, Node: div(2, "text-30")},
				AppendChild{Parent: 2, Node: div(3, "p-2")},
				AppendChild{Parent: 3, Node: textNode(4, "abc")},
			},
			validate: func(t *testing.T, d *DOM) {
				for _, id := range []NodeID{3, 4} {
					n, _ := d.Get(id)
					if n.Font().Size != 30 {
						t.Errorf("node %d font size = %v, want 30", id, n.Font().Size)
					}
				}
				l, _ := d.LayoutOf(4)
				if l.Width != 24+30/7.5 || l.Height != 30*1.15 {
					t.Errorf("text box = %+v", l)
				}
			},
		},
		{
			name: "unknown color keeps the default",
			muts: []Mutation{
				AppendChild{Parent: RootID, Node: div(2, "bg-nonexistent-500")},
			},
			validate: func(t *testing.T, d *DOM) {
				n, _ := d.Get(2)
				st, _ := n.Style()
				if st.Paint != tw.DefaultPaint() {
					t.Errorf("paint = %+v, want default", st.Paint)
				}
			},
		},
		{
			name: "listeners make a node interested",
			muts: []Mutation{
				AppendChild{Parent: RootID, Node: div(2, "")},
				NewEventListener{ID: 2, Name: "click"},
			},
			validate: func(t *testing.T, d *DOM) {
				n, _ := d.Get(2)
				if !n.MouseInterested() || !n.Focusable() {
					t.Errorf("interested=%v focusable=%v", n.MouseInterested(), n.Focusable())
				}
				changed := step(t, d, ctx, RemoveEventListener{ID: 2, Name: "click"})
				if !slices.Contains(changed, 2) || n.MouseInterested() {
					t.Errorf("changed=%v interested=%v after removing the listener", changed, n.MouseInterested())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newSizedDOM(200, 100)
			step(t, d, ctx, tt.muts...)
			tt.validate(t, d)
		})
	}
}

func TestHoverPrecedence(t *testing.T) {
	red, _ := tw.ParseColor("red-500")
	blue, _ := tw.ParseColor("blue-500")

	d := newSizedDOM(200, 100)
	step(t, d, StateContext{},
		AppendChild{Parent: RootID, Node: div(2, "w-10 h-10 bg-red-500 hover:bg-blue-500")},
		AppendChild{Parent: 2, Node: div(3, "w-5 h-5")},
	)
	background := func() tw.Color {
		n, _ := d.Get(2)
		st, _ := n.Style()
		return st.Paint.Background
	}
	if got := background(); got != red {
		t.Fatalf("background = %v, want red", got)
	}

	d.SetHoverTarget(2)
	changed := step(t, d, StateContext{})
	if got := background(); got != blue {
		t.Errorf("hovered background = %v, want blue", got)
	}
	if !slices.Contains(changed, 2) || !slices.Contains(changed, 3) {
		t.Errorf("changed = %v, want the target and its child", changed)
	}
	if n, _ := d.Get(3); !n.Hovered() {
		t.Error("child of the hover target not hovered")
	}

	d.SetHoverTarget(NoNode)
	step(t, d, StateContext{})
	if got := background(); got != red {
		t.Errorf("background after leave = %v, want red", got)
	}
}

func TestMutations(t *testing.T) {
	children := func(d *DOM, id NodeID) []NodeID {
		n, _ := d.Get(id)
		return n.Children()
	}

	tests := []struct {
		name     string
		muts     []Mutation
		wantErr  error
		validate func(*testing.T, *DOM)
	}{
		{
			name: "insert before",
			muts: []Mutation{
				AppendChild{Parent: RootID, Node: div(2, "")},
				AppendChild{Parent: RootID, Node: div(3, "")},
				InsertBefore{Anchor: 3, Node: div(4, "")},
			},
			validate: func(t *testing.T, d *DOM) {
				if got := children(d, RootID); !slices.Equal(got, []NodeID{2, 4, 3}) {
					t.Errorf("children = %v", got)
				}
			},
		},
		{
			name: "append of a live node moves it",
			muts: []Mutation{
				AppendChild{Parent: RootID, Node: div(2, "")},
				AppendChild{Parent: RootID, Node: div(3, "")},
				AppendChild{Parent: 3, Node: NodeSpec{ID: 2}},
			},
			validate: func(t *testing.T, d *DOM) {
				if got := children(d, RootID); !slices.Equal(got, []NodeID{3}) {
					t.Errorf("root children = %v", got)
				}
				if n, _ := d.Get(2); n.Parent() != 3 || n.Tag != "div" {
					t.Errorf("moved node parent=%d tag=%q", n.Parent(), n.Tag)
				}
			},
		},
		{
			name: "replace keeps the position",
			muts: []Mutation{
				AppendChild{Parent: RootID, Node: div(2, "")},
				AppendChild{Parent: RootID, Node: div(3, "")},
				AppendChild{Parent: 2, Node: textNode(5, "gone")},
				ReplaceWith{ID: 2, Node: textNode(4, "new")},
			},
			validate: func(t *testing.T, d *DOM) {
				if got := children(d, RootID); !slices.Equal(got, []NodeID{4, 3}) {
					t.Errorf("children = %v", got)
				}
				for _, id := range []NodeID{2, 5} {
					if _, err := d.Get(id); !errors.Is(err, ErrNodeNotFound) {
						t.Errorf("Get(%d) err = %v", id, err)
					}
				}
			},
		},
		{
			name: "placeholders take no layout",
			muts: []Mutation{
				CreatePlaceholder{Parent: RootID, ID: 2},
				AppendChild{Parent: RootID, Node: div(3, "w-10 h-10")},
			},
			validate: func(t *testing.T, d *DOM) {
				if _, err := d.LayoutOf(2); !errors.Is(err, ErrLayoutNodeNotFound) {
					t.Errorf("placeholder layout err = %v", err)
				}
				if l, _ := d.LayoutOf(3); l.X != 0 {
					t.Errorf("sibling at x=%v, want 0", l.X)
				}
			},
		},
		{
			name: "set text",
			muts: []Mutation{
				AppendChild{Parent: RootID, Node: textNode(2, "a")},
				SetText{ID: 2, Text: "abcd"},
			},
			validate: func(t *testing.T, d *DOM) {
				if l, _ := d.LayoutOf(2); l.Width < 32 {
					t.Errorf("text width = %v, want the new text measured", l.Width)
				}
			},
		},
		{
			name:    "unknown parent",
			muts:    []Mutation{AppendChild{Parent: 42, Node: div(2, "")}},
			wantErr: ErrNodeNotFound,
		},
		{
			name: "root cannot be removed",
			muts: []Mutation{Remove{ID: RootID}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newSizedDOM(200, 100)
			err := d.Update(func() error {
				if err := d.ApplyMutations(tt.muts); err != nil {
					return err
				}
				_, err := d.UpdateState(StateContext{Measurer: charMeasurer{}})
				return err
			})
			if tt.validate == nil {
				if err == nil {
					t.Fatal("expected an error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.validate(t, d)
		})
	}
}

func TestMutationsKeepTreeAcyclic(t *testing.T) {
	tests := []struct {
		name string
		mut  Mutation
	}{
		{name: "append under a child", mut: AppendChild{Parent: 3, Node: NodeSpec{ID: 2}}},
		{name: "append under a grandchild", mut: AppendChild{Parent: 4, Node: NodeSpec{ID: 2}}},
		{name: "append under itself", mut: AppendChild{Parent: 2, Node: NodeSpec{ID: 2}}},
		{name: "insert before a descendant", mut: InsertBefore{Anchor: 4, Node: NodeSpec{ID: 2}}},
		{name: "replace a child with its parent", mut: ReplaceWith{ID: 3, Node: NodeSpec{ID: 2}}},
		{name: "replace with itself", mut: ReplaceWith{ID: 2, Node: NodeSpec{ID: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newSizedDOM(200, 100)
			ctx := StateContext{Measurer: charMeasurer{}}
			step(t, d, ctx,
				AppendChild{Parent: RootID, Node: div(2, "p-2")},
				AppendChild{Parent: 2, Node: div(3, "p-2")},
				AppendChild{Parent: 3, Node: div(4, "w-4 h-4")},
			)

			err := d.Update(func() error { return d.ApplyMutations([]Mutation{tt.mut}) })
			if err == nil {
				t.Fatal("expected an error")
			}

			for id, parent := range map[NodeID]NodeID{2: RootID, 3: 2, 4: 3} {
				n, err := d.Get(id)
				if err != nil {
					t.Fatalf("Get(%d): %v", id, err)
				}
				if n.Parent() != parent {
					t.Errorf("node %d parent = %d, want %d", id, n.Parent(), parent)
				}
			}
			step(t, d, ctx)
			path := NewEventRouter().HitPath(d, 1, 1)
			if len(path) < 2 || len(path) > 4 || path[0] != RootID || path[1] != 2 {
				t.Errorf("hit path = %v after a rejected mutation", path)
			}
		})
	}
}

func TestRemoveSubtree(t *testing.T) {
	d := newSizedDOM(200, 100)
	step(t, d, StateContext{Measurer: charMeasurer{}},
		AppendChild{Parent: RootID, Node: div(2, "p-2")},
		AppendChild{Parent: 2, Node: div(3, "p-2")},
		AppendChild{Parent: 3, Node: textNode(4, "leaf")},
		AppendChild{Parent: RootID, Node: div(5, "")},
	)
	if d.LayoutTree().Len() != 5 {
		t.Fatalf("layout nodes = %d, want 5", d.LayoutTree().Len())
	}

	d.Clean()
	changed := step(t, d, StateContext{}, Remove{ID: 2})
	for _, id := range []NodeID{2, 3, 4} {
		if _, err := d.Get(id); !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("Get(%d) err = %v", id, err)
		}
	}
	if d.Len() != 2 || d.LayoutTree().Len() != 2 {
		t.Errorf("nodes = %d, layout nodes = %d, want 2 and 2", d.Len(), d.LayoutTree().Len())
	}
	if !slices.Contains(changed, 5) {
		t.Errorf("changed = %v, want the sibling that moved", changed)
	}
	if !d.Clean().Has(RootID) {
		t.Error("parent of the removed subtree not dirty")
	}

	err := d.Update(func() error { return d.ApplyMutations([]Mutation{SetText{ID: 4, Text: "x"}}) })
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("mutation on a removed node err = %v", err)
	}
}

func TestImageSwap(t *testing.T) {
	sizes := map[string]int{"a.png": 4, "b.png": 8}
	loader := ImageLoaderFunc(func(src string) (*image.RGBA, error) {
		n, ok := sizes[src]
		if !ok {
			return nil, errors.New("no such image")
		}
		return image.NewRGBA(image.Rect(0, 0, n, n)), nil
	})
	ctx := StateContext{Images: loader}

	d := newSizedDOM(200, 100)
	textures := d.Textures()
	state := func() ImageState {
		n, _ := d.Get(2)
		s, _ := n.Image()
		return s
	}

	step(t, d, ctx, AppendChild{Parent: RootID, Node: img(2, "a.png")})
	first := state()
	if first.Path != "a.png" || first.Size != (tw.ImageSize{4, 4}) || textures.LiveCount() != 1 {
		t.Fatalf("image = %+v, live = %d", first, textures.LiveCount())
	}
	if l, _ := d.LayoutOf(2); l.Width != 4 || l.Height != 4 {
		t.Errorf("img box = %+v, want the intrinsic size", l)
	}

	step(t, d, ctx, SetAttribute{ID: 2, Name: "src", Value: "b.png"})
	second := state()
	if second.Path != "b.png" || textures.Live(first.Texture) || textures.LiveCount() != 1 {
		t.Errorf("after swap image = %+v, old live = %v, live = %d",
			second, textures.Live(first.Texture), textures.LiveCount())
	}

	step(t, d, ctx, SetAttribute{ID: 2, Name: "src", Value: "missing.png"})
	if got := state(); got.Path != "b.png" || got.Texture != second.Texture || textures.LiveCount() != 1 {
		t.Errorf("invalid src replaced the image: %+v", got)
	}

	step(t, d, ctx, Remove{ID: 2})
	if textures.LiveCount() != 0 {
		t.Errorf("live textures after removal = %d", textures.LiveCount())
	}
}

func TestDirtySet(t *testing.T) {
	d := NewDOM(nil)
	if !d.Clean().Empty() {
		t.Fatal("fresh DOM dirty")
	}
	d.MarkDirty(NoNode, 3, 2)
	if !d.Dirty() {
		t.Error("Dirty() = false after MarkDirty")
	}
	got := d.Clean()
	if got.All || !slices.Equal(got.Sorted(), []NodeID{2, 3}) {
		t.Errorf("Clean = %+v", got)
	}
	if d.Dirty() {
		t.Error("Clean did not drain the set")
	}

	d.Update(func() error {
		if d.SetSize(0, 100) {
			t.Error("zero width accepted")
		}
		if !d.SetSize(10, 10) {
			t.Error("valid size rejected")
		}
		return nil
	})
	if all := d.Clean(); !all.All || !all.Has(99) {
		t.Errorf("resize did not force a full redraw: %+v", all)
	}
}
