package vdom

import (
	"fmt"
	"strings"
	"testing"

	"github.com/agiangrant/sjik/retained"
)

// shape renders the subtree at id as a compact string: elements by tag,
// text quoted, placeholders as "_".
func shape(d *retained.DOM, id retained.NodeID) string {
	n, err := d.Get(id)
	if err != nil {
		return "!" + err.Error()
	}
	switch n.Kind {
	case retained.KindText:
		return fmt.Sprintf("%q", n.Text)
	case retained.KindPlaceholder:
		return "_"
	}
	if len(n.Children()) == 0 {
		return n.Tag
	}
	parts := make([]string, len(n.Children()))
	for i, c := range n.Children() {
		parts[i] = shape(d, c)
	}
	return n.Tag + "(" + strings.Join(parts, " ") + ")"
}

func kinds(muts []retained.Mutation) string {
	parts := make([]string, len(muts))
	for i, m := range muts {
		parts[i] = strings.TrimPrefix(fmt.Sprintf("%T", m), "retained.")
	}
	return strings.Join(parts, ",")
}

// render diffs each tree against the previous one and applies the result.
// It returns the mutations of the last step.
func render(t *testing.T, d *retained.DOM, df *Differ, trees ...*VNode) []retained.Mutation {
	t.Helper()
	var prev *VNode
	var muts []retained.Mutation
	for i, next := range trees {
		muts = df.Diff(prev, next)
		err := d.Update(func() error { return d.ApplyMutations(muts) })
		if err != nil {
			t.Fatalf("tree %d: %v", i, err)
		}
		prev = next
	}
	return muts
}

func keyedList(keys ...string) *VNode {
	ul := El("ul")
	for _, k := range keys {
		ul.WithChildren(El("li", Key(k), Children(Text(k))))
	}
	return ul
}

func TestDiff(t *testing.T) {
	nop := func(retained.Event) {}

	tests := []struct {
		name      string
		trees     func() []*VNode
		wantKinds string
		wantShape string
		validate  func(*testing.T, []*VNode, []retained.Mutation, *Differ)
	}{
		{
			name: "mount appends in pre-order",
			trees: func() []*VNode {
				return []*VNode{Div("p-4", Text("hi"), El("span"))}
			},
			wantKinds: "AppendChild,AppendChild,AppendChild",
			wantShape: `div("hi" span)`,
			validate: func(t *testing.T, trees []*VNode, muts []retained.Mutation, _ *Differ) {
				root := trees[0]
				if root.ID() != 2 || root.Children[0].ID() != 3 || root.Children[1].ID() != 4 {
					t.Errorf("ids = %d %d %d, want 2 3 4", root.ID(), root.Children[0].ID(), root.Children[1].ID())
				}
				if m := muts[0].(retained.AppendChild); m.Parent != retained.RootID {
					t.Errorf("first parent = %d, want root", m.Parent)
				}
			},
		},
		{
			name: "identical trees produce nothing",
			trees: func() []*VNode {
				return []*VNode{Div("a", Text("x")), Div("a", Text("x"))}
			},
			wantShape: `div("x")`,
		},
		{
			name: "attribute change and removal",
			trees: func() []*VNode {
				return []*VNode{
					El("div", Class("a"), Attr("title", "x")),
					El("div", Class("b")),
				}
			},
			wantKinds: "SetAttribute,SetAttribute",
			validate: func(t *testing.T, _ []*VNode, muts []retained.Mutation, _ *Differ) {
				want := []retained.SetAttribute{
					{ID: 2, Name: "class", Value: "b"},
					{ID: 2, Name: "title"},
				}
				for i, w := range want {
					if muts[i] != w {
						t.Errorf("mutation %d = %+v, want %+v", i, muts[i], w)
					}
				}
			},
		},
		{
			name: "text change",
			trees: func() []*VNode {
				return []*VNode{Div("", Text("a")), Div("", Text("b"))}
			},
			wantKinds: "SetText",
			wantShape: `div("b")`,
		},
		{
			name: "tag change replaces with a new id",
			trees: func() []*VNode {
				return []*VNode{Div("", El("p")), Div("", El("span", Children(Text("s"))))}
			},
			wantKinds: "ReplaceWith,AppendChild",
			wantShape: `div(span("s"))`,
			validate: func(t *testing.T, trees []*VNode, muts []retained.Mutation, _ *Differ) {
				m := muts[0].(retained.ReplaceWith)
				if m.ID != 3 || m.Node.ID != 4 {
					t.Errorf("replace = %d -> %d, want 3 -> 4", m.ID, m.Node.ID)
				}
			},
		},
		{
			name: "positional children shrink and grow",
			trees: func() []*VNode {
				return []*VNode{
					Div("", Text("a"), Text("b"), Text("c")),
					Div("", Text("a")),
					Div("", Text("a"), Text("d")),
				}
			},
			wantKinds: "AppendChild",
			wantShape: `div("a" "d")`,
		},
		{
			name: "keyed reorder moves without recreating",
			trees: func() []*VNode {
				return []*VNode{keyedList("a", "b", "c"), keyedList("c", "a", "b")}
			},
			wantShape: `ul(li("c") li("a") li("b"))`,
			validate: func(t *testing.T, trees []*VNode, muts []retained.Mutation, _ *Differ) {
				for _, m := range muts {
					switch m.(type) {
					case retained.AppendChild, retained.InsertBefore:
					default:
						t.Errorf("unexpected %T", m)
					}
				}
				for i, c := range trees[1].Children {
					old := trees[0].Children[(i+2)%3]
					if c.ID() != old.ID() {
						t.Errorf("%s id = %d, want %d", c.Key, c.ID(), old.ID())
					}
				}
			},
		},
		{
			name: "keyed insert and remove",
			trees: func() []*VNode {
				return []*VNode{keyedList("a", "b", "c"), keyedList("c", "d", "a")}
			},
			wantShape: `ul(li("c") li("d") li("a"))`,
			validate: func(t *testing.T, trees []*VNode, muts []retained.Mutation, _ *Differ) {
				if m := muts[0]; m != (retained.Remove{ID: trees[0].Children[1].ID()}) {
					t.Errorf("first mutation = %+v, want removal of b", m)
				}
			},
		},
		{
			name: "listeners follow the tree",
			trees: func() []*VNode {
				return []*VNode{
					El("div", On("click", nop)),
					El("div", On("mouseenter", nop)),
				}
			},
			wantKinds: "NewEventListener,RemoveEventListener",
			validate: func(t *testing.T, _ []*VNode, _ []retained.Mutation, df *Differ) {
				if _, ok := df.Handler(2, "click"); ok {
					t.Error("click handler still registered")
				}
				if _, ok := df.Handler(2, "mouseenter"); !ok {
					t.Error("mouseenter handler missing")
				}
			},
		},
		{
			name: "placeholders keep their slot",
			trees: func() []*VNode {
				return []*VNode{Div("", Text("a"), Placeholder(), Text("b"))}
			},
			wantKinds: "AppendChild,AppendChild,CreatePlaceholder,AppendChild",
			wantShape: `div("a" _ "b")`,
		},
		{
			name: "nil next removes the tree",
			trees: func() []*VNode {
				return []*VNode{Div("", Text("a"), El("b", On("click", nop))), nil}
			},
			wantKinds: "Remove",
			validate: func(t *testing.T, _ []*VNode, _ []retained.Mutation, df *Differ) {
				if _, ok := df.Handler(4, "click"); ok {
					t.Error("handler of a removed node is still registered")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := retained.NewDOM(nil)
			df := NewDiffer()
			trees := tt.trees()
			muts := render(t, d, df, trees...)

			if tt.wantKinds != "" || len(muts) == 0 {
				if got := kinds(muts); got != tt.wantKinds {
					t.Errorf("mutations = %s, want %s", got, tt.wantKinds)
				}
			}
			if tt.wantShape != "" {
				children := d.Root().Children()
				if len(children) != 1 {
					t.Fatalf("root has %d children", len(children))
				}
				if got := shape(d, children[0]); got != tt.wantShape {
					t.Errorf("dom = %s, want %s", got, tt.wantShape)
				}
			}
			if tt.validate != nil {
				tt.validate(t, trees, muts, df)
			}
		})
	}
}

func TestDispatch(t *testing.T) {
	var got []string
	tree := El("div", On("click", func(ev retained.Event) {
		got = append(got, fmt.Sprintf("%s@%d", ev.Name, ev.Target))
	}))
	df := NewDiffer()
	df.Diff(nil, tree)

	if !df.Dispatch(retained.Event{Name: "click", Target: tree.ID()}) {
		t.Error("handler did not run")
	}
	if df.Dispatch(retained.Event{Name: "mouseup", Target: tree.ID()}) {
		t.Error("unregistered event dispatched")
	}
	if df.Dispatch(retained.Event{Name: "click", Target: 99}) {
		t.Error("unknown node dispatched")
	}
	if len(got) != 1 || got[0] != "click@2" {
		t.Errorf("calls = %v", got)
	}
}

func TestClone(t *testing.T) {
	orig := Div("a", Text("x"), El("span", Key("k")))
	NewDiffer().Diff(nil, orig)

	c := orig.Clone()
	if c.ID() != retained.NoNode || c.Children[1].ID() != retained.NoNode {
		t.Error("clone kept mounted ids")
	}
	c.Attrs[0].Value = "changed"
	if v, _ := orig.Attr("class"); v != "a" {
		t.Errorf("clone shares attrs: %q", v)
	}
	if c.Children[1].Key != "k" || c.Children[0].Text != "x" {
		t.Errorf("clone lost content: %+v", c.Children)
	}
}
