// Package vdom produces retained DOM mutations from a declarative tree.
//
// A Component returns a fresh VNode tree on every render. The Differ compares
// it with the previous tree and emits an ordered mutation log that
// retained.DOM.ApplyMutations replays. The Runtime drives this loop on its own
// goroutine and delivers routed events to the handlers of the current tree.
//
// Basic usage:
//
//	count := 0
//	app := func() *vdom.VNode {
//	    return vdom.El("div", vdom.Class("flex-col gap-4 p-4"),
//	        vdom.On("click", func(retained.Event) { count++ }),
//	        vdom.Children(vdom.Text(fmt.Sprint(count))),
//	    )
//	}
//	rt := vdom.NewRuntime(dom, app, vdom.RuntimeOptions{})
//	go rt.Run(ctx)
package vdom

import (
	"maps"
	"slices"

	"github.com/agiangrant/sjik/retained"
)

// Handler receives an event routed to the node that registered it.
type Handler func(ev retained.Event)

// Component renders the current application state.
type Component func() *VNode

// VNode is a declarative node. VNodes are built fresh on every render and
// must not be shared between renders.
type VNode struct {
	Kind      retained.NodeKind
	Tag       string
	Text      string
	Key       string
	Attrs     []retained.Attr
	Listeners map[string]Handler
	Children  []*VNode

	// id is assigned when the node is mounted.
	id retained.NodeID
}

// ID returns the DOM node ID assigned by the Differ, or retained.NoNode if
// the node has not been mounted.
func (n *VNode) ID() retained.NodeID { return n.id }

// Attr returns the value of the named attribute.
func (n *VNode) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Clone returns an unmounted deep copy of n. Use it to render a tree that
// was built once, such as a parsed page.
func (n *VNode) Clone() *VNode {
	c := &VNode{
		Kind:      n.Kind,
		Tag:       n.Tag,
		Text:      n.Text,
		Key:       n.Key,
		Attrs:     slices.Clone(n.Attrs),
		Listeners: maps.Clone(n.Listeners),
	}
	if len(n.Children) > 0 {
		c.Children = make([]*VNode, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// listenerNames returns the sorted listener names.
func (n *VNode) listenerNames() []string {
	return slices.Sorted(maps.Keys(n.Listeners))
}

func (n *VNode) spec() retained.NodeSpec {
	return retained.NodeSpec{
		ID:        n.id,
		Kind:      n.Kind,
		Tag:       n.Tag,
		Text:      n.Text,
		Attrs:     slices.Clone(n.Attrs),
		Listeners: n.listenerNames(),
	}
}

// ============================================================================
// Builders
// ============================================================================

// Option configures an element.
type Option func(*VNode)

// El creates an element.
func El(tag string, opts ...Option) *VNode {
	n := &VNode{Kind: retained.KindElement, Tag: tag}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Text creates a text node.
func Text(s string) *VNode {
	return &VNode{Kind: retained.KindText, Text: s}
}

// Placeholder creates an empty node that keeps a position in its parent's
// child list without taking part in layout.
func Placeholder() *VNode {
	return &VNode{Kind: retained.KindPlaceholder}
}

// Class sets the class attribute.
func Class(classes string) Option {
	return Attr("class", classes)
}

// Attr sets an attribute, replacing an existing value.
func Attr(name, value string) Option {
	return func(n *VNode) {
		for i := range n.Attrs {
			if n.Attrs[i].Name == name {
				n.Attrs[i].Value = value
				return
			}
		}
		n.Attrs = append(n.Attrs, retained.Attr{Name: name, Value: value})
	}
}

// On registers a handler for the named event.
func On(name string, h Handler) Option {
	return func(n *VNode) {
		if n.Listeners == nil {
			n.Listeners = make(map[string]Handler)
		}
		n.Listeners[name] = h
	}
}

// Key sets the identity used to match children across renders.
func Key(key string) Option {
	return func(n *VNode) { n.Key = key }
}

// Children appends child nodes. Nil children are skipped.
func Children(children ...*VNode) Option {
	return func(n *VNode) {
		for _, c := range children {
			if c != nil {
				n.Children = append(n.Children, c)
			}
		}
	}
}

// With applies opts to n and returns it.
func (n *VNode) With(opts ...Option) *VNode {
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// WithChildren appends children to n and returns it.
func (n *VNode) WithChildren(children ...*VNode) *VNode {
	return n.With(Children(children...))
}

// Div is shorthand for El("div", Class(classes), Children(children...)).
func Div(classes string, children ...*VNode) *VNode {
	return El("div", Class(classes), Children(children...))
}

// Img is shorthand for an img element with a src and classes.
func Img(src, classes string) *VNode {
	return El("img", Attr("src", src), Class(classes))
}
