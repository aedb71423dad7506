package retained

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/agiangrant/sjik/tw"
)

// ErrNodeNotFound is returned when a node ID does not refer to a live node.
var ErrNodeNotFound = errors.New("node not found")

// NodeID identifies a DOM node. IDs are assigned by the mutation producer and
// are stable for the node's lifetime.
type NodeID uint64

const (
	// NoNode is the zero ID; it never refers to a node.
	NoNode NodeID = 0

	// RootID is the ID of the root element created with every DOM.
	RootID NodeID = 1
)

// NodeKind is the closed set of node variants.
type NodeKind uint8

const (
	KindElement NodeKind = iota
	KindText
	KindPlaceholder
)

func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindPlaceholder:
		return "placeholder"
	}
	return fmt.Sprintf("NodeKind(%d)", k)
}

// Attr is a single element attribute.
type Attr struct {
	Name  string
	Value string
}

// StyleState is the resolved style component of a node.
type StyleState struct {
	Layout tw.LayoutStyle
	Paint  tw.PaintStyle
	Handle LayoutHandle
}

// ImageState is the image component of an img element.
type ImageState struct {
	// Path is the src of the currently displayed image; empty if none.
	Path    string
	Texture TextureID
	Size    tw.ImageSize

	// failed is the last src that could not be loaded, so it is not retried
	// on every pass.
	failed string
}

// Node is a single DOM entity. Derived components are only written by the
// state pass; read them through the accessor methods.
type Node struct {
	ID        NodeID
	Kind      NodeKind
	Tag       string
	Text      string
	Attrs     []Attr
	Listeners []string

	parent   NodeID
	children []NodeID

	// Derived components. has* flags record presence.
	style      StyleState
	hasStyle   bool
	font       tw.Font
	image      ImageState
	hasImage   bool
	interested bool
	focusable  bool
	hovered    bool

	// pending marks a node whose own inputs changed since the last pass.
	pending bool
}

// Parent returns the parent ID, or NoNode for the root.
func (n *Node) Parent() NodeID { return n.parent }

// Children returns the ordered child IDs. The slice must not be modified.
func (n *Node) Children() []NodeID { return n.children }

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Style returns the style component.
func (n *Node) Style() (StyleState, bool) { return n.style, n.hasStyle }

// Font returns the font the node passes on to its children.
func (n *Node) Font() tw.Font { return n.font }

// Image returns the image component.
func (n *Node) Image() (ImageState, bool) { return n.image, n.hasImage }

// MouseInterested reports whether the node has a pointer listener.
func (n *Node) MouseInterested() bool { return n.interested }

// Focusable reports whether a click can focus the node.
func (n *Node) Focusable() bool { return n.focusable }

// Hovered reports whether the node or an ancestor is the hover target.
func (n *Node) Hovered() bool { return n.hovered }

// HasListener reports whether the node listens for the named event.
func (n *Node) HasListener(name string) bool {
	return slices.Contains(n.Listeners, name)
}

func (n *Node) setAttr(name, value string) bool {
	for i, a := range n.Attrs {
		if a.Name != name {
			continue
		}
		if value == "" {
			n.Attrs = slices.Delete(n.Attrs, i, i+1)
			return true
		}
		if a.Value == value {
			return false
		}
		n.Attrs[i].Value = value
		return true
	}
	if value == "" {
		return false
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return true
}

// DOM is the retained tree. It owns the layout tree and the dirty set.
//
// Writers (mutation application, the state pass and resizes) hold the write
// lock; the compositor and hit tester hold the read lock. Use Update and View,
// or Lock/RLock directly when several calls must be atomic.
type DOM struct {
	sync.RWMutex

	nodes  map[NodeID]*Node
	layout *LayoutTree
	owners map[LayoutHandle]NodeID

	textures *Textures

	viewport    Size
	sizeChanged bool
	hoverTarget NodeID
	focused     NodeID

	dirtyMu     sync.Mutex
	dirty       map[NodeID]struct{}
	forceRedraw bool
}

// NewDOM returns a DOM containing only the root element.
func NewDOM(textures *Textures) *DOM {
	if textures == nil {
		textures = NewTextures()
	}
	d := &DOM{
		nodes:    make(map[NodeID]*Node),
		layout:   NewLayoutTree(),
		owners:   make(map[LayoutHandle]NodeID),
		textures: textures,
		dirty:    make(map[NodeID]struct{}),
	}
	d.nodes[RootID] = &Node{ID: RootID, Kind: KindElement, Tag: "root", pending: true}
	return d
}

// Update runs fn under the write lock.
func (d *DOM) Update(fn func() error) error {
	d.Lock()
	defer d.Unlock()
	return fn()
}

// View runs fn under the read lock.
func (d *DOM) View(fn func() error) error {
	d.RLock()
	defer d.RUnlock()
	return fn()
}

// Textures returns the texture manager owned by the DOM.
func (d *DOM) Textures() *Textures { return d.textures }

// LayoutTree returns the layout tree. Callers must hold a DOM lock.
func (d *DOM) LayoutTree() *LayoutTree { return d.layout }

// Len returns the number of live nodes, including the root.
func (d *DOM) Len() int { return len(d.nodes) }

// Get returns the node with the given ID.
func (d *DOM) Get(id NodeID) (*Node, error) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return n, nil
}

// Root returns the root node.
func (d *DOM) Root() *Node { return d.nodes[RootID] }

// Viewport returns the current viewport size.
func (d *DOM) Viewport() Size { return d.viewport }

// NodeForLayout maps a layout handle back to its DOM node.
func (d *DOM) NodeForLayout(h LayoutHandle) (NodeID, bool) {
	id, ok := d.owners[h]
	return id, ok
}

// Walk visits the subtree under id in pre-order. Returning false from fn
// skips the node's children.
func (d *DOM) Walk(id NodeID, fn func(n *Node) bool) {
	n, ok := d.nodes[id]
	if !ok {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		d.Walk(c, fn)
	}
}

// preorder returns every live node reachable from the root in pre-order.
func (d *DOM) preorder() []NodeID {
	order := make([]NodeID, 0, len(d.nodes))
	d.Walk(RootID, func(n *Node) bool {
		order = append(order, n.ID)
		return true
	})
	return order
}

// LayoutOf returns the computed box of id relative to its parent.
func (d *DOM) LayoutOf(id NodeID) (Layout, error) {
	n, err := d.Get(id)
	if err != nil {
		return Layout{}, err
	}
	if !n.hasStyle {
		return Layout{}, fmt.Errorf("%w: node %d has no layout", ErrLayoutNodeNotFound, id)
	}
	return d.layout.Layout(n.style.Handle)
}

// AbsoluteLayout returns the computed box of id in viewport coordinates.
func (d *DOM) AbsoluteLayout(id NodeID) (Layout, error) {
	l, err := d.LayoutOf(id)
	if err != nil {
		return Layout{}, err
	}
	for p := d.nodes[id].parent; p != NoNode; p = d.nodes[p].parent {
		pl, err := d.LayoutOf(p)
		if err != nil {
			return Layout{}, err
		}
		l.X += pl.X
		l.Y += pl.Y
	}
	return l, nil
}

// HoverTarget returns the node currently under the pointer.
func (d *DOM) HoverTarget() NodeID { return d.hoverTarget }

// SetHoverTarget records the hover target and schedules the old and new
// targets for restyling. Caller must hold the write lock.
func (d *DOM) SetHoverTarget(id NodeID) bool {
	if d.hoverTarget == id {
		return false
	}
	if n, ok := d.nodes[d.hoverTarget]; ok {
		n.pending = true
	}
	if n, ok := d.nodes[id]; ok {
		n.pending = true
	}
	d.hoverTarget = id
	return true
}

// Focused returns the focused node, or NoNode.
func (d *DOM) Focused() NodeID { return d.focused }

// SetFocus moves focus to id (NoNode blurs) and marks both nodes dirty.
// Caller must hold the write lock.
func (d *DOM) SetFocus(id NodeID) bool {
	if d.focused == id {
		return false
	}
	if d.focused != NoNode {
		d.MarkDirty(d.focused)
	}
	if id != NoNode {
		d.MarkDirty(id)
	}
	d.focused = id
	return true
}

// PrintTree writes an indented dump of the tree for debugging.
func (d *DOM) PrintTree(w io.Writer) {
	var walk func(id NodeID, depth int)
	walk = func(id NodeID, depth int) {
		n, ok := d.nodes[id]
		if !ok {
			return
		}
		indent := strings.Repeat("  ", depth)
		var l Layout
		if n.hasStyle {
			l, _ = d.layout.Layout(n.style.Handle)
		}
		switch n.Kind {
		case KindText:
			fmt.Fprintf(w, "%s#%d %q (%.0f,%.0f %.0fx%.0f)\n", indent, n.ID, n.Text, l.X, l.Y, l.Width, l.Height)
		case KindPlaceholder:
			fmt.Fprintf(w, "%s#%d <placeholder>\n", indent, n.ID)
		default:
			fmt.Fprintf(w, "%s#%d <%s> (%.0f,%.0f %.0fx%.0f)\n", indent, n.ID, n.Tag, l.X, l.Y, l.Width, l.Height)
		}
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	walk(RootID, 0)
}
