package retained

import (
	"fmt"
	"slices"
)

// ============================================================================
// Mutations
// ============================================================================

// NodeSpec describes a node to create. When ID already names a live node,
// the node is moved instead and the remaining fields are ignored.
type NodeSpec struct {
	ID        NodeID
	Kind      NodeKind
	Tag       string
	Text      string
	Attrs     []Attr
	Listeners []string
}

// Mutation is one entry of a mutation log. The set of mutations is closed.
type Mutation interface {
	mutation()
}

// AppendChild adds Node as the last child of Parent.
type AppendChild struct {
	Parent NodeID
	Node   NodeSpec
}

// InsertBefore adds Node as a sibling immediately before Anchor.
type InsertBefore struct {
	Anchor NodeID
	Node   NodeSpec
}

// Remove destroys ID and its subtree.
type Remove struct {
	ID NodeID
}

// ReplaceWith destroys ID and its subtree and puts Node in its place.
type ReplaceWith struct {
	ID   NodeID
	Node NodeSpec
}

// SetText replaces the content of a text node.
type SetText struct {
	ID   NodeID
	Text string
}

// SetAttribute sets an attribute. An empty Value removes it.
type SetAttribute struct {
	ID    NodeID
	Name  string
	Value string
}

// CreatePlaceholder appends an empty placeholder node to Parent.
type CreatePlaceholder struct {
	Parent NodeID
	ID     NodeID
}

// NewEventListener registers interest in the named event.
type NewEventListener struct {
	ID   NodeID
	Name string
}

// RemoveEventListener drops interest in the named event.
type RemoveEventListener struct {
	ID   NodeID
	Name string
}

func (AppendChild) mutation()         {}
func (InsertBefore) mutation()        {}
func (Remove) mutation()              {}
func (ReplaceWith) mutation()         {}
func (SetText) mutation()             {}
func (SetAttribute) mutation()        {}
func (CreatePlaceholder) mutation()   {}
func (NewEventListener) mutation()    {}
func (RemoveEventListener) mutation() {}

// ApplyMutations applies muts in order. It stops at the first mutation that
// references an unknown node. Caller must hold the write lock.
func (d *DOM) ApplyMutations(muts []Mutation) error {
	for i, m := range muts {
		if err := d.apply(m); err != nil {
			return fmt.Errorf("mutation %d (%T): %w", i, m, err)
		}
	}
	return nil
}

func (d *DOM) apply(m Mutation) error {
	switch m := m.(type) {
	case AppendChild:
		parent, err := d.Get(m.Parent)
		if err != nil {
			return err
		}
		if err := d.checkAttach(parent, m.Node.ID); err != nil {
			return err
		}
		n, err := d.attachable(m.Node)
		if err != nil {
			return err
		}
		d.link(parent, n, len(parent.children))

	case InsertBefore:
		anchor, err := d.Get(m.Anchor)
		if err != nil {
			return err
		}
		parent, err := d.Get(anchor.parent)
		if err != nil {
			return err
		}
		if err := d.checkAttach(parent, m.Node.ID); err != nil {
			return err
		}
		n, err := d.attachable(m.Node)
		if err != nil {
			return err
		}
		d.unlink(n)
		d.link(parent, n, slices.Index(parent.children, anchor.ID))

	case Remove:
		n, err := d.Get(m.ID)
		if err != nil {
			return err
		}
		if n.ID == RootID {
			return fmt.Errorf("cannot remove root")
		}
		d.unlink(n)
		d.destroy(n)

	case ReplaceWith:
		old, err := d.Get(m.ID)
		if err != nil {
			return err
		}
		if m.Node.ID == old.ID {
			return fmt.Errorf("cannot replace node %d with itself", old.ID)
		}
		parent, err := d.Get(old.parent)
		if err != nil {
			return err
		}
		if err := d.checkAttach(parent, m.Node.ID); err != nil {
			return err
		}
		n, err := d.attachable(m.Node)
		if err != nil {
			return err
		}
		d.unlink(n)
		idx := slices.Index(parent.children, old.ID)
		d.unlink(old)
		d.destroy(old)
		d.link(parent, n, idx)

	case SetText:
		n, err := d.Get(m.ID)
		if err != nil {
			return err
		}
		if n.Text != m.Text {
			n.Text = m.Text
			n.pending = true
		}

	case SetAttribute:
		n, err := d.Get(m.ID)
		if err != nil {
			return err
		}
		if n.setAttr(m.Name, m.Value) {
			n.pending = true
		}

	case CreatePlaceholder:
		parent, err := d.Get(m.Parent)
		if err != nil {
			return err
		}
		n, err := d.attachable(NodeSpec{ID: m.ID, Kind: KindPlaceholder})
		if err != nil {
			return err
		}
		d.link(parent, n, len(parent.children))

	case NewEventListener:
		n, err := d.Get(m.ID)
		if err != nil {
			return err
		}
		if !slices.Contains(n.Listeners, m.Name) {
			n.Listeners = append(n.Listeners, m.Name)
			n.pending = true
		}

	case RemoveEventListener:
		n, err := d.Get(m.ID)
		if err != nil {
			return err
		}
		if i := slices.Index(n.Listeners, m.Name); i >= 0 {
			n.Listeners = slices.Delete(n.Listeners, i, i+1)
			n.pending = true
		}

	default:
		return fmt.Errorf("unsupported mutation %T", m)
	}
	return nil
}

// attachable returns the live node named by spec, detached from its parent,
// or creates it.
func (d *DOM) attachable(spec NodeSpec) (*Node, error) {
	if spec.ID == NoNode || spec.ID == RootID {
		return nil, fmt.Errorf("invalid node id %d", spec.ID)
	}
	if n, ok := d.nodes[spec.ID]; ok {
		d.unlink(n)
		return n, nil
	}
	n := &Node{
		ID:        spec.ID,
		Kind:      spec.Kind,
		Tag:       spec.Tag,
		Text:      spec.Text,
		Attrs:     slices.Clone(spec.Attrs),
		Listeners: slices.Clone(spec.Listeners),
		pending:   true,
	}
	d.nodes[n.ID] = n
	return n, nil
}

// checkAttach rejects attaching id under parent when id is parent itself or
// one of its ancestors.
func (d *DOM) checkAttach(parent *Node, id NodeID) error {
	for p := parent; p != nil; p = d.nodes[p.parent] {
		if p.ID == id {
			return fmt.Errorf("cannot move node %d under its own subtree (parent %d)", id, parent.ID)
		}
	}
	return nil
}

// link inserts n into parent's children at idx.
func (d *DOM) link(parent, n *Node, idx int) {
	if idx < 0 || idx > len(parent.children) {
		idx = len(parent.children)
	}
	parent.children = slices.Insert(parent.children, idx, n.ID)
	n.parent = parent.ID
	parent.pending = true
	n.pending = true
}

// unlink detaches n from its parent, if any.
func (d *DOM) unlink(n *Node) {
	if n.parent == NoNode {
		return
	}
	if p, ok := d.nodes[n.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(c NodeID) bool { return c == n.ID })
		p.pending = true
		d.MarkDirty(p.ID)
	}
	n.parent = NoNode
}

// destroy deletes the detached subtree rooted at n and releases its layout
// handles and textures.
func (d *DOM) destroy(n *Node) {
	for _, c := range n.children {
		if cn, ok := d.nodes[c]; ok {
			d.destroy(cn)
		}
	}
	if n.hasStyle {
		if err := d.layout.Remove(n.style.Handle); err != nil {
			slogger().Warn("release layout handle", "node", n.ID, "err", err)
		}
		delete(d.owners, n.style.Handle)
	}
	if n.hasImage && n.image.Texture != NoTexture {
		d.textures.Free(n.image.Texture)
	}
	if d.focused == n.ID {
		d.focused = NoNode
	}
	if d.hoverTarget == n.ID {
		d.hoverTarget = NoNode
	}
	delete(d.nodes, n.ID)
}
