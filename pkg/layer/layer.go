package layer

import (
	"fmt"
	"slices"
	"strings"
)

// shortIDLength is the number of identifier characters shown in rendered lines.
const shortIDLength = 12

// Layer is one image layer and its position in the derivation forest.
//
// A Layer is created once per raw record and wired to its parent with [Join].
// The parent link is a plain back-reference: the [Forest] map is the single
// owner of every layer, and children are an ordered view into that map.
//
// The zero value is not usable - use [New].
// Layer is not safe for concurrent mutation.
type Layer struct {
	id       string
	tags     []string
	size     int64
	parent   *Layer
	children []*Layer
}

// New creates a detached layer with no parent and no children.
// Returns ErrInvalidID if id is empty, or ErrInvalidSize if size is negative.
// The tags slice is copied; a nil slice means the layer is untagged.
func New(id string, tags []string, size int64) (*Layer, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: layer %s has size %d", ErrInvalidSize, id, size)
	}
	return &Layer{id: id, tags: slices.Clone(tags), size: size}, nil
}

// ID returns the full layer identifier.
func (l *Layer) ID() string { return l.id }

// ShortID returns the first 12 characters of the identifier,
// or the whole identifier if it is shorter.
func (l *Layer) ShortID() string {
	if len(l.id) <= shortIDLength {
		return l.id
	}
	return l.id[:shortIDLength]
}

// Tags returns the human-facing references to this layer in engine order.
// The returned slice should not be modified.
func (l *Layer) Tags() []string { return l.tags }

// IsTagged reports whether the layer carries at least one tag.
func (l *Layer) IsTagged() bool { return len(l.tags) > 0 }

// Size returns the layer's byte count as reported by the engine.
func (l *Layer) Size() int64 { return l.size }

// Parent returns the parent layer, or nil for a head.
func (l *Layer) Parent() *Layer { return l.parent }

// Children returns the direct children in their current order.
// The returned slice should not be modified - use it as a read-only view.
func (l *Layer) Children() []*Layer { return l.children }

// IsHead reports whether the layer has no parent.
func (l *Layer) IsHead() bool { return l.parent == nil }

// Root follows parent links up to the head of this layer's tree.
func (l *Layer) Root() *Layer {
	cur := l
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Depth returns the number of parent links between the layer and its head.
func (l *Layer) Depth() int {
	depth := 0
	for cur := l.parent; cur != nil; cur = cur.parent {
		depth++
	}
	return depth
}

// Descendants returns the number of layers below this one.
func (l *Layer) Descendants() int {
	n := 0
	for _, c := range l.children {
		n += 1 + c.Descendants()
	}
	return n
}

// Join appends child to parent's children and points child back at parent.
//
// Join does not check whether child is already attached elsewhere. Forests
// are built in a single pass where every record is joined exactly once.
func Join(parent, child *Layer) {
	parent.children = append(parent.children, child)
	child.parent = parent
}

// RemoveFromChain detaches the layer from its tree.
//
// Every child is re-parented to the layer's own parent (or becomes a head if
// the layer was a head). The parent replaces the layer in its children with
// the layer's former children, keeping their position among the siblings.
// Afterwards the layer has no parent and no children. Runs in O(children+siblings).
func (l *Layer) RemoveFromChain() {
	p := l.parent
	for _, c := range l.children {
		c.parent = p
	}
	if p != nil {
		if idx := slices.Index(p.children, l); idx >= 0 {
			p.children = slices.Concat(p.children[:idx], l.children, p.children[idx+1:])
		} else {
			p.children = append(p.children, l.children...)
		}
	}
	l.children = nil
	l.parent = nil
}

// FormatSize returns the layer size in human-readable base-1024 units.
func (l *Layer) FormatSize() string { return FormatSize(l.size) }

// RenderLine returns "<short-id> Tags: <tags> Size: <human-size>".
func (l *Layer) RenderLine() string {
	return fmt.Sprintf("%s Tags: %s Size: %s", l.ShortID(), formatTags(l.tags), l.FormatSize())
}

// String implements fmt.Stringer using [Layer.RenderLine].
func (l *Layer) String() string { return l.RenderLine() }

// formatTags renders tags as a bracketed list of quoted names, for
// example "['a:1', 'a:latest']".
func formatTags(tags []string) string {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = "'" + t + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
