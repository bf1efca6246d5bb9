package layer

import (
	"fmt"
	"slices"

	apperrors "github.com/matzehuels/docktree/pkg/errors"
)

var (
	// ErrInvalidID is returned by [New] when the layer ID is empty.
	ErrInvalidID = apperrors.New(apperrors.ErrCodeInvalidInput, "layer ID must not be empty")

	// ErrInvalidSize is returned by [New] when the engine reports a negative size.
	ErrInvalidSize = apperrors.New(apperrors.ErrCodeInvalidInput, "layer size must not be negative")

	// ErrDuplicateIdentifier is returned by [BuildForest] and [Forest.Add] when
	// two records share an ID. No partial forest is returned.
	ErrDuplicateIdentifier = apperrors.New(apperrors.ErrCodeDuplicateIdentifier, "duplicate layer identifier")

	// ErrDanglingParent is returned by [BuildForest] when a record names a
	// parent ID that is not present in the input set.
	ErrDanglingParent = apperrors.New(apperrors.ErrCodeDanglingParent, "parent layer not found")

	// ErrCycle is returned by [BuildForest] and [Forest.Validate] when following
	// parent links never reaches a head.
	ErrCycle = apperrors.New(apperrors.ErrCodeInvalidInput, "layer ancestry contains a cycle")

	// ErrBrokenLink is returned by [Forest.Validate] when parent and children
	// links disagree, or a link points outside the forest.
	ErrBrokenLink = apperrors.New(apperrors.ErrCodeInternal, "inconsistent parent/child link")
)

// Forest maps layer IDs to layers and owns every layer it contains.
//
// Iteration helpers return layers in insertion order (the order of the raw
// records), so output built from a forest is reproducible between runs.
//
// The zero value is not usable - use [NewForest] or [BuildForest].
// Forest is not safe for concurrent mutation; concurrent reads are fine.
type Forest struct {
	layers map[string]*Layer
	order  []string
}

// NewForest creates an empty forest.
func NewForest() *Forest {
	return &Forest{layers: make(map[string]*Layer)}
}

// BuildForest turns raw records into a linked forest in two passes.
//
// The first pass creates one layer per record; the second joins every record
// with a non-empty ParentID to its parent. Tags are taken as given: sentinel
// "no tag" markers must already be stripped by the record source.
//
// Returns an error wrapping ErrDuplicateIdentifier, ErrDanglingParent,
// ErrInvalidID or ErrCycle. On error no forest is returned.
func BuildForest(records []Record) (*Forest, error) {
	f := &Forest{
		layers: make(map[string]*Layer, len(records)),
		order:  make([]string, 0, len(records)),
	}
	for _, r := range records {
		l, err := New(r.ID, r.RepoTags, r.VirtualSize)
		if err != nil {
			return nil, err
		}
		if err := f.Add(l); err != nil {
			return nil, err
		}
	}
	for _, r := range records {
		if r.ParentID == "" {
			continue
		}
		parent, ok := f.layers[r.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: layer %s references parent %s", ErrDanglingParent, r.ID, r.ParentID)
		}
		Join(parent, f.layers[r.ID])
	}
	if err := f.checkAcyclic(); err != nil {
		return nil, err
	}
	return f, nil
}

// Add inserts a detached layer. Returns an error wrapping ErrDuplicateIdentifier
// if a layer with the same ID is already present.
func (f *Forest) Add(l *Layer) error {
	if _, exists := f.layers[l.id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentifier, l.id)
	}
	f.layers[l.id] = l
	f.order = append(f.order, l.id)
	return nil
}

// Len returns the number of layers in the forest.
func (f *Forest) Len() int { return len(f.layers) }

// Get returns the layer with the given full ID.
func (f *Forest) Get(id string) (*Layer, bool) {
	l, ok := f.layers[id]
	return l, ok
}

// Layers returns every layer in insertion order.
func (f *Forest) Layers() []*Layer {
	out := make([]*Layer, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.layers[id])
	}
	return out
}

// Heads returns the layers without a parent, in insertion order.
func (f *Forest) Heads() []*Layer {
	var heads []*Layer
	for _, id := range f.order {
		if l := f.layers[id]; l.IsHead() {
			heads = append(heads, l)
		}
	}
	return heads
}

// HeadsFor returns the heads of the trees containing the layers matched by
// selector. See [Forest.Resolve] for how selectors match. Heads are
// de-duplicated, keeping first-seen order.
func (f *Forest) HeadsFor(selector string) ([]*Layer, error) {
	matches, err := f.Resolve(selector)
	if err != nil {
		return nil, err
	}
	var heads []*Layer
	seen := make(map[*Layer]bool, len(matches))
	for _, m := range matches {
		root := m.Root()
		if !seen[root] {
			seen[root] = true
			heads = append(heads, root)
		}
	}
	return heads, nil
}

// Clone returns an independent deep copy. Layers, tags and children order
// are duplicated; nothing is shared with the receiver.
func (f *Forest) Clone() *Forest {
	out := &Forest{
		layers: make(map[string]*Layer, len(f.layers)),
		order:  slices.Clone(f.order),
	}
	for _, id := range f.order {
		l := f.layers[id]
		out.layers[id] = &Layer{id: l.id, tags: slices.Clone(l.tags), size: l.size}
	}
	for _, id := range f.order {
		for _, c := range f.layers[id].children {
			if child, ok := out.layers[c.id]; ok {
				Join(out.layers[id], child)
			}
		}
	}
	return out
}

// RemoveUntaggedLayers returns a copy of the forest without untagged layers.
//
// Each untagged layer is cut out with [Layer.RemoveFromChain], so its children
// move up to its former parent. The receiver and its layers are left intact.
// Removal only touches immediate neighbours, so the result does not depend on
// processing order. Applying it twice yields the same layer set as once.
func (f *Forest) RemoveUntaggedLayers() *Forest {
	out := f.Clone()
	kept := make([]string, 0, len(out.order))
	for _, id := range out.order {
		l := out.layers[id]
		if l.IsTagged() {
			kept = append(kept, id)
			continue
		}
		l.RemoveFromChain()
		delete(out.layers, id)
	}
	out.order = kept
	return out
}

// Records flattens the forest back into raw records in insertion order.
// BuildForest(f.Records()) reproduces the forest's structure.
func (f *Forest) Records() []Record {
	out := make([]Record, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.layers[id].Record())
	}
	return out
}

// Validate checks the forest invariants:
//   - every parent link is mirrored by exactly one entry in the parent's children
//   - every child entry points back at its parent
//   - all links stay inside the forest
//   - following parent links always reaches a head
//
// Together these make the forest a disjoint union of trees.
func (f *Forest) Validate() error {
	seenAsChild := make(map[*Layer]int, len(f.layers))
	for _, id := range f.order {
		l := f.layers[id]
		if p := l.parent; p != nil {
			if f.layers[p.id] != p {
				return fmt.Errorf("%w: parent %s of %s is not in the forest", ErrBrokenLink, p.id, l.id)
			}
		}
		for _, c := range l.children {
			if f.layers[c.id] != c {
				return fmt.Errorf("%w: child %s of %s is not in the forest", ErrBrokenLink, c.id, l.id)
			}
			if c.parent != l {
				return fmt.Errorf("%w: %s lists %s as child but its parent differs", ErrBrokenLink, l.id, c.id)
			}
			seenAsChild[c]++
		}
	}
	for _, id := range f.order {
		l := f.layers[id]
		want := 1
		if l.IsHead() {
			want = 0
		}
		if got := seenAsChild[l]; got != want {
			return fmt.Errorf("%w: %s appears %d times in children lists, want %d", ErrBrokenLink, l.id, got, want)
		}
	}
	return f.checkAcyclic()
}

// checkAcyclic walks parent links from every layer. A walk longer than the
// forest itself can only happen on a cycle.
func (f *Forest) checkAcyclic() error {
	limit := len(f.layers)
	for _, id := range f.order {
		steps := 0
		for cur := f.layers[id]; cur.parent != nil; cur = cur.parent {
			steps++
			if steps > limit {
				return fmt.Errorf("%w: starting at %s", ErrCycle, id)
			}
		}
	}
	return nil
}
