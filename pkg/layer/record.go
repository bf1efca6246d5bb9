package layer

import "slices"

// Record is one raw layer as listed by the container engine.
// Field names follow the engine's image-list JSON so records can be decoded
// directly from API dumps.
type Record struct {
	ID          string   `json:"Id" yaml:"Id"`
	ParentID    string   `json:"ParentId" yaml:"ParentId"`
	RepoTags    []string `json:"RepoTags" yaml:"RepoTags"`
	VirtualSize int64    `json:"VirtualSize" yaml:"VirtualSize"`
}

// Tree is the structural snapshot of a layer and everything below it,
// produced by [Layer.ToRecord] for structured output.
type Tree struct {
	ID          string   `json:"Id" yaml:"Id"`
	ParentID    string   `json:"ParentId" yaml:"ParentId"`
	RepoTags    []string `json:"RepoTags" yaml:"RepoTags"`
	VirtualSize int64    `json:"VirtualSize" yaml:"VirtualSize"`
	Children    []Tree   `json:"Children" yaml:"Children"`
}

// ToRecord serializes the layer and its descendants recursively.
// Children appear in the layer's current children order. Slices are never
// nil so JSON output always carries [] rather than null.
func (l *Layer) ToRecord() Tree {
	t := Tree{
		ID:          l.id,
		RepoTags:    slices.Clone(l.tags),
		VirtualSize: l.size,
		Children:    make([]Tree, 0, len(l.children)),
	}
	if t.RepoTags == nil {
		t.RepoTags = []string{}
	}
	if l.parent != nil {
		t.ParentID = l.parent.id
	}
	for _, c := range l.children {
		t.Children = append(t.Children, c.ToRecord())
	}
	return t
}

// Record returns the flat raw record for this layer alone.
func (l *Layer) Record() Record {
	r := Record{ID: l.id, RepoTags: slices.Clone(l.tags), VirtualSize: l.size}
	if l.parent != nil {
		r.ParentID = l.parent.id
	}
	return r
}

// Flatten lists the tree's records depth-first, parents before children.
// The root record is emitted without a parent so the result is always valid
// input for [BuildForest], even for a subtree cut out of a larger forest.
func (t Tree) Flatten() []Record {
	var out []Record
	var walk func(n Tree, parent string)
	walk = func(n Tree, parent string) {
		out = append(out, Record{
			ID:          n.ID,
			ParentID:    parent,
			RepoTags:    slices.Clone(n.RepoTags),
			VirtualSize: n.VirtualSize,
		})
		for _, c := range n.Children {
			walk(c, n.ID)
		}
	}
	walk(t, "")
	return out
}
