package layer

import (
	"errors"
	"slices"
	"testing"
)

func mustNew(t *testing.T, id string, tags []string, size int64) *Layer {
	t.Helper()
	l, err := New(id, tags, size)
	if err != nil {
		t.Fatalf("New(%q) error: %v", id, err)
	}
	return l
}

func childIDs(l *Layer) []string {
	ids := make([]string, 0, len(l.Children()))
	for _, c := range l.Children() {
		ids = append(ids, c.ID())
	}
	return ids
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		size    int64
		wantErr error
	}{
		{"valid", "abc", 10, nil},
		{"zero size", "abc", 0, nil},
		{"empty id", "", 10, ErrInvalidID},
		{"negative size", "abc", -1, ErrInvalidSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.id, nil, tt.size)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !l.IsHead() || len(l.Children()) != 0 {
				t.Error("New() layer should start detached")
			}
		})
	}
}

func TestNew_CopiesTags(t *testing.T) {
	tags := []string{"x:latest"}
	l := mustNew(t, "a", tags, 0)
	tags[0] = "changed"
	if got := l.Tags()[0]; got != "x:latest" {
		t.Errorf("Tags()[0] = %q, want x:latest", got)
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"abc", "abc"},
		{"0123456789ab", "0123456789ab"},
		{"0123456789abcdef", "0123456789ab"},
	}
	for _, tt := range tests {
		l := mustNew(t, tt.id, nil, 0)
		if got := l.ShortID(); got != tt.want {
			t.Errorf("ShortID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestJoin(t *testing.T) {
	p := mustNew(t, "p", nil, 0)
	a := mustNew(t, "a", nil, 0)
	b := mustNew(t, "b", nil, 0)
	Join(p, a)
	Join(p, b)

	if a.Parent() != p || b.Parent() != p {
		t.Error("Join() should set parent on child")
	}
	if got := childIDs(p); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("children = %v, want [a b]", got)
	}
	if p.IsHead() != true || a.IsHead() != false {
		t.Error("IsHead() mismatch after Join")
	}
}

func TestRemoveFromChain_KeepsSiblingPosition(t *testing.T) {
	p := mustNew(t, "p", nil, 0)
	a := mustNew(t, "a", nil, 0)
	x := mustNew(t, "x", nil, 0)
	b := mustNew(t, "b", nil, 0)
	c := mustNew(t, "c", nil, 0)
	d := mustNew(t, "d", nil, 0)
	Join(p, a)
	Join(p, x)
	Join(p, b)
	Join(x, c)
	Join(x, d)

	x.RemoveFromChain()

	if got := childIDs(p); !slices.Equal(got, []string{"a", "c", "d", "b"}) {
		t.Errorf("parent children = %v, want [a c d b]", got)
	}
	if c.Parent() != p || d.Parent() != p {
		t.Error("children of removed layer should be re-parented")
	}
	if x.Parent() != nil || len(x.Children()) != 0 {
		t.Error("removed layer should have no links")
	}
}

func TestRemoveFromChain_Head(t *testing.T) {
	h := mustNew(t, "h", nil, 0)
	c := mustNew(t, "c", nil, 0)
	Join(h, c)

	h.RemoveFromChain()

	if !c.IsHead() {
		t.Error("child of removed head should become a head")
	}
}

func TestRemoveFromChain_Leaf(t *testing.T) {
	p := mustNew(t, "p", nil, 0)
	l := mustNew(t, "l", nil, 0)
	Join(p, l)

	l.RemoveFromChain()

	if len(p.Children()) != 0 {
		t.Errorf("parent children = %v, want []", childIDs(p))
	}
}

func TestRootDepthDescendants(t *testing.T) {
	a := mustNew(t, "a", nil, 0)
	b := mustNew(t, "b", nil, 0)
	c := mustNew(t, "c", nil, 0)
	d := mustNew(t, "d", nil, 0)
	Join(a, b)
	Join(b, c)
	Join(a, d)

	if c.Root() != a {
		t.Errorf("Root() = %s, want a", c.Root().ID())
	}
	if got := c.Depth(); got != 2 {
		t.Errorf("Depth() = %d, want 2", got)
	}
	if got := a.Descendants(); got != 3 {
		t.Errorf("Descendants() = %d, want 3", got)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{1024*1024 - 1, "1024.0 KiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
		{1024 * 1024 * 1024 * 1024, "1.0 TiB"},
		{5 * 1024 * 1024 * 1024 * 1024 * 1024, "5120.0 TiB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.size); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestRenderLine(t *testing.T) {
	tests := []struct {
		name string
		id   string
		tags []string
		size int64
		want string
	}{
		{"untagged", "0123456789abcdef", nil, 0, "0123456789ab Tags: [] Size: 0 B"},
		{"one tag", "0123456789abcdef", []string{"x:latest"}, 100, "0123456789ab Tags: ['x:latest'] Size: 100 B"},
		{"two tags", "abc", []string{"a:1", "a:latest"}, 2048, "abc Tags: ['a:1', 'a:latest'] Size: 2.0 KiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := mustNew(t, tt.id, tt.tags, tt.size)
			if got := l.RenderLine(); got != tt.want {
				t.Errorf("RenderLine() = %q, want %q", got, tt.want)
			}
			if got := l.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToRecord(t *testing.T) {
	a := mustNew(t, "a", nil, 1)
	b := mustNew(t, "b", []string{"x:latest"}, 2)
	c := mustNew(t, "c", nil, 3)
	Join(a, b)
	Join(a, c)

	tree := a.ToRecord()

	if tree.ParentID != "" {
		t.Errorf("head ParentID = %q, want empty", tree.ParentID)
	}
	if tree.RepoTags == nil {
		t.Error("RepoTags should be non-nil for untagged layers")
	}
	if len(tree.Children) != 2 || tree.Children[0].ID != "b" || tree.Children[1].ID != "c" {
		t.Fatalf("Children = %+v, want [b c]", tree.Children)
	}
	if tree.Children[0].ParentID != "a" {
		t.Errorf("child ParentID = %q, want a", tree.Children[0].ParentID)
	}
	if tree.Children[1].Children == nil {
		t.Error("leaf Children should be non-nil")
	}
}

func TestTreeFlatten_Subtree(t *testing.T) {
	a := mustNew(t, "a", nil, 0)
	b := mustNew(t, "b", nil, 0)
	c := mustNew(t, "c", nil, 0)
	Join(a, b)
	Join(b, c)

	recs := b.ToRecord().Flatten()

	if len(recs) != 2 {
		t.Fatalf("Flatten() returned %d records, want 2", len(recs))
	}
	if recs[0].ID != "b" || recs[0].ParentID != "" {
		t.Errorf("root record = %+v, want b without parent", recs[0])
	}
	if recs[1].ID != "c" || recs[1].ParentID != "b" {
		t.Errorf("child record = %+v, want c under b", recs[1])
	}
}
