package layer

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	apperrors "github.com/matzehuels/docktree/pkg/errors"
)

// chainRecords is the A <- B(x:latest) <- C chain used across tests.
func chainRecords() []Record {
	return []Record{
		{ID: "A"},
		{ID: "B", ParentID: "A", RepoTags: []string{"x:latest"}, VirtualSize: 100},
		{ID: "C", ParentID: "B"},
	}
}

// mixedRecords has two trees with tagged and untagged layers at every depth.
//
//	base (untagged)
//	├── mid (app:1)
//	│   ├── tmp (untagged)
//	│   │   └── top (app:2)
//	│   └── leaf (untagged)
//	└── side (side:latest)
//	other (other:latest)
//	└── other-tmp (untagged)
func mixedRecords() []Record {
	return []Record{
		{ID: "base"},
		{ID: "mid", ParentID: "base", RepoTags: []string{"app:1"}},
		{ID: "tmp", ParentID: "mid"},
		{ID: "top", ParentID: "tmp", RepoTags: []string{"app:2"}},
		{ID: "leaf", ParentID: "mid"},
		{ID: "side", ParentID: "base", RepoTags: []string{"side:latest"}},
		{ID: "other", RepoTags: []string{"other:latest"}},
		{ID: "other-tmp", ParentID: "other"},
	}
}

func mustBuild(t *testing.T, records []Record) *Forest {
	t.Helper()
	f, err := BuildForest(records)
	if err != nil {
		t.Fatalf("BuildForest() error: %v", err)
	}
	return f
}

func ids(layers []*Layer) []string {
	out := make([]string, len(layers))
	for i, l := range layers {
		out[i] = l.ID()
	}
	return out
}

func TestBuildForest_Chain(t *testing.T) {
	f := mustBuild(t, chainRecords())

	if f.Len() != 3 {
		t.Errorf("Len() = %d, want 3", f.Len())
	}
	if got := ids(f.Heads()); !slices.Equal(got, []string{"A"}) {
		t.Errorf("Heads() = %v, want [A]", got)
	}
	b, _ := f.Get("B")
	if b.Parent().ID() != "A" {
		t.Errorf("B.Parent() = %s, want A", b.Parent().ID())
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestBuildForest_ParentAfterChild(t *testing.T) {
	f := mustBuild(t, []Record{
		{ID: "child", ParentID: "parent"},
		{ID: "parent"},
	})
	if got := ids(f.Heads()); !slices.Equal(got, []string{"parent"}) {
		t.Errorf("Heads() = %v, want [parent]", got)
	}
}

func TestBuildForest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		records  []Record
		sentinel error
		code     apperrors.Code
	}{
		{
			name:     "dangling parent",
			records:  []Record{{ID: "A"}, {ID: "B", ParentID: "Z"}},
			sentinel: ErrDanglingParent,
			code:     apperrors.ErrCodeDanglingParent,
		},
		{
			name:     "duplicate id",
			records:  []Record{{ID: "A"}, {ID: "A", ParentID: "A"}},
			sentinel: ErrDuplicateIdentifier,
			code:     apperrors.ErrCodeDuplicateIdentifier,
		},
		{
			name:     "empty id",
			records:  []Record{{ID: ""}},
			sentinel: ErrInvalidID,
			code:     apperrors.ErrCodeInvalidInput,
		},
		{
			name:     "cycle",
			records:  []Record{{ID: "A", ParentID: "B"}, {ID: "B", ParentID: "A"}},
			sentinel: ErrCycle,
			code:     apperrors.ErrCodeInvalidInput,
		},
		{
			name:     "self parent",
			records:  []Record{{ID: "A", ParentID: "A"}},
			sentinel: ErrCycle,
			code:     apperrors.ErrCodeInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := BuildForest(tt.records)
			if f != nil {
				t.Error("BuildForest() should not return a partial forest")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("BuildForest() error = %v, want %v", err, tt.sentinel)
			}
			if got := apperrors.GetCode(err); got != tt.code {
				t.Errorf("GetCode() = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestBuildForest_Empty(t *testing.T) {
	f := mustBuild(t, nil)
	if f.Len() != 0 || len(f.Heads()) != 0 {
		t.Errorf("empty input: Len() = %d, Heads() = %d", f.Len(), len(f.Heads()))
	}
}

func TestBuildForest_HeadsPlusInnerEqualsTotal(t *testing.T) {
	f := mustBuild(t, mixedRecords())

	heads := f.Heads()
	inner := 0
	for _, l := range f.Layers() {
		if !l.IsHead() {
			inner++
		}
	}
	if len(heads)+inner != len(mixedRecords()) {
		t.Errorf("heads %d + inner %d != records %d", len(heads), inner, len(mixedRecords()))
	}
	if got := ids(heads); !slices.Equal(got, []string{"base", "other"}) {
		t.Errorf("Heads() = %v, want [base other]", got)
	}
}

func TestRemoveUntaggedLayers_Chain(t *testing.T) {
	f := mustBuild(t, chainRecords())

	pruned := f.RemoveUntaggedLayers()

	if pruned.Len() != 1 {
		t.Fatalf("pruned Len() = %d, want 1", pruned.Len())
	}
	b, ok := pruned.Get("B")
	if !ok {
		t.Fatal("pruned forest should contain B")
	}
	if !b.IsHead() || len(b.Children()) != 0 {
		t.Errorf("B should be a childless head, parent=%v children=%v", b.Parent(), childIDs(b))
	}
	if !slices.Equal(b.Tags(), []string{"x:latest"}) {
		t.Errorf("B.Tags() = %v, want [x:latest]", b.Tags())
	}
	if err := pruned.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestRemoveUntaggedLayers_Mixed(t *testing.T) {
	pruned := mustBuild(t, mixedRecords()).RemoveUntaggedLayers()

	if got := ids(pruned.Heads()); !slices.Equal(got, []string{"mid", "side", "other"}) {
		t.Errorf("Heads() = %v, want [mid side other]", got)
	}
	mid, _ := pruned.Get("mid")
	if got := childIDs(mid); !slices.Equal(got, []string{"top"}) {
		t.Errorf("mid children = %v, want [top]", got)
	}
	other, _ := pruned.Get("other")
	if len(other.Children()) != 0 {
		t.Errorf("other children = %v, want []", childIDs(other))
	}
	if err := pruned.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestRemoveUntaggedLayers_DoesNotMutate(t *testing.T) {
	f := mustBuild(t, mixedRecords())
	before := f.Records()

	_ = f.RemoveUntaggedLayers()

	if !reflect.DeepEqual(f.Records(), before) {
		t.Error("RemoveUntaggedLayers() mutated its receiver")
	}
	if err := f.Validate(); err != nil {
		t.Errorf("original Validate() error: %v", err)
	}
}

func TestRemoveUntaggedLayers_Idempotent(t *testing.T) {
	once := mustBuild(t, mixedRecords()).RemoveUntaggedLayers()
	twice := once.RemoveUntaggedLayers()

	if !slices.Equal(ids(once.Layers()), ids(twice.Layers())) {
		t.Errorf("ids once = %v, twice = %v", ids(once.Layers()), ids(twice.Layers()))
	}
	if !reflect.DeepEqual(once.Records(), twice.Records()) {
		t.Error("second prune changed structure")
	}
}

func TestRemoveUntaggedLayers_AllUntagged(t *testing.T) {
	pruned := mustBuild(t, []Record{{ID: "a"}, {ID: "b", ParentID: "a"}}).RemoveUntaggedLayers()
	if pruned.Len() != 0 || len(pruned.Heads()) != 0 {
		t.Errorf("pruned Len() = %d, want 0", pruned.Len())
	}
}

func TestClone_Independent(t *testing.T) {
	f := mustBuild(t, mixedRecords())
	c := f.Clone()

	cl, _ := c.Get("tmp")
	cl.RemoveFromChain()

	orig, _ := f.Get("tmp")
	if orig.Parent() == nil || len(orig.Children()) != 1 {
		t.Error("mutating a clone affected the original")
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if !reflect.DeepEqual(f.Records(), mustBuild(t, mixedRecords()).Records()) {
		t.Error("original records changed")
	}
}

func TestValidate_DetectsCycle(t *testing.T) {
	f := NewForest()
	a := mustNew(t, "a", nil, 0)
	b := mustNew(t, "b", nil, 0)
	_ = f.Add(a)
	_ = f.Add(b)
	Join(a, b)
	Join(b, a)

	if err := f.Validate(); !errors.Is(err, ErrCycle) {
		t.Errorf("Validate() error = %v, want ErrCycle", err)
	}
}

func TestValidate_DetectsBrokenLink(t *testing.T) {
	f := NewForest()
	a := mustNew(t, "a", nil, 0)
	b := mustNew(t, "b", nil, 0)
	_ = f.Add(a)
	_ = f.Add(b)
	b.parent = a

	if err := f.Validate(); !errors.Is(err, ErrBrokenLink) {
		t.Errorf("Validate() error = %v, want ErrBrokenLink", err)
	}
}

func TestValidate_DetectsOutsideLink(t *testing.T) {
	f := NewForest()
	a := mustNew(t, "a", nil, 0)
	stray := mustNew(t, "stray", nil, 0)
	_ = f.Add(a)
	Join(a, stray)

	if err := f.Validate(); !errors.Is(err, ErrBrokenLink) {
		t.Errorf("Validate() error = %v, want ErrBrokenLink", err)
	}
}

func TestAdd_Duplicate(t *testing.T) {
	f := NewForest()
	if err := f.Add(mustNew(t, "a", nil, 0)); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := f.Add(mustNew(t, "a", nil, 0)); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Errorf("Add() error = %v, want ErrDuplicateIdentifier", err)
	}
}

func TestRecords_RoundTrip(t *testing.T) {
	f := mustBuild(t, mixedRecords())
	again := mustBuild(t, f.Records())

	if !reflect.DeepEqual(f.Records(), again.Records()) {
		t.Error("BuildForest(Records()) changed the forest")
	}
}

func TestToRecord_RoundTrip(t *testing.T) {
	f := mustBuild(t, mixedRecords())
	for _, head := range f.Heads() {
		tree := head.ToRecord()
		rebuilt := mustBuild(t, tree.Flatten())

		heads := rebuilt.Heads()
		if len(heads) != 1 {
			t.Fatalf("rebuilt %s: %d heads, want 1", head.ID(), len(heads))
		}
		if got := heads[0].ToRecord(); !reflect.DeepEqual(got, tree) {
			t.Errorf("rebuilt tree = %+v, want %+v", got, tree)
		}
	}
}
