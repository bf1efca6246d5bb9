package cli

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dtio "github.com/matzehuels/docktree/pkg/io"
	"github.com/matzehuels/docktree/pkg/snapshot"
)

func TestSnapshotLifecycle(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, "", "snapshot", "save", "--file", env.writeImages(t), "--name", "nightly"); err != nil {
		t.Fatalf("snapshot save error = %v", err)
	}

	list, err := env.run(t, "", "snapshot", "list")
	if err != nil {
		t.Fatalf("snapshot list error = %v", err)
	}
	if !strings.Contains(list, "nightly") || !strings.Contains(list, "json:") {
		t.Errorf("snapshot list = %q, want the saved snapshot", list)
	}

	got, err := env.run(t, "", "snapshot", "show", "nightly")
	if err != nil {
		t.Fatalf("snapshot show error = %v", err)
	}
	if got != prunedTree {
		t.Errorf("snapshot show =\n%s\nwant\n%s", got, prunedTree)
	}

	got, err = env.run(t, "", "tree", "--snapshot", "nightly", "other")
	if err != nil {
		t.Fatalf("tree --snapshot error = %v", err)
	}
	if !strings.HasPrefix(got, "-- other") {
		t.Errorf("tree --snapshot = %q", got)
	}

	if _, err := env.run(t, "", "snapshot", "rm", "nightly"); err != nil {
		t.Fatalf("snapshot rm error = %v", err)
	}
	if _, err := env.run(t, "", "snapshot", "show", "nightly"); !errors.Is(err, snapshot.ErrNotFound) {
		t.Errorf("snapshot show after rm error = %v, want ErrNotFound", err)
	}
}

func TestSnapshotExport(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "", "snapshot", "save", "--file", env.writeImages(t), "--name", "nightly"); err != nil {
		t.Fatalf("snapshot save error = %v", err)
	}

	out, err := env.run(t, "", "snapshot", "export", "nightly")
	if err != nil {
		t.Fatalf("snapshot export error = %v", err)
	}
	records, err := dtio.ReadRecords(strings.NewReader(out))
	if err != nil {
		t.Fatalf("exported list does not decode: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("exported %d records, want 5", len(records))
	}

	path := filepath.Join(env.dir, "exported.json")
	if _, err := env.run(t, "", "snapshot", "export", "nightly", "-o", path); err != nil {
		t.Fatalf("snapshot export -o error = %v", err)
	}
	got, err := env.run(t, "", "tree", "--file", path)
	if err != nil {
		t.Fatalf("tree --file on export error = %v", err)
	}
	if got != prunedTree {
		t.Errorf("tree of exported list =\n%s\nwant\n%s", got, prunedTree)
	}
}

func TestSnapshotSave_RejectsBrokenList(t *testing.T) {
	env := newTestEnv(t)
	dangling := `[{"Id": "a", "ParentId": "missing", "RepoTags": ["a:1"], "VirtualSize": 1}]`
	if _, err := env.run(t, dangling, "snapshot", "save"); err == nil {
		t.Fatal("snapshot save should reject a dangling parent")
	}
	list, err := env.run(t, "", "snapshot", "list")
	if err != nil {
		t.Fatalf("snapshot list error = %v", err)
	}
	if list != "" {
		t.Errorf("snapshot list = %q, want nothing stored", list)
	}
}

func TestSnapshotTable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := snapshotTable([]snapshot.Summary{
		{ID: "0f8e2c1a-0000-4000-8000-000000000000", Name: "nightly", Source: "stdin", CreatedAt: now.Add(-2 * time.Hour), Layers: 7},
	}, now)

	for _, want := range []string{"0f8e2c1a", "nightly", "7", "2h ago", "stdin"} {
		if !strings.Contains(out, want) {
			t.Errorf("snapshotTable() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{30 * 24 * time.Hour, "Jan 30, 2026"},
	}
	for _, tt := range tests {
		if got := formatRelativeTime(now, now.Add(-tt.ago)); got != tt.want {
			t.Errorf("formatRelativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
