// Package snapshot persists record sets so a forest can be rendered again
// later, on another machine, or compared against the live image store.
//
// A [Snapshot] holds the normalized records of one source at one point in
// time. Snapshots are identified by a random UUID and may carry a
// human-readable name. Two backends implement [Store]:
//
//   - [FileStore]: one JSON file per snapshot, for the CLI
//   - [MongoStore]: a MongoDB collection, for shared deployments
//
// # Usage
//
//	snap := snapshot.New("before-upgrade", src.Name(), records)
//	if err := store.Save(ctx, snap); err != nil {
//	    return err
//	}
//
//	snap, err := snapshot.Lookup(ctx, store, "before-upgrade")
//	f, err := snap.Forest()
package snapshot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/matzehuels/docktree/pkg/errors"
	"github.com/matzehuels/docktree/pkg/layer"
)

// Sentinel errors for snapshot operations.
var (
	// ErrNotFound is returned when no snapshot matches an ID or name.
	ErrNotFound = apperrors.New(apperrors.ErrCodeSnapshotNotFound, "snapshot not found")

	// ErrAmbiguous is returned by [Lookup] when a reference matches several snapshots.
	ErrAmbiguous = apperrors.New(apperrors.ErrCodeAmbiguousSelector, "snapshot reference is ambiguous")
)

// Snapshot is a stored record set.
type Snapshot struct {
	ID        string         `json:"id" bson:"_id"`
	Name      string         `json:"name,omitempty" bson:"name,omitempty"`
	Source    string         `json:"source" bson:"source"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	Records   []layer.Record `json:"records" bson:"records"`
}

// Summary describes a snapshot without its records, as returned by
// [Store.List].
type Summary struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	Source    string    `json:"source" bson:"source"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Layers    int       `json:"layers" bson:"layers"`
}

// New creates a snapshot with a fresh ID and the current time.
func New(name, source string, records []layer.Record) *Snapshot {
	return &Snapshot{
		ID:        uuid.NewString(),
		Name:      name,
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Records:   records,
	}
}

// Summary returns the snapshot's listing entry.
func (s *Snapshot) Summary() Summary {
	return Summary{ID: s.ID, Name: s.Name, Source: s.Source, CreatedAt: s.CreatedAt, Layers: len(s.Records)}
}

// Forest rebuilds the layer forest from the stored records.
func (s *Snapshot) Forest() (*layer.Forest, error) {
	f, err := layer.BuildForest(s.Records)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.ID, err)
	}
	return f, nil
}

// Label returns the name if set, otherwise the first 8 characters of the ID.
func (s Summary) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if len(s.ID) > 8 {
		return s.ID[:8]
	}
	return s.ID
}

// Store is the interface for snapshot storage backends.
type Store interface {
	// Save stores a snapshot, replacing one with the same ID.
	Save(ctx context.Context, snap *Snapshot) error

	// Get retrieves a snapshot by full ID.
	// Returns an error wrapping ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// List returns all snapshots, newest first.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes a snapshot. Deleting a missing snapshot returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// Lookup resolves ref to a snapshot: an exact ID first, then an exact
// name, then an ID prefix. The newest snapshot wins among equal names.
func Lookup(ctx context.Context, store Store, ref string) (*Snapshot, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	if apperrors.ValidateSnapshotID(ref) == nil {
		return store.Get(ctx, ref)
	}

	list, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		if s.Name == ref {
			return store.Get(ctx, s.ID)
		}
	}
	var matches []Summary
	for _, s := range list {
		if strings.HasPrefix(s.ID, ref) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
	case 1:
		return store.Get(ctx, matches[0].ID)
	default:
		return nil, fmt.Errorf("%w: %q matches %d snapshots", ErrAmbiguous, ref, len(matches))
	}
}
