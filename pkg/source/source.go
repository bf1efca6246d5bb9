// Package source produces raw layer records for the forest builder.
//
// The layer package knows nothing about container engines; it consumes a
// finished list of [layer.Record] values. A [Source] is the collaborator
// that fetches such a list and hands it over already normalized:
//
//   - [JSON] reads an image-list dump (file or stdin)
//   - [Tarball] derives records from a `docker save` archive
//   - [Func] adapts any injected fetch function
//   - [Cached] wraps another source with a cache and retries
//
// # Normalization
//
// Engines mark untagged images with a "<none>:<none>" tag instead of an
// empty list, and prefix IDs with the digest algorithm. [Normalize] removes
// both, so the core only ever sees empty tag lists for untagged layers and
// IDs whose first 12 characters match the engine's short form.
package source

import (
	"bytes"
	"context"

	"github.com/matzehuels/docktree/pkg/cache"
	dtio "github.com/matzehuels/docktree/pkg/io"
	"github.com/matzehuels/docktree/pkg/layer"
)

// Source fetches the raw layer list of one image store.
type Source interface {
	// Name identifies the source in logs and cache keys, e.g. "json:images.json".
	Name() string

	// Records returns the normalized record list in engine order.
	Records(ctx context.Context) ([]layer.Record, error)
}

// Fingerprinter is implemented by sources that can cheaply tell whether
// their data changed since the last fetch. [Cached] mixes the fingerprint
// into its cache key.
type Fingerprinter interface {
	Fingerprint() (string, error)
}

// FetchFunc returns raw, not yet normalized records.
type FetchFunc func(ctx context.Context) ([]layer.Record, error)

// Func adapts a fetch function into a [Source]. Its output is normalized.
type Func struct {
	name  string
	fetch FetchFunc
}

// NewFunc wraps fetch as a named source.
func NewFunc(name string, fetch FetchFunc) *Func {
	return &Func{name: name, fetch: fetch}
}

// Name returns the name given to [NewFunc].
func (f *Func) Name() string { return f.name }

// Records calls the fetch function and normalizes its output.
func (f *Func) Records(ctx context.Context) ([]layer.Record, error) {
	records, err := f.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(records), nil
}

// Static returns a source serving a fixed record list, used for snapshots
// and for stdin input that can only be read once. Its fingerprint is a
// content hash, so cached copies never outlive a change of records.
func Static(name string, records []layer.Record) Source {
	return &static{Func: NewFunc(name, func(context.Context) ([]layer.Record, error) {
		return records, nil
	}), records: records}
}

type static struct {
	*Func
	records []layer.Record
}

func (s *static) Fingerprint() (string, error) {
	var buf bytes.Buffer
	if err := dtio.WriteRecords(&buf, s.records); err != nil {
		return "", err
	}
	return cache.Hash(buf.Bytes()), nil
}
