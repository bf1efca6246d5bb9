package cache

import "strings"

// Keyer derives cache keys for the values docktree caches.
type Keyer interface {
	// RecordsKey identifies the raw record list produced by a source.
	RecordsKey(source string, opts RecordsKeyOpts) string

	// RenderKey identifies rendered output for a given record set.
	RenderKey(recordsHash string, opts RenderKeyOpts) string
}

// RecordsKeyOpts holds the inputs that change a source's output.
type RecordsKeyOpts struct {
	// Fingerprint changes when the underlying data changes, e.g. a file's
	// size and modification time.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// RenderKeyOpts holds the inputs that change rendered output.
type RenderKeyOpts struct {
	Format       string   `json:"format"`
	Charset      string   `json:"charset,omitempty"`
	Intermediate bool     `json:"intermediate"`
	Summary      bool     `json:"summary"`
	Detailed     bool     `json:"detailed,omitempty"`
	Scale        float64  `json:"scale,omitempty"`
	Selectors    []string `json:"selectors,omitempty"`
}

// DefaultKeyer builds "<kind>:<sha256>" keys from JSON-encoded inputs.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// RecordsKey returns "records:<hash>" over the source name and options.
func (DefaultKeyer) RecordsKey(source string, opts RecordsKeyOpts) string {
	return hashKey("records", source, opts)
}

// RenderKey returns "render:<hash>" over the record hash and options.
func (DefaultKeyer) RenderKey(recordsHash string, opts RenderKeyOpts) string {
	return hashKey("render", recordsHash, opts)
}

// KeyType returns the kind prefix of a key built by a [Keyer], ignoring any
// scope prefix. Used to label observability events.
func KeyType(key string) string {
	for _, kind := range []string{KeyTypeRecords, KeyTypeRender} {
		if strings.Contains(key, kind+":") {
			return kind
		}
	}
	return "unknown"
}
