package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docktree/pkg/cache"
	dtio "github.com/matzehuels/docktree/pkg/io"
	"github.com/matzehuels/docktree/pkg/layer"
	"github.com/matzehuels/docktree/pkg/observability"
	"github.com/matzehuels/docktree/pkg/render"
	"github.com/matzehuels/docktree/pkg/source"
)

// ErrNoSource is returned when a Runner has no record source configured.
var ErrNoSource = errors.New("pipeline: no record source configured")

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the source, cache and logger - it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Source source.Source
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// RecordsTTL bounds how long loaded records are cached.
	// Zero selects [cache.RecordsTTL].
	RecordsTTL time.Duration
}

// NewRunner creates a runner reading from src.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(src source.Source, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Source: src,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → build → prune → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	records, err := r.Load(ctx, opts.Refresh)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Records = len(records)
	result.RecordsHash = HashRecords(records)

	r.Logger.Info("loaded records",
		"source", r.Source.Name(),
		"records", len(records),
		"duration", result.Stats.LoadTime)

	// Stage 2+3: Build and prune
	buildStart := time.Now()
	f, err := r.Build(ctx, records, opts.Intermediate)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Forest = f
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.Layers = f.Len()
	result.Stats.Pruned = len(records) - f.Len()

	heads, err := SelectHeads(f, opts.Selectors)
	if err != nil {
		return nil, err
	}
	result.Heads = heads
	result.Stats.Heads = len(heads)

	r.Logger.Info("built forest",
		"layers", f.Len(),
		"heads", len(heads),
		"pruned", result.Stats.Pruned,
		"duration", result.Stats.BuildTime)

	// Stage 4: Render
	renderStart := time.Now()
	out, hit, err := r.RenderWithCacheInfo(ctx, result.RecordsHash, heads, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Output = out
	result.ContentType = opts.format.ContentType()
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered output",
		"format", opts.Format,
		"bytes", len(out),
		"cached", hit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load fetches normalized records through the records cache. With refresh
// set the cached copy is ignored and overwritten.
func (r *Runner) Load(ctx context.Context, refresh bool) ([]layer.Record, error) {
	if r.Source == nil {
		return nil, ErrNoSource
	}
	name := r.Source.Name()
	hooks := observability.Forest()
	hooks.OnLoadStart(ctx, name)
	start := time.Now()

	src := source.NewCached(r.Source, r.Cache, r.Keyer, r.Logger)
	src.Refresh = refresh
	if r.RecordsTTL > 0 {
		src.TTL = r.RecordsTTL
	}
	records, err := src.Records(ctx)

	hooks.OnLoadComplete(ctx, name, len(records), time.Since(start), err)
	return records, err
}

// Build links records into a forest and, unless intermediate is set,
// removes untagged layers.
func (r *Runner) Build(ctx context.Context, records []layer.Record, intermediate bool) (*layer.Forest, error) {
	hooks := observability.Forest()
	start := time.Now()
	f, err := layer.BuildForest(records)
	if err != nil {
		hooks.OnBuild(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnBuild(ctx, f.Len(), len(f.Heads()), time.Since(start), nil)

	if intermediate {
		return f, nil
	}
	pruned := f.RemoveUntaggedLayers()
	hooks.OnPrune(ctx, f.Len(), pruned.Len())
	r.Logger.Debug("removed untagged layers", "before", f.Len(), "after", pruned.Len())
	return pruned, nil
}

// Forest loads records and builds the working forest in one call.
func (r *Runner) Forest(ctx context.Context, intermediate, refresh bool) (*layer.Forest, error) {
	records, err := r.Load(ctx, refresh)
	if err != nil {
		return nil, err
	}
	return r.Build(ctx, records, intermediate)
}

// RenderWithCacheInfo renders heads with caching and returns cache hit info.
// The key combines recordsHash with the options that affect output, so a
// changed record set or option never serves a stale document.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, recordsHash string, heads []*layer.Layer, opts Options) ([]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	cacheKey := r.Keyer.RenderKey(recordsHash, opts.RenderKeyOpts())
	if recordsHash != "" {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			return data, true, nil
		}
	}

	out, err := Render(ctx, heads, opts)
	if err != nil {
		return nil, false, err
	}

	if recordsHash != "" {
		if err := r.Cache.Set(ctx, cacheKey, out, cache.RenderTTL); err != nil {
			r.Logger.Warn("cache store failed", "key", cache.KeyType(cacheKey), "err", err)
		}
	}
	return out, false, nil
}

// Render writes heads into a buffer without caching, reporting render
// events to the observability hooks.
func Render(ctx context.Context, heads []*layer.Layer, opts Options) ([]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	hooks := observability.Forest()
	hooks.OnRenderStart(ctx, opts.Format)
	start := time.Now()

	var buf bytes.Buffer
	err := render.Render(ctx, &buf, heads, opts.RenderOptions())

	hooks.OnRenderComplete(ctx, opts.Format, buf.Len(), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SelectHeads returns the heads for the given selectors. No selectors
// selects every head. Heads reached by several selectors appear once, in
// first-seen order.
func SelectHeads(f *layer.Forest, selectors []string) ([]*layer.Layer, error) {
	if len(selectors) == 0 {
		return f.Heads(), nil
	}
	var heads []*layer.Layer
	seen := make(map[*layer.Layer]bool)
	for _, sel := range selectors {
		found, err := f.HeadsFor(sel)
		if err != nil {
			return nil, &SelectorError{Selector: sel, Err: err}
		}
		for _, h := range found {
			if !seen[h] {
				seen[h] = true
				heads = append(heads, h)
			}
		}
	}
	return heads, nil
}

// SelectorError reports which selector failed to resolve.
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string { return e.Err.Error() }

func (e *SelectorError) Unwrap() error { return e.Err }

// HashRecords returns the content hash of a record list.
func HashRecords(records []layer.Record) string {
	var buf bytes.Buffer
	if err := dtio.WriteRecords(&buf, records); err != nil {
		return ""
	}
	return cache.Hash(buf.Bytes())
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
