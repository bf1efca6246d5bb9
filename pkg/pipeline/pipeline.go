// Package pipeline provides the load → build → prune → render pipeline
// shared by the CLI, the HTTP server and the interactive browser.
//
// By centralizing this logic, every entry point resolves selectors, prunes
// untagged layers and caches output the same way.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: fetch normalized records from a [source.Source], with caching
//  2. Build: link the records into a [layer.Forest]
//  3. Prune: drop untagged layers unless Intermediate is set
//  4. Render: write the selected trees in the requested format
//
// # Usage
//
//	runner := pipeline.NewRunner(src, c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Selectors: []string{"nginx"},
//	    Format:    "text",
//	})
//	if err != nil {
//	    return err
//	}
//	os.Stdout.Write(result.Output)
//
// Run individual stages:
//
//	records, err := runner.Load(ctx, false)
//	f, err := runner.Build(ctx, records, opts.Intermediate)
//	heads, err := pipeline.SelectHeads(f, opts.Selectors)
package pipeline

import (
	"time"

	"github.com/matzehuels/docktree/pkg/cache"
	"github.com/matzehuels/docktree/pkg/layer"
	"github.com/matzehuels/docktree/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultFormat is the output format when none is requested.
	DefaultFormat = render.FormatText

	// DefaultCharset is the tree charset when none is requested.
	DefaultCharset = render.ASCII
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Build options
	Intermediate bool     `json:"intermediate,omitempty"` // keep untagged layers
	Selectors    []string `json:"selectors,omitempty"`    // empty means every tree
	Refresh      bool     `json:"refresh,omitempty"`      // bypass the records cache lookup

	// Render options
	Format   string  `json:"format,omitempty"`
	Charset  string  `json:"charset,omitempty"`
	Summary  bool    `json:"summary,omitempty"`
	Detailed bool    `json:"detailed,omitempty"`
	Scale    float64 `json:"scale,omitempty"`

	format  render.Format
	charset render.Charset
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Forest is the working forest: pruned unless Intermediate was set.
	Forest *layer.Forest

	// Heads are the selected tree heads, in output order.
	Heads []*layer.Layer

	// Output is the rendered document.
	Output []byte

	// ContentType is the MIME type of Output.
	ContentType string

	// RecordsHash is the content hash of the loaded records.
	RecordsHash string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Records    int // records loaded
	Layers     int // layers in the working forest
	Heads      int // heads selected
	Pruned     int // untagged layers removed
	LoadTime   time.Duration
	BuildTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	RenderHit bool // Whether the output came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the format and charset and applies defaults.
// Calling it more than once has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Format == "" {
		o.Format = string(DefaultFormat)
	}
	format, err := render.ValidateFormat(o.Format)
	if err != nil {
		return err
	}
	charset, err := render.ParseCharset(o.Charset)
	if err != nil {
		return err
	}
	o.Format, o.format = string(format), format
	o.Charset, o.charset = string(charset), charset
	return nil
}

// RenderOptions returns the options passed to [render.Render].
// Call ValidateAndSetDefaults first.
func (o *Options) RenderOptions() render.Options {
	return render.Options{
		Format:   o.format,
		Charset:  o.charset,
		Summary:  o.Summary,
		Detailed: o.Detailed,
		Scale:    o.Scale,
	}
}

// RenderKeyOpts returns cache key options for rendered output.
func (o *Options) RenderKeyOpts() cache.RenderKeyOpts {
	opts := cache.RenderKeyOpts{
		Format:       o.Format,
		Intermediate: o.Intermediate,
		Selectors:    o.Selectors,
	}
	switch o.format {
	case render.FormatText:
		opts.Charset = o.Charset
		opts.Summary = o.Summary
	case render.FormatDOT, render.FormatSVG:
		opts.Detailed = o.Detailed
	case render.FormatPDF, render.FormatPNG:
		opts.Detailed = o.Detailed
		opts.Scale = o.Scale
	}
	return opts
}
