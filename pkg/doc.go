// Package pkg provides the libraries behind docktree, which shows container
// image layers as a derivation forest.
//
// # Overview
//
// An image list from a container engine names every layer with its parent.
// docktree links those records into trees, hides untagged intermediate
// layers on request and renders the result. The pkg directory is organized
// into these areas:
//
//  1. [layer] - The forest: layers, parent/child links, selectors, pruning
//  2. [source] - Record sources: image-list JSON, docker save archives, caching
//  3. [render] - Output: text trees, JSON, YAML, DOT, SVG, PDF and PNG
//  4. [pipeline] - Orchestration (load → build → prune → render)
//  5. [cache], [snapshot] - Infrastructure (record/render cache, stored image lists)
//  6. [server] - HTTP API over the pipeline
//
// # Architecture
//
// The typical data flow through docktree:
//
//	Engine image list / docker save archive
//	         ↓
//	    [source] package (decode + normalize records)
//	         ↓
//	    [layer] package (build forest, prune untagged layers)
//	         ↓
//	    [render] package (text tree or structured output)
//
// # Quick Start
//
//	import (
//	    "context"
//	    "os"
//
//	    "github.com/matzehuels/docktree/pkg/pipeline"
//	    "github.com/matzehuels/docktree/pkg/source"
//	)
//
//	runner := pipeline.NewRunner(source.NewJSON("images.json"), nil, nil, nil)
//	res, err := runner.Execute(context.Background(), pipeline.Options{
//	    Selectors: []string{"nginx"},
//	    Summary:   true,
//	})
//	if err != nil {
//	    return err
//	}
//	os.Stdout.Write(res.Output)
//
// # Errors
//
// Failures carry a code from [errors] so the CLI and the server can report
// them consistently; use errors.Is with the sentinels each package exports.
package pkg
