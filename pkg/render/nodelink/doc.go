// Package nodelink renders layer forests as node-link diagrams.
//
// # Overview
//
// Each layer becomes a box and each parent/child link an arrow, laid out
// top to bottom by Graphviz. Tagged layers are labelled with their tags;
// untagged intermediates are drawn dashed and grey with their short ID.
//
// # Usage
//
//	dot := nodelink.ToDOT(forest.Heads(), nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
//   - Detailed: add the short ID and human-readable size to every label
//
// # DOT Format
//
// [ToDOT] output can be written to a file for use with the dot command-line
// tool or other Graphviz front ends. Node IDs are the full layer IDs.
package nodelink
