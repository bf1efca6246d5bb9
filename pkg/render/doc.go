// Package render formats layer forests for humans and machines.
//
// # Formats
//
//   - text: an indented tree with box-drawing characters ([Text])
//   - json: nested trees as produced by [layer.Layer.ToRecord] ([JSON])
//   - yaml: the same nested trees as YAML ([YAML])
//   - dot: a Graphviz digraph ([nodelink.ToDOT])
//   - svg: the digraph laid out by Graphviz ([nodelink.RenderSVG])
//   - pdf, png: the SVG converted with rsvg-convert ([ToPDF], [ToPNG])
//
// [Render] dispatches on [Options.Format]. An unknown format is rejected
// with [ErrInvalidOutputFormat] before anything is written.
//
// # Text Output
//
// Every layer is printed on one line as produced by [layer.Layer.RenderLine],
// prefixed with tree-drawing characters from a [Charset]:
//
//	-- 3f4e5a6b7c8d Tags: ['debian:12'] Size: 116.5 MiB
//	   |- 9a8b7c6d5e4f Tags: ['app:1'] Size: 130.2 MiB
//	   `- 1d2c3b4a5f6e Tags: ['tool:latest'] Size: 120.0 MiB
//
//	1 heads, 3 layers
//
// The summary line is appended when [Options.Summary] is set. Its layer
// count is the number of lines printed, see [CountLayers].
//
// [nodelink.ToDOT]: github.com/matzehuels/docktree/pkg/render/nodelink.ToDOT
// [nodelink.RenderSVG]: github.com/matzehuels/docktree/pkg/render/nodelink.RenderSVG
package render
