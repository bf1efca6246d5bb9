// Package io provides JSON import and export for layer records and layer
// trees.
//
// # Overview
//
// Two JSON shapes are supported:
//
//   - Record lists: the flat shape of a container engine's image list, one
//     object per layer. This is what record sources and snapshots store.
//   - Tree lists: one nested object per head as produced by
//     [layer.Layer.ToRecord]. This is what structured output renders.
//
// # Record Format
//
// Field names follow the engine's image-list API, so a dump of
// GET /images/json?all=1 can be read directly:
//
//	[
//	  {"Id": "sha256:1a2b...", "ParentId": "", "RepoTags": ["debian:12"], "VirtualSize": 124000000},
//	  {"Id": "sha256:3c4d...", "ParentId": "sha256:1a2b...", "RepoTags": null, "VirtualSize": 124100000}
//	]
//
// Unknown fields (Created, Labels, RepoDigests, ...) are ignored. A missing
// ParentId means the layer is a head.
//
// # Tree Format
//
// Each tree node carries the record fields plus a Children array:
//
//	[
//	  {"Id": "1a2b...", "ParentId": "", "RepoTags": ["debian:12"], "VirtualSize": 124000000,
//	   "Children": [{"Id": "3c4d...", "ParentId": "1a2b...", "RepoTags": [], "VirtualSize": 1, "Children": []}]}
//	]
//
// [ReadTrees] flattens the nested form and rebuilds a forest, so output
// written with [WriteTrees] can be re-imported with full structural fidelity.
//
// # Import and Export
//
// [ReadRecords] and [WriteRecords] work on any reader or writer;
// [ImportRecords] and [ExportRecords] are file-path conveniences. The path
// "-" selects stdin or stdout.
//
// # Concurrency
//
// Functions in this package hold no state and are safe to call concurrently.
// Writers must not run concurrently with mutation of the layers they encode.
package io
