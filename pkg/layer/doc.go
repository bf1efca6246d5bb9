// Package layer models container image layers as a forest of derivation
// trees.
//
// # Overview
//
// A container engine lists every layer it knows with the identifier of the
// layer it was built on. This package turns that flat list into linked
// trees: each [Layer] points at its parent and holds its children in order.
// A layer without a parent is a head. A [Forest] is the set of all layers,
// keyed by ID, and is the single owner of every layer in it.
//
// # Building
//
// [BuildForest] runs two passes over raw [Record] values. The first creates
// one layer per record; the second joins each record to its parent with
// [Join]. Inconsistent input is rejected as a whole:
//
//   - [ErrDuplicateIdentifier]: two records share an ID
//   - [ErrDanglingParent]: a record names a parent that is not in the input
//   - [ErrCycle]: parent links loop back on themselves
//
// # Pruning
//
// Most layers in a local image store are untagged intermediates.
// [Forest.RemoveUntaggedLayers] returns a copy of the forest in which every
// untagged layer has been cut out with [Layer.RemoveFromChain]. Children of
// a removed layer move up to its parent, so a tagged image stays attached to
// the nearest tagged image it was built from.
//
//	f, err := layer.BuildForest(records)
//	if err != nil {
//	    return err
//	}
//	for _, head := range f.RemoveUntaggedLayers().Heads() {
//	    fmt.Println(head.RenderLine())
//	}
//
// # Selectors
//
// [Forest.Resolve] finds layers by exact ID, ID prefix or tag, in that order
// of precedence. [Forest.HeadsFor] maps the matches to the heads of their
// trees, which is what renderers need to print only the trees a user asked
// about.
//
// # Serialization
//
// [Layer.ToRecord] produces a nested [Tree] for structured output, and
// [Tree.Flatten] turns it back into records that [BuildForest] accepts.
// [Forest.Records] flattens a whole forest.
//
// # Concurrency
//
// Layers and forests are not safe for concurrent mutation. A forest that is
// fully built may be read from several goroutines.
// [Forest.RemoveUntaggedLayers] never mutates its receiver.
package layer
