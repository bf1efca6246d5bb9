package layer

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/matzehuels/docktree/pkg/errors"
)

var (
	// ErrNotFound is returned by [Forest.Resolve] and [Forest.HeadsFor] when
	// a selector matches no layer.
	ErrNotFound = apperrors.New(apperrors.ErrCodeNotFound, "no layer matches selector")

	// ErrAmbiguousSelector is returned when a selector matches more than one
	// layer within the same precedence tier.
	ErrAmbiguousSelector = apperrors.New(apperrors.ErrCodeAmbiguousSelector, "selector matches more than one layer")
)

// Resolve returns the layers identified by selector.
//
// Selectors are tried in three tiers and the first tier with a match wins:
//
//  1. exact full ID, with or without a leading "sha256:"
//  2. ID prefix (abbreviated ID); the digest algorithm prefix "sha256:" may
//     be omitted from the selector, or given when the stored ID lacks it
//  3. exact tag; a selector without a tag part also matches "<selector>:latest"
//
// More than one match within the winning tier is reported as
// ErrAmbiguousSelector rather than resolved silently. No match at all is
// ErrNotFound.
func (f *Forest) Resolve(selector string) ([]*Layer, error) {
	if selector == "" {
		return nil, fmt.Errorf("%w: empty selector", ErrNotFound)
	}

	if l, ok := f.layers[selector]; ok {
		return []*Layer{l}, nil
	}

	tiers := []func(*Layer) bool{
		func(l *Layer) bool { return hasIDPrefix(l.id, selector) },
	}
	// Sources strip the digest algorithm from stored IDs, while users copy
	// IDs from the engine with it.
	if bare, ok := strings.CutPrefix(selector, digestAlgorithm); ok && bare != "" {
		tiers = append(tiers,
			func(l *Layer) bool { return l.id == bare },
			func(l *Layer) bool { return hasIDPrefix(l.id, bare) },
		)
	}
	tiers = append(tiers, func(l *Layer) bool { return hasTag(l.tags, selector) })

	for _, match := range tiers {
		found := f.filter(match)
		switch {
		case len(found) == 1:
			return found, nil
		case len(found) > 1:
			return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguousSelector, selector, shortIDs(found))
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, selector)
}

// digestAlgorithm is the algorithm prefix the engine reports in front of IDs.
const digestAlgorithm = "sha256:"

func (f *Forest) filter(match func(*Layer) bool) []*Layer {
	var out []*Layer
	for _, id := range f.order {
		if l := f.layers[id]; match(l) {
			out = append(out, l)
		}
	}
	return out
}

func hasIDPrefix(id, prefix string) bool {
	if strings.HasPrefix(id, prefix) {
		return true
	}
	if _, digest, ok := strings.Cut(id, ":"); ok {
		return strings.HasPrefix(digest, prefix)
	}
	return false
}

func hasTag(tags []string, selector string) bool {
	if slices.Contains(tags, selector) {
		return true
	}
	if implicit, ok := withLatest(selector); ok {
		return slices.Contains(tags, implicit)
	}
	return false
}

// withLatest appends the default ":latest" tag to a bare repository name.
// A colon before the last slash belongs to a registry port, not a tag.
func withLatest(ref string) (string, bool) {
	name := ref
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		name = ref[i+1:]
	}
	if strings.ContainsAny(name, ":@") {
		return "", false
	}
	return ref + ":latest", true
}

func shortIDs(layers []*Layer) string {
	ids := make([]string, len(layers))
	for i, l := range layers {
		ids[i] = l.ShortID()
	}
	return strings.Join(ids, ", ")
}
