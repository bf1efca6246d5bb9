package source

import (
	"strings"

	"github.com/matzehuels/docktree/pkg/layer"
)

// Sentinel tags the engine reports for images without a name.
const (
	NoneTag    = "<none>:<none>"
	NoneDigest = "<none>@<none>"
)

// digestPrefix is the algorithm prefix the engine puts in front of IDs.
const digestPrefix = "sha256:"

// Normalize returns a copy of records in the form the forest builder
// expects: sentinel tags removed (an all-sentinel list becomes nil) and
// the digest prefix stripped from IDs and parent IDs.
func Normalize(records []layer.Record) []layer.Record {
	out := make([]layer.Record, len(records))
	for i, r := range records {
		out[i] = layer.Record{
			ID:          StripDigest(r.ID),
			ParentID:    StripDigest(r.ParentID),
			RepoTags:    cleanTags(r.RepoTags),
			VirtualSize: r.VirtualSize,
		}
	}
	return out
}

// StripDigest removes a leading "sha256:" from id.
func StripDigest(id string) string {
	return strings.TrimPrefix(id, digestPrefix)
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t == NoneTag || t == NoneDigest || t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
