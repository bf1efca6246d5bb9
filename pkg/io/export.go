package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/docktree/pkg/layer"
)

// WriteRecords encodes raw layer records as an indented JSON array.
// A nil slice is written as [] so the output is always a valid record list.
func WriteRecords(w io.Writer, records []layer.Record) error {
	if records == nil {
		records = []layer.Record{}
	}
	return encode(w, records)
}

// ExportRecords writes records to a JSON file at path, or to stdout for "-".
func ExportRecords(records []layer.Record, path string) error {
	if path == "-" {
		return WriteRecords(os.Stdout, records)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteRecords(f, records)
}

// WriteTrees encodes the trees rooted at heads as an indented JSON array,
// one nested object per head in the given order.
func WriteTrees(w io.Writer, heads []*layer.Layer) error {
	return encode(w, Trees(heads))
}

// Trees converts heads to their nested serialized form.
func Trees(heads []*layer.Layer) []layer.Tree {
	out := make([]layer.Tree, 0, len(heads))
	for _, h := range heads {
		out = append(out, h.ToRecord())
	}
	return out
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
