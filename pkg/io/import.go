package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/docktree/pkg/layer"
)

// ReadRecords decodes a JSON array of raw layer records from r.
//
// Records are returned as given: no sentinel filtering or ID normalization
// happens here (see the source package for that). ReadRecords does not
// close r.
func ReadRecords(r io.Reader) ([]layer.Record, error) {
	var records []layer.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return records, nil
}

// ImportRecords reads a JSON record list from the file at path, or from
// stdin for "-".
func ImportRecords(path string) ([]layer.Record, error) {
	if path == "-" {
		return ReadRecords(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadRecords(f)
}

// ReadTrees decodes a JSON array of nested trees and rebuilds the forest.
//
// Each tree is flattened with [layer.Tree.Flatten] and the combined records
// go through [layer.BuildForest], so the same validation applies: duplicate
// IDs across trees are rejected with layer.ErrDuplicateIdentifier.
func ReadTrees(r io.Reader) (*layer.Forest, error) {
	var trees []layer.Tree
	if err := json.NewDecoder(r).Decode(&trees); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	var records []layer.Record
	for _, t := range trees {
		records = append(records, t.Flatten()...)
	}
	f, err := layer.BuildForest(records)
	if err != nil {
		return nil, fmt.Errorf("rebuild forest: %w", err)
	}
	return f, nil
}
