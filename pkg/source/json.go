package source

import (
	"context"
	"fmt"
	"os"

	dtio "github.com/matzehuels/docktree/pkg/io"
	"github.com/matzehuels/docktree/pkg/layer"
)

// JSON reads an engine image-list dump such as the output of
// `curl --unix-socket /var/run/docker.sock localhost/images/json?all=1`.
// The path "-" reads stdin.
type JSON struct {
	Path string
}

// NewJSON creates a JSON source for path.
func NewJSON(path string) *JSON {
	return &JSON{Path: path}
}

// Name returns "json:<path>".
func (j *JSON) Name() string { return "json:" + j.Path }

// Records reads and normalizes the dump.
func (j *JSON) Records(ctx context.Context) ([]layer.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := dtio.ImportRecords(j.Path)
	if err != nil {
		return nil, err
	}
	return Normalize(records), nil
}

// Fingerprint combines size and modification time. Stdin has no stable
// fingerprint and reports an error, which disables caching for it.
func (j *JSON) Fingerprint() (string, error) {
	return statFingerprint(j.Path)
}

func statFingerprint(path string) (string, error) {
	if path == "-" {
		return "", fmt.Errorf("stdin has no fingerprint")
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", fi.Size(), fi.ModTime().UnixNano()), nil
}
