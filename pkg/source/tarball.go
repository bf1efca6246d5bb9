package source

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/docktree/pkg/layer"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Tarball derives layer records from a `docker save` archive, optionally
// gzip or zstd compressed. No engine is contacted.
//
// An archive holds each image's config and layer blobs but not the
// engine's intermediate images, so layers are identified by chain ID:
//
//	chain(0) = diff(0)
//	chain(n) = sha256(chain(n-1) + " " + diff(n))
//
// Each chain's parent is the chain below it. A layer's size is the sum of
// all layer blobs up to and including it, matching the engine's
// VirtualSize. Tags from the manifest go on each image's top layer. Images
// sharing a base share its chain records.
type Tarball struct {
	Path   string
	Logger *log.Logger
}

// NewTarball creates a tarball source for path.
func NewTarball(path string, logger *log.Logger) *Tarball {
	if logger == nil {
		logger = log.Default()
	}
	return &Tarball{Path: path, Logger: logger}
}

// Name returns "tarball:<path>".
func (t *Tarball) Name() string { return "tarball:" + t.Path }

// Fingerprint combines size and modification time of the archive.
func (t *Tarball) Fingerprint() (string, error) {
	return statFingerprint(t.Path)
}

// Records reads the archive manifest, then scans the archive once for
// config blobs and layer sizes.
func (t *Tarball) Records(ctx context.Context) ([]layer.Record, error) {
	opener := t.opener()
	manifest, err := tarball.LoadManifest(opener)
	if err != nil {
		return nil, fmt.Errorf("%s: load manifest: %w", t.Path, err)
	}

	configs := make(map[string][]byte, len(manifest))
	for _, d := range manifest {
		configs[path.Clean(d.Config)] = nil
	}
	sizes, err := scanArchive(ctx, opener, configs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Path, err)
	}

	var records []layer.Record
	index := make(map[string]int)
	for _, d := range manifest {
		data := configs[path.Clean(d.Config)]
		if data == nil {
			return nil, fmt.Errorf("%s: config %s missing from archive", t.Path, d.Config)
		}
		cfg, err := v1.ParseConfigFile(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: parse config %s: %w", t.Path, d.Config, err)
		}
		diffs := cfg.RootFS.DiffIDs
		if len(diffs) != len(d.Layers) {
			return nil, fmt.Errorf("%s: config %s lists %d diff ids for %d layers",
				t.Path, d.Config, len(diffs), len(d.Layers))
		}
		if len(diffs) == 0 {
			t.Logger.Warn("skipping image without layers", "config", d.Config, "tags", d.RepoTags)
			continue
		}

		var chain v1.Hash
		var parent string
		var total int64
		for i, diff := range diffs {
			chain, err = chainID(chain, diff, i)
			if err != nil {
				return nil, err
			}
			total += sizes[path.Clean(d.Layers[i])]
			id := chain.String()
			if _, seen := index[id]; !seen {
				index[id] = len(records)
				records = append(records, layer.Record{ID: id, ParentID: parent, VirtualSize: total})
			}
			parent = id
		}

		top := &records[index[parent]]
		for _, tag := range t.validTags(d.RepoTags) {
			if !slices.Contains(top.RepoTags, tag) {
				top.RepoTags = append(top.RepoTags, tag)
			}
		}
	}

	t.Logger.Debug("read docker archive", "path", t.Path, "images", len(manifest), "layers", len(records))
	return Normalize(records), nil
}

func chainID(prev, diff v1.Hash, i int) (v1.Hash, error) {
	if i == 0 {
		return diff, nil
	}
	h, _, err := v1.SHA256(strings.NewReader(prev.String() + " " + diff.String()))
	if err != nil {
		return v1.Hash{}, fmt.Errorf("chain id: %w", err)
	}
	return h, nil
}

// validTags drops manifest tags that are not valid image references.
func (t *Tarball) validTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if _, err := name.NewTag(tag); err != nil {
			t.Logger.Warn("ignoring invalid tag", "tag", tag, "err", err)
			continue
		}
		out = append(out, tag)
	}
	return out
}

func (t *Tarball) opener() tarball.Opener {
	return func() (io.ReadCloser, error) {
		return openArchive(t.Path)
	}
}

// scanArchive records the size of every entry and fills configs with the
// contents of the entries it has keys for.
func scanArchive(ctx context.Context, opener tarball.Opener, configs map[string][]byte) (map[string]int64, error) {
	rc, err := opener()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	sizes := make(map[string]int64)
	tr := tar.NewReader(rc)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return sizes, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		entry := path.Clean(hdr.Name)
		sizes[entry] = hdr.Size
		if _, want := configs[entry]; want {
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", entry, err)
			}
			configs[entry] = data
		}
	}
}

// openArchive opens path and transparently decompresses gzip and zstd
// archives, detected by their magic bytes.
func openArchive(p string) (io.ReadCloser, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	magic, _ := br.Peek(len(zstdMagic))

	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd: %w", err)
		}
		rc := zr.IOReadCloser()
		return &stackedReader{Reader: rc, closers: []io.Closer{rc, f}}, nil
	default:
		return &stackedReader{Reader: br, closers: []io.Closer{f}}, nil
	}
}

type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
