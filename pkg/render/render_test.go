package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v2"

	apperrors "github.com/matzehuels/docktree/pkg/errors"
	"github.com/matzehuels/docktree/pkg/layer"
)

// testForest:
//
//	aaa (base:1)
//	├── bbb
//	│   └── ddd (app:1)
//	└── ccc (tool:latest)
//	eee (alpine:3)
func testForest(t *testing.T) *layer.Forest {
	t.Helper()
	f, err := layer.BuildForest([]layer.Record{
		{ID: "aaa", RepoTags: []string{"base:1"}, VirtualSize: 1024},
		{ID: "bbb", ParentID: "aaa", VirtualSize: 2048},
		{ID: "ccc", ParentID: "aaa", RepoTags: []string{"tool:latest"}, VirtualSize: 10},
		{ID: "ddd", ParentID: "bbb", RepoTags: []string{"app:1"}, VirtualSize: 3 * 1024 * 1024},
		{ID: "eee", RepoTags: []string{"alpine:3"}, VirtualSize: 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestText_ASCII(t *testing.T) {
	var buf bytes.Buffer
	if err := Text(&buf, testForest(t).Heads(), ASCII, true); err != nil {
		t.Fatalf("Text() error: %v", err)
	}
	want := "" +
		"-- aaa Tags: ['base:1'] Size: 1.0 KiB\n" +
		"   |- bbb Tags: [] Size: 2.0 KiB\n" +
		"   |  `- ddd Tags: ['app:1'] Size: 3.0 MiB\n" +
		"   `- ccc Tags: ['tool:latest'] Size: 10 B\n" +
		"-- eee Tags: ['alpine:3'] Size: 0 B\n" +
		"\n" +
		"2 heads, 5 layers\n"
	if got := buf.String(); got != want {
		t.Errorf("Text() =\n%s\nwant\n%s", got, want)
	}
}

func TestText_UTF8(t *testing.T) {
	var buf bytes.Buffer
	if err := Text(&buf, testForest(t).Heads(), UTF8, false); err != nil {
		t.Fatalf("Text() error: %v", err)
	}
	want := "" +
		"─── aaa Tags: ['base:1'] Size: 1.0 KiB\n" +
		"    ├── bbb Tags: [] Size: 2.0 KiB\n" +
		"    │   └── ddd Tags: ['app:1'] Size: 3.0 MiB\n" +
		"    └── ccc Tags: ['tool:latest'] Size: 10 B\n" +
		"─── eee Tags: ['alpine:3'] Size: 0 B\n"
	if got := buf.String(); got != want {
		t.Errorf("Text() =\n%s\nwant\n%s", got, want)
	}
}

func TestText_SummaryCountsRenderedLayers(t *testing.T) {
	f := testForest(t)
	heads, _ := f.HeadsFor("alpine:3")

	var buf bytes.Buffer
	_ = Text(&buf, heads, ASCII, true)

	if !strings.HasSuffix(buf.String(), "\n1 heads, 1 layers\n") {
		t.Errorf("summary = %q", buf.String())
	}
}

func TestText_Empty(t *testing.T) {
	var buf bytes.Buffer
	_ = Text(&buf, nil, ASCII, true)
	if got := buf.String(); got != "\n0 heads, 0 layers\n" {
		t.Errorf("Text(nil) = %q", got)
	}
}

func TestParseCharset(t *testing.T) {
	tests := []struct {
		in      string
		want    Charset
		wantErr bool
	}{
		{"", ASCII, false},
		{"ascii", ASCII, false},
		{"ASCII", ASCII, false},
		{"utf-8", UTF8, false},
		{"UTF8", UTF8, false},
		{"latin1", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCharset(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCharset(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCharset(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateFormat(t *testing.T) {
	for _, f := range Formats {
		if got, err := ValidateFormat(strings.ToUpper(string(f))); err != nil || got != f {
			t.Errorf("ValidateFormat(%q) = (%q, %v)", f, got, err)
		}
	}
	_, err := ValidateFormat("xml")
	if !errors.Is(err, ErrInvalidOutputFormat) {
		t.Errorf("ValidateFormat(xml) error = %v, want ErrInvalidOutputFormat", err)
	}
	if !apperrors.Is(err, apperrors.ErrCodeInvalidOutputFormat) {
		t.Error("ValidateFormat(xml) should carry INVALID_OUTPUT_FORMAT")
	}
}

func TestRender_RejectsBeforeWriting(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"format", Options{Format: "xml"}, ErrInvalidOutputFormat},
		{"charset", Options{Format: FormatText, Charset: "ebcdic"}, ErrInvalidCharset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Render(context.Background(), &buf, testForest(t).Heads(), tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("Render() error = %v, want %v", err, tt.want)
			}
			if buf.Len() != 0 {
				t.Errorf("Render() wrote %d bytes before failing", buf.Len())
			}
		})
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(context.Background(), &buf, testForest(t).Heads(), Options{Format: FormatJSON}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	var trees []layer.Tree
	if err := json.Unmarshal(buf.Bytes(), &trees); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(trees) != 2 || trees[0].ID != "aaa" || len(trees[0].Children) != 2 {
		t.Errorf("trees = %+v", trees)
	}
	if trees[0].Children[0].Children[0].ID != "ddd" {
		t.Error("nested child ddd missing")
	}
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(context.Background(), &buf, testForest(t).Heads(), Options{Format: FormatYAML}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	var trees []layer.Tree
	if err := yaml.Unmarshal(buf.Bytes(), &trees); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if len(trees) != 2 || trees[1].ID != "eee" || trees[1].RepoTags[0] != "alpine:3" {
		t.Errorf("trees = %+v", trees)
	}
	if !strings.Contains(buf.String(), "Id: aaa") {
		t.Errorf("YAML should use engine field names:\n%s", buf.String())
	}
}

func TestRender_DOT(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(context.Background(), &buf, testForest(t).Heads(), Options{Format: FormatDOT}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(buf.String(), `"aaa" -> "bbb"`) {
		t.Errorf("DOT output missing edge:\n%s", buf.String())
	}
}

func TestCountLayers(t *testing.T) {
	f := testForest(t)
	if got := CountLayers(f.Heads()); got != 5 {
		t.Errorf("CountLayers() = %d, want 5", got)
	}
	if got := CountLayers(f.RemoveUntaggedLayers().Heads()); got != 4 {
		t.Errorf("CountLayers(pruned) = %d, want 4", got)
	}
}

func TestFormatContentType(t *testing.T) {
	if got := FormatSVG.ContentType(); got != "image/svg+xml" {
		t.Errorf("ContentType(svg) = %s", got)
	}
	if !FormatPNG.Binary() || FormatText.Binary() {
		t.Error("Binary() mismatch")
	}
}

func TestLines_Collapsed(t *testing.T) {
	f := testForest(t)
	collapsed := func(l *layer.Layer) bool { return l.ID() != "bbb" }

	lines, err := Lines(f.Heads(), ASCII, collapsed)
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	var got []string
	for _, ln := range lines {
		got = append(got, ln.Prefix+" "+ln.Layer.ID())
	}
	want := []string{"-- aaa", "   |- bbb", "   `- ccc", "-- eee"}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("Lines() =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestLines_InvalidCharset(t *testing.T) {
	if _, err := Lines(nil, Charset("latin1"), nil); !errors.Is(err, ErrInvalidCharset) {
		t.Errorf("Lines() error = %v, want ErrInvalidCharset", err)
	}
}
