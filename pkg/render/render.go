package render

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	apperrors "github.com/matzehuels/docktree/pkg/errors"
	dtio "github.com/matzehuels/docktree/pkg/io"
	"github.com/matzehuels/docktree/pkg/layer"
	"github.com/matzehuels/docktree/pkg/render/nodelink"
)

// Format names an output mode.
type Format string

// Supported output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
)

// Formats lists every supported format in help-text order.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatDOT, FormatSVG, FormatPDF, FormatPNG}

var (
	// ErrInvalidOutputFormat is returned when an unsupported format is requested.
	ErrInvalidOutputFormat = apperrors.New(apperrors.ErrCodeInvalidOutputFormat, "unsupported output format")

	// ErrInvalidCharset is returned when an unsupported tree charset is requested.
	ErrInvalidCharset = apperrors.New(apperrors.ErrCodeInvalidOutputFormat, "unsupported charset")
)

// ValidateFormat parses a format name, case-insensitively.
func ValidateFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Formats, f) {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", ErrInvalidOutputFormat, s, FormatNames())
}

// FormatNames returns the supported formats as a comma-separated list.
func FormatNames() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Binary reports whether the format produces non-text output.
func (f Format) Binary() bool {
	return f == FormatPDF || f == FormatPNG
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatDOT:
		return "text/vnd.graphviz"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Options configures [Render].
type Options struct {
	Format  Format
	Charset Charset // text only; defaults to ASCII
	Summary bool    // text only; append "<h> heads, <n> layers"

	// Detailed adds IDs and sizes to graph node labels (dot, svg, pdf, png).
	Detailed bool

	// Scale is the PNG resolution factor; defaults to 2.
	Scale float64
}

// Render writes the trees rooted at heads to w in the requested format.
// The format and charset are validated before anything is written.
func Render(ctx context.Context, w io.Writer, heads []*layer.Layer, opts Options) error {
	format, err := ValidateFormat(string(opts.Format))
	if err != nil {
		return err
	}
	charset := opts.Charset
	if charset == "" {
		charset = ASCII
	}
	if _, err := charset.chars(); err != nil {
		return err
	}

	switch format {
	case FormatText:
		return Text(w, heads, charset, opts.Summary)
	case FormatJSON:
		return JSON(w, heads)
	case FormatYAML:
		return YAML(w, heads)
	}

	dot := nodelink.ToDOT(heads, nodelink.Options{Detailed: opts.Detailed})
	if format == FormatDOT {
		_, err := io.WriteString(w, dot)
		return err
	}
	svg, err := nodelink.RenderSVG(ctx, dot)
	if err != nil {
		return err
	}
	var out []byte
	switch format {
	case FormatSVG:
		out = svg
	case FormatPDF:
		out, err = ToPDF(ctx, svg)
	case FormatPNG:
		scale := opts.Scale
		if scale <= 0 {
			scale = 2
		}
		out, err = ToPNG(ctx, svg, scale)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// JSON writes the trees rooted at heads as a nested JSON array.
func JSON(w io.Writer, heads []*layer.Layer) error {
	return dtio.WriteTrees(w, heads)
}

// CountLayers returns the number of layers in the trees rooted at heads,
// which is the number of lines [Text] prints.
func CountLayers(heads []*layer.Layer) int {
	n := 0
	for _, h := range heads {
		n += 1 + h.Descendants()
	}
	return n
}
