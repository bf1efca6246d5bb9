package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/matzehuels/docktree/pkg/layer"
)

// Charset selects the tree-drawing characters of [Text].
type Charset string

// Supported charsets.
const (
	ASCII Charset = "ascii"
	UTF8  Charset = "utf-8"
)

// ParseCharset parses a charset name. "utf8" is accepted for UTF-8 and
// case is ignored. The empty string selects ASCII.
func ParseCharset(s string) (Charset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascii":
		return ASCII, nil
	case "utf-8", "utf8":
		return UTF8, nil
	}
	return "", fmt.Errorf("%w: %q (want ascii or utf-8)", ErrInvalidCharset, s)
}

type treeChars struct {
	head, child, last string
	indent, lastIndent string
}

var charsets = map[Charset]treeChars{
	ASCII: {head: "--", child: "|-", last: "`-", indent: "|  ", lastIndent: "   "},
	UTF8:  {head: "───", child: "├──", last: "└──", indent: "│   ", lastIndent: "    "},
}

func (c Charset) chars() (treeChars, error) {
	tc, ok := charsets[c]
	if !ok {
		return treeChars{}, fmt.Errorf("%w: %q", ErrInvalidCharset, string(c))
	}
	return tc, nil
}

// Text writes the trees rooted at heads as indented text, one layer per
// line in children order. A head counts as a last child, so its children
// are indented with blanks rather than a vertical bar. With summary set,
// a blank line and "<h> heads, <n> layers" follow.
func Text(w io.Writer, heads []*layer.Layer, charset Charset, summary bool) error {
	lines, err := Lines(heads, charset, nil)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for _, ln := range lines {
		fmt.Fprintf(bw, "%s %s\n", ln.Prefix, ln.Layer.RenderLine())
	}
	if summary {
		fmt.Fprintf(bw, "\n%d heads, %d layers\n", len(heads), CountLayers(heads))
	}
	return bw.Flush()
}

// Line is one row of a text tree: the drawing prefix and the layer it
// belongs to.
type Line struct {
	Prefix string
	Layer  *layer.Layer
}

// Lines lays out the trees rooted at heads without rendering layer text.
// If expanded is non-nil, the children of a layer for which it returns
// false are skipped.
func Lines(heads []*layer.Layer, charset Charset, expanded func(*layer.Layer) bool) ([]Line, error) {
	tc, err := charset.chars()
	if err != nil {
		return nil, err
	}
	var out []Line
	var walk func(l *layer.Layer, indent string, last, head bool)
	walk = func(l *layer.Layer, indent string, last, head bool) {
		switch {
		case head:
			out = append(out, Line{Prefix: tc.head, Layer: l})
		case last:
			out = append(out, Line{Prefix: indent + tc.last, Layer: l})
		default:
			out = append(out, Line{Prefix: indent + tc.child, Layer: l})
		}
		if expanded != nil && !expanded(l) {
			return
		}

		next := indent + tc.indent
		if last || head {
			next = indent + tc.lastIndent
		}
		children := l.Children()
		for i, c := range children {
			walk(c, next, i == len(children)-1, false)
		}
	}
	for _, h := range heads {
		walk(h, "", true, true)
	}
	return out, nil
}
