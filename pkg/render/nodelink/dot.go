package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/docktree/pkg/layer"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the short ID and size to every label.
	// When false, tagged layers show only their tags.
	Detailed bool
}

// ToDOT converts the trees rooted at heads to Graphviz DOT format.
// Edges point from parent to child, so base images sit at the top.
//
// Untagged layers are drawn with dashed outlines and grey fill and are
// labelled with their short ID.
func ToDOT(heads []*layer.Layer, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	var edges []string
	var walk func(l *layer.Layer)
	walk = func(l *layer.Layer) {
		fmt.Fprintf(&buf, "  %q [%s];\n", l.ID(), strings.Join(fmtAttrs(l, fmtLabel(l, opts.Detailed)), ", "))
		for _, c := range l.Children() {
			edges = append(edges, fmt.Sprintf("  %q -> %q;\n", l.ID(), c.ID()))
			walk(c)
		}
	}
	for _, h := range heads {
		walk(h)
	}

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(l *layer.Layer, detailed bool) string {
	var parts []string
	if l.IsTagged() {
		parts = append(parts, l.Tags()...)
	}
	if detailed || !l.IsTagged() {
		parts = append(parts, l.ShortID())
	}
	if detailed {
		parts = append(parts, l.FormatSize())
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(l *layer.Layer, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if !l.IsTagged() {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// The root element is rewritten to a plain viewBox with explicit pixel
// dimensions so the SVG scales cleanly when embedded.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
