package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/docktree/pkg/layer"
	"github.com/matzehuels/docktree/pkg/render"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the browse command for exploring the forest
// interactively.
func (c *CLI) browseCommand() *cobra.Command {
	var (
		flags        sourceFlags
		intermediate bool
		encoding     string
		noCache      bool
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Explore image layers interactively",
		Long: `Open the layer forest in an interactive viewer.

Keys: ↑/↓ or j/k move, enter or space folds a subtree, i toggles untagged
intermediate layers, g/G jump to the top or bottom, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("intermediate") {
				intermediate = c.Config.Output.Intermediate
			}
			if !cmd.Flags().Changed("encoding") {
				encoding = c.Config.Output.Charset
			}
			charset, err := render.ParseCharset(encoding)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			src, err := c.newSource(ctx, flags)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, src, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			records, err := runner.Load(ctx, false)
			if err != nil {
				return err
			}
			full, err := runner.Build(ctx, records, true)
			if err != nil {
				return err
			}
			pruned, err := runner.Build(ctx, records, false)
			if err != nil {
				return err
			}

			model := NewBrowseModel(full, pruned, charset)
			model.SetIntermediate(intermediate)

			opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
			if !isTerminal(c.stdin) {
				opts = append(opts, tea.WithInputTTY())
			}
			_, err = tea.NewProgram(model, opts...).Run()
			return err
		},
	}

	cmd.Flags().BoolVarP(&intermediate, "intermediate", "i", false, "start with untagged intermediate layers shown")
	cmd.Flags().StringVarP(&encoding, "encoding", "e", "", "tree charset: ascii (default), utf-8")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.register(cmd)

	return cmd
}

// =============================================================================
// BrowseModel - Interactive forest viewer
// =============================================================================

// BrowseModel is the bubbletea model for the interactive forest viewer.
// It holds both the full and the pruned forest so toggling untagged layers
// does not reload anything.
type BrowseModel struct {
	Full   *layer.Forest
	Pruned *layer.Forest

	Charset      render.Charset
	Intermediate bool
	Collapsed    map[string]bool // layer IDs whose subtree is folded

	Cursor int
	Offset int
	Height int

	lines []render.Line
	err   error
}

// NewBrowseModel creates a browse model showing the pruned forest.
func NewBrowseModel(full, pruned *layer.Forest, charset render.Charset) *BrowseModel {
	m := &BrowseModel{
		Full:      full,
		Pruned:    pruned,
		Charset:   charset,
		Collapsed: make(map[string]bool),
		Height:    20,
	}
	m.relayout()
	return m
}

// SetIntermediate switches between the full and the pruned forest, keeping
// the cursor on the same layer when it is still visible.
func (m *BrowseModel) SetIntermediate(on bool) {
	current := m.Selected()
	m.Intermediate = on
	m.relayout()
	m.Cursor = 0
	if current != nil {
		for i, ln := range m.lines {
			if ln.Layer.ID() == current.ID() {
				m.Cursor = i
				break
			}
		}
	}
	m.scroll()
}

// Forest returns the forest currently on screen.
func (m *BrowseModel) Forest() *layer.Forest {
	if m.Intermediate {
		return m.Full
	}
	return m.Pruned
}

// Lines returns the visible rows.
func (m *BrowseModel) Lines() []render.Line { return m.lines }

// Selected returns the layer under the cursor, or nil for an empty forest.
func (m *BrowseModel) Selected() *layer.Layer {
	if m.Cursor < 0 || m.Cursor >= len(m.lines) {
		return nil
	}
	return m.lines[m.Cursor].Layer
}

func (m *BrowseModel) relayout() {
	m.lines, m.err = render.Lines(m.Forest().Heads(), m.Charset, func(l *layer.Layer) bool {
		return !m.Collapsed[l.ID()]
	})
	if m.Cursor >= len(m.lines) {
		m.Cursor = max(len(m.lines)-1, 0)
	}
}

func (m *BrowseModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

// Init implements tea.Model.
func (m *BrowseModel) Init() tea.Cmd {
	return nil
}

// Update handles navigation keys and terminal resizes.
func (m *BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.lines)-1 {
				m.Cursor++
			}
		case "g", "home":
			m.Cursor = 0
		case "G", "end":
			m.Cursor = max(len(m.lines)-1, 0)
		case "enter", " ":
			if l := m.Selected(); l != nil && len(l.Children()) > 0 {
				m.Collapsed[l.ID()] = !m.Collapsed[l.ID()]
				m.relayout()
			}
		case "i":
			m.SetIntermediate(!m.Intermediate)
		}
		m.scroll()
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 7
		if m.Height < 5 {
			m.Height = 5
		}
		m.scroll()
	}
	return m, nil
}

// View renders the visible rows and the status footer.
func (m *BrowseModel) View() string {
	var b strings.Builder

	title := "Image Layers"
	if m.Intermediate {
		title += " (with intermediate layers)"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ fold  i intermediate  q quit"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(StyleWarning.Render(m.err.Error()))
		return b.String()
	}
	if len(m.lines) == 0 {
		b.WriteString(listDimStyle.Render("  no images"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.lines))
	for i := m.Offset; i < end; i++ {
		ln := m.lines[i]
		fold := " "
		if m.Collapsed[ln.Layer.ID()] {
			fold = "+"
		}
		row := fmt.Sprintf("%s%s %s", fold, ln.Prefix, ln.Layer.RenderLine())
		switch {
		case i == m.Cursor:
			b.WriteString(listSelectedStyle.Render(row))
		case !ln.Layer.IsTagged():
			b.WriteString(listDimStyle.Render(row))
		default:
			b.WriteString(listNormalStyle.Render(row))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m *BrowseModel) footer() string {
	f := m.Forest()
	heads := f.Heads()
	status := fmt.Sprintf("  [%d/%d]  %d heads · %d layers", m.Cursor+1, len(m.lines), len(heads), f.Len())
	if hidden := m.Full.Len() - m.Pruned.Len(); !m.Intermediate && hidden > 0 {
		status += fmt.Sprintf(" · %d untagged hidden", hidden)
	}
	if l := m.Selected(); l != nil {
		status += fmt.Sprintf("\n  %s  %s  %d descendants", l.ShortID(), l.FormatSize(), l.Descendants())
	}
	return listDimStyle.Render(status)
}
