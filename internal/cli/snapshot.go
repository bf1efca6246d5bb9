package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/docktree/pkg/errors"
	dtio "github.com/matzehuels/docktree/pkg/io"
	"github.com/matzehuels/docktree/pkg/render"
	"github.com/matzehuels/docktree/pkg/snapshot"
)

// snapshotCommand creates the snapshot command group. Snapshots store an
// image list so its tree can be shown later without the original source.
func (c *CLI) snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"snap"},
		Short:   "Save and inspect stored image lists",
	}

	cmd.AddCommand(c.snapshotSaveCommand())
	cmd.AddCommand(c.snapshotListCommand())
	cmd.AddCommand(c.snapshotShowCommand())
	cmd.AddCommand(c.snapshotExportCommand())
	cmd.AddCommand(c.snapshotRemoveCommand())

	return cmd
}

func (c *CLI) snapshotSaveCommand() *cobra.Command {
	var (
		flags sourceFlags
		name  string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Store the current image list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prog := newProgress(loggerFromContext(ctx))

			src, err := c.newSource(ctx, flags)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, src, true)
			if err != nil {
				return err
			}
			defer runner.Close()

			records, err := runner.Load(ctx, true)
			if err != nil {
				return err
			}
			// Reject lists that would not build so a stored snapshot always renders.
			if _, err := runner.Build(ctx, records, true); err != nil {
				return err
			}

			store, err := c.newSnapshotStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			snap := snapshot.New(name, src.Name(), records)
			if err := store.Save(ctx, snap); err != nil {
				return err
			}
			prog.done("snapshot saved", "id", snap.ID, "layers", len(snap.Records))

			printSuccess("Saved snapshot")
			printKeyValue("ID", snap.ID)
			if snap.Name != "" {
				printKeyValue("Name", snap.Name)
			}
			printKeyValue("Layers", strconv.Itoa(len(snap.Records)))
			printNextStep("Show it", "docktree snapshot show "+snap.Summary().Label())
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "name for the snapshot")
	flags.register(cmd)
	_ = cmd.Flags().MarkHidden("snapshot")

	return cmd
}

func (c *CLI) snapshotListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored snapshots, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.newSnapshotStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				printInfo("No snapshots")
				printNextStep("Create one", "docktree snapshot save --file images.json --name nightly")
				return nil
			}
			fmt.Fprintln(c.stdout, snapshotTable(list, time.Now()))
			return nil
		},
	}
}

// snapshotTable renders summaries as a bordered table.
func snapshotTable(list []snapshot.Summary, now time.Time) string {
	rows := make([][]string, len(list))
	for i, s := range list {
		rows[i] = []string{s.ID[:min(8, len(s.ID))], s.Name, strconv.Itoa(s.Layers), formatRelativeTime(now, s.CreatedAt), s.Source}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Name", "Layers", "Created", "Source").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			if col >= 3 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func (c *CLI) snapshotShowCommand() *cobra.Command {
	var opts treeOpts

	cmd := &cobra.Command{
		Use:   "show <snapshot> [image...]",
		Short: "Print the layer tree of a stored snapshot",
		Long: `Print the layer tree of a stored snapshot.

The snapshot is selected by ID, unique ID prefix or name; the newest snapshot
wins when several share a name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyTreeDefaults(cmd, &opts)
			opts.snapshot = args[0]
			return c.runTree(cmd.Context(), args[1:], &opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.intermediate, "intermediate", "i", false, "show untagged intermediate layers")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: "+render.FormatNames())
	cmd.Flags().StringVarP(&opts.encoding, "encoding", "e", "", "tree charset: ascii (default), utf-8")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write output to a file instead of stdout")
	opts.noCache = true

	return cmd
}

// snapshotExportCommand writes a snapshot's records back out as an image
// list, which --file accepts again.
func (c *CLI) snapshotExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <snapshot>",
		Short: "Write a stored snapshot as image-list JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.newSnapshotStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := snapshot.Lookup(ctx, store, args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return dtio.WriteRecords(c.stdout, snap.Records)
			}
			if err := apperrors.ValidatePath(output); err != nil {
				return err
			}
			if err := dtio.ExportRecords(snap.Records, output); err != nil {
				return err
			}
			printSuccess("Exported snapshot %s", snap.Summary().Label())
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the image list to a file instead of stdout")

	return cmd
}

func (c *CLI) snapshotRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <snapshot>",
		Aliases: []string{"delete"},
		Short:   "Delete a stored snapshot",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.newSnapshotStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := snapshot.Lookup(ctx, store, args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(ctx, snap.ID); err != nil {
				return err
			}
			printSuccess("Deleted snapshot %s", snap.Summary().Label())
			return nil
		},
	}
}

// formatRelativeTime renders t relative to now for listings.
func formatRelativeTime(now, t time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
