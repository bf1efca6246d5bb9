package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/docktree/pkg/errors"
	"github.com/matzehuels/docktree/pkg/layer"
	"github.com/matzehuels/docktree/pkg/pipeline"
	"github.com/matzehuels/docktree/pkg/render"
)

// treeOpts holds the command-line flags for the tree command.
type treeOpts struct {
	sourceFlags
	intermediate bool   // keep untagged layers
	format       string // output format
	encoding     string // tree charset for text output
	summary      bool   // append "<h> heads, <n> layers"
	detailed     bool   // IDs and sizes in graph labels
	scale        float64
	output       string // output file, stdout when empty
	noCache      bool
	refresh      bool
}

// treeCommand creates the tree command, the default way to look at the
// layer forest.
func (c *CLI) treeCommand() *cobra.Command {
	var opts treeOpts

	cmd := &cobra.Command{
		Use:   "tree [image...]",
		Short: "Print image layers as a tree",
		Long: `Print the derivation forest of image layers.

Each argument selects an image by full ID, ID prefix or tag; a name without a
tag also matches <name>:latest. Without arguments every tree is printed.
Untagged intermediate layers are hidden unless --intermediate is given.`,
		Example: `  curl -s --unix-socket /var/run/docker.sock http://localhost/images/json?all=1 | docktree tree
  docktree tree --file images.json nginx
  docktree tree --tarball app.tar.zst -i -e utf-8
  docktree tree --file images.json -f svg -o layers.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyTreeDefaults(cmd, &opts)
			for _, sel := range args {
				if err := apperrors.ValidateSelector(sel); err != nil {
					return err
				}
			}
			return c.runTree(cmd.Context(), args, &opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.intermediate, "intermediate", "i", false, "show untagged intermediate layers")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: "+render.FormatNames())
	cmd.Flags().StringVarP(&opts.encoding, "encoding", "e", "", "tree charset: ascii (default), utf-8")
	cmd.Flags().BoolVar(&opts.summary, "summary", true, `append "<h> heads, <n> layers" to text output`)
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show IDs and sizes in graph output")
	cmd.Flags().Float64Var(&opts.scale, "scale", 2, "PNG resolution factor")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write output to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "reload records even if cached")
	opts.sourceFlags.register(cmd)

	return cmd
}

// applyTreeDefaults fills flags the user did not set from the config file.
func (c *CLI) applyTreeDefaults(cmd *cobra.Command, opts *treeOpts) {
	cfg := c.Config.Output
	if !cmd.Flags().Changed("format") {
		opts.format = cfg.Format
	}
	if !cmd.Flags().Changed("encoding") {
		opts.encoding = cfg.Charset
	}
	if !cmd.Flags().Changed("intermediate") {
		opts.intermediate = cfg.Intermediate
	}
	if !cmd.Flags().Changed("summary") {
		opts.summary = cfg.Summary
	}
}

// runTree loads, builds and renders the forest, then writes the result.
func (c *CLI) runTree(ctx context.Context, selectors []string, opts *treeOpts) error {
	logger := loggerFromContext(ctx)

	src, err := c.newSource(ctx, opts.sourceFlags)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, src, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := pipeline.Options{
		Intermediate: opts.intermediate,
		Selectors:    selectors,
		Refresh:      opts.refresh,
		Format:       opts.format,
		Charset:      opts.encoding,
		Summary:      opts.summary,
		Detailed:     opts.detailed,
		Scale:        opts.scale,
	}
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if render.Format(popts.Format).Binary() && opts.output == "" && isTerminal(c.stdout) {
		return fmt.Errorf("%s output is binary: use -o to write it to a file", popts.Format)
	}

	var spinner *Spinner
	if opts.tarball != "" {
		spinner = newSpinnerWithContext(ctx, "Reading "+opts.tarball)
		spinner.Start()
	}
	res, err := runner.Execute(ctx, popts)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return selectorExitError(err)
	}

	logger.Debug("tree rendered",
		"records", res.Stats.Records, "layers", res.Stats.Layers, "heads", res.Stats.Heads,
		"pruned", res.Stats.Pruned, "cached", res.CacheInfo.RenderHit,
		"load", res.Stats.LoadTime, "build", res.Stats.BuildTime, "render", res.Stats.RenderTime)

	if opts.output == "" {
		_, err := c.stdout.Write(res.Output)
		return err
	}
	if err := c.writeOutput(opts.output, res.Output); err != nil {
		return err
	}
	printSuccess("Wrote %s tree", popts.Format)
	printFile(opts.output)
	printStats(res.Stats.Heads, render.CountLayers(res.Heads), res.Stats.Pruned, res.CacheInfo.RenderHit)
	return nil
}

// selectorExitError turns an unknown image into the message users expect.
func selectorExitError(err error) error {
	var se *pipeline.SelectorError
	if errors.As(err, &se) && errors.Is(err, layer.ErrNotFound) {
		return &exitError{msg: fmt.Sprintf("No image found with id/name %s.", se.Selector)}
	}
	return err
}

func (c *CLI) writeOutput(path string, data []byte) error {
	if err := apperrors.ValidatePath(path); err != nil {
		return err
	}
	if path == "-" {
		_, err := c.stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
