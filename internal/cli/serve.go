package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/docktree/internal/config"
	"github.com/matzehuels/docktree/pkg/server"
)

// serveCommand creates the serve command, which exposes the forest over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags   sourceFlags
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layer forest over HTTP",
		Long: `Serve the layer forest as a JSON API.

Routes:
  GET /healthz           build info
  GET /heads             every tree as nested JSON
  GET /heads/{selector}  trees containing the selected image
  GET /layers/{selector} one layer record
  GET /tree              rendered output (?format=&charset=&image=&intermediate=)

Records are reloaded when the source changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = c.Config.Server.Addr
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

			if noCache || c.Config.Cache.Backend == config.CacheNone {
				printWarning("Caching disabled: every request rebuilds the forest")
			}
			printInfo("Serving %s on %s", src.Name(), StyleHighlight.Render("http://"+addr))
			printNextStep("Try", "curl http://"+addr+"/tree")
			return server.New(runner, c.Logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.register(cmd)

	return cmd
}
