package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/docktree/internal/config"
	"github.com/matzehuels/docktree/pkg/buildinfo"
	"github.com/matzehuels/docktree/pkg/cache"
	apperrors "github.com/matzehuels/docktree/pkg/errors"
	dtio "github.com/matzehuels/docktree/pkg/io"
	"github.com/matzehuels/docktree/pkg/pipeline"
	"github.com/matzehuels/docktree/pkg/snapshot"
	"github.com/matzehuels/docktree/pkg/source"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "docktree"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// errNoInput is returned when records would be read from an interactive terminal.
var errNoInput = apperrors.New(apperrors.ErrCodeInvalidInput,
	"no input: pipe an image list into docktree (docker image ls JSON from /images/json?all=1), or pass --file or --tarball")

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
	envFile    string
	verbose    bool
	stdin      io.Reader
	stdout     io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetIO replaces standard input and output, for tests and embedding.
func (c *CLI) SetIO(in io.Reader, out io.Writer) {
	c.stdin = in
	c.stdout = out
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "docktree shows container image layers as a tree",
		Long: `docktree builds the derivation forest of container image layers from an
image list and prints it as a tree. Untagged intermediate layers are hidden
unless --intermediate is given.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/docktree/config.toml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file with DOCKTREE_* overrides")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	// Register all subcommands
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig applies --verbose, reads the dotenv file and the config file,
// then attaches the logger to the command context.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	if cmd.Flags().Changed("verbose") {
		c.SetLogLevel(logLevel(c.verbose))
	}
	if err := config.LoadDotenv(c.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// newCache opens the configured cache backend. Nothing is cached with
// noCache set or the "none" backend.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.Config.Cache
	if noCache || cfg.Backend == config.CacheNone {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return cache.Instrumented(rc), nil
	default:
		dir, err := c.cacheDir()
		if err != nil {
			c.Logger.Warn("cache disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return cache.Instrumented(fc), nil
	}
}

// cacheDir returns the configured cache directory or the per-user default
// (~/.cache/docktree).
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// newSnapshotStore opens the configured snapshot store.
func (c *CLI) newSnapshotStore(ctx context.Context) (snapshot.Store, error) {
	cfg := c.Config.Snapshot
	if cfg.Store == config.StoreMongo {
		return snapshot.NewMongoStore(ctx, snapshot.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		})
	}
	return snapshot.NewFileStore(cfg.Dir)
}

// sourceFlags selects where records come from.
type sourceFlags struct {
	file     string // image-list JSON, "-" for stdin
	tarball  string // docker save archive
	snapshot string // stored snapshot ID or name
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", `image-list JSON file, "-" for stdin`)
	cmd.Flags().StringVar(&f.tarball, "tarball", "", "docker save archive (tar, tar.gz or tar.zst)")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "read records from a stored snapshot (ID, ID prefix or name)")
	cmd.MarkFlagsMutuallyExclusive("file", "tarball", "snapshot")
}

// newSource resolves source flags, falling back to the configured source.
// Standard input is read once up front so the source can be queried again.
func (c *CLI) newSource(ctx context.Context, f sourceFlags) (source.Source, error) {
	switch {
	case f.snapshot != "":
		store, err := c.newSnapshotStore(ctx)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		snap, err := snapshot.Lookup(ctx, store, f.snapshot)
		if err != nil {
			return nil, err
		}
		return source.Static("snapshot:"+snap.ID, snap.Records), nil
	case f.tarball != "":
		return c.tarballSource(f.tarball)
	case f.file != "":
		return c.fileSource(f.file)
	case c.Config.Source.Tarball != "":
		return c.tarballSource(c.Config.Source.Tarball)
	case c.Config.Source.File != "":
		return c.fileSource(c.Config.Source.File)
	}
	return c.fileSource("-")
}

func (c *CLI) tarballSource(path string) (source.Source, error) {
	if err := apperrors.ValidatePath(path); err != nil {
		return nil, err
	}
	return source.NewTarball(path, c.Logger), nil
}

func (c *CLI) fileSource(path string) (source.Source, error) {
	if err := apperrors.ValidatePath(path); err != nil {
		return nil, err
	}
	if path != "-" {
		return source.NewJSON(path), nil
	}
	if isTerminal(c.stdin) {
		return nil, errNoInput
	}
	records, err := dtio.ReadRecords(c.stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return source.Static("stdin", source.Normalize(records)), nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, src source.Source, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(src, cc, c.keyer(), c.Logger)
	runner.RecordsTTL = c.Config.Cache.TTL.Duration
	return runner, nil
}

// keyer scopes cache keys by host when the cache is shared over Redis, since
// file sources with the same path on two machines hold different records.
func (c *CLI) keyer() cache.Keyer {
	if c.Config.Cache.Backend != config.CacheRedis {
		return nil
	}
	host, err := os.Hostname()
	if err != nil {
		return nil
	}
	return cache.NewScopedKeyer(nil, "host:"+host+":")
}

// isTerminal reports whether v is an interactive terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// exitError carries a message printed verbatim by main.
type exitError struct {
	msg string
}

func (e *exitError) Error() string { return e.msg }

// IsUserError reports whether err is a message for the user rather than a
// failure worth logging with context.
func IsUserError(err error) bool {
	var e *exitError
	return errors.As(err, &e)
}
