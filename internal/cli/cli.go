package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldbook/internal/config"
	"github.com/matzehuels/fieldbook/pkg/buildinfo"
	"github.com/matzehuels/fieldbook/pkg/cache"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/pipeline"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger  *log.Logger
	NoCache bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   config.AppName,
		Short: "fieldbook lays out randomized field trials",
		Long: `fieldbook generates randomized complete block designs for field trials,
verifies existing field books, draws field maps and prepares the tabular
data collected during the trial.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVar(&c.NoCache, "no-cache", false, "disable the local cache")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.verifyCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.joinCommand())
	root.AddCommand(c.cleanCommand())
	root.AddCommand(c.scoreCommand())
	root.AddCommand(c.chartCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the local file cache.
func (c *CLI) newRunner() (*pipeline.Runner, error) {
	cache, err := newCache(c.NoCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := config.CacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Format Helpers
// =============================================================================

// parseFormats splits a comma-separated format list, dropping blanks.
func parseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// splitFormats separates field book encodings from render formats.
func splitFormats(formats []string) (books, renders []string) {
	for _, f := range formats {
		switch f {
		case fieldbook.FormatJSON, fieldbook.FormatCSV, fieldbook.FormatXLSX:
			books = append(books, f)
		default:
			renders = append(renders, f)
		}
	}
	return books, renders
}
