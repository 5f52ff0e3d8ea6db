package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	RulesPath string // ruleset source (.yaml, .yml, .json, or .cue)
	DBPath    string // session state database
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Environment overrides for the state paths, checked when the flag is
// left at its default.
const (
	EnvRules = "SKILLGATE_RULES"
	EnvDB    = "SKILLGATE_DB"
)

// NewRootCommand creates the root command for the skillgate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "skillgate",
		Short: "skillgate - context-aware skill activation for coding agents",
		Long: "skillgate decides which guideline skills are relevant to a prompt or\n" +
			"file edit, and whether to suggest them or block until acknowledged.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(opts.Verbose)
			resolvePaths(opts)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.RulesPath, "rules", "", "ruleset source file (default .skillgate/rules.yaml, env "+EnvRules+")")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "session database file (default .skillgate/session.db, env "+EnvDB+")")

	// Add subcommands
	cmd.AddCommand(NewHookCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// configureLogging routes slog to stderr so stdout stays a clean
// response stream for the host agent.
func configureLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// resolvePaths fills unset path flags from the environment, then from
// the defaults under .skillgate/.
func resolvePaths(opts *RootOptions) {
	if opts.RulesPath == "" {
		opts.RulesPath = os.Getenv(EnvRules)
	}
	if opts.RulesPath == "" {
		opts.RulesPath = filepath.Join(".skillgate", "rules.yaml")
	}
	if opts.DBPath == "" {
		opts.DBPath = os.Getenv(EnvDB)
	}
	if opts.DBPath == "" {
		opts.DBPath = filepath.Join(".skillgate", "session.db")
	}
}
