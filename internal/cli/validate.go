package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptside/skillgate/internal/rules"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool
}

// ValidateResult is the data payload for validate output.
type ValidateResult struct {
	Source   string   `json:"source"`
	Rules    int      `json:"rules"`
	Dropped  int      `json:"dropped"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command: a lint pass over a
// ruleset source.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [ruleset]",
		Short: "Validate a ruleset source and report dropped rules",
		Long: `Validate a ruleset source and report dropped rules.

Loads the ruleset exactly as the hook command would: individually
invalid rules are reported as warnings, and only an unreadable or
structurally malformed source fails the load outright.

With --strict, any dropped rule fails the command (exit 1).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := opts.RulesPath
			if len(args) == 1 {
				source = args[0]
			}
			return runValidate(cmd, opts, source)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail when any rule is dropped")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions, source string) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	rs, warnings, err := rules.Load(source)
	if err != nil {
		out.Error(ErrCodeRulesLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "ruleset load failed", err)
	}

	result := ValidateResult{
		Source:  source,
		Rules:   rs.Len(),
		Dropped: len(warnings),
	}
	for _, w := range warnings {
		result.Warnings = append(result.Warnings, w.String())
	}

	if opts.Format == "json" {
		if err := out.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rule(s) loaded, %d dropped\n", source, result.Rules, result.Dropped)
		if len(result.Warnings) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(result.Warnings, "\n"))
		}
	}

	if opts.Strict && len(warnings) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d rule(s) dropped", len(warnings)))
	}
	return nil
}
