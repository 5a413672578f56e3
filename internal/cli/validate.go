package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool `json:"valid"`
	Files int  `json:"files"`
	Flows int  `json:"flows"`
	Steps int  `json:"steps"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate flow files without sending requests",
		Long: `Load, check and compile every flow file matched by --pattern.

Reports unknown fields, malformed patterns, bad methods, statuses and
variable names with file and line. No HTTP requests are made.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}

	cmd.Flags().StringP("pattern", "p", "", "glob pattern for flow files (default from config)")
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	set, err := collectFlows(opts, formatter, false)
	if err != nil {
		return err
	}

	result := ValidationResult{Valid: true, Files: len(set.Files), Flows: len(set.Flows)}
	for _, f := range set.Flows {
		result.Steps += len(f.Steps())
		formatter.VerboseLog("Flow %q: %d step(s)", f.Name(), len(f.Steps()))
	}

	return formatter.Result(result, fmt.Sprintf("✓ All flow files valid: %d file(s), %d flow(s), %d step(s)",
		result.Files, result.Flows, result.Steps))
}
