package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/svintsoff78/krepko/internal/runner"
)

// FlowInfo describes one flow in list output.
type FlowInfo struct {
	Name        string   `json:"name"`
	BaseURL     string   `json:"base_url"`
	Tags        []string `json:"tags"`
	Draft       bool     `json:"draft"`
	DraftReason string   `json:"draft_reason,omitempty"`
	Steps       []string `json:"steps"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the flows a run would execute",
		Long: `Load every flow file matched by --pattern and print the flows selected by
--tags, in run order, without sending requests.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}

	cmd.Flags().StringP("pattern", "p", "", "glob pattern for flow files (default from config)")
	cmd.Flags().StringSliceP("tags", "t", nil, "list only flows with any of these tags")
	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.config

	set, err := collectFlows(opts, formatter, false)
	if err != nil {
		return err
	}

	selected := runner.Filter(set.Flows, cfg.Tags)
	infos := make([]FlowInfo, 0, len(selected))
	for _, f := range selected {
		info := FlowInfo{
			Name:        f.Name(),
			BaseURL:     f.BaseURL(),
			Tags:        f.TagList(),
			Draft:       f.IsDraft(),
			DraftReason: f.DraftReason(),
			Steps:       []string{},
		}
		if info.BaseURL == "" {
			info.BaseURL = cfg.BaseURL
		}
		if info.Tags == nil {
			info.Tags = []string{}
		}
		for _, s := range f.Steps() {
			info.Steps = append(info.Steps, s.Name)
		}
		infos = append(infos, info)
	}

	if formatter.IsJSON() {
		return formatter.Data(infos)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Flows (%d of %d):\n", len(infos), len(set.Flows))
	for _, info := range infos {
		line := "  " + info.Name
		if len(info.Tags) > 0 {
			line += " [" + strings.Join(info.Tags, ", ") + "]"
		}
		if info.Draft {
			line += " [DRAFT]"
			if info.DraftReason != "" {
				line += " " + info.DraftReason
			}
		}
		fmt.Fprintln(w, line)
		if opts.Verbose {
			fmt.Fprintf(w, "    %s\n", info.BaseURL)
			for _, s := range info.Steps {
				fmt.Fprintf(w, "    - %s\n", s)
			}
		}
	}
	return nil
}
