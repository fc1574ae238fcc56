package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prsift/internal/analysis"
	"github.com/sprite-ai/prsift/internal/config"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns [id]",
	Short: "List patterns in the order they are tried",
	Long: `List the project's patterns in precedence order. With an id, show the
rule's regexes and flags instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := env.configs.Load(env.projectRoot)
		if err != nil {
			return err
		}
		patterns, err := analysis.SortByPrecedence(cfg)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return showPattern(cmd.OutOrStdout(), patterns, cfg, args[0])
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPRIORITY\tCONFIDENCE\tORIGIN\tBLESSED")
		for _, p := range patterns {
			blessed := ""
			if cfg.IsBlessed(p.ID) {
				blessed = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Priority, p.Confidence, p.Origin, blessed)
		}
		return tw.Flush()
	},
}

func showPattern(w io.Writer, patterns []analysis.Pattern, cfg config.Config, id string) error {
	var found *analysis.Pattern
	for i := range patterns {
		if patterns[i].ID == id {
			found = &patterns[i]
			break
		}
	}
	if found == nil {
		return usagef("unknown pattern %q (run %s patterns to list them)", id, commandName)
	}
	p := *found

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", p.ID)
	fmt.Fprintf(tw, "Description:\t%s\n", p.Description)
	fmt.Fprintf(tw, "Origin:\t%s\n", p.Origin)
	fmt.Fprintf(tw, "Priority:\t%s\n", p.Priority)
	fmt.Fprintf(tw, "Confidence:\t%d (%s)\n", p.Confidence, p.Category.Label())
	if p.MatchFile != nil {
		fmt.Fprintf(tw, "File regex:\t%s\n", p.MatchFile)
	}
	if p.MatchLine != nil {
		fmt.Fprintf(tw, "Line regex:\t%s (%s lines)\n", p.MatchLine, p.Lines)
	}
	if p.Exclusive {
		fmt.Fprintf(tw, "Exclusive:\tevery changed line must match\n")
	}
	if p.Guard != nil {
		fmt.Fprintf(tw, "Guard:\t%.0f%% or %.0f absolute\n", p.Guard.RelativePercent, p.Guard.AbsoluteDelta)
	}
	if cfg.IsBlessed(p.ID) {
		fmt.Fprintf(tw, "Blessed:\tyes\n")
	}
	if b, ok := analysis.Lookup(p.ID); ok && p.Origin == analysis.OriginCustom {
		fmt.Fprintf(tw, "Shadows:\tbuilt-in %q (%s)\n", b.ID, b.Description)
	}
	return tw.Flush()
}
