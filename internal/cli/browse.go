package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse <pr>",
	Short: "Browse a scored pull request in the terminal",
	Long: `Open the scored results of a cached pull request in an interactive
viewer. The PR must have completed phase 2 (or needed no AI step).`,
	Args: cobra.ExactArgs(1),
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&flagRepo, "repo", "R", "", "owner/repo used for bare PR numbers (default: origin remote)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	id, err := resolvePR(cmd, args[0])
	if err != nil {
		return err
	}
	entry, err := env.cache.Read(id.Repo(), id.Number)
	if err != nil {
		return err
	}
	if entry.Analysis == nil || entry.Analysis.Scored == nil {
		return apperr.New(apperr.CacheMissing,
			fmt.Sprintf("%s has not been scored yet; run %s analyze %s --continue first", id, commandName, id),
			apperr.Recoverable(true))
	}
	return runTUI(entry.Meta, entry.Analysis.Scored)
}

// runTUI is replaced in tests.
var runTUI = tui.Run
