package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prsift/internal/config"
)

var flagRemove bool

var blessCmd = &cobra.Command{
	Use:   "bless <pattern-id>",
	Short: "Accept a discovered pattern for this project",
	Long: `Record a pattern id in the project's blessed_patterns so it is no longer
listed under Discovered Patterns. With --remove the id is dropped again.`,
	Args: cobra.ExactArgs(1),
	RunE: runBless,
}

func init() {
	blessCmd.Flags().BoolVar(&flagRemove, "remove", false, "remove the pattern from blessed_patterns")
}

func runBless(cmd *cobra.Command, args []string) error {
	id := args[0]
	out := cmd.OutOrStdout()

	if flagRemove {
		_, removed, err := env.configs.UnblessPattern(env.projectRoot, id)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(out, "Pattern %q was not blessed.\n", id)
			return nil
		}
		fmt.Fprintf(out, "Removed %q from blessed patterns.\n", id)
		return nil
	}

	res, err := config.Bless(env.configs, env.projectRoot, id)
	if err != nil {
		return err
	}
	if !res.Valid {
		return usagef("invalid pattern id %q: %s", id, res.Error)
	}
	if res.AlreadyBlessed {
		fmt.Fprintf(out, "Pattern %q is already blessed.\n", id)
		return nil
	}
	fmt.Fprintf(out, "Blessed %q (%s).\n", id, env.configs.Path(env.projectRoot))
	return nil
}
