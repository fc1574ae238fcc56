package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prsift/internal/github"
)

var flagClearAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached pull request analyses",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached pull requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := env.cache.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(keys) == 0 {
			fmt.Fprintln(out, "Cache is empty.")
			return nil
		}
		for _, k := range keys {
			entry, err := env.cache.Read(k.Repo, k.Number)
			if err != nil {
				env.log.Warn("skipping unreadable cache entry", slog.String("pr", k.String()), slog.String("error", err.Error()))
				fmt.Fprintf(out, "%s\t(unreadable)\n", k)
				continue
			}
			state := "phase 1"
			if entry.Analysis != nil && entry.Analysis.Scored != nil {
				state = "scored"
			}
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", k, shortSHA(entry.Meta.HeadRefOid), state, entry.Meta.Title)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [pr]",
	Short: "Remove a cached pull request, or everything with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch {
		case flagClearAll && len(args) > 0:
			return usagef("give either a PR or --all, not both")
		case flagClearAll:
			keys, err := env.cache.List()
			if err != nil {
				return err
			}
			for _, k := range keys {
				if err := env.cache.Invalidate(k.Repo, k.Number); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "Cleared %d cached pull request(s).\n", len(keys))
			return nil
		case len(args) == 0:
			return usagef("clear needs a PR or --all")
		}

		id, err := resolvePR(cmd, args[0])
		if err != nil {
			return err
		}
		if err := env.cache.Invalidate(id.Repo(), id.Number); err != nil {
			return err
		}
		fmt.Fprintf(out, "Cleared %s.\n", id)
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().StringVarP(&flagRepo, "repo", "R", "", "owner/repo used for bare PR numbers (default: origin remote)")
	cacheClearCmd.Flags().BoolVar(&flagClearAll, "all", false, "remove every cached pull request")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// resolvePR parses a PR argument against --repo or the origin remote.
func resolvePR(cmd *cobra.Command, arg string) (github.Identifier, error) {
	repo := flagRepo
	if repo == "" {
		repo = github.DefaultRepo(cmd.Context(), env.projectRoot)
	}
	return github.ParseIdentifier(arg, repo)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
