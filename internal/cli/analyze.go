package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prsift/internal/ai"
	"github.com/sprite-ai/prsift/internal/github"
	"github.com/sprite-ai/prsift/internal/pipeline"
	"github.com/sprite-ai/prsift/internal/settings"
)

var (
	flagRepo       string
	flagContinue   bool
	flagAIResponse string
	flagJSON       bool
	flagOut        string
	flagRefresh    bool
	flagMaxLines   int
)

// newFetcher builds the hosting-provider client; tests replace it.
var newFetcher = func(s *settings.Settings, log *slog.Logger) (pipeline.Fetcher, error) {
	return github.NewClient(github.Options{
		Token:   s.GitHub.Token,
		BaseURL: s.GitHub.APIURL,
		Retry:   s.RetryOptions(),
		Log:     log,
	})
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <pr>",
	Short: "Classify a pull request's changes",
	Long: `Run phase 1 on a pull request: fetch it, match every file against the
pattern catalog and print a prompt for the files no pattern claimed. Feed the
prompt to a model, save its JSON answer and finish with --continue.

The PR may be a number (resolved against --repo or the origin remote),
owner/repo#N, or a github.com pull request URL.

Examples:
  prsift analyze 123
  prsift analyze acme/shop#123 --json
  prsift analyze 123 --continue --ai-response answer.json -o review.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&flagRepo, "repo", "R", "", "owner/repo used for bare PR numbers (default: origin remote)")
	analyzeCmd.Flags().BoolVar(&flagContinue, "continue", false, "run phase 2 with a saved AI response")
	analyzeCmd.Flags().StringVar(&flagAIResponse, "ai-response", "", "path to the AI response JSON (with --continue)")
	analyzeCmd.Flags().BoolVar(&flagJSON, "json", false, "print the phase result as JSON instead of marker blocks")
	analyzeCmd.Flags().StringVarP(&flagOut, "out", "o", "", "also write the report to this file")
	analyzeCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "re-parse the diff even when the head commit is cached")
	analyzeCmd.Flags().IntVar(&flagMaxLines, "max-lines", ai.DefaultMaxLinesPerFile, "changed lines per file quoted in the AI prompt (0 = no limit)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if flagAIResponse != "" && !flagContinue {
		return usagef("--ai-response requires --continue")
	}
	if flagMaxLines < 0 {
		return usagef("--max-lines must not be negative")
	}

	ctx := cmd.Context()
	repo := flagRepo
	if repo == "" {
		repo = github.DefaultRepo(ctx, env.projectRoot)
	}
	id, err := github.ParseIdentifier(args[0], repo)
	if err != nil {
		return err
	}

	fetcher, err := newFetcher(env.settings, env.log)
	if err != nil {
		return err
	}

	runner := &pipeline.Runner{
		Fetcher:         fetcher,
		Cache:           env.cache,
		Configs:         env.configs,
		FS:              appFS,
		Log:             env.log,
		Weights:         env.settings.Weights(),
		ProjectRoot:     env.projectRoot,
		Command:         commandName,
		Refresh:         flagRefresh,
		MaxLinesPerFile: flagMaxLines,
	}

	env.log.Debug("analyzing pull request",
		slog.String("pr", id.String()),
		slog.Bool("continue", flagContinue),
	)
	return runner.Run(ctx, pipeline.RunOptions{
		ID:         id,
		Continue:   flagContinue,
		AIResponse: flagAIResponse,
		JSON:       flagJSON,
		Out:        flagOut,
	}, cmd.OutOrStdout())
}
