// Package cli wires the prsift command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/cache"
	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/github"
	"github.com/sprite-ai/prsift/internal/logger"
	"github.com/sprite-ai/prsift/internal/settings"
)

// Exit codes.
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitUsageError = 2
)

const commandName = "prsift"

// appFS backs the cache, config store and report output.
var appFS afero.Fs = afero.NewOsFs()

var flagProject string

// env is populated before any subcommand runs.
var env struct {
	settings    *settings.Settings
	log         *slog.Logger
	cache       *cache.Store
	configs     *config.Store
	projectRoot string
}

var rootCmd = &cobra.Command{
	Use:   commandName,
	Short: "Sort pull request changes by how much review they need",
	Long: `prsift classifies every file in a pull request with a catalog of
heuristic patterns, hands whatever the heuristics cannot place to an AI model
and renders a markdown report grouped by review priority.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "project root used to locate the config (default: git toplevel or cwd)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(blessCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	s, err := settings.Load()
	if err != nil {
		return err
	}
	env.settings = s
	env.log = logger.Setup(s.Env, cmd.ErrOrStderr())
	if !s.DotEnv {
		env.log.Debug("no .env file found, using process environment")
	}

	cacheRoot, err := s.CacheRoot()
	if err != nil {
		return err
	}
	configRoot, err := s.ConfigRoot()
	if err != nil {
		return err
	}
	env.cache = cache.New(cacheRoot, appFS)
	env.configs = config.NewStore(configRoot, appFS)

	env.projectRoot, err = projectRoot(cmd.Context())
	return err
}

func projectRoot(ctx context.Context) (string, error) {
	if flagProject != "" {
		return flagProject, nil
	}
	if root, err := github.RepoRoot(ctx, ""); err == nil {
		return root, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	return wd, nil
}

// usageError marks bad invocations so Execute exits with ExitUsageError.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ue *usageError
	if errors.As(err, &ue) {
		return ExitUsageError
	}
	switch apperr.CodeOf(err) {
	case apperr.GHInvalidIdentifier, apperr.ConfigInvalid:
		return ExitUsageError
	case "":
		// cobra reports flag and argument problems as plain errors
		msg := err.Error()
		for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "accepts ", "requires ", "invalid argument", "flag needs an argument"} {
			if strings.HasPrefix(msg, prefix) {
				return ExitUsageError
			}
		}
	}
	return ExitError
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", apperr.UserMessage(err))
	}
	return exitCode(err)
}
