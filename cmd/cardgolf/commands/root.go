package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var (
	configPath  string
	resultsOnly bool
	forceNew    bool
	verbose     bool
)

// rootCmd runs one contest lifecycle transition and exits.
var rootCmd = &cobra.Command{
	Use:   "cardgolf",
	Short: "Scryfall Card Golf - recurring shortest-search-query contest",
	Long: `Cardgolf runs one step of the recurring Scryfall Card Golf contest.

Each invocation determines the contest state from the round database and
performs at most one transition: start the first round, tally an expired
round and start the next one, or exit quietly while a round is still open.

Invocations are expected to be serialized by an external scheduler (one run
per day, non-overlapping); the round database has no locking.`,
	RunE:          runContest,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It only needs to happen once.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to the cardgolf.yml config (required)")
	rootCmd.Flags().BoolVar(&resultsOnly, "results", false, "Tally the current round without starting a new one")
	rootCmd.Flags().BoolVar(&forceNew, "force-new", false, "Force-close the current round and start the next one")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.MarkFlagRequired("config")
}
