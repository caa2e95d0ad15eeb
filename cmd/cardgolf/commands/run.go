package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZeldaZach/ScryfallCardGolf/internal/config"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/contest"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/imaging"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/logging"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/printer"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/scryfall"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/store"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/twitter"
)

func runContest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{"Check the config file path and its twitter credential fields:\n  cardgolf --config /path/to/cardgolf.yml"},
		)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return printer.Error("failed to prepare working directories", err.Error(), nil)
	}

	logger, cleanup, err := logging.New(cfg.LoggingDir, verbose)
	if err != nil {
		return printer.Error("failed to set up logging", err.Error(), nil)
	}
	defer cleanup()

	cards := scryfall.NewClient(cfg.Scryfall.RandomCardURL, cfg.Scryfall.SearchURL, logger)
	feed := twitter.NewClient(twitter.Credentials{
		ConsumerKey:       cfg.Twitter.ConsumerKey,
		ConsumerSecret:    cfg.Twitter.ConsumerSecret,
		AccessTokenKey:    cfg.Twitter.AccessTokenKey,
		AccessTokenSecret: cfg.Twitter.AccessTokenSecret,
	}, cfg.Twitter.APIBaseURL, logger)
	compositor := imaging.NewCompositor(cfg.TempCardDir, logger)
	roundStore := store.New(cfg.TweetDatabase, cfg.WinningDir, logger)

	runner := contest.NewRunner(cards, feed, compositor, roundStore, logger)

	if resultsOnly {
		printer.Info("tallying results for the current round")
		if err := runner.TallyOnly(ctx); err != nil {
			return fmt.Errorf("failed to tally results: %w", err)
		}
		printer.Success("results written for the current round")
		return nil
	}

	state, err := runner.Run(ctx, forceNew)
	if err != nil {
		return fmt.Errorf("contest run failed: %w", err)
	}

	switch state {
	case contest.ContestActive:
		printer.Warning("current contest is still active, nothing to do")
	case contest.ContestExpired:
		printer.Success("round tallied and next round started")
	default:
		printer.Success("new round started")
	}
	return nil
}
