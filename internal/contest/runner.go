package contest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ZeldaZach/ScryfallCardGolf/internal/scryfall"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/store"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/twitter"
)

// cardsPerRound is how many random cards a challenge is built from.
// Duplicates are allowed: two draws of the same card are a legal round.
const cardsPerRound = 2

// CardSource provides random cards and search, as served by Scryfall.
type CardSource interface {
	RandomCard(ctx context.Context) (*scryfall.Card, error)
	Search(ctx context.Context, query string) (*scryfall.SearchResult, error)
}

// Feed posts the challenge and pages replies, as served by Twitter.
type Feed interface {
	PostWithMedia(ctx context.Context, status, imagePath string) (int64, error)
	MentionsSince(ctx context.Context, sinceID int64) ([]twitter.Mention, error)
}

// Compositor prepares the challenge image.
type Compositor interface {
	Clear() error
	Download(ctx context.Context, card *scryfall.Card) (string, error)
	Merge(paths []string, cards []*scryfall.Card) (string, error)
}

// RoundStore persists rounds and results.
type RoundStore interface {
	Load() (map[string]store.Round, error)
	Append(key string, round store.Round) error
	WriteResults(key string, results store.Results) error
}

// Runner executes one lifecycle transition per invocation.
type Runner struct {
	cards      CardSource
	feed       Feed
	compositor Compositor
	store      RoundStore
	validator  *Validator
	logger     *zap.Logger
	now        func() time.Time
}

// NewRunner wires the contest components together.
func NewRunner(cards CardSource, feed Feed, compositor Compositor, roundStore RoundStore, logger *zap.Logger) *Runner {
	return &Runner{
		cards:      cards,
		feed:       feed,
		compositor: compositor,
		store:      roundStore,
		validator:  NewValidator(cards, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Run performs the single state transition for this invocation: start a
// round, tally-then-start, or nothing if the contest is still open. The
// returned state is the one that was acted on.
func (r *Runner) Run(ctx context.Context, forceNew bool) (State, error) {
	rounds, err := r.store.Load()
	if err != nil {
		return "", err
	}

	state, maxKey, err := Determine(rounds, r.now(), forceNew)
	if err != nil {
		return "", err
	}

	switch state {
	case NoContest:
		r.logger.Warn("database was empty, continuing")
		return state, r.StartRound(ctx)

	case ContestActive:
		r.logger.Warn("current contest still active", zap.String("key", maxKey))
		return state, nil

	case ContestExpired:
		if err := r.tally(ctx, maxKey, rounds[maxKey]); err != nil {
			return state, err
		}
		return state, r.StartRound(ctx)
	}

	return "", fmt.Errorf("unknown contest state %q", state)
}

// TallyOnly scores the current round without starting a new one.
func (r *Runner) TallyOnly(ctx context.Context) error {
	rounds, err := r.store.Load()
	if err != nil {
		return err
	}
	maxKey, ok := store.MaxKey(rounds)
	if !ok {
		return fmt.Errorf("no contest to tally: round database is empty")
	}
	return r.tally(ctx, maxKey, rounds[maxKey])
}

// tally scans every reply since the round's challenge tweet, validates the
// Scryfall links it finds and writes the results file. Per-entry problems
// are skipped; only store and feed failures abort.
func (r *Runner) tally(ctx context.Context, key string, round store.Round) error {
	r.logger.Info("gathering results", zap.String("key", key))

	mentions, err := r.feed.MentionsSince(ctx, round.TweetID)
	if err != nil {
		return fmt.Errorf("failed to scan replies: %w", err)
	}

	var results store.Results
	for _, mention := range mentions {
		r.logger.Info("reply",
			zap.String("submitter", mention.User.ScreenName),
			zap.String("text", mention.Text))

		for _, link := range mention.Entities.URLs {
			if !IsScryfallURL(link.ExpandedURL) {
				continue
			}
			r.logger.Info("submitted solution",
				zap.String("submitter", mention.User.ScreenName),
				zap.String("url", link.ExpandedURL))

			verdict := r.validator.Validate(ctx, mention.User.ScreenName, link.ExpandedURL, round)
			if !verdict.Accepted {
				r.logger.Debug("entry skipped",
					zap.String("submitter", mention.User.ScreenName),
					zap.String("reason", verdict.SkipReason))
				continue
			}

			persisted := store.Entry{
				Name:   verdict.Entry.Submitter,
				Length: verdict.Entry.Length,
				Query:  verdict.Entry.Query,
			}
			switch verdict.Entry.Category {
			case CategoryPattern:
				results.Regex = append(results.Regex, persisted)
			default:
				results.Standard = append(results.Standard, persisted)
			}
		}
	}

	return r.store.WriteResults(key, results)
}

// StartRound creates and posts a brand-new round: two random cards, a merged
// image, the challenge tweet, then the persisted round record. Nothing is
// persisted unless the tweet went out with its image.
func (r *Runner) StartRound(ctx context.Context) error {
	if err := r.compositor.Clear(); err != nil {
		return err
	}

	cards := make([]*scryfall.Card, 0, cardsPerRound)
	for i := 0; i < cardsPerRound; i++ {
		card, err := r.cards.RandomCard(ctx)
		if err != nil {
			return err
		}
		r.logger.Info("card to merge", zap.String("name", card.Name))
		cards = append(cards, card)
	}

	paths := make([]string, 0, len(cards))
	for _, card := range cards {
		path, err := r.compositor.Download(ctx, card)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}

	imagePath, err := r.compositor.Merge(paths, cards)
	if err != nil {
		return err
	}

	tweetID, err := r.feed.PostWithMedia(ctx, challengeMessage(cards), imagePath)
	if err != nil {
		return err
	}

	key := r.now().Format(store.KeyLayout)
	round := store.Round{
		TweetID: tweetID,
		Cards: []store.RoundCard{
			{Name: cards[0].Name, URL: cards[0].ScryfallURI},
			{Name: cards[1].Name, URL: cards[1].ScryfallURI},
		},
	}
	return r.store.Append(key, round)
}

// challengeMessage composes the tweet text. The card links swap the api
// subdomain for the contest's vanity redirect.
func challengeMessage(cards []*scryfall.Card) string {
	var b strings.Builder
	b.WriteString("Can you make both of these cards show up in a Scryfall search without using 'or'?\n")
	for _, card := range cards {
		fmt.Fprintf(&b, "• %s: %s\n", card.Name, strings.ReplaceAll(card.ScryfallURI, "api", "card_golf"))
	}
	b.WriteString("Reply to this tweet with a Scryfall URL in the next 24 hours to enter!")
	return b.String()
}
