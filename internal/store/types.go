package store

import "fmt"

// KeyLayout is the time layout for round keys. Keys in this layout sort
// lexicographically in time order, so the maximum key is the latest round.
const KeyLayout = "2006-01-02_15:04:05"

// RoundCard is the per-round subset of a card the contest needs to keep:
// the name entries are validated against, and the canonical link.
type RoundCard struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Round is one contest round as persisted in the tweet database. Rounds are
// written once when the challenge is tweeted and never mutated.
type Round struct {
	TweetID int64       `json:"tweet_id"`
	Cards   []RoundCard `json:"cards"`
}

// Validate rejects structurally broken rounds at the deserialization
// boundary rather than letting them flow into the lifecycle.
func (r *Round) Validate() error {
	if r.TweetID <= 0 {
		return fmt.Errorf("round missing tweet_id")
	}
	if len(r.Cards) != 2 {
		return fmt.Errorf("round must have exactly 2 cards, has %d", len(r.Cards))
	}
	for i, card := range r.Cards {
		if card.Name == "" {
			return fmt.Errorf("round card %d missing name", i)
		}
		if card.URL == "" {
			return fmt.Errorf("round card %d missing url", i)
		}
	}
	return nil
}

// Entry is one valid winning submission as persisted in a results file.
type Entry struct {
	Name   string `json:"name"`
	Length int    `json:"length"`
	Query  string `json:"query"`
}

// Results is the concluded-round record: valid entries split by category,
// each ascending by query length. "standard" and "regex" are the historical
// key names of the results files.
type Results struct {
	Standard []Entry `json:"standard"`
	Regex    []Entry `json:"regex"`
}
