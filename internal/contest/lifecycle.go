// Package contest holds the core contest logic: the lifecycle state machine
// that decides what a run should do, and the validator that scores reply
// URLs against the current round's two cards.
package contest

import (
	"fmt"
	"time"

	"github.com/ZeldaZach/ScryfallCardGolf/internal/store"
)

// Duration is how long a round stays open for entries.
const Duration = 24 * time.Hour

// State is the lifecycle state of the contest as derived from the store.
type State string

const (
	// NoContest means the store is empty; a round starts immediately.
	NoContest State = "no_contest"

	// ContestActive means the latest round is still open; the run is a no-op.
	ContestActive State = "contest_active"

	// ContestExpired means the latest round is over (or a restart was
	// forced); the run tallies entries and then starts the next round.
	ContestExpired State = "contest_expired"
)

// Determine computes the lifecycle state from the stored rounds, the current
// time and the force-new flag. It is a pure function: calling it twice
// without a store write in between yields the same answer.
//
// The returned key is the latest round's key; it is empty iff the state is
// NoContest. Round keys are parsed in now's location, matching how they are
// written.
func Determine(rounds map[string]store.Round, now time.Time, forceNew bool) (State, string, error) {
	maxKey, ok := store.MaxKey(rounds)
	if !ok {
		return NoContest, "", nil
	}

	startTime, err := time.ParseInLocation(store.KeyLayout, maxKey, now.Location())
	if err != nil {
		return "", "", fmt.Errorf("malformed round key %q: %w", maxKey, err)
	}

	if !forceNew && startTime.Add(Duration).After(now) {
		return ContestActive, maxKey, nil
	}
	return ContestExpired, maxKey, nil
}
