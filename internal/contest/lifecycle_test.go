package contest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZeldaZach/ScryfallCardGolf/internal/store"
)

func roundAt(t *testing.T, now time.Time, age time.Duration) (string, map[string]store.Round) {
	t.Helper()
	key := now.Add(-age).Format(store.KeyLayout)
	return key, map[string]store.Round{
		key: {
			TweetID: 42,
			Cards: []store.RoundCard{
				{Name: "Lightning Bolt", URL: "u1"},
				{Name: "Shock", URL: "u2"},
			},
		},
	}
}

func TestDetermine_EmptyStore(t *testing.T) {
	state, key, err := Determine(map[string]store.Round{}, time.Now(), false)
	require.NoError(t, err)
	assert.Equal(t, NoContest, state)
	assert.Empty(t, key)
}

func TestDetermine_ActiveContest(t *testing.T) {
	now := time.Now()
	wantKey, rounds := roundAt(t, now, 2*time.Hour)

	state, key, err := Determine(rounds, now, false)
	require.NoError(t, err)
	assert.Equal(t, ContestActive, state)
	assert.Equal(t, wantKey, key)
}

func TestDetermine_ExpiredContest(t *testing.T) {
	now := time.Now()
	wantKey, rounds := roundAt(t, now, 30*time.Hour)

	state, key, err := Determine(rounds, now, false)
	require.NoError(t, err)
	assert.Equal(t, ContestExpired, state)
	assert.Equal(t, wantKey, key)
}

func TestDetermine_ForceNewExpiresActiveContest(t *testing.T) {
	now := time.Now()
	wantKey, rounds := roundAt(t, now, 2*time.Hour)

	state, key, err := Determine(rounds, now, true)
	require.NoError(t, err)
	assert.Equal(t, ContestExpired, state)
	assert.Equal(t, wantKey, key)
}

func TestDetermine_ExactBoundaryIsExpired(t *testing.T) {
	// start + 24h must be strictly after now for the contest to be open
	now := time.Now()
	_, rounds := roundAt(t, now, Duration)

	state, _, err := Determine(rounds, now, false)
	require.NoError(t, err)
	assert.Equal(t, ContestExpired, state)
}

func TestDetermine_PicksLatestRound(t *testing.T) {
	now := time.Now()
	old := now.Add(-72 * time.Hour).Format(store.KeyLayout)
	latest := now.Add(-1 * time.Hour).Format(store.KeyLayout)

	rounds := map[string]store.Round{
		old:    {TweetID: 1, Cards: []store.RoundCard{{Name: "A", URL: "u"}, {Name: "B", URL: "u"}}},
		latest: {TweetID: 2, Cards: []store.RoundCard{{Name: "C", URL: "u"}, {Name: "D", URL: "u"}}},
	}

	state, key, err := Determine(rounds, now, false)
	require.NoError(t, err)
	assert.Equal(t, ContestActive, state)
	assert.Equal(t, latest, key)
}

func TestDetermine_MalformedKey(t *testing.T) {
	rounds := map[string]store.Round{
		"not-a-timestamp": {TweetID: 1, Cards: []store.RoundCard{{Name: "A", URL: "u"}, {Name: "B", URL: "u"}}},
	}

	_, _, err := Determine(rounds, time.Now(), false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "malformed round key")
}

func TestDetermine_Idempotent(t *testing.T) {
	now := time.Now()
	_, rounds := roundAt(t, now, 2*time.Hour)

	first, firstKey, err := Determine(rounds, now, false)
	require.NoError(t, err)
	second, secondKey, err := Determine(rounds, now, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstKey, secondKey)
}
