package contest

import (
	"context"
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ZeldaZach/ScryfallCardGolf/internal/scryfall"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/store"
)

// fakeSearcher returns canned search results keyed by query.
type fakeSearcher struct {
	results map[string]*scryfall.SearchResult
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string) (*scryfall.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	result, ok := f.results[query]
	if !ok {
		return nil, fmt.Errorf("no cards found for %q", query)
	}
	return result, nil
}

func targetRound() store.Round {
	return store.Round{
		TweetID: 42,
		Cards: []store.RoundCard{
			{Name: "Lightning Bolt", URL: "https://scryfall.com/card/lea/161"},
			{Name: "Shock", URL: "https://scryfall.com/card/ons/224"},
		},
	}
}

func matchingResult() *scryfall.SearchResult {
	return &scryfall.SearchResult{
		TotalCards: 2,
		Data: []scryfall.Card{
			{Name: "Lightning Bolt", ScryfallURI: "u1"},
			{Name: "Shock", ScryfallURI: "u2"},
		},
	}
}

func searchURL(query string) string {
	// Mirror of what entrants actually paste: a scryfall.com search link
	return "https://scryfall.com/search?q=" + query
}

func TestValidate_AcceptsMatchingQuery(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]*scryfall.SearchResult{
		`o:"3 damage" cmc<2`: matchingResult(),
	}}
	v := NewValidator(searcher, zap.NewNop())

	verdict := v.Validate(context.Background(), "golfer", searchURL(`o:%223+damage%22+cmc%3C2`), targetRound())
	require.True(t, verdict.Accepted)
	assert.Equal(t, "golfer", verdict.Entry.Submitter)
	assert.Equal(t, `o:"3 damage" cmc<2`, verdict.Entry.Query, "query is decoded before scoring")
	assert.Equal(t, len(`o:"3 damage" cmc<2`), verdict.Entry.Length)
	assert.Equal(t, CategoryPlain, verdict.Entry.Category)
	assert.False(t, verdict.UsedOr)
}

func TestValidate_MissingQueryParam(t *testing.T) {
	v := NewValidator(&fakeSearcher{}, zap.NewNop())

	verdict := v.Validate(context.Background(), "golfer", "https://scryfall.com/card/lea/161", targetRound())
	assert.False(t, verdict.Accepted)
	assert.Equal(t, "no q parameter in URL", verdict.SkipReason)
}

func TestValidate_GarbledURL(t *testing.T) {
	v := NewValidator(&fakeSearcher{}, zap.NewNop())

	verdict := v.Validate(context.Background(), "golfer", "https://scryfall.com/search?q=%zz", targetRound())
	assert.False(t, verdict.Accepted)
}

func TestValidate_SearchFailureIsSkip(t *testing.T) {
	searcher := &fakeSearcher{err: fmt.Errorf("scryfall returned status 503")}
	v := NewValidator(searcher, zap.NewNop())

	verdict := v.Validate(context.Background(), "golfer", searchURL("anything"), targetRound())
	assert.False(t, verdict.Accepted)
	assert.Equal(t, "search failed", verdict.SkipReason)
}

func TestValidate_WrongCardRejected(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]*scryfall.SearchResult{
		"t:instant": {
			TotalCards: 2,
			Data: []scryfall.Card{
				{Name: "Lightning Bolt"},
				{Name: "Counterspell"},
			},
		},
	}}
	v := NewValidator(searcher, zap.NewNop())

	verdict := v.Validate(context.Background(), "golfer", searchURL("t:instant"), targetRound())
	assert.False(t, verdict.Accepted)
	assert.Equal(t, "result contains a card outside the round", verdict.SkipReason)
}

func TestValidate_WrongCountButMatchingNamesAccepted(t *testing.T) {
	// total_cards != 2 is logged as an anomaly; the name check is the gate.
	searcher := &fakeSearcher{results: map[string]*scryfall.SearchResult{
		"bolt shock": {
			TotalCards: 1,
			Data:       []scryfall.Card{{Name: "Shock"}},
		},
	}}
	v := NewValidator(searcher, zap.NewNop())

	verdict := v.Validate(context.Background(), "golfer", searchURL("bolt+shock"), targetRound())
	assert.True(t, verdict.Accepted)
}

func TestValidate_OrQueryAcceptedButFlagged(t *testing.T) {
	query := `"Lightning Bolt" or "Shock"`
	searcher := &fakeSearcher{results: map[string]*scryfall.SearchResult{
		query: matchingResult(),
	}}
	v := NewValidator(searcher, zap.NewNop())

	verdict := v.Validate(context.Background(), "golfer",
		searchURL(`%22Lightning+Bolt%22+or+%22Shock%22`), targetRound())
	require.True(t, verdict.Accepted, "the literal historical rule still counts 'or' entries")
	assert.True(t, verdict.UsedOr)
	assert.Equal(t, CategoryPlain, verdict.Entry.Category)
}

func TestValidate_RegexQueryIsPattern(t *testing.T) {
	query := `/^Light/ "Shock"`
	searcher := &fakeSearcher{results: map[string]*scryfall.SearchResult{
		query: matchingResult(),
	}}
	v := NewValidator(searcher, zap.NewNop())

	verdict := v.Validate(context.Background(), "golfer",
		searchURL(`%2F%5ELight%2F+%22Shock%22`), targetRound())
	require.True(t, verdict.Accepted)
	assert.Equal(t, CategoryPattern, verdict.Entry.Category)
}

func TestValidate_LengthCountsCharacters(t *testing.T) {
	// Shorter is better, so accented card names must not score extra
	// bytes: "Juzám Djinn" is 11 characters, 12 bytes.
	round := store.Round{
		TweetID: 42,
		Cards: []store.RoundCard{
			{Name: "Juzám Djinn", URL: "u1"},
			{Name: "Shock", URL: "u2"},
		},
	}
	query := `"Juzám Djinn" "Shock"`
	searcher := &fakeSearcher{results: map[string]*scryfall.SearchResult{
		query: {
			TotalCards: 2,
			Data: []scryfall.Card{
				{Name: "Juzám Djinn"},
				{Name: "Shock"},
			},
		},
	}}
	v := NewValidator(searcher, zap.NewNop())

	verdict := v.Validate(context.Background(), "golfer",
		searchURL(`%22Juz%C3%A1m+Djinn%22+%22Shock%22`), round)
	require.True(t, verdict.Accepted)
	assert.Equal(t, utf8.RuneCountInString(query), verdict.Entry.Length)
	assert.Equal(t, 21, verdict.Entry.Length)
	assert.NotEqual(t, len(query), verdict.Entry.Length, "byte length would overcount the accent")
}

func TestValidate_Deterministic(t *testing.T) {
	query := `/^Light/ "Shock"`
	searcher := &fakeSearcher{results: map[string]*scryfall.SearchResult{
		query: matchingResult(),
	}}
	v := NewValidator(searcher, zap.NewNop())

	first := v.Validate(context.Background(), "golfer", searchURL(`%2F%5ELight%2F+%22Shock%22`), targetRound())
	second := v.Validate(context.Background(), "golfer", searchURL(`%2F%5ELight%2F+%22Shock%22`), targetRound())
	assert.Equal(t, first, second)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Category
	}{
		{"plain words", `lightning bolt shock`, CategoryPlain},
		{"slash regex", `/^Light/ t:instant`, CategoryPattern},
		{"regex spanning spaces", `name:/bolt/ o:damage`, CategoryPattern},
		{"empty slashes are not a pattern", `// nothing`, CategoryPlain},
		{"single slash", `power/toughness`, CategoryPlain},
		{"two separated slashes count", `power/toughness and a/b`, CategoryPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestIsScryfallURL(t *testing.T) {
	assert.True(t, IsScryfallURL("https://scryfall.com/search?q=shock"))
	assert.True(t, IsScryfallURL("https://api.scryfall.com/cards/search?q=shock"))
	assert.False(t, IsScryfallURL("https://example.com/search?q=shock"))
}
