package contest

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ZeldaZach/ScryfallCardGolf/internal/scryfall"
	"github.com/ZeldaZach/ScryfallCardGolf/internal/store"
)

// Category classifies a winning query by whether it leans on a regex.
type Category string

const (
	// CategoryPlain is a query with no slash-delimited regex segment.
	CategoryPlain Category = "standard"

	// CategoryPattern is a query containing a /.../ regex segment.
	CategoryPattern Category = "regex"
)

var (
	// A non-empty slash-delimited segment anywhere in the query.
	patternSegment = regexp.MustCompile(`/.+/`)

	// The disjunction keyword as a whole word, any case.
	disjunction = regexp.MustCompile(`(?i)\bor\b`)
)

// Entry is one accepted submission.
type Entry struct {
	Submitter string
	Query     string
	Length    int
	Category  Category
}

// Verdict is the tagged outcome of validating one reply URL: either an
// accepted entry or a skip with its reason. Skips never abort the scan.
type Verdict struct {
	Accepted   bool
	Entry      Entry
	SkipReason string
	UsedOr     bool // Accepted despite the disjunction keyword (historical rule)
}

func skip(reason string) Verdict {
	return Verdict{SkipReason: reason}
}

// Searcher re-runs candidate queries against the card database.
type Searcher interface {
	Search(ctx context.Context, query string) (*scryfall.SearchResult, error)
}

// Validator scores reply URLs against the current round's two card names.
type Validator struct {
	searcher Searcher
	logger   *zap.Logger
}

// NewValidator creates a validator backed by the given card search.
func NewValidator(searcher Searcher, logger *zap.Logger) *Validator {
	return &Validator{searcher: searcher, logger: logger}
}

// Validate decides whether submitter's URL is a valid winning entry for
// round. Malformed URLs, missing query parameters and failed lookups all
// produce skip verdicts, never errors: one bad reply must not stop the scan.
func (v *Validator) Validate(ctx context.Context, submitter, rawURL string, round store.Round) Verdict {
	query, ok := extractQuery(rawURL)
	if !ok {
		v.logger.Info("submitted a bad Scryfall URL",
			zap.String("submitter", submitter),
			zap.String("url", rawURL))
		return skip("no q parameter in URL")
	}

	result, err := v.searcher.Search(ctx, query)
	if err != nil {
		v.logger.Info("search for submitted query failed",
			zap.String("submitter", submitter),
			zap.String("query", query),
			zap.Error(err))
		return skip("search failed")
	}

	// Logged as an anomaly but not rejecting on its own: the name check
	// below is the gate.
	if result.TotalCards != 2 {
		v.logger.Info("result has wrong number of cards",
			zap.String("submitter", submitter),
			zap.Int("total_cards", result.TotalCards))
	}

	for _, card := range result.Data {
		if card.Name != round.Cards[0].Name && card.Name != round.Cards[1].Name {
			v.logger.Info("result has wrong card",
				zap.String("submitter", submitter),
				zap.String("card", card.Name))
			return skip("result contains a card outside the round")
		}
	}

	entry := Entry{
		Submitter: submitter,
		Query:     query,
		Length:    utf8.RuneCountInString(query),
		Category:  Classify(query),
	}

	// The rules forbid 'or', but historically such entries were still
	// counted; they are only flagged.
	usedOr := disjunction.MatchString(query)
	if usedOr {
		v.logger.Info("correct, but they may have used 'OR'",
			zap.String("submitter", submitter),
			zap.String("query", query))
	} else {
		v.logger.Info("correct entry",
			zap.String("submitter", submitter),
			zap.String("query", query),
			zap.Int("length", entry.Length))
	}

	return Verdict{Accepted: true, Entry: entry, UsedOr: usedOr}
}

// Classify returns Pattern for queries with a non-empty slash-delimited
// segment, Plain otherwise.
func Classify(query string) Category {
	if patternSegment.MatchString(query) {
		return CategoryPattern
	}
	return CategoryPlain
}

// IsScryfallURL reports whether a reply URL points at the card database at
// all; anything else is ignored before validation.
func IsScryfallURL(rawURL string) bool {
	return strings.Contains(rawURL, "scryfall.com")
}

// extractQuery pulls the decoded q parameter out of a search URL.
func extractQuery(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	query := parsed.Query().Get("q")
	if query == "" {
		return "", false
	}
	return query, true
}
