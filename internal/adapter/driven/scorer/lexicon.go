// Package scorer implements the Scorer port: a built-in lexicon classifier
// and an HTTP client for an external coherence model.
package scorer

import (
	"html"
	"math"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Scorer = (*LexiconScorer)(nil)

// DefaultMinPolarity is the net sentiment, in [-1, 1], a text must reach in
// the opposite direction of its rating to be considered incoherent.
const DefaultMinPolarity = 0.5

var positiveWords = map[string]struct{}{
	"amazing": {}, "awesome": {}, "best": {}, "clean": {}, "delicious": {},
	"excellent": {}, "fantastic": {}, "friendly": {}, "good": {}, "great": {},
	"helpful": {}, "love": {}, "loved": {}, "lovely": {}, "nice": {},
	"perfect": {}, "pleasant": {}, "recommend": {}, "superb": {}, "wonderful": {},
}

var negativeWords = map[string]struct{}{
	"awful": {}, "bad": {}, "dirty": {}, "disappointing": {}, "disgusting": {},
	"hate": {}, "hated": {}, "horrible": {}, "inedible": {}, "mediocre": {},
	"poor": {}, "rude": {}, "scam": {}, "slow": {}, "terrible": {},
	"unfriendly": {}, "waste": {}, "worse": {}, "worst": {}, "avoid": {},
}

var negators = map[string]struct{}{
	"not": {}, "never": {}, "no": {}, "hardly": {}, "isn't": {}, "wasn't": {},
	"don't": {}, "didn't": {}, "aren't": {}, "weren't": {},
}

// LexiconScorer flags reviews whose text sentiment contradicts the star
// rating, using fixed word lists. It holds no mutable state and is safe for
// concurrent use.
type LexiconScorer struct {
	minPolarity float64
	policy      *bluemonday.Policy
}

// NewLexiconScorer creates a LexiconScorer. A polarity outside (0, 1] falls
// back to DefaultMinPolarity.
func NewLexiconScorer(minPolarity float64) *LexiconScorer {
	if minPolarity <= 0 || minPolarity > 1 {
		minPolarity = DefaultMinPolarity
	}
	return &LexiconScorer{
		minPolarity: minPolarity,
		policy:      bluemonday.StrictPolicy(),
	}
}

// Score returns an incoherent result when a high rating (4-5) comes with
// clearly negative text, or a low rating (1-2) with clearly positive text.
// Middle ratings, empty text and text with no sentiment words are coherent.
func (s *LexiconScorer) Score(rating int, text string) model.Score {
	tokens := s.tokenize(text)
	if len(tokens) == 0 {
		return model.Score{}
	}

	pos, neg := countSentiment(tokens)
	hits := pos + neg
	if hits == 0 {
		return model.Score{}
	}

	polarity := float64(pos-neg) / float64(hits)

	incoherent := (rating >= 4 && polarity <= -s.minPolarity) ||
		(rating <= 2 && polarity >= s.minPolarity)
	if !incoherent {
		return model.Score{}
	}

	// A single sentiment word is weaker evidence than several.
	strength := math.Abs(polarity) * math.Min(1, float64(hits)/2)

	return model.Score{
		IsIncoherent: true,
		Confidence:   round2(0.5 + 0.5*strength),
	}
}

// tokenize strips markup, unescapes entities and splits on anything that is
// not a letter or apostrophe.
func (s *LexiconScorer) tokenize(text string) []string {
	plain := html.UnescapeString(s.policy.Sanitize(text))
	return strings.FieldsFunc(strings.ToLower(plain), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

// countSentiment counts positive and negative words, flipping the polarity
// of a word that directly follows a negator.
func countSentiment(tokens []string) (pos, neg int) {
	negated := false
	for _, tok := range tokens {
		if _, ok := negators[tok]; ok {
			negated = true
			continue
		}

		_, isPos := positiveWords[tok]
		_, isNeg := negativeWords[tok]
		switch {
		case isPos && !negated, isNeg && negated:
			pos++
		case isNeg, isPos:
			neg++
		}
		negated = false
	}
	return pos, neg
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
