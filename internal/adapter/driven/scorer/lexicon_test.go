package scorer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

func TestLexiconScorer_Score(t *testing.T) {
	s := NewLexiconScorer(0)

	tests := []struct {
		name       string
		rating     int
		text       string
		incoherent bool
		confidence float64
	}{
		{name: "five stars with strongly negative text", rating: 5, text: "terrible, worst place ever", incoherent: true, confidence: 1},
		{name: "one star with strongly positive text", rating: 1, text: "Great food and friendly staff", incoherent: true, confidence: 1},
		{name: "single word is weaker evidence", rating: 5, text: "<b>awful</b>", incoherent: true, confidence: 0.75},
		{name: "mostly negative", rating: 4, text: "great but slow, rude and dirty", incoherent: true, confidence: 0.75},
		{name: "negated negative reads positive", rating: 5, text: "not bad at all", incoherent: false},
		{name: "negated positive on low rating", rating: 1, text: "isn't good", incoherent: false},
		{name: "mixed sentiment", rating: 5, text: "good food but terrible service", incoherent: false},
		{name: "middle rating is never incoherent", rating: 3, text: "terrible terrible terrible", incoherent: false},
		{name: "coherent positive", rating: 5, text: "excellent, would recommend", incoherent: false},
		{name: "no sentiment words", rating: 1, text: "went on a tuesday", incoherent: false},
		{name: "empty text", rating: 5, text: "", incoherent: false},
		{name: "markup only", rating: 5, text: "<script>alert('x')</script>", incoherent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.rating, tt.text)
			assert.Equal(t, tt.incoherent, got.IsIncoherent)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
			assert.False(t, got.Degraded)
			if !tt.incoherent {
				assert.Zero(t, got.Confidence)
			}
		})
	}
}

func TestLexiconScorer_Threshold(t *testing.T) {
	strict := NewLexiconScorer(0.9)

	got := strict.Score(4, "great but slow, rude and dirty")
	assert.False(t, got.IsIncoherent, "polarity -0.5 does not reach 0.9")
}

func TestLexiconScorer_Concurrent(t *testing.T) {
	s := NewLexiconScorer(DefaultMinPolarity)
	want := s.Score(5, "terrible, worst place ever")

	var wg sync.WaitGroup
	results := make([]model.Score, 64)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.Score(5, "terrible, worst place ever")
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
