package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Scorer = (*RemoteScorer)(nil)

// DefaultRemoteTimeout bounds a single classifier call.
const DefaultRemoteTimeout = 5 * time.Second

// MaxRemoteTextRunes caps the review text sent in the query string so long
// reviews stay under common URL length limits.
const MaxRemoteTextRunes = 2000

// coherenceResponse is the classifier's JSON reply.
type coherenceResponse struct {
	IsIncoherent bool    `json:"is_incoherent"`
	Confidence   float64 `json:"confidence"`
}

// RemoteScorer asks an external HTTP classifier whether a review is coherent.
// Any transport, status or decoding failure yields a degraded neutral score.
type RemoteScorer struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewRemoteScorer creates a RemoteScorer whose transport caches classifier
// responses in memory, so unchanged reviews are not re-classified when the
// service sends cache headers. Cached entries expire after DefaultCacheTTL
// and at most DefaultCacheMaxEntries are held.
func NewRemoteScorer(baseURL string, timeout time.Duration) *RemoteScorer {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	transport := httpcache.NewTransport(newBoundedCache(DefaultCacheTTL, DefaultCacheMaxEntries))
	return &RemoteScorer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		timeout: timeout,
	}
}

// NewRemoteScorerWithHTTPClient creates a RemoteScorer with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewRemoteScorerWithHTTPClient(httpClient *http.Client, baseURL string, timeout time.Duration) *RemoteScorer {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &RemoteScorer{baseURL: baseURL, httpClient: httpClient, timeout: timeout}
}

// Score calls GET {baseURL}/v1/coherence?rating=&text=.
func (s *RemoteScorer) Score(rating int, text string) model.Score {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.classify(ctx, rating, text)
	if err != nil {
		slog.Warn("remote scorer failed, returning neutral score",
			"error", err,
			"scoring_degraded", true,
		)
		return model.Score{Degraded: true}
	}

	if !result.IsIncoherent {
		return model.Score{}
	}
	return model.Score{IsIncoherent: true, Confidence: clamp01(result.Confidence)}
}

func (s *RemoteScorer) classify(ctx context.Context, rating int, text string) (*coherenceResponse, error) {
	q := url.Values{}
	q.Set("rating", strconv.Itoa(rating))
	q.Set("text", truncateRunes(text, MaxRemoteTextRunes))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/coherence?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var out coherenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}

	return &out, nil
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
