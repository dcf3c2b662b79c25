package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const faqKeyPrefix = "faq:"

// FAQEntry is one curated question/answer pair for an organization.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQStore persists curated FAQ entries per organization.
type FAQStore interface {
	GetFAQs(ctx context.Context, orgID string) ([]FAQEntry, error)
	PutFAQs(ctx context.Context, orgID string, entries []FAQEntry) error
}

// RedisFAQStore keeps the FAQ list as a JSON blob per org.
type RedisFAQStore struct {
	client *redis.Client
}

func NewRedisFAQStore(client *redis.Client) *RedisFAQStore {
	if client == nil {
		panic("knowledge: redis client cannot be nil")
	}
	return &RedisFAQStore{client: client}
}

func faqKey(orgID string) string {
	return faqKeyPrefix + orgID
}

func (s *RedisFAQStore) GetFAQs(ctx context.Context, orgID string) ([]FAQEntry, error) {
	data, err := s.client.Get(ctx, faqKey(orgID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("knowledge: failed to load faqs: %w", err)
	}
	var entries []FAQEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("knowledge: failed to decode faqs: %w", err)
	}
	return entries, nil
}

func (s *RedisFAQStore) PutFAQs(ctx context.Context, orgID string, entries []FAQEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("knowledge: failed to encode faqs: %w", err)
	}
	if err := s.client.Set(ctx, faqKey(orgID), data, 0).Err(); err != nil {
		return fmt.Errorf("knowledge: failed to persist faqs: %w", err)
	}
	return nil
}

// FAQMatcher fuzzy-matches a visitor question against curated entries. The
// threshold is a tunable business parameter, not a structural constant.
type FAQMatcher struct {
	Threshold float64
}

// Match returns the best entry whose similarity clears the threshold.
func (m FAQMatcher) Match(query string, entries []FAQEntry) (FAQEntry, float64, bool) {
	threshold := m.Threshold
	if threshold <= 0 {
		threshold = 0.65
	}

	queryTokens := tokenize(query)
	var (
		best      FAQEntry
		bestScore float64
	)
	for _, entry := range entries {
		score := diceScore(queryTokens, tokenize(entry.Question))
		if score > bestScore {
			best = entry
			bestScore = score
		}
	}
	if bestScore >= threshold {
		return best, bestScore, true
	}
	return FAQEntry{}, bestScore, false
}

// diceScore is the Sorensen-Dice coefficient over token sets.
func diceScore(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	hits := 0
	for token := range a {
		if _, ok := b[token]; ok {
			hits++
		}
	}
	return 2 * float64(hits) / float64(len(a)+len(b))
}
