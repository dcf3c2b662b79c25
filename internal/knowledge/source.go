package knowledge

import (
	"context"
	"sort"
	"strings"
)

// Source retrieves knowledge snippets relevant to a query, scoped to one
// organization's namespace.
type Source interface {
	SimilaritySearch(ctx context.Context, orgID, query string, topK int) ([]string, error)
}

// NullSource is the capability-absent implementation supplied when an org has
// no knowledge base connected.
type NullSource struct{}

func (NullSource) SimilaritySearch(ctx context.Context, orgID, query string, topK int) ([]string, error) {
	return nil, nil
}

// KeywordSource ranks repository documents by token overlap with the query.
// It stands in where no external vector store is connected; retrieval quality
// is bounded but the contract is identical.
type KeywordSource struct {
	repo Repository
}

// NewKeywordSource creates a repository-backed keyword retriever.
func NewKeywordSource(repo Repository) *KeywordSource {
	if repo == nil {
		panic("knowledge: repository cannot be nil")
	}
	return &KeywordSource{repo: repo}
}

func (s *KeywordSource) SimilaritySearch(ctx context.Context, orgID, query string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = 3
	}
	docs, err := s.repo.GetDocuments(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	type scored struct {
		score   float64
		content string
	}
	results := make([]scored, 0, len(docs))
	for _, doc := range docs {
		score := overlapScore(queryTokens, tokenize(doc))
		if score > 0 {
			results = append(results, scored{score: score, content: doc})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.content)
	}
	return out, nil
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "do": {}, "does": {},
	"what": {}, "how": {}, "can": {}, "i": {}, "you": {}, "your": {}, "my": {},
	"to": {}, "of": {}, "for": {}, "in": {}, "on": {}, "and": {}, "or": {},
	"it": {}, "me": {}, "we": {}, "be": {}, "with": {}, "at": {},
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		field = strings.Trim(field, ".,!?\"'():;")
		if len(field) < 2 {
			continue
		}
		if _, skip := stopwords[field]; skip {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

// overlapScore is the fraction of query tokens present in the document.
func overlapScore(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for token := range query {
		if _, ok := doc[token]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
