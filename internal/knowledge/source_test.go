package knowledge

import (
	"context"
	"testing"
)

type fakeRepo map[string][]string

func (f fakeRepo) AppendDocuments(ctx context.Context, orgID string, docs []string) error {
	f[orgID] = append(f[orgID], docs...)
	return nil
}

func (f fakeRepo) GetDocuments(ctx context.Context, orgID string) ([]string, error) {
	return f[orgID], nil
}

func (f fakeRepo) ReplaceDocuments(ctx context.Context, orgID string, docs []string) error {
	f[orgID] = docs
	return nil
}

func TestKeywordSourceRanksByOverlap(t *testing.T) {
	repo := fakeRepo{
		"org-a": {
			"Our business hours are 9am to 5pm, Monday through Friday.",
			"We offer facials, massages, and skincare consultations.",
			"Parking is available behind the building.",
		},
	}
	src := NewKeywordSource(repo)

	docs, err := src.SimilaritySearch(context.Background(), "org-a", "what are your business hours", 2)
	if err != nil {
		t.Fatalf("SimilaritySearch failed: %v", err)
	}
	if len(docs) == 0 {
		t.Fatalf("expected at least one document")
	}
	if docs[0] != "Our business hours are 9am to 5pm, Monday through Friday." {
		t.Fatalf("expected hours document ranked first, got %q", docs[0])
	}
}

func TestKeywordSourceEmptyNamespace(t *testing.T) {
	src := NewKeywordSource(fakeRepo{})
	docs, err := src.SimilaritySearch(context.Background(), "org-x", "hours", 3)
	if err != nil {
		t.Fatalf("SimilaritySearch failed: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %#v", docs)
	}
}

func TestNullSource(t *testing.T) {
	docs, err := NullSource{}.SimilaritySearch(context.Background(), "org", "anything", 3)
	if err != nil || docs != nil {
		t.Fatalf("expected empty result, got %v %v", docs, err)
	}
}
