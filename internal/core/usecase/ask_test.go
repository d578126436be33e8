package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

func newAskFixture(store *fakeVectorStore, embedder *fakeEmbedder, generator *fakeGenerator, topK int) *AskUseCase {
	return NewAskUseCase(NewCollectionRegistry(store, 768), embedder, store, generator, topK)
}

func TestAskAnswersFromRetrievedPassages(t *testing.T) {
	store := &fakeVectorStore{
		existsResult: true,
		searchResult: []domain.ScoredPassage{
			{Text: "vacation policy text", FileName: "handbook.txt", Tenant: "Company A", Score: 0.91},
			{Text: "more policy text", FileName: "handbook.txt", Tenant: "Company A", Score: 0.84},
		},
	}
	generator := &fakeGenerator{answer: "Vacation is 25 days."}
	uc := newAskFixture(store, &fakeEmbedder{dimensions: 4}, generator, 0)

	answer, err := uc.Ask(context.Background(), "Company A", "how much vacation?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if answer.Text != "Vacation is 25 days." {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Sources) != 2 {
		t.Errorf("sources = %d, want 2", len(answer.Sources))
	}
	if store.searchTenant != "Company A" {
		t.Errorf("search tenant = %q, want the asking tenant", store.searchTenant)
	}
	if store.searchLimit != defaultTopK {
		t.Errorf("search limit = %d, want default %d", store.searchLimit, defaultTopK)
	}
}

func TestAskEmptyRetrievalShortCircuitsGenerator(t *testing.T) {
	store := &fakeVectorStore{existsResult: true}
	generator := &fakeGenerator{answer: "should not be used"}
	uc := newAskFixture(store, &fakeEmbedder{dimensions: 4}, generator, 4)

	answer, err := uc.Ask(context.Background(), "Company A", "anything?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Text != NoInformationAnswer {
		t.Errorf("answer = %q, want the canned no-information reply", answer.Text)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("sources = %d, want 0", len(answer.Sources))
	}
	if generator.calls != 0 {
		t.Errorf("generator called %d times on empty retrieval", generator.calls)
	}
}

func TestAskPropagatesSearchFailure(t *testing.T) {
	store := &fakeVectorStore{
		existsResult: true,
		searchErr:    domain.WrapError(domain.ErrStorageUnavailable, "search points", errors.New("503")),
	}
	uc := newAskFixture(store, &fakeEmbedder{dimensions: 4}, &fakeGenerator{}, 4)

	_, err := uc.Ask(context.Background(), "Company A", "anything?")
	if !domain.IsKind(err, domain.ErrStorageUnavailable) {
		t.Fatalf("error = %v, want ErrStorageUnavailable", err)
	}
}

func TestAskPropagatesEmbedFailure(t *testing.T) {
	store := &fakeVectorStore{existsResult: true}
	embedder := &fakeEmbedder{
		queryErr: domain.WrapError(domain.ErrEmbeddingFailure, "embed query", errors.New("model missing")),
	}
	uc := newAskFixture(store, embedder, &fakeGenerator{}, 4)

	_, err := uc.Ask(context.Background(), "Company A", "anything?")
	if !domain.IsKind(err, domain.ErrEmbeddingFailure) {
		t.Fatalf("error = %v, want ErrEmbeddingFailure", err)
	}
	if store.searchCalls != 0 {
		t.Errorf("search ran despite embed failure")
	}
}

func TestRetrieveHonorsExplicitLimit(t *testing.T) {
	store := &fakeVectorStore{existsResult: true}
	uc := newAskFixture(store, &fakeEmbedder{dimensions: 4}, &fakeGenerator{}, 4)

	if _, err := uc.Retrieve(context.Background(), "Company A", "anything?", 9); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if store.searchLimit != 9 {
		t.Errorf("search limit = %d, want 9", store.searchLimit)
	}
}
