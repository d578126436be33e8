package usecase

import (
	"context"
	"fmt"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
	"github.com/quaydocs/corpus-assistant/internal/core/ports"
)

const defaultTopK = 4

// NoInformationAnswer is the canned reply when retrieval finds nothing for
// the tenant. Front ends send it verbatim instead of invoking the model with
// empty context.
const NoInformationAnswer = "I couldn't find any relevant information in the documents to answer your question."

type AskUseCase struct {
	registry  *CollectionRegistry
	embedder  ports.Embedder
	store     ports.VectorStore
	generator ports.AnswerGenerator
	topK      int
}

func NewAskUseCase(
	registry *CollectionRegistry,
	embedder ports.Embedder,
	store ports.VectorStore,
	generator ports.AnswerGenerator,
	topK int,
) *AskUseCase {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &AskUseCase{
		registry:  registry,
		embedder:  embedder,
		store:     store,
		generator: generator,
		topK:      topK,
	}
}

// Retrieve embeds the question and runs a similarity search restricted to
// chunks whose tenant metadata matches. An empty result is a normal outcome,
// not an error; backend failures always propagate typed so callers can tell
// "nothing found" from "backend down".
func (uc *AskUseCase) Retrieve(ctx context.Context, tenant, question string, k int) ([]domain.ScoredPassage, error) {
	if k <= 0 {
		k = uc.topK
	}

	handle, err := uc.registry.GetOrCreate(ctx, tenant)
	if err != nil {
		return nil, err
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	passages, err := uc.store.Search(ctx, handle.Collection(), queryVector, tenant, k)
	if err != nil {
		return nil, err
	}
	return passages, nil
}

// Ask answers a question from the tenant's corpus. When retrieval comes back
// empty the canned no-information answer is returned without invoking the
// model.
func (uc *AskUseCase) Ask(ctx context.Context, tenant, question string) (*domain.Answer, error) {
	passages, err := uc.Retrieve(ctx, tenant, question, uc.topK)
	if err != nil {
		return nil, err
	}

	if len(passages) == 0 {
		return &domain.Answer{Text: NoInformationAnswer}, nil
	}

	text, err := uc.generator.Synthesize(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}

	return &domain.Answer{Text: text, Sources: passages}, nil
}
