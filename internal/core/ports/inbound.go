package ports

import (
	"context"
	"io"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

// DocumentIngestor is the inbound contract for the upload path.
type DocumentIngestor interface {
	Ingest(ctx context.Context, tenant, fileName string, content io.Reader) (*domain.Receipt, error)
}

// QuestionService is the inbound contract for the question path.
type QuestionService interface {
	Ask(ctx context.Context, tenant, question string) (*domain.Answer, error)
	Retrieve(ctx context.Context, tenant, question string, k int) ([]domain.ScoredPassage, error)
}

// BindingService manages channel→tenant associations.
type BindingService interface {
	SetBinding(ctx context.Context, channelID, tenant string) error
	ResolveBinding(ctx context.Context, channelID string) (string, error)
	ChannelsFor(ctx context.Context, tenant string) ([]string, error)
}
