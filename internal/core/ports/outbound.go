package ports

import (
	"context"
	"io"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

// Embedder builds vectors for passages and query text. The same model must
// serve ingestion and retrieval or relevance is undefined.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the tenant-collection storage engine. Collection existence
// is an explicit query, never inferred from creation errors.
type VectorStore interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
	CreateCollection(ctx context.Context, collection string, vectorSize int) error
	// HasDocument reports whether any chunk of (tenant, fileName) is indexed.
	HasDocument(ctx context.Context, collection, tenant, fileName string) (bool, error)
	// Upsert writes all records as one batch. Repeat ids overwrite in place.
	Upsert(ctx context.Context, collection string, records []domain.ChunkRecord) error
	// Search returns up to limit passages whose tenant metadata matches,
	// ranked by descending similarity.
	Search(ctx context.Context, collection string, queryVector []float32, tenant string, limit int) ([]domain.ScoredPassage, error)
}

// AnswerGenerator composes retrieved passages and the question into a final
// answer. Empty passages is legal input.
type AnswerGenerator interface {
	Synthesize(ctx context.Context, question string, passages []domain.ScoredPassage) (string, error)
}

// BindingRepository durably persists channel→tenant associations.
type BindingRepository interface {
	Upsert(ctx context.Context, channelID, tenant string) error
	Get(ctx context.Context, channelID string) (string, error)
	ListChannels(ctx context.Context, tenant string) ([]string, error)
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, fileName string, data []byte) (string, error)
}

// ObjectStorage archives uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Chunker splits extracted text into overlapping passages with offsets.
type Chunker interface {
	Split(text string) []domain.Passage
}

// EventPublisher announces completed ingestions.
type EventPublisher interface {
	PublishDocumentIngested(ctx context.Context, event domain.IngestedEvent) error
}

// ChatTransport carries normalized conversation traffic for the gateway.
type ChatTransport interface {
	SubscribeChatMessages(ctx context.Context, handler func(context.Context, domain.ChatMessage) error) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, domain.IngestedEvent) error) error
	PublishChatReply(ctx context.Context, channelID, text string) error
}
