package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
	"github.com/quaydocs/corpus-assistant/internal/core/ports"
)

// Namespace for UUIDv5 chunk ids. An id is derived from
// (tenant, file name, chunk index), so a repeat ingestion of the same file
// upserts the same points instead of duplicating them.
var chunkIDNamespace = uuid.MustParse("a1f8c9e2-4b6d-4f1e-9c3a-7d2e5b8f0a64")

type IngestUseCase struct {
	registry  *CollectionRegistry
	archive   ports.ObjectStorage
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	store     ports.VectorStore
	events    ports.EventPublisher
	logger    *slog.Logger

	mu        sync.Mutex
	fileLocks map[string]*sync.Mutex
}

func NewIngestUseCase(
	registry *CollectionRegistry,
	archive ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.VectorStore,
	events ports.EventPublisher,
	logger *slog.Logger,
) *IngestUseCase {
	return &IngestUseCase{
		registry:  registry,
		archive:   archive,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		events:    events,
		logger:    logger,
		fileLocks: make(map[string]*sync.Mutex),
	}
}

// Ingest indexes one document into the tenant's collection: dedup by file
// name, chunk, embed, upsert as a single batch. Idempotent at file
// granularity; a repeat upload returns an AlreadyExists receipt without
// touching the collection. The dedup check and the upsert are additionally
// serialized per (tenant, file) within this process, and chunk ids are
// deterministic, so a concurrent double-ingest converges to one copy.
func (uc *IngestUseCase) Ingest(ctx context.Context, tenant, fileName string, content io.Reader) (*domain.Receipt, error) {
	fileName = sanitizeFileName(fileName)

	handle, err := uc.registry.GetOrCreate(ctx, tenant)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	unlock := uc.lockFile(tenant, fileName)
	defer unlock()

	indexed, err := uc.store.HasDocument(ctx, handle.Collection(), tenant, fileName)
	if err != nil {
		return nil, err
	}
	if indexed {
		return &domain.Receipt{
			Status:   domain.IngestAlreadyExists,
			Tenant:   tenant,
			FileName: fileName,
		}, nil
	}

	if err := uc.archive.Save(ctx, path.Join(tenant, fileName), bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("archive source file: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, fileName, data)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	passages := uc.chunker.Split(text)
	if len(passages) == 0 {
		// Degenerate document: accepted as a no-op. The dedup check above
		// still guards repeat uploads of the same file name.
		return &domain.Receipt{
			Status:   domain.IngestAccepted,
			Tenant:   tenant,
			FileName: fileName,
		}, nil
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(passages) {
		return nil, domain.WrapError(
			domain.ErrEmbeddingFailure,
			"embed passages",
			fmt.Errorf("vectors/passages mismatch: %d/%d", len(vectors), len(passages)),
		)
	}

	records := make([]domain.ChunkRecord, len(passages))
	for i, p := range passages {
		records[i] = domain.ChunkRecord{
			ID:         ChunkID(tenant, fileName, i),
			Vector:     vectors[i],
			Text:       p.Text,
			FileName:   fileName,
			Tenant:     tenant,
			StartIndex: p.StartIndex,
		}
	}

	if err := uc.store.Upsert(ctx, handle.Collection(), records); err != nil {
		return nil, err
	}

	uc.publishIngested(ctx, tenant, fileName, len(records))

	return &domain.Receipt{
		Status:     domain.IngestAccepted,
		Tenant:     tenant,
		FileName:   fileName,
		ChunkCount: len(records),
	}, nil
}

// publishIngested is a post-commit notification; the document is already
// indexed, so a publish failure must not fail the ingestion.
func (uc *IngestUseCase) publishIngested(ctx context.Context, tenant, fileName string, chunks int) {
	if uc.events == nil {
		return
	}
	event := domain.IngestedEvent{Tenant: tenant, FileName: fileName, ChunkCount: chunks}
	if err := uc.events.PublishDocumentIngested(ctx, event); err != nil {
		uc.logger.Warn("publish ingested event failed",
			"tenant", tenant, "file_name", fileName, "error", err)
	}
}

func (uc *IngestUseCase) lockFile(tenant, fileName string) func() {
	key := tenant + "\x00" + fileName
	uc.mu.Lock()
	lock, ok := uc.fileLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		uc.fileLocks[key] = lock
	}
	uc.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// ChunkID derives the deterministic point id of one passage.
func ChunkID(tenant, fileName string, index int) string {
	name := tenant + "|" + fileName + "|" + strconv.Itoa(index)
	return uuid.NewSHA1(chunkIDNamespace, []byte(name)).String()
}

func sanitizeFileName(name string) string {
	base := filepath.Base(name)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_', r == ' ':
			return r
		default:
			return '_'
		}
	}, base)
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}
