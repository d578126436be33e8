package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

func newIngestFixture(store *fakeVectorStore, embedder *fakeEmbedder, events *fakeEvents) (*IngestUseCase, *fakeArchive) {
	archive := &fakeArchive{}
	uc := NewIngestUseCase(
		NewCollectionRegistry(store, 768),
		archive,
		&fakeExtractor{},
		wordChunker{},
		embedder,
		store,
		events,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return uc, archive
}

func TestIngestAcceptsNewDocument(t *testing.T) {
	store := &fakeVectorStore{}
	events := &fakeEvents{}
	uc, archive := newIngestFixture(store, &fakeEmbedder{dimensions: 4}, events)

	receipt, err := uc.Ingest(context.Background(), "Company A", "handbook.txt", strings.NewReader("alpha beta gamma"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if receipt.Status != domain.IngestAccepted {
		t.Errorf("status = %q, want accepted", receipt.Status)
	}
	if receipt.ChunkCount != 3 {
		t.Errorf("chunk count = %d, want 3", receipt.ChunkCount)
	}
	if len(store.upsertBatches) != 1 {
		t.Fatalf("upsert batches = %d, want 1", len(store.upsertBatches))
	}

	records := store.upsertBatches[0]
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	for i, rec := range records {
		if rec.Tenant != "Company A" || rec.FileName != "handbook.txt" {
			t.Errorf("record %d metadata = %q/%q", i, rec.Tenant, rec.FileName)
		}
		if rec.ID != ChunkID("Company A", "handbook.txt", i) {
			t.Errorf("record %d id not deterministic", i)
		}
	}
	if records[1].StartIndex <= records[0].StartIndex {
		t.Error("start offsets not increasing")
	}

	if len(archive.keys) != 1 || archive.keys[0] != "Company A/handbook.txt" {
		t.Errorf("archive keys = %v", archive.keys)
	}
	if len(events.events) != 1 || events.events[0].ChunkCount != 3 {
		t.Errorf("events = %+v, want one with 3 chunks", events.events)
	}
}

func TestIngestRepeatUploadReturnsAlreadyExists(t *testing.T) {
	store := &fakeVectorStore{}
	uc, _ := newIngestFixture(store, &fakeEmbedder{dimensions: 4}, &fakeEvents{})

	if _, err := uc.Ingest(context.Background(), "Company A", "handbook.txt", strings.NewReader("alpha beta")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	receipt, err := uc.Ingest(context.Background(), "Company A", "handbook.txt", strings.NewReader("different content"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if receipt.Status != domain.IngestAlreadyExists {
		t.Errorf("status = %q, want already_exists", receipt.Status)
	}
	if receipt.ChunkCount != 0 {
		t.Errorf("chunk count = %d, want 0 on duplicate", receipt.ChunkCount)
	}
	if len(store.upsertBatches) != 1 {
		t.Errorf("upsert batches = %d, want the collection untouched", len(store.upsertBatches))
	}
}

func TestIngestEmptyDocumentIsAcceptedNoOp(t *testing.T) {
	store := &fakeVectorStore{}
	uc, _ := newIngestFixture(store, &fakeEmbedder{dimensions: 4}, &fakeEvents{})

	receipt, err := uc.Ingest(context.Background(), "Company A", "blank.txt", strings.NewReader("   \n\t  "))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if receipt.Status != domain.IngestAccepted || receipt.ChunkCount != 0 {
		t.Errorf("receipt = %+v, want accepted with 0 chunks", receipt)
	}
	if len(store.upsertBatches) != 0 {
		t.Errorf("upsert batches = %d, want 0", len(store.upsertBatches))
	}
}

func TestIngestEmbedFailurePropagatesWithoutUpsert(t *testing.T) {
	store := &fakeVectorStore{}
	embedder := &fakeEmbedder{
		embedErr: domain.WrapError(domain.ErrEmbeddingFailure, "embed", errors.New("model unavailable")),
	}
	uc, _ := newIngestFixture(store, embedder, &fakeEvents{})

	_, err := uc.Ingest(context.Background(), "Company A", "handbook.txt", strings.NewReader("alpha beta"))
	if !domain.IsKind(err, domain.ErrEmbeddingFailure) {
		t.Fatalf("error = %v, want ErrEmbeddingFailure", err)
	}
	if len(store.upsertBatches) != 0 {
		t.Errorf("upsert ran despite embed failure")
	}
}

func TestIngestVectorCountMismatchIsEmbeddingFailure(t *testing.T) {
	store := &fakeVectorStore{}
	uc, _ := newIngestFixture(store, &fakeEmbedder{dimensions: 4, shortBy: 1}, &fakeEvents{})

	_, err := uc.Ingest(context.Background(), "Company A", "handbook.txt", strings.NewReader("alpha beta gamma"))
	if !domain.IsKind(err, domain.ErrEmbeddingFailure) {
		t.Fatalf("error = %v, want ErrEmbeddingFailure", err)
	}
}

func TestIngestPublishFailureDoesNotFailIngest(t *testing.T) {
	store := &fakeVectorStore{}
	events := &fakeEvents{err: errors.New("nats down")}
	uc, _ := newIngestFixture(store, &fakeEmbedder{dimensions: 4}, events)

	receipt, err := uc.Ingest(context.Background(), "Company A", "handbook.txt", strings.NewReader("alpha beta"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if receipt.Status != domain.IngestAccepted {
		t.Errorf("status = %q", receipt.Status)
	}
}

func TestChunkIDIsStableAndDistinct(t *testing.T) {
	a := ChunkID("Company A", "handbook.txt", 0)
	b := ChunkID("Company A", "handbook.txt", 0)
	if a != b {
		t.Error("same inputs produced different ids")
	}
	if ChunkID("Company A", "handbook.txt", 1) == a {
		t.Error("different index produced the same id")
	}
	if ChunkID("Company B", "handbook.txt", 0) == a {
		t.Error("different tenant produced the same id")
	}
}

func TestSanitizeFileNameStripsPathsAndOddRunes(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"/tmp/notes.txt", "notes.txt"},
		{"q3 report (final).pdf", "q3 report _final_.pdf"},
		{"", "document.bin"},
		{"..", "document.bin"},
	}
	for _, tc := range cases {
		if got := sanitizeFileName(tc.in); got != tc.want {
			t.Errorf("sanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
