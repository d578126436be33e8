package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

type fakeVectorStore struct {
	mu sync.Mutex

	existsResult bool
	existsErr    error
	existsCalls  int

	createErr   error
	createCalls []string
	createSizes []int

	hasResult bool
	hasErr    error
	hasCalls  int

	upsertErr     error
	upsertBatches [][]domain.ChunkRecord

	searchResult []domain.ScoredPassage
	searchErr    error
	searchTenant string
	searchLimit  int
	searchCalls  int
}

func (f *fakeVectorStore) CollectionExists(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls++
	return f.existsResult, f.existsErr
}

func (f *fakeVectorStore) CreateCollection(_ context.Context, collection string, vectorSize int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.createCalls = append(f.createCalls, collection)
	f.createSizes = append(f.createSizes, vectorSize)
	return nil
}

func (f *fakeVectorStore) HasDocument(_ context.Context, _, _, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasCalls++
	return f.hasResult, f.hasErr
}

func (f *fakeVectorStore) Upsert(_ context.Context, _ string, records []domain.ChunkRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertBatches = append(f.upsertBatches, records)
	// A persisted batch makes the document visible to later dedup checks.
	f.hasResult = true
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ string, _ []float32, tenant string, limit int) ([]domain.ScoredPassage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.searchTenant = tenant
	f.searchLimit = limit
	return f.searchResult, f.searchErr
}

type fakeEmbedder struct {
	embedErr   error
	queryErr   error
	dimensions int
	// short by this many vectors when set, to simulate a backend miscount
	shortBy int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	n := len(texts) - f.shortBy
	if n < 0 {
		n = 0
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, max(f.dimensions, 1))
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return make([]float32, max(f.dimensions, 1)), nil
}

type fakeGenerator struct {
	answer string
	err    error
	calls  int
}

func (f *fakeGenerator) Synthesize(_ context.Context, _ string, _ []domain.ScoredPassage) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return string(data), nil
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeArchive) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	_, _ = io.Copy(io.Discard, data)
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return nil
}

func (f *fakeArchive) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type wordChunker struct{}

func (wordChunker) Split(text string) []domain.Passage {
	var out []domain.Passage
	offset := 0
	for _, word := range strings.Fields(text) {
		out = append(out, domain.Passage{Text: word, StartIndex: offset})
		offset += len(word) + 1
	}
	return out
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.IngestedEvent
	err    error
}

func (f *fakeEvents) PublishDocumentIngested(_ context.Context, event domain.IngestedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	return nil
}

type fakeBindingRepo struct {
	mu       sync.Mutex
	bindings map[string]string
	upsertErr error
	getErr    error
}

func newFakeBindingRepo() *fakeBindingRepo {
	return &fakeBindingRepo{bindings: make(map[string]string)}
}

func (f *fakeBindingRepo) Upsert(_ context.Context, channelID, tenant string) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	f.bindings[channelID] = tenant
	f.mu.Unlock()
	return nil
}

func (f *fakeBindingRepo) Get(_ context.Context, channelID string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant, ok := f.bindings[channelID]
	if !ok {
		return "", domain.WrapError(domain.ErrNotBound, "get binding", errors.New("no row"))
	}
	return tenant, nil
}

func (f *fakeBindingRepo) ListChannels(_ context.Context, tenant string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for channel, bound := range f.bindings {
		if bound == tenant {
			out = append(out, channel)
		}
	}
	return out, nil
}
