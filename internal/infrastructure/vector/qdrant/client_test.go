package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

func TestCollectionExists(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Write([]byte(`{"result":{"status":"green"}}`))
	}))
	defer server.Close()

	exists, err := New(server.URL).CollectionExists(context.Background(), "Company A")
	if err != nil {
		t.Fatalf("CollectionExists: %v", err)
	}
	if !exists {
		t.Error("exists = false, want true")
	}
	if gotPath != "/collections/Company%20A" {
		t.Errorf("path = %q, want the tenant name escaped", gotPath)
	}
}

func TestCollectionExistsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	exists, err := New(server.URL).CollectionExists(context.Background(), "Company A")
	if err != nil {
		t.Fatalf("CollectionExists: %v", err)
	}
	if exists {
		t.Error("exists = true for 404")
	}
}

func TestCollectionExistsServerErrorIsStorageUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL).CollectionExists(context.Background(), "Company A")
	if !domain.IsKind(err, domain.ErrStorageUnavailable) {
		t.Fatalf("error = %v, want ErrStorageUnavailable", err)
	}
}

func TestCreateCollectionSendsVectorConfig(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"result":true}`))
	}))
	defer server.Close()

	if err := New(server.URL).CreateCollection(context.Background(), "Company A", 768); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	vectors, _ := gotBody["vectors"].(map[string]any)
	if vectors["distance"] != "Cosine" {
		t.Errorf("distance = %v, want Cosine", vectors["distance"])
	}
	if vectors["size"] != float64(768) {
		t.Errorf("size = %v, want 768", vectors["size"])
	}
}

func TestCreateCollectionToleratesConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	if err := New(server.URL).CreateCollection(context.Background(), "Company A", 768); err != nil {
		t.Fatalf("CreateCollection on 409: %v, want nil", err)
	}
}

func TestHasDocumentFiltersByFileAndTenant(t *testing.T) {
	var gotBody struct {
		Limit  int `json:"limit"`
		Filter struct {
			Must []struct {
				Key   string `json:"key"`
				Match struct {
					Value string `json:"value"`
				} `json:"match"`
			} `json:"must"`
		} `json:"filter"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"result":{"points":[{"id":"abc"}]}}`))
	}))
	defer server.Close()

	has, err := New(server.URL).HasDocument(context.Background(), "Company A", "Company A", "handbook.pdf")
	if err != nil {
		t.Fatalf("HasDocument: %v", err)
	}
	if !has {
		t.Error("has = false with one point returned")
	}
	if gotBody.Limit != 1 {
		t.Errorf("limit = %d, want 1", gotBody.Limit)
	}

	conditions := map[string]string{}
	for _, cond := range gotBody.Filter.Must {
		conditions[cond.Key] = cond.Match.Value
	}
	if conditions["metadata.file_name"] != "handbook.pdf" {
		t.Errorf("file_name condition = %q", conditions["metadata.file_name"])
	}
	if conditions["metadata.company"] != "Company A" {
		t.Errorf("company condition = %q", conditions["metadata.company"])
	}
}

func TestHasDocumentEmptyScroll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result":{"points":[]}}`))
	}))
	defer server.Close()

	has, err := New(server.URL).HasDocument(context.Background(), "Company A", "Company A", "handbook.pdf")
	if err != nil {
		t.Fatalf("HasDocument: %v", err)
	}
	if has {
		t.Error("has = true with no points")
	}
}

func TestUpsertPayloadShape(t *testing.T) {
	var gotQuery string
	var gotBody struct {
		Points []struct {
			ID      string    `json:"id"`
			Vector  []float32 `json:"vector"`
			Payload struct {
				Text     string `json:"text"`
				Metadata struct {
					FileName   string `json:"file_name"`
					Company    string `json:"company"`
					StartIndex int    `json:"start_index"`
				} `json:"metadata"`
			} `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"result":{"status":"completed"}}`))
	}))
	defer server.Close()

	records := []domain.ChunkRecord{
		{
			ID:         "11111111-1111-1111-1111-111111111111",
			Vector:     []float32{0.1, 0.2},
			Text:       "chunk text",
			FileName:   "handbook.pdf",
			Tenant:     "Company A",
			StartIndex: 1700,
		},
	}
	if err := New(server.URL).Upsert(context.Background(), "Company A", records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if gotQuery != "wait=true" {
		t.Errorf("query = %q, want wait=true", gotQuery)
	}
	if len(gotBody.Points) != 1 {
		t.Fatalf("points = %d, want 1", len(gotBody.Points))
	}
	p := gotBody.Points[0]
	if p.ID != records[0].ID || p.Payload.Text != "chunk text" {
		t.Errorf("point = %+v", p)
	}
	if p.Payload.Metadata.Company != "Company A" ||
		p.Payload.Metadata.FileName != "handbook.pdf" ||
		p.Payload.Metadata.StartIndex != 1700 {
		t.Errorf("metadata = %+v", p.Payload.Metadata)
	}
}

func TestUpsertEmptyBatchIsNoOp(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer server.Close()

	if err := New(server.URL).Upsert(context.Background(), "Company A", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if called {
		t.Error("empty batch reached the backend")
	}
}

func TestSearchFiltersByTenantAndDecodesPayload(t *testing.T) {
	var gotBody struct {
		Limit  int `json:"limit"`
		Filter struct {
			Must []struct {
				Key   string `json:"key"`
				Match struct {
					Value string `json:"value"`
				} `json:"match"`
			} `json:"must"`
		} `json:"filter"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"result":[
			{"score":0.91,"payload":{"text":"first","metadata":{"file_name":"a.pdf","company":"Company A","start_index":0}}},
			{"score":0.84,"payload":{"text":"second","metadata":{"file_name":"b.pdf","company":"Company A","start_index":1700}}}
		]}`))
	}))
	defer server.Close()

	passages, err := New(server.URL).Search(context.Background(), "Company A", []float32{0.1}, "Company A", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotBody.Limit != 4 {
		t.Errorf("limit = %d, want 4", gotBody.Limit)
	}
	if len(gotBody.Filter.Must) != 1 ||
		gotBody.Filter.Must[0].Key != "metadata.company" ||
		gotBody.Filter.Must[0].Match.Value != "Company A" {
		t.Errorf("filter = %+v, want a single metadata.company condition", gotBody.Filter.Must)
	}

	if len(passages) != 2 {
		t.Fatalf("passages = %d, want 2", len(passages))
	}
	if passages[0].Text != "first" || passages[0].Score != 0.91 {
		t.Errorf("first passage = %+v", passages[0])
	}
	if passages[1].FileName != "b.pdf" || passages[1].StartIndex != 1700 {
		t.Errorf("second passage = %+v", passages[1])
	}
}

func TestSearchServerErrorIsStorageUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL).Search(context.Background(), "Company A", []float32{0.1}, "Company A", 4)
	if !domain.IsKind(err, domain.ErrStorageUnavailable) {
		t.Fatalf("error = %v, want ErrStorageUnavailable", err)
	}
}
