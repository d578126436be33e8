package domain

// Passage is a bounded slice of a source document's text, the unit of
// embedding and retrieval. StartIndex is the character offset at which the
// passage begins in the extracted document text.
type Passage struct {
	Text       string `json:"text"`
	StartIndex int    `json:"start_index"`
}

// ChunkRecord is one indexed point in a tenant's collection. Every record of
// a given source file carries identical FileName and Tenant metadata;
// per-passage identity lives in ID and StartIndex.
type ChunkRecord struct {
	ID         string
	Vector     []float32
	Text       string
	FileName   string
	Tenant     string
	StartIndex int
}

// ScoredPassage is one retrieval result, ranked by similarity score.
type ScoredPassage struct {
	Text       string  `json:"text"`
	FileName   string  `json:"file_name"`
	Tenant     string  `json:"tenant"`
	StartIndex int     `json:"start_index"`
	Score      float64 `json:"score"`
}

type IngestStatus string

const (
	// IngestAccepted means the document was chunked and indexed (possibly as
	// an empty no-op batch for degenerate documents).
	IngestAccepted IngestStatus = "accepted"
	// IngestAlreadyExists means a document with the same file name was
	// already indexed for the tenant; the collection was not modified.
	IngestAlreadyExists IngestStatus = "already_exists"
)

// Receipt reports the idempotent outcome of one ingestion call.
type Receipt struct {
	Status     IngestStatus `json:"status"`
	Tenant     string       `json:"tenant"`
	FileName   string       `json:"file_name"`
	ChunkCount int          `json:"chunk_count"`
}

// Answer is the synthesized reply to a question, with the passages it was
// grounded on in retrieval order.
type Answer struct {
	Text    string          `json:"text"`
	Sources []ScoredPassage `json:"sources"`
}

// IngestedEvent is published after a document has been fully indexed.
type IngestedEvent struct {
	Tenant     string `json:"tenant"`
	FileName   string `json:"file_name"`
	ChunkCount int    `json:"chunk_count"`
}

// ChatMessage is one normalized inbound message from a conversation channel.
// Mention prefixes and other chat-system noise are stripped by the adapter
// that feeds the inbound subject.
type ChatMessage struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}
