package types

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn. Ordering inside a history is
// chronological.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EmbeddingRecord is one ingested document: its embedding vector, the raw
// text the vector was computed from and a small metadata map (at least the
// source filename). ID must be unique within the collection.
type EmbeddingRecord struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"vector"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// SearchResult is one nearest-neighbour match, Score is cosine similarity
// (higher is closer).
type SearchResult struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

type LoaderConfig struct {
	MonitoringTime time.Duration
	SourceDir      string
	ArchiveDir     string
	BadDir         string
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}
