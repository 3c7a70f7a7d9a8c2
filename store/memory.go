package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"legalrag/types"
)

// MemoryStore keeps records in a mutex-guarded map and ranks by cosine
// similarity. It backs tests and database-free runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.EmbeddingRecord
	cfg     types.ConfigParams
	dim     int
	logger  *slog.Logger
}

func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]types.EmbeddingRecord),
		dim:     dim,
		logger:  slog.Default(),
	}
}

func (s *MemoryStore) Add(ctx context.Context, records []types.EmbeddingRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := 0
	for _, rec := range records {
		if reason := malformed(rec, s.dim); reason != "" {
			s.logger.Warn("skipping malformed record", "id", rec.ID, "reason", reason)
			continue
		}
		s.records[rec.ID] = rec
		stored++
	}
	return stored, nil
}

func (s *MemoryStore) Query(ctx context.Context, queryVec []float32, topK int) ([]types.SearchResult, error) {
	if s.dim > 0 && len(queryVec) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(queryVec), s.dim)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []types.SearchResult{}
	for _, rec := range s.records {
		results = append(results, types.SearchResult{
			ID:      rec.ID,
			Content: rec.Content,
			Source:  rec.Metadata["source"],
			Score:   cosineSimilarity(queryVec, rec.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) GetConfig(ctx context.Context) (types.ConfigParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, nil
}

func (s *MemoryStore) SetConfig(ctx context.Context, fields map[string]any) (types.ConfigParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for column, value := range fields {
		str, ok := value.(string)
		if !ok {
			return types.ConfigParams{}, fmt.Errorf("config value for %q is not a string", column)
		}
		switch column {
		case "llm_model":
			s.cfg.Model = str
		case "prompt_str":
			s.cfg.PromptStr = str
		default:
			return types.ConfigParams{}, fmt.Errorf("unknown config column %q", column)
		}
	}
	return s.cfg, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
