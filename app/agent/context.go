package agent

import (
	"context"
	"log/slog"
	"strings"

	"legalrag/model"
	"legalrag/store"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// NoContextFound is returned when the question could not be embedded.
	NoContextFound = "No relevant context found."
	// NoDocumentsFound is returned when the store holds no match.
	NoDocumentsFound = "No relevant documents found."

	DefaultTopK = 3
)

// ContextProvider supplies retrieved context for a question.
type ContextProvider interface {
	BuildContext(ctx context.Context, question string) string
}

// ContextAssembler retrieves the top-K documents most similar to a question
// and joins their texts into a context block for the prompt.
type ContextAssembler struct {
	embedder  model.EmbedderInterface
	store     store.VectorStorer
	topK      int
	maxTokens int
	// countTokens overrides the tiktoken-based counter; tests install a
	// deterministic one.
	countTokens func(string) int
	logger      *slog.Logger
}

func NewContextAssembler(embedder model.EmbedderInterface, storer store.VectorStorer, topK, maxTokens int) *ContextAssembler {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ContextAssembler{
		embedder:  embedder,
		store:     storer,
		topK:      topK,
		maxTokens: maxTokens,
		logger:    slog.Default(),
	}
}

// BuildContext never fails: it degrades to one of the two sentinel strings.
// Retrieved texts are joined with a blank line, most relevant first, with no
// re-ranking or deduplication.
func (a *ContextAssembler) BuildContext(ctx context.Context, question string) string {
	embedding, err := a.embedder.Embed(ctx, question)
	if err != nil || embedding == nil {
		return NoContextFound
	}

	results, err := a.store.Query(ctx, embedding, a.topK)
	if err != nil {
		a.logger.Error("vector query failed", "error", err)
		return NoDocumentsFound
	}
	if len(results) == 0 {
		return NoDocumentsFound
	}

	docs := make([]string, len(results))
	for i, res := range results {
		docs[i] = res.Content
	}

	if a.maxTokens > 0 {
		docs = a.capToBudget(docs)
	}

	return strings.Join(docs, "\n\n")
}

// capToBudget drops whole documents from the tail once the joined context
// would exceed the token budget. The first document always survives.
func (a *ContextAssembler) capToBudget(docs []string) []string {
	counter := a.countTokens
	if counter == nil {
		enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
		if err != nil {
			a.logger.Warn("token encoding unavailable, context left uncapped", "error", err)
			return docs
		}
		counter = func(s string) int {
			return len(enc.Encode(s, nil, nil))
		}
	}

	kept := docs[:1]
	total := counter(docs[0])
	for _, doc := range docs[1:] {
		total += counter("\n\n" + doc)
		if total > a.maxTokens {
			a.logger.Info("context capped", "budget", a.maxTokens, "documents", len(kept))
			break
		}
		kept = append(kept, doc)
	}
	return kept
}
