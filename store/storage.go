package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"legalrag/types"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrDimensionMismatch is returned when a query vector's length differs from
// the collection's fixed dimensionality. The query never reaches SQL.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

type VectorStorer interface {
	Add(context.Context, []types.EmbeddingRecord) (int, error)
	Query(context.Context, []float32, int) ([]types.SearchResult, error)
	Count(context.Context) (int, error)
}

type ConfigStorer interface {
	GetConfig(context.Context) (types.ConfigParams, error)
	SetConfig(context.Context, map[string]any) (types.ConfigParams, error)
}

type PostgresStore struct {
	pool   *pgxpool.Pool
	dim    int
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, dim int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:   pool,
		dim:    dim,
		logger: slog.Default(),
	}, nil
}

// Add stores records one by one. Malformed records (empty id, missing or
// mismatched vector) are skipped and logged, never aborting the batch. The
// returned count is the number actually stored.
func (p *PostgresStore) Add(ctx context.Context, records []types.EmbeddingRecord) (int, error) {
	query := `
    INSERT INTO embeddings (id, content, source, embedding)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (id) DO UPDATE SET
        content = EXCLUDED.content,
        source = EXCLUDED.source,
        embedding = EXCLUDED.embedding
    `

	stored := 0
	for _, rec := range records {
		if reason := malformed(rec, p.dim); reason != "" {
			p.logger.Warn("skipping malformed record", "id", rec.ID, "reason", reason)
			continue
		}
		_, err := p.pool.Exec(ctx, query,
			rec.ID, rec.Content, rec.Metadata["source"], pgvector.NewVector(rec.Vector),
		)
		if err != nil {
			return stored, fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
		stored++
	}
	return stored, nil
}

func malformed(rec types.EmbeddingRecord, dim int) string {
	switch {
	case rec.ID == "":
		return "empty id"
	case len(rec.Vector) == 0:
		return "missing embedding"
	case dim > 0 && len(rec.Vector) != dim:
		return fmt.Sprintf("embedding has %d dimensions, collection expects %d", len(rec.Vector), dim)
	}
	return ""
}

// Query returns up to topK matches ordered by cosine similarity descending.
// An empty store yields an empty result, not an error.
func (p *PostgresStore) Query(ctx context.Context, queryVec []float32, topK int) ([]types.SearchResult, error) {
	if p.dim > 0 && len(queryVec) != p.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(queryVec), p.dim)
	}

	query := `
        SELECT id, content, source,
               1 - (embedding <=> $1) AS score
        FROM embeddings
        WHERE embedding IS NOT NULL
        ORDER BY embedding <=> $1
        LIMIT $2
    `
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(queryVec), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []types.SearchResult{}
	for rows.Next() {
		var res types.SearchResult
		if err := rows.Scan(&res.ID, &res.Content, &res.Source, &res.Score); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, "SELECT count(*) FROM embeddings").Scan(&count)
	return count, err
}

func (p *PostgresStore) GetConfig(ctx context.Context) (types.ConfigParams, error) {
	var cfg types.ConfigParams
	err := p.pool.QueryRow(ctx, "SELECT llm_model, prompt_str FROM prompt_config WHERE id = 1").
		Scan(&cfg.Model, &cfg.PromptStr)
	return cfg, err
}

func (p *PostgresStore) SetConfig(ctx context.Context, fields map[string]any) (types.ConfigParams, error) {
	for column, value := range fields {
		switch column {
		case "llm_model", "prompt_str":
		default:
			return types.ConfigParams{}, fmt.Errorf("unknown config column %q", column)
		}
		query := fmt.Sprintf("UPDATE prompt_config SET %s = $1 WHERE id = 1", column)
		if _, err := p.pool.Exec(ctx, query, value); err != nil {
			return types.ConfigParams{}, err
		}
	}
	return p.GetConfig(ctx)
}

func (p *PostgresStore) createTables(ctx context.Context) error {
	query := fmt.Sprintf(`
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS embeddings (
        id TEXT PRIMARY KEY,
        content TEXT NOT NULL,
        source TEXT,
        embedding vector(%d)
    );

    CREATE INDEX IF NOT EXISTS idx_embeddings_embedding ON embeddings USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100);

    CREATE TABLE IF NOT EXISTS prompt_config (
        id INT PRIMARY KEY,
        llm_model TEXT NOT NULL DEFAULT '',
        prompt_str TEXT NOT NULL DEFAULT ''
    );

    INSERT INTO prompt_config (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
    `, p.dim)
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createTables(ctx)
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("postgres connection pool closed")
	}
	return nil
}
