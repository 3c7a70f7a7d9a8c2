package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"legalrag/loader/service"
	"legalrag/model"
	"legalrag/store"
	"legalrag/types"

	"github.com/joho/godotenv"
)

func init() {
	mustLoadEnvVariables()
}

func main() {
	ctx := context.Background()

	dim := envInt("EMBEDDING_DIM", 1024)
	port := envInt("PG_PORT", 5432)
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
	pool, err := store.NewPostgresStore(ctx, connStr, dim)
	if err != nil {
		log.Fatal("error connecting to Postgres database: ", err)
	}

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error creating tables: ", err)
	}

	embedder := model.NewEmbedder(model.NewWorkersAIEmbedder(
		model.EmbeddingURL(
			envOr("CF_API_BASE", model.DefaultWorkersAIBase),
			os.Getenv("CF_ACCOUNT_ID"),
			envOr("EMBEDDING_MODEL", "@cf/baai/bge-large-en-v1.5"),
		),
		os.Getenv("CF_API_TOKEN"),
		dim,
	))

	cfg := types.LoaderConfig{
		MonitoringTime: time.Duration(envInt("LOADER_MONITORING_TIME", 5)) * time.Second,
		SourceDir:      envOr("LOADER_SOURCE_DIR", "./source"),
		ArchiveDir:     envOr("LOADER_ARCHIVE_DIR", "./archive"),
		BadDir:         envOr("LOADER_BAD_DIR", "./bad"),
	}

	service.New(pool, embedder, cfg).Run()

	if err := pool.Close(); err != nil {
		log.Printf("error closing pool: %v\n", err)
	}
}

func mustLoadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
