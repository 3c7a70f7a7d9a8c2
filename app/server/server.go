package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"legalrag/app/agent"
	"legalrag/app/api"
	"legalrag/app/session"
	"legalrag/model"
	"legalrag/store"
	"legalrag/types"

	"github.com/gofiber/fiber/v2"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

const sessionMaxAge = 24 * time.Hour

type Server struct {
	listenAddr string
	logger     *slog.Logger
}

func NewServer(addr string) *Server {
	return &Server{
		listenAddr: addr,
		logger:     slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()
	dim := envInt("EMBEDDING_DIM", 1024)

	var (
		vecStore store.VectorStorer
		cfgStore store.ConfigStorer
	)
	if os.Getenv("PG_HOST") != "" {
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
		vecStore, cfgStore = pool, pool
	} else {
		s.logger.Warn("PG_HOST not set, using in-memory vector store")
		mem := store.NewMemoryStore(dim)
		vecStore, cfgStore = mem, mem
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

	generator := model.NewGroqGenerator(types.LLMConfig{
		BaseURL: os.Getenv("GROQ_BASE_URL"),
		APIKey:  os.Getenv("GROQ_API_KEY"),
		Model:   envOr("LLM_MODEL", "llama-3.3-70b-versatile"),
	})

	assembler := agent.NewContextAssembler(
		embedder,
		vecStore,
		envInt("TOP_K", agent.DefaultTopK),
		envInt("MAX_CONTEXT_TOKENS", 0),
	)

	sessions := session.NewStore()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if removed := sessions.CleanupExpired(sessionMaxAge); removed > 0 {
				s.logger.Info("expired sessions removed", "count", removed)
			}
		}
	}()

	var (
		app           = fiber.New(config)
		checkHandler  = api.NewCheckHandler()
		chatHandler   = api.NewChatHandler(assembler, generator, cfgStore, sessions)
		fileHandler   = api.NewFileHandler(chatHandler)
		configHandler = api.NewConfigHandler(cfgStore)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)

	app.Get("/", checkHandler.HandleIndex)
	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/chat", chatHandler.HandleChat)
	apiv1.Post("/upload", fileHandler.HandleUpload)
	apiv1.Post("/session", chatHandler.HandleNewSession)
	apiv1.Get("/config", configHandler.HandleGetConfig)
	apiv1.Post("/config", configHandler.HandleSetConfig)

	if err := app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error starting server", "error", err.Error())
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
