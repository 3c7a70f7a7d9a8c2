package api

import (
	"context"
	"log/slog"

	"legalrag/app/agent"
	"legalrag/app/session"
	"legalrag/model"
	"legalrag/store"
	"legalrag/types"

	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	assembler agent.ContextProvider
	generator model.GeneratorInterface
	config    store.ConfigStorer
	sessions  *session.Store
	logger    *slog.Logger
}

func NewChatHandler(assembler agent.ContextProvider, generator model.GeneratorInterface, cfgStore store.ConfigStorer, sessions *session.Store) *ChatHandler {
	return &ChatHandler{
		assembler: assembler,
		generator: generator,
		config:    cfgStore,
		sessions:  sessions,
		logger:    slog.Default(),
	}
}

// HandleChat answers the latest user turn of a client-supplied conversation
// history. With a session_id the stored history is prepended to the incoming
// turns and the full, unenriched history is saved back after the reply.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	// An empty history is a caller contract violation, same as one not
	// ending in a user turn.
	if len(params.ConversationHistory) == 0 {
		return ErrInvalidHistory()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	history := params.ConversationHistory
	if params.SessionID != "" {
		stored, ok := h.sessions.Get(params.SessionID)
		if !ok {
			return ErrUnknownSession(params.SessionID)
		}
		history = append(stored, history...)
	}

	if history[len(history)-1].Role != types.RoleUser {
		return ErrInvalidHistory()
	}

	answer, err := h.respond(c.Context(), history)
	if err != nil {
		return err
	}

	if params.SessionID != "" {
		h.sessions.Save(params.SessionID, append(history, types.Message{
			Role:    types.RoleAssistant,
			Content: answer,
		}))
	}

	return c.JSON(types.ChatResponse{Response: answer})
}

// HandleNewSession creates a server-side session and returns its seeded
// history.
func (h *ChatHandler) HandleNewSession(c *fiber.Ctx) error {
	id, history := h.sessions.Create()
	return c.JSON(fiber.Map{
		"session_id":           id,
		"conversation_history": history,
	})
}

// respond runs the retrieval pipeline and the generator. Generation failures
// surface as HTTP 500 carrying the user-visible fallback message, never as an
// unhandled fault.
func (h *ChatHandler) respond(ctx context.Context, history []types.Message) (string, error) {
	cfg, err := h.config.GetConfig(ctx)
	if err != nil {
		h.logger.Warn("runtime config unavailable, using defaults", "error", err)
		cfg = types.ConfigParams{}
	}

	outbound, err := agent.PrepareOutbound(ctx, history, h.assembler, cfg.PromptStr)
	if err != nil {
		return "", ErrInvalidHistory()
	}

	answer, err := h.generator.Generate(ctx, cfg.Model, outbound.Messages)
	if err != nil {
		h.logger.Error("answer generation failed", "error", err)
		return "", NewError(fiber.StatusInternalServerError, agent.FallbackAnswer)
	}
	return answer, nil
}
