package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"legalrag/app/agent"
	"legalrag/app/session"
	"legalrag/store"
	"legalrag/types"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssembler struct {
	response string
}

func (f *fakeAssembler) BuildContext(ctx context.Context, question string) string {
	return f.response
}

type fakeGenerator struct {
	answer string
	err    error
	seen   []types.Message
}

func (f *fakeGenerator) Generate(ctx context.Context, model string, history []types.Message) (string, error) {
	f.seen = history
	return f.answer, f.err
}

func newTestApp(gen *fakeGenerator) (*fiber.App, *session.Store) {
	sessions := session.NewStore()
	handler := NewChatHandler(&fakeAssembler{response: "Right to life..."}, gen, store.NewMemoryStore(3), sessions)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/v1/chat", handler.HandleChat)
	app.Post("/api/v1/session", handler.HandleNewSession)
	return app, sessions
}

func postChat(t *testing.T, app *fiber.App, body any) (int, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/chat", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	return resp.StatusCode, decoded
}

func TestHandleChat_EmptyHistory(t *testing.T) {
	app, _ := newTestApp(&fakeGenerator{})

	status, body := postChat(t, app, types.ChatParams{ConversationHistory: []types.Message{}})

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid conversation history", body["error"])
}

func TestHandleChat_HistoryNotEndingInUserTurn(t *testing.T) {
	app, _ := newTestApp(&fakeGenerator{})

	status, body := postChat(t, app, types.ChatParams{ConversationHistory: []types.Message{
		{Role: types.RoleAssistant, Content: "hello"},
	}})

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid conversation history", body["error"])
}

func TestHandleChat_Answer(t *testing.T) {
	gen := &fakeGenerator{answer: "Article 21 guarantees the right to life."}
	app, _ := newTestApp(gen)

	status, body := postChat(t, app, types.ChatParams{ConversationHistory: []types.Message{
		{Role: types.RoleUser, Content: "What is Article 21?"},
	}})

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Article 21 guarantees the right to life.", body["response"])

	// The generator must have seen the enriched outbound history, system
	// message first.
	require.NotEmpty(t, gen.seen)
	assert.Equal(t, types.RoleSystem, gen.seen[0].Role)
	assert.Contains(t, gen.seen[len(gen.seen)-1].Content, "Right to life...")
	assert.Contains(t, gen.seen[len(gen.seen)-1].Content, "What is Article 21?")
}

func TestHandleChat_GeneratorFailureFallsBack(t *testing.T) {
	app, _ := newTestApp(&fakeGenerator{err: errors.New("remote unavailable")})

	status, body := postChat(t, app, types.ChatParams{ConversationHistory: []types.Message{
		{Role: types.RoleUser, Content: "What is Article 21?"},
	}})

	require.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, agent.FallbackAnswer, body["error"])
}

func TestHandleChat_UnknownSession(t *testing.T) {
	app, _ := newTestApp(&fakeGenerator{answer: "hi"})

	status, _ := postChat(t, app, types.ChatParams{
		ConversationHistory: []types.Message{{Role: types.RoleUser, Content: "hi"}},
		SessionID:           "missing",
	})

	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHandleChat_SessionHistorySaved(t *testing.T) {
	gen := &fakeGenerator{answer: "the answer"}
	app, sessions := newTestApp(gen)

	id, _ := sessions.Create()

	status, _ := postChat(t, app, types.ChatParams{
		ConversationHistory: []types.Message{{Role: types.RoleUser, Content: "What is Article 21?"}},
		SessionID:           id,
	})
	require.Equal(t, fiber.StatusOK, status)

	saved, ok := sessions.Get(id)
	require.True(t, ok)
	require.Len(t, saved, 4)
	assert.Equal(t, "What is Article 21?", saved[2].Content, "stored history keeps the unenriched user turn")
	assert.Equal(t, "the answer", saved[3].Content)
}
