package agent

import (
	"context"
	"strings"
	"testing"

	"legalrag/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	response  string
	questions []string
}

func (f *fakeProvider) BuildContext(ctx context.Context, question string) string {
	f.questions = append(f.questions, question)
	return f.response
}

func TestPrepareOutbound_NoUserMessage(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleSystem, Content: "persona"},
		{Role: types.RoleAssistant, Content: "hello"},
	}

	_, err := PrepareOutbound(context.Background(), history, &fakeProvider{}, "")

	require.ErrorIs(t, err, ErrNoUserMessage)
}

func TestPrepareOutbound_EnrichesLastUserTurn(t *testing.T) {
	provider := &fakeProvider{response: "Right to life..."}
	history := []types.Message{
		{Role: types.RoleUser, Content: "What is Article 21?"},
	}

	out, err := PrepareOutbound(context.Background(), history, provider, "")
	require.NoError(t, err)

	require.Equal(t, []string{"What is Article 21?"}, provider.questions)

	enriched := out.Messages[out.UserIndex]
	assert.Equal(t, types.RoleUser, enriched.Role)

	ctxPos := strings.Index(enriched.Content, "Right to life...")
	questionPos := strings.Index(enriched.Content, "What is Article 21?")
	require.GreaterOrEqual(t, ctxPos, 0)
	require.GreaterOrEqual(t, questionPos, 0)
	assert.Less(t, ctxPos, questionPos, "context must precede the question")
}

func TestPrepareOutbound_DoesNotMutateInput(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleSystem, Content: "persona"},
		{Role: types.RoleUser, Content: "first question"},
		{Role: types.RoleAssistant, Content: "first answer"},
		{Role: types.RoleUser, Content: "second question"},
	}
	snapshot := make([]types.Message, len(history))
	copy(snapshot, history)

	provider := &fakeProvider{response: "some context"}
	_, err := PrepareOutbound(context.Background(), history, provider, "")
	require.NoError(t, err)
	_, err = PrepareOutbound(context.Background(), history, provider, "")
	require.NoError(t, err)

	assert.Equal(t, snapshot, history, "stored history must stay unenriched")
}

func TestPrepareOutbound_DuplicateUserTextReplacesLastOccurrence(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleUser, Content: "repeat me"},
		{Role: types.RoleAssistant, Content: "ok"},
		{Role: types.RoleUser, Content: "repeat me"},
	}

	out, err := PrepareOutbound(context.Background(), history, &fakeProvider{response: "ctx"}, "")
	require.NoError(t, err)

	// A system message was prepended, shifting the turns by one.
	require.Len(t, out.Messages, 4)
	assert.Equal(t, "repeat me", out.Messages[1].Content, "earlier duplicate must stay untouched")
	assert.Contains(t, out.Messages[3].Content, "Context:")
	assert.Equal(t, 3, out.UserIndex)
}

func TestPrepareOutbound_PrependsSystemMessage(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleUser, Content: "question"},
	}

	out, err := PrepareOutbound(context.Background(), history, &fakeProvider{response: "ctx"}, "")
	require.NoError(t, err)

	require.Len(t, out.Messages, 2)
	first := out.Messages[0]
	assert.Equal(t, types.RoleSystem, first.Role)
	assert.Contains(t, first.Content, UsecasePrompt())
	assert.Contains(t, first.Content, FormattingInstructions)
}

func TestPrepareOutbound_ExtendsExistingSystemMessage(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleSystem, Content: "custom persona"},
		{Role: types.RoleUser, Content: "question"},
	}

	out, err := PrepareOutbound(context.Background(), history, &fakeProvider{response: "ctx"}, "")
	require.NoError(t, err)

	require.Len(t, out.Messages, 2, "no second system message may be added")
	first := out.Messages[0]
	assert.Equal(t, types.RoleSystem, first.Role)
	assert.True(t, strings.HasPrefix(first.Content, "custom persona"))
	assert.Contains(t, first.Content, FormattingInstructions)
}

func TestPrepareOutbound_CustomPersona(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleUser, Content: "question"},
	}

	out, err := PrepareOutbound(context.Background(), history, &fakeProvider{response: "ctx"}, "house persona")
	require.NoError(t, err)

	assert.Contains(t, out.Messages[0].Content, "house persona")
	assert.NotContains(t, out.Messages[0].Content, UsecasePrompt())
}
