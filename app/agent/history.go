package agent

import (
	"context"
	"errors"
	"fmt"

	"legalrag/types"
)

// ErrNoUserMessage rejects histories that contain no user turn before any
// remote call is made.
var ErrNoUserMessage = errors.New("conversation history contains no user message")

const enrichTemplate = `Use the following legal context to answer the user's question:

Context:
%s

Question:
%s
`

// Outbound is the request-ready history. UserIndex records which message was
// enriched, since the replacement itself matches by role and content rather
// than a stable identity.
type Outbound struct {
	Messages  []types.Message
	UserIndex int
}

// PrepareOutbound builds the history actually sent to the LLM: a copy of the
// input with retrieved context spliced into the most recent user turn and the
// system prompt injected or extended. The input slice is never mutated; the
// caller keeps persisting and displaying the original, unenriched history.
func PrepareOutbound(ctx context.Context, history []types.Message, provider ContextProvider, persona string) (Outbound, error) {
	last := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return Outbound{}, ErrNoUserMessage
	}
	question := history[last].Content

	retrieved := provider.BuildContext(ctx, question)
	enriched := fmt.Sprintf(enrichTemplate, retrieved, question)

	out := make([]types.Message, len(history))
	copy(out, history)

	// Replace the last user message whose content equals the question.
	// Scanning from the end keeps duplicate texts from clobbering earlier
	// turns; matching by content rather than index mirrors the historical
	// behaviour and is pinned down by tests.
	replaced := -1
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == types.RoleUser && out[i].Content == question {
			out[i] = types.Message{Role: types.RoleUser, Content: enriched}
			replaced = i
			break
		}
	}

	if persona == "" {
		persona = UsecasePrompt()
	}

	// One system message only: extend the latest existing one, or prepend a
	// fresh persona + formatting instructions.
	lastSystem := -1
	for i, m := range out {
		if m.Role == types.RoleSystem {
			lastSystem = i
		}
	}
	if lastSystem >= 0 {
		out[lastSystem] = types.Message{
			Role:    types.RoleSystem,
			Content: out[lastSystem].Content + "\n\n" + FormattingInstructions,
		}
	} else {
		system := types.Message{
			Role:    types.RoleSystem,
			Content: persona + "\n\n" + FormattingInstructions,
		}
		out = append([]types.Message{system}, out...)
		replaced++
	}

	return Outbound{Messages: out, UserIndex: replaced}, nil
}
