package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/GAIK-project/ai-agents-go/internal/llmtest"
)

func TestDiceGame(t *testing.T) {
	model := llmtest.NewFakeModel(
		llmtest.ToolCallResponse("roll_die", `{"input": ""}`),
		llmtest.ToolCallResponse("get_player_name", `{"input": ""}`),
		llmtest.TextResponse("Sorry Anna, the die shows 3, not 4. Better luck next time!"),
	)

	agent, err := NewDiceGame(model, "Anna")
	require.NoError(t, err)

	reply, err := agent.Run(context.Background(), "My guess is 4")
	require.NoError(t, err)
	assert.Contains(t, reply, "Anna")

	// The tool results flow back into the model as tool messages.
	require.Len(t, model.Requests, 3)
	third := model.Requests[2]
	var toolResults []string
	for _, msg := range third {
		if msg.Role != llms.ChatMessageTypeTool {
			continue
		}
		for _, part := range msg.Parts {
			if tr, ok := part.(llms.ToolCallResponse); ok {
				toolResults = append(toolResults, tr.Content)
			}
		}
	}
	require.Len(t, toolResults, 2)
	assert.Equal(t, "Anna", toolResults[1])
}

func TestCalculatorAgent(t *testing.T) {
	model := llmtest.NewFakeModel(
		llmtest.ToolCallResponse("calculate", `{"input": "mul 25 16"}`),
		llmtest.TextResponse("25 times 16 is 400."),
	)

	agent, err := NewCalculator(model)
	require.NoError(t, err)

	reply, err := agent.Run(context.Background(), "What is 25 * 16?")
	require.NoError(t, err)
	assert.Equal(t, "25 times 16 is 400.", reply)

	// The tool actually ran: its result reached the second model call.
	second := model.Requests[1]
	found := false
	for _, msg := range second {
		for _, part := range msg.Parts {
			if tr, ok := part.(llms.ToolCallResponse); ok && tr.Content == "400" {
				found = true
			}
		}
	}
	assert.True(t, found, "calculator result should be in the transcript")
}

func TestAgentDirectReply(t *testing.T) {
	model := llmtest.NewFakeModel(llmtest.TextResponse("No tools needed."))

	agent, err := NewCalculator(model)
	require.NoError(t, err)

	reply, err := agent.Run(context.Background(), "Say hi")
	require.NoError(t, err)
	assert.Equal(t, "No tools needed.", reply)
}

func TestAgentModelError(t *testing.T) {
	agent, err := NewCalculator(llmtest.NewFailingModel(errors.New("down")))
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), "1+1")
	assert.ErrorContains(t, err, "agent run")
}
