// Package agents wires the shared toolkit into ready-made ReAct agents.
package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/langgraphgo/graph"
	"github.com/smallnest/langgraphgo/prebuilt"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/duckduckgo"

	"github.com/GAIK-project/ai-agents-go/toolkit"
)

const maxIterations = 10

// Agent runs one ReAct loop with a fixed system prompt and tool set.
type Agent struct {
	runnable *graph.StateRunnable[map[string]any]
	system   string
}

func newAgent(model llms.Model, system string, agentTools []tools.Tool) (*Agent, error) {
	runnable, err := prebuilt.CreateReactAgentMap(model, agentTools, maxIterations)
	if err != nil {
		return nil, fmt.Errorf("build agent: %w", err)
	}
	return &Agent{runnable: runnable, system: system}, nil
}

// Run answers one user query and returns the agent's final reply.
func (a *Agent) Run(ctx context.Context, query string) (string, error) {
	state := map[string]any{
		"messages": []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, a.system),
			llms.TextParts(llms.ChatMessageTypeHuman, query),
		},
	}

	res, err := a.runnable.Invoke(ctx, state)
	if err != nil {
		return "", fmt.Errorf("agent run: %w", err)
	}
	return finalReply(res)
}

// NewDiceGame builds the dice game agent: it rolls a die and checks the
// result against the player's guess, addressing the player by name.
func NewDiceGame(model llms.Model, playerName string) (*Agent, error) {
	return newAgent(model,
		"You're a dice game. Roll the die and check if it matches the user's guess. "+
			"Use the player's name in your reply.",
		[]tools.Tool{
			toolkit.DiceTool{},
			toolkit.PlayerNameTool{PlayerName: playerName},
		})
}

// NewCalculator builds an agent that answers arithmetic questions with
// the calculator tool.
func NewCalculator(model llms.Model) (*Agent, error) {
	return newAgent(model,
		"You are a precise assistant. Use the calculate tool for any arithmetic instead of computing yourself.",
		[]tools.Tool{toolkit.CalculatorTool{}})
}

// NewSearch builds a web research agent on DuckDuckGo search.
func NewSearch(model llms.Model, userAgent string) (*Agent, error) {
	search, err := duckduckgo.New(5, userAgent)
	if err != nil {
		return nil, fmt.Errorf("init search tool: %w", err)
	}
	return newAgent(model,
		"You are a research assistant. Search the web for facts you do not know, then answer concisely.",
		[]tools.Tool{search})
}

// finalReply pulls the last AI text out of the agent state.
func finalReply(state map[string]any) (string, error) {
	messages, ok := state["messages"].([]llms.MessageContent)
	if !ok || len(messages) == 0 {
		return "", errors.New("agents: no messages in state")
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.ChatMessageTypeAI {
			continue
		}
		for _, part := range messages[i].Parts {
			if text, ok := part.(llms.TextContent); ok && text.Text != "" {
				return text.Text, nil
			}
		}
	}
	return "", errors.New("agents: no final reply")
}
