// Package swarm implements a lightweight multi-agent orchestration loop
// over the OpenAI chat completions API. Agents expose functions to the
// model; a function may return a different agent, which hands the
// conversation off to it mid-run.
package swarm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kataras/golog"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultMaxTurns caps the number of model calls in a single run.
const DefaultMaxTurns = 10

// ContextVariables is shared mutable state visible to instructions and
// functions across handoffs.
type ContextVariables map[string]any

// Result is what an agent function returns: a value for the model, an
// optional agent to hand the conversation to, and context updates.
type Result struct {
	Value   string
	Agent   *Agent
	Context ContextVariables
}

// Function is a callable exposed to the agent's model.
type Function struct {
	Name        string
	Description string

	// Parameters is the JSON schema of the arguments, nil for none.
	Parameters map[string]any

	// Fn receives the decoded arguments and the current context variables.
	Fn func(ctx context.Context, args map[string]any, vars ContextVariables) (Result, error)
}

// Agent is one participant in the swarm.
type Agent struct {
	Name  string
	Model string

	// Instructions renders the system prompt from the current context
	// variables before every model call.
	Instructions func(vars ContextVariables) string

	Functions []Function
}

func (a *Agent) function(name string) (Function, bool) {
	for _, f := range a.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return Function{}, false
}

func (a *Agent) tools() []openai.Tool {
	if len(a.Functions) == 0 {
		return nil
	}
	tools := make([]openai.Tool, 0, len(a.Functions))
	for _, f := range a.Functions {
		params := f.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        f.Name,
				Description: f.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

// ChatClient is the slice of the OpenAI client the runner needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Runner drives agents until the model produces a plain reply.
type Runner struct {
	client   ChatClient
	maxTurns int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMaxTurns overrides DefaultMaxTurns.
func WithMaxTurns(n int) RunnerOption {
	return func(r *Runner) { r.maxTurns = n }
}

// NewRunner builds a runner on the given chat client.
func NewRunner(client ChatClient, opts ...RunnerOption) *Runner {
	r := &Runner{client: client, maxTurns: DefaultMaxTurns}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Response is the outcome of one run.
type Response struct {
	// Messages holds the new messages produced during the run, tool
	// traffic included.
	Messages []openai.ChatCompletionMessage

	// Agent is the agent that produced the final reply.
	Agent *Agent

	// Context holds the context variables after all function updates.
	Context ContextVariables
}

// LastContent returns the final assistant reply, or "".
func (r *Response) LastContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		m := r.Messages[i]
		if m.Role == openai.ChatMessageRoleAssistant && m.Content != "" {
			return m.Content
		}
	}
	return ""
}

// Run executes the conversation starting at agent. Handoffs switch the
// active agent; the loop ends when the model answers without calling a
// function or the turn cap is hit.
func (r *Runner) Run(ctx context.Context, agent *Agent, history []openai.ChatCompletionMessage, vars ContextVariables) (*Response, error) {
	if agent == nil {
		return nil, fmt.Errorf("swarm: nil agent")
	}
	if vars == nil {
		vars = ContextVariables{}
	}

	active := agent
	messages := append([]openai.ChatCompletionMessage(nil), history...)
	var produced []openai.ChatCompletionMessage

	for turn := 0; turn < r.maxTurns; turn++ {
		req := openai.ChatCompletionRequest{
			Model:    active.Model,
			Messages: append([]openai.ChatCompletionMessage{systemMessage(active, vars)}, messages...),
			Tools:    active.tools(),
		}

		resp, err := r.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("swarm: completion for %s: %w", active.Name, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("swarm: completion for %s returned no choices", active.Name)
		}

		msg := resp.Choices[0].Message
		msg.Name = messageName(active.Name)
		messages = append(messages, msg)
		produced = append(produced, msg)

		if len(msg.ToolCalls) == 0 {
			return &Response{Messages: produced, Agent: active, Context: vars}, nil
		}

		for _, call := range msg.ToolCalls {
			toolMsg, next, err := r.invoke(ctx, active, call, vars)
			if err != nil {
				return nil, err
			}
			messages = append(messages, toolMsg)
			produced = append(produced, toolMsg)
			if next != nil {
				golog.Infof("swarm: handoff %s -> %s", active.Name, next.Name)
				active = next
			}
		}
	}

	return nil, fmt.Errorf("swarm: no final reply after %d turns", r.maxTurns)
}

func (r *Runner) invoke(ctx context.Context, agent *Agent, call openai.ToolCall, vars ContextVariables) (openai.ChatCompletionMessage, *Agent, error) {
	fn, ok := agent.function(call.Function.Name)
	if !ok {
		return openai.ChatCompletionMessage{}, nil,
			fmt.Errorf("swarm: %s called unknown function %q", agent.Name, call.Function.Name)
	}

	args := map[string]any{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return openai.ChatCompletionMessage{}, nil,
				fmt.Errorf("swarm: decode arguments for %s: %w", fn.Name, err)
		}
	}

	res, err := fn.Fn(ctx, args, vars)
	if err != nil {
		return openai.ChatCompletionMessage{}, nil,
			fmt.Errorf("swarm: function %s: %w", fn.Name, err)
	}

	for k, v := range res.Context {
		vars[k] = v
	}

	value := res.Value
	if value == "" && res.Agent != nil {
		value = fmt.Sprintf("Transferred to %s.", res.Agent.Name)
	}

	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    value,
		Name:       fn.Name,
		ToolCallID: call.ID,
	}, res.Agent, nil
}

// messageName renders an agent name for the chat message name field,
// which the API restricts to [A-Za-z0-9_-].
func messageName(name string) string {
	out := []byte(name)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9', c == '_', c == '-':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

func systemMessage(a *Agent, vars ContextVariables) openai.ChatCompletionMessage {
	content := "You are a helpful agent."
	if a.Instructions != nil {
		content = a.Instructions(vars)
	}
	return openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: content,
	}
}
