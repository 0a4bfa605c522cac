// Package llmtest provides a scripted llms.Model for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeModel replays a fixed sequence of responses and records every
// request it receives.
type FakeModel struct {
	mu        sync.Mutex
	responses []*llms.ContentResponse
	err       error

	// Requests holds the message sets passed to GenerateContent, in order.
	Requests [][]llms.MessageContent
}

var _ llms.Model = (*FakeModel)(nil)

// NewFakeModel builds a model that replays the given responses in order.
func NewFakeModel(responses ...*llms.ContentResponse) *FakeModel {
	return &FakeModel{responses: responses}
}

// NewFailingModel builds a model whose calls always return err.
func NewFailingModel(err error) *FakeModel {
	return &FakeModel{err: err}
}

// Enqueue appends another scripted response.
func (m *FakeModel) Enqueue(resp *llms.ContentResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// GenerateContent pops the next scripted response.
func (m *FakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, messages)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("llmtest: no scripted response for request %d", len(m.Requests))
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// Call implements the deprecated single-prompt entry point.
func (m *FakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llmtest: scripted response has no choices")
	}
	return resp.Choices[0].Content, nil
}

// TextResponse scripts a plain text completion.
func TextResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

// ToolCallResponse scripts a completion that invokes a single tool.
func ToolCallResponse(name, arguments string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:   "call_" + name,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: arguments,
				},
			}},
		}},
	}
}
