package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// AsJSON runs a single-turn structured-output call: the model answers in
// JSON mode and the response is decoded into out. Markdown code fences
// around the payload are tolerated.
func AsJSON(ctx context.Context, model llms.Model, prompt string, out any) error {
	resp, err := model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithJSONMode(),
	)
	if err != nil {
		return fmt.Errorf("structured output call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("structured output returned no choices")
	}

	payload := stripFences(resp.Choices[0].Content)
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
