package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/langgraphgo/graph"
	"github.com/tmc/langchaingo/llms"
)

const (
	nodeGenerate = "generate"
	nodeReview   = "await_feedback"
	nodeFinalize = "finalize"

	// maxAttempts bounds consecutive extraction calls that yield no
	// record, so a model that never calls the tool cannot keep the
	// generate/review loop spinning within a single run.
	maxAttempts = 3
)

// Feedback is the resume value supplied by the reviewer. ID must be unique
// per submission; Session assigns it.
type Feedback struct {
	ID        string  `json:"id"`
	Satisfied bool    `json:"satisfied"`
	Notes     string  `json:"notes,omitempty"`
	Corrected *Record `json:"corrected,omitempty"`
}

// ReviewRequest is the interrupt payload presented to the reviewer.
type ReviewRequest struct {
	Question     string  `json:"question"`
	Record       *Record `json:"record"`
	OriginalText string  `json:"original_text"`
}

// nodes carries the dependencies of the graph node callbacks.
type nodes struct {
	model llms.Model
}

// generate extracts a Record from the user text. When the previous attempt
// was rejected it regenerates from the original text plus the reviewer's
// latest feedback.
func (n *nodes) generate(ctx context.Context, s State) (State, error) {
	var prompt string
	if s.Satisfied != nil && !*s.Satisfied && s.OriginalText != "" {
		prompt = regeneratePrompt(s.OriginalText, s.lastHumanMessage())
	} else {
		s.OriginalText = s.LastMessage().Content
		prompt = extractPrompt(s.OriginalText)
	}

	resp, err := n.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, prompt)},
		llms.WithTools([]llms.Tool{extractionTool}),
		llms.WithToolChoice(llms.ToolChoice{
			Type:     "function",
			Function: &llms.FunctionReference{Name: extractionToolName},
		}),
	)
	if err != nil {
		return s, fmt.Errorf("extraction call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return s, fmt.Errorf("extraction returned no choices")
	}

	choice := resp.Choices[0]
	if len(choice.ToolCalls) == 0 {
		// Model declined to call the tool; route back through review,
		// which will reject and regenerate, up to maxAttempts times.
		s.Attempts++
		if s.Attempts >= maxAttempts {
			return s, fmt.Errorf("no extraction after %d attempts", s.Attempts)
		}
		s.Record = nil
		s.Satisfied = nil
		s.addAI("I could not extract structured data from that input.")
		return s, nil
	}

	rec, err := parseRecord(choice.ToolCalls[0].FunctionCall.Arguments)
	if err != nil {
		return s, fmt.Errorf("invalid extraction: %w", err)
	}

	s.Attempts = 0
	s.Record = rec
	s.Satisfied = nil
	s.addAI("I've extracted the following structured data:\n```json\n" + rec.JSON() + "\n```")
	return s, nil
}

// review pauses for human feedback on the candidate record. A resume value
// is consumed at most once; when no fresh feedback is available the node
// interrupts with a ReviewRequest.
func (n *nodes) review(ctx context.Context, s State) (State, error) {
	if s.Record == nil {
		s.setVerdict(false)
		return s, nil
	}

	if fb, ok := graph.GetResumeValue(ctx).(Feedback); ok && fb.ID != "" && fb.ID != s.LastFeedbackID {
		s.LastFeedbackID = fb.ID
		return n.applyFeedback(s, fb), nil
	}

	return s, &graph.NodeInterrupt{Value: ReviewRequest{
		Question:     "Are you satisfied with this structured data?",
		Record:       s.Record,
		OriginalText: s.OriginalText,
	}}
}

func (n *nodes) applyFeedback(s State, fb Feedback) State {
	if fb.Satisfied && fb.Corrected != nil {
		if err := fb.Corrected.Validate(); err != nil {
			s.setVerdict(false)
			s.addAI(fmt.Sprintf("Error processing modified data: %v", err))
			return s
		}
		s.Record = fb.Corrected
		s.setVerdict(true)
		s.addAI("Thank you for the corrections! The structured data has been updated.")
		return s
	}

	if fb.Satisfied {
		s.setVerdict(true)
		s.addAI("Thank you! The structured data has been approved.")
		return s
	}

	s.setVerdict(false)
	if fb.Notes != "" {
		s.addHuman(fb.Notes)
	}
	s.addAI("I understand you're not satisfied with the structured data. " +
		"Please provide feedback on what should be improved or corrected.")
	return s
}

// finalize summarizes the approved record and closes the loop.
func (n *nodes) finalize(_ context.Context, s State) (State, error) {
	if s.Record == nil {
		s.addAI("Error: No structured data found.")
		s.Done = true
		return s, nil
	}

	summary := fmt.Sprintf("Successfully processed %s data for %q.", s.Record.Kind, s.Record.Entity)
	if s.Record.When != "" {
		summary += fmt.Sprintf(" Relevant date/time: %s.", s.Record.When)
	}
	if len(s.Record.Tags) > 0 {
		summary += fmt.Sprintf(" Tags: %s.", strings.Join(s.Record.Tags, ", "))
	}

	s.addAI(summary + "\n\nFull structured data:\n```json\n" + s.Record.JSON() + "\n```")
	s.Done = true
	return s, nil
}

func extractPrompt(text string) string {
	return fmt.Sprintf(`Extract structured information from this text: %q.
Identify the type of request, the main entity, and relevant attributes.
If dates are mentioned, include them in ISO format (YYYY-MM-DD).
Add appropriate tags for categorization.
Make sure to include relevant key-value pairs in the attributes field.`, text)
}

func regeneratePrompt(text, feedback string) string {
	return extractPrompt(text) + fmt.Sprintf(`

IMPORTANT: The previous extraction needs improvement.
User feedback: %s
Please update the extraction based on this feedback.`, feedback)
}
