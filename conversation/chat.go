// Package conversation implements a topic quiz as an interruptible
// graph: the model generates an engaging question about a configured
// topic, the graph pauses for the human's answer, and the loop
// continues until three questions have been answered or the human
// types "exit".
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kataras/golog"
	"github.com/smallnest/langgraphgo/graph"
	"github.com/tmc/langchaingo/llms"
)

const (
	nodeAsk      = "ask_question"
	nodeAnswer   = "await_answer"
	nodeEvaluate = "evaluate"

	// DefaultMaxRounds is the number of question/answer pairs.
	DefaultMaxRounds = 3

	exitWord = "exit"
)

// Outcomes reported by Result once the conversation is over.
const (
	ResultComplete    = "Conversation complete!"
	ResultEndedByUser = "Conversation ended by user"
)

// ErrEnded is returned when an answer arrives after the conversation
// has finished.
var ErrEnded = errors.New("conversation: chat already ended")

// Turn is one question/answer pair.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// State is the graph state for the quiz loop.
type State struct {
	Topic     string `json:"topic"`
	Turns     []Turn `json:"turns"`
	MaxRounds int    `json:"max_rounds"`
	Ended     bool   `json:"ended"`
	Result    string `json:"result,omitempty"`

	// Question is the question currently awaiting an answer.
	Question string `json:"question,omitempty"`

	// LastAnswerID marks the most recently consumed resume value.
	LastAnswerID string `json:"last_answer_id,omitempty"`
}

// Prompt is the interrupt payload presenting the model's question.
type Prompt struct {
	Question string `json:"question"`
	Round    int    `json:"round"`
	Rounds   int    `json:"rounds"`
}

// answer is the resume value carrying the human's reply.
type answer struct {
	ID   string
	Text string
}

type nodes struct {
	model llms.Model
}

// ask has the model generate the next question about the topic.
func (n *nodes) ask(ctx context.Context, s State) (State, error) {
	resp, err := n.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem,
			"Generate engaging questions about the given topic."),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf("Ask a question about %s", s.Topic)),
	})
	if err != nil {
		return s, fmt.Errorf("question call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return s, fmt.Errorf("question call returned no choices")
	}

	s.Question = resp.Choices[0].Content
	return s, nil
}

// awaitAnswer pauses until the human answers the pending question. A
// resume value is consumed at most once.
func (n *nodes) awaitAnswer(ctx context.Context, s State) (State, error) {
	if a, ok := graph.GetResumeValue(ctx).(answer); ok && a.ID != "" && a.ID != s.LastAnswerID {
		s.LastAnswerID = a.ID
		text := strings.TrimSpace(a.Text)
		if strings.EqualFold(text, exitWord) {
			s.Ended = true
			s.Result = ResultEndedByUser
			return s, nil
		}
		s.Turns = append(s.Turns, Turn{Question: s.Question, Answer: text})
		s.Question = ""
		return s, nil
	}

	return s, &graph.NodeInterrupt{Value: Prompt{
		Question: s.Question,
		Round:    len(s.Turns) + 1,
		Rounds:   s.MaxRounds,
	}}
}

// evaluate ends the quiz once enough pairs have been collected.
func (n *nodes) evaluate(_ context.Context, s State) (State, error) {
	if len(s.Turns) >= s.MaxRounds {
		s.Ended = true
		s.Result = ResultComplete
	}
	return s, nil
}

// NewGraph builds and compiles the quiz graph:
//
//	ask_question -> await_answer -> evaluate -> (ask_question | END)
func NewGraph(model llms.Model) (*graph.StateRunnable[State], error) {
	n := &nodes{model: model}

	g := graph.NewStateGraph[State]()
	g.AddNode(nodeAsk, "Generate a question about the topic", n.ask)
	g.AddNode(nodeAnswer, "Wait for the human's answer", n.awaitAnswer)
	g.AddNode(nodeEvaluate, "Check whether the quiz is complete", n.evaluate)

	g.SetEntryPoint(nodeAsk)
	g.AddEdge(nodeAsk, nodeAnswer)
	g.AddConditionalEdge(nodeAnswer, func(_ context.Context, s State) string {
		if s.Ended {
			return graph.END
		}
		return nodeEvaluate
	})
	g.AddConditionalEdge(nodeEvaluate, func(_ context.Context, s State) string {
		if s.Ended {
			return graph.END
		}
		return nodeAsk
	})

	return g.Compile()
}

// Chat drives the graph for one conversation, holding the paused state
// between interrupts.
type Chat struct {
	runnable *graph.StateRunnable[State]

	state  State
	paused string // node the graph paused at, empty once ended
	active bool
}

// NewChat compiles the quiz graph for a topic. A round limit of zero
// uses DefaultMaxRounds.
func NewChat(model llms.Model, topic string, maxRounds int) (*Chat, error) {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	runnable, err := NewGraph(model)
	if err != nil {
		return nil, fmt.Errorf("compile chat graph: %w", err)
	}
	return &Chat{
		runnable: runnable,
		state:    State{Topic: topic, MaxRounds: maxRounds},
	}, nil
}

// Start begins the conversation and returns the first question.
func (c *Chat) Start(ctx context.Context) (*Prompt, error) {
	if c.active || c.state.Ended {
		return nil, ErrEnded
	}
	c.active = true
	return c.run(ctx, nil)
}

// Answer feeds the human's reply into the paused graph. It returns the
// next question, or nil once the conversation has ended.
func (c *Chat) Answer(ctx context.Context, text string) (*Prompt, error) {
	if !c.active || c.paused == "" {
		return nil, ErrEnded
	}

	cfg := &graph.Config{
		ResumeFrom:  []string{c.paused},
		ResumeValue: answer{ID: uuid.NewString(), Text: text},
	}
	return c.run(ctx, cfg)
}

// State returns a copy of the conversation state.
func (c *Chat) State() State {
	return c.state
}

// Result reports how the conversation ended, or "" while running.
func (c *Chat) Result() string {
	return c.state.Result
}

// Ended reports whether the conversation has finished.
func (c *Chat) Ended() bool {
	return c.state.Ended && c.paused == ""
}

func (c *Chat) run(ctx context.Context, cfg *graph.Config) (*Prompt, error) {
	res, err := c.runnable.InvokeWithConfig(ctx, c.state, cfg)
	if err != nil {
		var gi *graph.GraphInterrupt
		if !errors.As(err, &gi) {
			return nil, err
		}

		if st, ok := gi.State.(State); ok {
			c.state = st
		}
		prompt, ok := gi.InterruptValue.(Prompt)
		if !ok {
			return nil, fmt.Errorf("unexpected interrupt value %T", gi.InterruptValue)
		}
		c.paused = gi.Node
		return &prompt, nil
	}

	c.state = res
	c.paused = ""
	golog.Debugf("conversation: ended after %d turn(s): %s", len(c.state.Turns), c.state.Result)
	return nil, nil
}
