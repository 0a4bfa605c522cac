package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/golog"
	"github.com/smallnest/langgraphgo/graph"
	"github.com/smallnest/langgraphgo/store"
	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrNotStarted is returned when resuming a thread with no saved state.
	ErrNotStarted = errors.New("extract: session not started")

	// ErrCompleted is returned when feedback arrives after finalization.
	ErrCompleted = errors.New("extract: session already completed")
)

// Session runs the extraction graph for one conversation thread,
// persisting state to a checkpoint store across the feedback interrupt so
// an interrupted run can be resumed later, possibly by another process
// when a durable store backs it.
type Session struct {
	runnable *graph.StateRunnable[State]
	store    store.CheckpointStore
	threadID string
}

// Option configures a Session.
type Option func(*Session)

// WithStore replaces the default in-memory checkpoint store.
func WithStore(cs store.CheckpointStore) Option {
	return func(s *Session) { s.store = cs }
}

// WithThreadID pins the conversation thread ID instead of generating one.
func WithThreadID(id string) Option {
	return func(s *Session) { s.threadID = id }
}

// NewSession compiles the extraction graph and prepares a thread.
func NewSession(model llms.Model, opts ...Option) (*Session, error) {
	runnable, err := NewGraph(model)
	if err != nil {
		return nil, fmt.Errorf("compile extraction graph: %w", err)
	}

	s := &Session{
		runnable: runnable,
		store:    graph.NewMemoryCheckpointStore(),
		threadID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ThreadID returns the conversation thread identifier.
func (s *Session) ThreadID() string {
	return s.threadID
}

// Outcome is the result of one graph run: either a pending review request
// or a completed extraction.
type Outcome struct {
	// State is the graph state after the run.
	State State

	// Pending is non-nil while the graph is waiting for feedback.
	Pending *ReviewRequest
}

// Completed reports whether the extraction has been finalized.
func (o *Outcome) Completed() bool {
	return o.Pending == nil
}

// Start begins the extraction for the given user text. It returns a
// pending outcome carrying the review request once the graph interrupts.
func (s *Session) Start(ctx context.Context, text string) (*Outcome, error) {
	var initial State
	initial.addHuman(text)
	return s.run(ctx, initial, nil)
}

// Resume feeds reviewer feedback into the interrupted graph. Fresh
// feedback gets a unique ID so it is consumed exactly once even when the
// loop passes through review again in the same run.
func (s *Session) Resume(ctx context.Context, fb Feedback) (*Outcome, error) {
	cp, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	if cp.NodeName == "" {
		return nil, ErrCompleted
	}

	st, err := decodeState(cp.State)
	if err != nil {
		return nil, err
	}

	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}

	cfg := &graph.Config{
		ResumeFrom:   []string{cp.NodeName},
		ResumeValue:  fb,
		Configurable: map[string]any{"thread_id": s.threadID},
	}
	return s.run(ctx, st, cfg)
}

func (s *Session) run(ctx context.Context, st State, cfg *graph.Config) (*Outcome, error) {
	res, err := s.runnable.InvokeWithConfig(ctx, st, cfg)
	if err != nil {
		var gi *graph.GraphInterrupt
		if !errors.As(err, &gi) {
			return nil, err
		}

		pending, err := decodeState(gi.State)
		if err != nil {
			return nil, err
		}
		req, ok := gi.InterruptValue.(ReviewRequest)
		if !ok {
			return nil, fmt.Errorf("unexpected interrupt value %T", gi.InterruptValue)
		}

		if err := s.checkpoint(ctx, gi.Node, pending); err != nil {
			return nil, err
		}
		golog.Debugf("extract: thread %s paused at %s", s.threadID, gi.Node)
		return &Outcome{State: pending, Pending: &req}, nil
	}

	// Empty node name marks the thread complete.
	if err := s.checkpoint(ctx, "", res); err != nil {
		return nil, err
	}
	golog.Debugf("extract: thread %s completed", s.threadID)
	return &Outcome{State: res}, nil
}

func (s *Session) checkpoint(ctx context.Context, node string, st State) error {
	version := 1
	if cps, err := s.store.List(ctx, s.threadID); err == nil {
		for _, cp := range cps {
			if cp.Version >= version {
				version = cp.Version + 1
			}
		}
	}

	cp := &store.Checkpoint{
		ID:        "checkpoint_" + uuid.NewString(),
		NodeName:  node,
		State:     st,
		Timestamp: time.Now(),
		Version:   version,
		Metadata: map[string]any{
			"execution_id": s.threadID,
			"thread_id":    s.threadID,
		},
	}
	if err := s.store.Save(ctx, cp); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (s *Session) latest(ctx context.Context) (*store.Checkpoint, error) {
	cps, err := s.store.List(ctx, s.threadID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	if len(cps) == 0 {
		return nil, ErrNotStarted
	}

	latest := cps[0]
	for _, cp := range cps {
		if cp.Version > latest.Version {
			latest = cp
		}
	}
	return latest, nil
}

// decodeState recovers a State from a checkpoint payload. JSON-backed
// stores hand back generic maps after a round trip, so fall back to
// re-marshalling when the direct type assertion fails.
func decodeState(v any) (State, error) {
	switch st := v.(type) {
	case State:
		return st, nil
	case *State:
		return *st, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}
