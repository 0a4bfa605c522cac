package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redisstore "github.com/smallnest/langgraphgo/store/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/GAIK-project/ai-agents-go/internal/llmtest"
)

const tripArgs = `{
	"data_type": "reservation",
	"primary_entity": "New York",
	"attributes": {"purpose": "trip"},
	"datetime": "2024-12-25",
	"tags": ["travel"]
}`

func promptText(t *testing.T, messages []llms.MessageContent) string {
	t.Helper()
	require.NotEmpty(t, messages)
	require.NotEmpty(t, messages[0].Parts)
	text, ok := messages[0].Parts[0].(llms.TextContent)
	require.True(t, ok, "first part should be text")
	return text.Text
}

func TestRecordValidate(t *testing.T) {
	rec := Record{Kind: "reservation", Entity: "New York"}
	assert.NoError(t, rec.Validate())

	assert.Error(t, (&Record{Entity: "x"}).Validate())
	assert.Error(t, (&Record{Kind: "x"}).Validate())
	assert.Error(t, (&Record{Kind: "x", Entity: "y", Priority: 9}).Validate())

	rec.Priority = 3
	assert.NoError(t, rec.Validate())
}

func TestParseRecord(t *testing.T) {
	rec, err := parseRecord(tripArgs)
	require.NoError(t, err)
	assert.Equal(t, "reservation", rec.Kind)
	assert.Equal(t, "New York", rec.Entity)
	assert.Equal(t, "2024-12-25", rec.When)
	assert.Equal(t, []string{"travel"}, rec.Tags)

	_, err = parseRecord("{not json")
	assert.Error(t, err)

	_, err = parseRecord(`{"data_type": "reservation"}`)
	assert.ErrorContains(t, err, "primary_entity")
}

func TestRouteOnFeedback(t *testing.T) {
	ctx := context.Background()

	var s State
	assert.Equal(t, nodeGenerate, routeOnFeedback(ctx, s))

	s.setVerdict(false)
	assert.Equal(t, nodeGenerate, routeOnFeedback(ctx, s))

	s.setVerdict(true)
	assert.Equal(t, nodeFinalize, routeOnFeedback(ctx, s))
}

func TestSessionApprovalLoop(t *testing.T) {
	ctx := context.Background()
	model := llmtest.NewFakeModel(
		llmtest.ToolCallResponse(extractionToolName, `{"data_type":"reservation","primary_entity":"New York"}`),
		llmtest.ToolCallResponse(extractionToolName, tripArgs),
	)

	session, err := NewSession(model, WithThreadID("test-thread-1"))
	require.NoError(t, err)
	assert.Equal(t, "test-thread-1", session.ThreadID())

	// 1. Start: extraction runs, then the graph pauses for review.
	out, err := session.Start(ctx, "I want to book a trip to New York on December 25, 2024")
	require.NoError(t, err)
	require.NotNil(t, out.Pending)
	assert.False(t, out.Completed())
	assert.Equal(t, "Are you satisfied with this structured data?", out.Pending.Question)
	assert.Equal(t, "New York", out.Pending.Record.Entity)
	assert.Equal(t, "I want to book a trip to New York on December 25, 2024", out.Pending.OriginalText)

	// 2. Reject with feedback: the record is regenerated and review pauses again.
	out, err = session.Resume(ctx, Feedback{Satisfied: false, Notes: "add datetime 2024-12-25"})
	require.NoError(t, err)
	require.NotNil(t, out.Pending)
	assert.Equal(t, "2024-12-25", out.Pending.Record.When)

	// The regeneration prompt carries the reviewer's feedback.
	require.Len(t, model.Requests, 2)
	regen := promptText(t, model.Requests[1])
	assert.Contains(t, regen, "User feedback: add datetime 2024-12-25")
	assert.Contains(t, regen, "I want to book a trip to New York")

	// 3. Accept: the record is finalized.
	out, err = session.Resume(ctx, Feedback{Satisfied: true})
	require.NoError(t, err)
	assert.True(t, out.Completed())
	assert.True(t, out.State.Done)

	last := out.State.LastMessage()
	assert.Equal(t, RoleAI, last.Role)
	assert.Contains(t, last.Content, `Successfully processed reservation data for "New York"`)
	assert.Contains(t, last.Content, "2024-12-25")
	assert.Contains(t, last.Content, "Tags: travel")

	// 4. Feedback after completion is rejected.
	_, err = session.Resume(ctx, Feedback{Satisfied: true})
	assert.ErrorIs(t, err, ErrCompleted)
}

func TestSessionCorrectedRecord(t *testing.T) {
	ctx := context.Background()
	model := llmtest.NewFakeModel(
		llmtest.ToolCallResponse(extractionToolName, `{"data_type":"contact","primary_entity":"John Doe"}`),
	)

	session, err := NewSession(model)
	require.NoError(t, err)

	out, err := session.Start(ctx, "My contact info: John Doe, phone 555-1234")
	require.NoError(t, err)
	require.NotNil(t, out.Pending)

	corrected := &Record{
		Kind:       "contact",
		Entity:     "John Doe",
		Attributes: map[string]any{"phone": "555-1234"},
	}
	out, err = session.Resume(ctx, Feedback{Satisfied: true, Corrected: corrected})
	require.NoError(t, err)
	assert.True(t, out.Completed())
	require.NotNil(t, out.State.Record)
	assert.Equal(t, "555-1234", out.State.Record.Attributes["phone"])
}

func TestSessionInvalidCorrectionLoopsBack(t *testing.T) {
	ctx := context.Background()
	model := llmtest.NewFakeModel(
		llmtest.ToolCallResponse(extractionToolName, `{"data_type":"contact","primary_entity":"John Doe"}`),
		llmtest.ToolCallResponse(extractionToolName, `{"data_type":"contact","primary_entity":"John Doe"}`),
	)

	session, err := NewSession(model)
	require.NoError(t, err)

	out, err := session.Start(ctx, "My contact info: John Doe")
	require.NoError(t, err)
	require.NotNil(t, out.Pending)

	// A correction failing validation rejects the record and regenerates.
	bad := &Record{Kind: "contact", Entity: "John Doe", Priority: 42}
	out, err = session.Resume(ctx, Feedback{Satisfied: true, Corrected: bad})
	require.NoError(t, err)
	require.NotNil(t, out.Pending, "invalid correction should pause for review again")
	assert.Len(t, model.Requests, 2)
}

func TestSessionModelError(t *testing.T) {
	model := llmtest.NewFailingModel(fmt.Errorf("boom"))

	session, err := NewSession(model)
	require.NoError(t, err)

	_, err = session.Start(context.Background(), "anything")
	assert.ErrorContains(t, err, "extraction call failed")
}

func TestSessionResumeBeforeStart(t *testing.T) {
	session, err := NewSession(llmtest.NewFakeModel())
	require.NoError(t, err)

	_, err = session.Resume(context.Background(), Feedback{Satisfied: true})
	assert.ErrorIs(t, err, ErrNotStarted)
}

// The session survives a process boundary when backed by a durable store:
// a second Session instance on the same thread resumes from Redis.
func TestSessionRedisStoreResume(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	cs := redisstore.NewRedisCheckpointStore(redisstore.RedisOptions{Addr: mr.Addr()})

	first, err := NewSession(
		llmtest.NewFakeModel(llmtest.ToolCallResponse(extractionToolName, tripArgs)),
		WithStore(cs), WithThreadID("redis-thread"),
	)
	require.NoError(t, err)

	out, err := first.Start(ctx, "I want to book a trip to New York on December 25, 2024")
	require.NoError(t, err)
	require.NotNil(t, out.Pending)

	second, err := NewSession(llmtest.NewFakeModel(), WithStore(cs), WithThreadID("redis-thread"))
	require.NoError(t, err)

	out, err = second.Resume(ctx, Feedback{Satisfied: true})
	require.NoError(t, err)
	assert.True(t, out.Completed())
	require.NotNil(t, out.State.Record)
	assert.Equal(t, "reservation", out.State.Record.Kind)
	assert.Equal(t, "New York", out.State.Record.Entity)
}

func TestDecodeStateRoundTrip(t *testing.T) {
	st := State{OriginalText: "hello", Record: &Record{Kind: "info_request", Entity: "Spain"}}
	st.addHuman("hello")

	// Direct type assertion path.
	got, err := decodeState(st)
	require.NoError(t, err)
	assert.Equal(t, st, got)

	// JSON round-trip path, as seen after durable stores reload state.
	got, err = decodeState(map[string]any{
		"messages":      []any{map[string]any{"role": "human", "content": "hello"}},
		"original_text": "hello",
		"record":        map[string]any{"data_type": "info_request", "primary_entity": "Spain"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.OriginalText)
	require.NotNil(t, got.Record)
	assert.Equal(t, "Spain", got.Record.Entity)
}

func TestGenerateWithoutToolCallRejects(t *testing.T) {
	ctx := context.Background()
	// First response has no tool call; the loop should route back through
	// review (which rejects) and regenerate.
	model := llmtest.NewFakeModel(
		llmtest.TextResponse("I cannot help with that."),
		llmtest.ToolCallResponse(extractionToolName, tripArgs),
	)

	session, err := NewSession(model)
	require.NoError(t, err)

	out, err := session.Start(ctx, "book a trip")
	require.NoError(t, err)
	require.NotNil(t, out.Pending)
	assert.Equal(t, "New York", out.Pending.Record.Entity)
	assert.Len(t, model.Requests, 2)
}

func TestGenerateWithoutToolCallGivesUp(t *testing.T) {
	ctx := context.Background()
	// A model that never calls the tool must not spin the
	// generate/review loop forever; the run fails after the cap.
	model := llmtest.NewFakeModel(
		llmtest.TextResponse("I cannot help with that."),
		llmtest.TextResponse("Still refusing."),
		llmtest.TextResponse("No structured data here."),
		llmtest.TextResponse("never reached"),
	)

	session, err := NewSession(model)
	require.NoError(t, err)

	_, err = session.Start(ctx, "book a trip")
	require.Error(t, err)
	assert.ErrorContains(t, err, "no extraction after 3 attempts")
	assert.Len(t, model.Requests, maxAttempts)
}

func TestSessionInvalidToolArguments(t *testing.T) {
	model := llmtest.NewFakeModel(
		llmtest.ToolCallResponse(extractionToolName, `{"data_type":"x"}`),
	)

	session, err := NewSession(model)
	require.NoError(t, err)

	_, err = session.Start(context.Background(), "text")
	assert.ErrorContains(t, err, "invalid extraction")
}

func TestAsJSON(t *testing.T) {
	type cityLocation struct {
		City    string `json:"city"`
		Country string `json:"country"`
	}

	model := llmtest.NewFakeModel(
		llmtest.TextResponse("```json\n{\"city\": \"London\", \"country\": \"United Kingdom\"}\n```"),
	)

	var loc cityLocation
	err := AsJSON(context.Background(), model, "Where were the olympics held in 2012?", &loc)
	require.NoError(t, err)
	assert.Equal(t, "London", loc.City)
	assert.Equal(t, "United Kingdom", loc.Country)
}

func TestAsJSONErrors(t *testing.T) {
	var out map[string]any

	err := AsJSON(context.Background(), llmtest.NewFailingModel(errors.New("down")), "q", &out)
	assert.ErrorContains(t, err, "structured output call failed")

	err = AsJSON(context.Background(), llmtest.NewFakeModel(llmtest.TextResponse("not json")), "q", &out)
	assert.ErrorContains(t, err, "decode structured output")
}
