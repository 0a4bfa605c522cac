package extract

import (
	"context"

	"github.com/smallnest/langgraphgo/graph"
	"github.com/tmc/langchaingo/llms"
)

// NewGraph builds and compiles the extraction graph:
//
//	generate -> await_feedback -> (generate | finalize) -> END
//
// await_feedback interrupts until a Feedback resume value arrives.
func NewGraph(model llms.Model) (*graph.StateRunnable[State], error) {
	n := &nodes{model: model}

	g := graph.NewStateGraph[State]()
	g.AddNode(nodeGenerate, "Extract a structured record from the user text", n.generate)
	g.AddNode(nodeReview, "Collect human feedback on the extracted record", n.review)
	g.AddNode(nodeFinalize, "Summarize and finalize the approved record", n.finalize)

	g.SetEntryPoint(nodeGenerate)
	g.AddEdge(nodeGenerate, nodeReview)
	g.AddConditionalEdge(nodeReview, routeOnFeedback)
	g.AddEdge(nodeFinalize, graph.END)

	return g.Compile()
}

// routeOnFeedback selects the next node from the reviewer's verdict.
func routeOnFeedback(_ context.Context, s State) string {
	switch {
	case s.Satisfied == nil:
		return nodeGenerate
	case *s.Satisfied:
		return nodeFinalize
	default:
		return nodeGenerate
	}
}
