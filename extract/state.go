package extract

// Message is one turn of the extraction conversation. The transcript is
// kept as plain role/content pairs so checkpoints serialize cleanly
// through JSON-backed stores.
type Message struct {
	Role    string `json:"role"` // RoleHuman or RoleAI
	Content string `json:"content"`
}

const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// State is the graph state for the extraction loop.
type State struct {
	// Messages is the running transcript between user and agent.
	Messages []Message `json:"messages"`

	// Record is the current extraction candidate.
	Record *Record `json:"record,omitempty"`

	// Satisfied is the reviewer's verdict: nil until feedback arrives.
	Satisfied *bool `json:"satisfied,omitempty"`

	// OriginalText is the input the extraction was produced from.
	OriginalText string `json:"original_text,omitempty"`

	// LastFeedbackID marks the most recently consumed feedback so a
	// resume value is never applied twice when the loop re-enters review.
	LastFeedbackID string `json:"last_feedback_id,omitempty"`

	// Attempts counts consecutive extraction calls that produced no
	// record; it resets on every successful extraction.
	Attempts int `json:"attempts,omitempty"`

	// Done is set once the record has been finalized.
	Done bool `json:"done,omitempty"`
}

func (s *State) addHuman(text string) {
	s.Messages = append(s.Messages, Message{Role: RoleHuman, Content: text})
}

func (s *State) addAI(text string) {
	s.Messages = append(s.Messages, Message{Role: RoleAI, Content: text})
}

// LastMessage returns the newest message, or a zero Message when empty.
func (s *State) LastMessage() Message {
	if len(s.Messages) == 0 {
		return Message{}
	}
	return s.Messages[len(s.Messages)-1]
}

// lastHumanMessage returns the newest human turn, scanning backwards.
func (s *State) lastHumanMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleHuman {
			return s.Messages[i].Content
		}
	}
	return ""
}

func (s *State) setVerdict(v bool) {
	s.Satisfied = &v
}
