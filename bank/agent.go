package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/langgraphgo/prebuilt"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/GAIK-project/ai-agents-go/extract"
)

const maxAgentIterations = 5

// SupportResult is the structured outcome of one support query.
type SupportResult struct {
	// SupportAdvice is the advice given to the customer.
	SupportAdvice string `json:"support_advice"`

	// BlockCard reports whether the customer's cards should be blocked.
	BlockCard bool `json:"block_card"`

	// Risk rates the query from 0 (harmless) to 10 (urgent fraud).
	Risk int `json:"risk"`
}

// Validate checks the risk bounds.
func (r *SupportResult) Validate() error {
	if r.Risk < 0 || r.Risk > 10 {
		return fmt.Errorf("risk %d out of range 0-10", r.Risk)
	}
	return nil
}

// balanceTool exposes the customer's balance to the agent. Errors are
// reported as tool output so the model can relay them.
type balanceTool struct {
	store      *Store
	customerID int
}

func (t balanceTool) Name() string { return "customer_balance" }

func (t balanceTool) Description() string {
	return "Returns the customer's current total balance in dollars. " +
		"Input 'pending' to include pending transactions, 'confirmed' for confirmed only."
}

func (t balanceTool) Call(ctx context.Context, input string) (string, error) {
	includePending := strings.Contains(strings.ToLower(input), "pending")
	balance, err := t.store.CustomerBalance(ctx, t.customerID, includePending)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	return fmt.Sprintf("$%.2f", balance), nil
}

// blockCardsTool lets the agent block the customer's cards.
type blockCardsTool struct {
	store      *Store
	customerID int
}

func (t blockCardsTool) Name() string { return "block_customer_cards" }

func (t blockCardsTool) Description() string {
	return "Blocks all of the customer's active cards. Use when the customer reports a lost or stolen card."
}

func (t blockCardsTool) Call(ctx context.Context, _ string) (string, error) {
	blocked, err := t.store.BlockCards(ctx, t.customerID)
	if err != nil {
		return fmt.Sprintf("Error blocking cards: %v", err), nil
	}
	if blocked {
		return "Cards have been successfully blocked. A new card will be sent to the customer.", nil
	}
	return "No active cards to block.", nil
}

// Agent answers support queries for bank customers.
type Agent struct {
	model llms.Model
	store *Store
}

// NewAgent builds a support agent on the given model and store.
func NewAgent(model llms.Model, store *Store) *Agent {
	return &Agent{model: model, store: store}
}

// Support answers one customer query. The agent may consult the
// balance and block cards via tools; the final reply is then condensed
// into a SupportResult.
func (a *Agent) Support(ctx context.Context, customerID int, query string) (*SupportResult, error) {
	name, err := a.store.CustomerName(ctx, customerID)
	if err != nil {
		return nil, err
	}

	agentTools := []tools.Tool{
		balanceTool{store: a.store, customerID: customerID},
		blockCardsTool{store: a.store, customerID: customerID},
	}
	runnable, err := prebuilt.CreateReactAgentMap(a.model, agentTools, maxAgentIterations)
	if err != nil {
		return nil, fmt.Errorf("build support agent: %w", err)
	}

	system := fmt.Sprintf(
		"You are a bank customer support agent. Provide support to the customer "+
			"and assess the risk level of their query. Use the customer's name in your response. "+
			"The customer's name is %q.", name)

	state := map[string]any{
		"messages": []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, system),
			llms.TextParts(llms.ChatMessageTypeHuman, query),
		},
	}

	res, err := runnable.Invoke(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("support agent run: %w", err)
	}

	advice, err := finalReply(res)
	if err != nil {
		return nil, err
	}

	var result SupportResult
	assessment := fmt.Sprintf(`A bank support agent replied to the customer query %q with:

%s

Summarize this as JSON with fields:
  "support_advice" (string): the advice provided to the customer
  "block_card" (boolean): whether their card should be blocked
  "risk" (integer 0-10): risk level of the query`, query, advice)
	if err := extract.AsJSON(ctx, a.model, assessment, &result); err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("support assessment: %w", err)
	}
	return &result, nil
}

// finalReply pulls the last AI text out of the agent state.
func finalReply(state map[string]any) (string, error) {
	messages, ok := state["messages"].([]llms.MessageContent)
	if !ok || len(messages) == 0 {
		return "", errors.New("bank: agent produced no messages")
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
	return "", errors.New("bank: agent produced no final reply")
}
