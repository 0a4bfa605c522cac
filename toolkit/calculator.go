// Package toolkit contains the small callable tools shared by the agent
// examples. Each tool implements langchaingo's tools.Tool so it can be
// registered with a ReAct agent, and the underlying functions are exported
// for use outside the agent loop (the MCP server reuses Calculate).
package toolkit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Calculate applies one of add/sub/mul/div to a and b.
func Calculate(op string, a, b float64) (float64, error) {
	switch op {
	case "add":
		return a + b, nil
	case "sub":
		return a - b, nil
	case "mul":
		return a * b, nil
	case "div":
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	default:
		return 0, fmt.Errorf("unknown operation: %s", op)
	}
}

// CalculatorTool exposes Calculate to an agent as a text tool.
type CalculatorTool struct{}

func (CalculatorTool) Name() string {
	return "calculate"
}

func (CalculatorTool) Description() string {
	return "Simple calculator. Input is 'op a b' where op is one of add, sub, mul, div, e.g. 'mul 25 16'."
}

func (CalculatorTool) Call(_ context.Context, input string) (string, error) {
	parts := strings.Fields(input)
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid input %q, expected 'op a b'", input)
	}

	a, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", fmt.Errorf("invalid operand %q: %w", parts[1], err)
	}
	b, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return "", fmt.Errorf("invalid operand %q: %w", parts[2], err)
	}

	result, err := Calculate(parts[0], a, b)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(result, 'f', -1, 64), nil
}
