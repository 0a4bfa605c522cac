package swarm

import (
	"context"
	"fmt"
)

// Demo holds the three demo agents wired with their handoff functions.
type Demo struct {
	Assistant *Agent
	Finnish   *Agent
	Weather   *Agent
}

// demoWeather is a static lookup standing in for a real weather API.
var demoWeather = map[string]string{
	"New York": "Sunny, 75°F",
	"London":   "Rainy, 60°F",
	"Tokyo":    "Cloudy, 70°F",
	"Sydney":   "Clear, 80°F",
	"Helsinki": "Snow, 25°F",
}

// NewDemo builds the demo trio: a main assistant, a Finnish-only agent,
// and a weather expert. Transfer functions hand the conversation
// between them.
func NewDemo(model string) *Demo {
	d := &Demo{}

	transferToFinnish := Function{
		Name:        "transfer_to_finnish",
		Description: "Transfer the conversation to the Finnish-speaking agent.",
		Fn: func(_ context.Context, _ map[string]any, _ ContextVariables) (Result, error) {
			return Result{Agent: d.Finnish}, nil
		},
	}
	transferToWeather := Function{
		Name:        "transfer_to_weather",
		Description: "Transfer the conversation to the weather agent.",
		Fn: func(_ context.Context, _ map[string]any, _ ContextVariables) (Result, error) {
			return Result{Agent: d.Weather}, nil
		},
	}
	transferToAssistant := Function{
		Name:        "transfer_to_assistant",
		Description: "Transfer back to the main assistant agent.",
		Fn: func(_ context.Context, _ map[string]any, _ ContextVariables) (Result, error) {
			return Result{Agent: d.Assistant}, nil
		},
	}

	updateUserInfo := Function{
		Name:        "update_user_info",
		Description: "Update the user's name and location in the shared context.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":     map[string]any{"type": "string", "description": "Name of the user."},
				"location": map[string]any{"type": "string", "description": "Location of the user."},
			},
			"required": []string{"name"},
		},
		Fn: func(_ context.Context, args map[string]any, _ ContextVariables) (Result, error) {
			name, _ := args["name"].(string)
			if name == "" {
				return Result{}, fmt.Errorf("name not provided")
			}
			update := ContextVariables{"user_name": name}
			if location, _ := args["location"].(string); location != "" {
				update["location"] = location
			}
			return Result{
				Value:   "User information updated successfully.",
				Context: update,
			}, nil
		},
	}

	getWeather := Function{
		Name:        "get_weather",
		Description: "Get the weather for a location.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{"type": "string", "description": "The location to get weather for."},
			},
			"required": []string{"location"},
		},
		Fn: func(_ context.Context, args map[string]any, _ ContextVariables) (Result, error) {
			location, _ := args["location"].(string)
			if location == "" {
				return Result{Value: "Please specify a location to check the weather."}, nil
			}
			report, ok := demoWeather[location]
			if !ok {
				report = fmt.Sprintf("Weather data not available for %s", location)
			}
			return Result{Value: fmt.Sprintf("The current weather in %s is: %s", location, report)}, nil
		},
	}

	d.Assistant = &Agent{
		Name:  "Assistant",
		Model: model,
		Instructions: func(vars ContextVariables) string {
			return fmt.Sprintf(`You are a helpful assistant.
If the user wants to speak in Finnish or mentions Finland, transfer to the Finnish-speaking agent.
If the user asks about weather information, transfer to the weather agent.
You can update user information using the update_user_info function.
Current user info: %s from %s`,
				stringVar(vars, "user_name", "Unknown"),
				stringVar(vars, "location", "Unknown location"))
		},
		Functions: []Function{transferToFinnish, transferToWeather, updateUserInfo},
	}

	d.Finnish = &Agent{
		Name:  "Finnish Agent",
		Model: model,
		Instructions: func(vars ContextVariables) string {
			return fmt.Sprintf(`You are a helpful agent who speaks ONLY in Finnish.
Always respond in Finnish, regardless of the language the user is using.
Current user: %s from %s
If the user wants to stop speaking Finnish, transfer them back to the main assistant.`,
				stringVar(vars, "user_name", "friend"),
				stringVar(vars, "location", "somewhere"))
		},
		Functions: []Function{transferToAssistant},
	}

	d.Weather = &Agent{
		Name:  "Weather Expert",
		Model: model,
		Instructions: func(vars ContextVariables) string {
			return fmt.Sprintf(`You are a weather expert who helps users find weather information.
You have access to the get_weather function to check current conditions.
Current user: %s from %s
If the user wants to discuss something other than weather, transfer them back to the assistant.`,
				stringVar(vars, "user_name", "visitor"),
				stringVar(vars, "location", "unknown location"))
		},
		Functions: []Function{getWeather, transferToAssistant},
	}

	return d
}

func stringVar(vars ContextVariables, key, fallback string) string {
	if v, ok := vars[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
