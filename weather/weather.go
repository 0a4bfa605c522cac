// Package weather fetches current conditions from weatherapi.com and
// exposes them to agents as a tool.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kataras/golog"
	"github.com/tmc/langchaingo/tools"
)

// DefaultBaseURL is the weatherapi.com endpoint.
const DefaultBaseURL = "https://api.weatherapi.com/v1"

// Report is the subset of the current conditions response we use.
type Report struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

// Summary renders the report the way the agent presents it.
func (r *Report) Summary() string {
	return fmt.Sprintf("Weather in %s, %s: %g°C, %s",
		r.Location.Name, r.Location.Country, r.Current.TempC, r.Current.Condition.Text)
}

// Client calls the weatherapi.com current conditions endpoint.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient builds a client with the given API key.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current fetches the current conditions for a city.
func (c *Client) Current(ctx context.Context, city string) (*Report, error) {
	if city == "" {
		return nil, fmt.Errorf("weather: city is required")
	}

	q := url.Values{"key": {c.apiKey}, "q": {city}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/current.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: fetch conditions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather: api returned %s", resp.Status)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("weather: decode response: %w", err)
	}

	golog.Debugf("weather: %s", report.Summary())
	return &report, nil
}

// Tool adapts the client to an agent tool. Fetch errors are reported
// as tool output so the model can relay them to the user.
type Tool struct {
	Client *Client
}

var _ tools.Tool = Tool{}

func (Tool) Name() string { return "fetch_weather" }

func (Tool) Description() string {
	return "Fetch current weather for the specified city. Input is the city name."
}

func (t Tool) Call(ctx context.Context, city string) (string, error) {
	report, err := t.Client.Current(ctx, city)
	if err != nil {
		return fmt.Sprintf("Error fetching weather data: %v", err), nil
	}
	return report.Summary(), nil
}
