// Package building estimates building characteristics for an address with a
// generative model. Results are estimates only; nothing here checks them.
package building

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dq-cli/pkg/anthropic"
)

// Estimator returns building attributes for an address.
type Estimator interface {
	Estimate(ctx context.Context, address, postalCode string) (*Attributes, error)
}

// ErrMissingInput is returned when address or postal code is blank.
var ErrMissingInput = eris.New("building: address and postal code are required")

// Value is an attribute value. Models return stories and years either as
// numbers or strings ("2-3", "ca. 1970"); both decode to text.
type Value string

// UnmarshalJSON accepts a string, a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return eris.Errorf("building: value %s is neither string nor number", data)
		}
		*v = Value(n.String())
	}
	return nil
}

// Int returns the value as an integer if it is one.
func (v Value) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(string(v)))
	return n, err == nil
}

// Attributes are the estimated building characteristics.
type Attributes struct {
	ConstructionType Value `json:"ConstructionType"`
	Occupancy        Value `json:"Occupancy"`
	Stories          Value `json:"Stories"`
	YearBuilt        Value `json:"YearBuilt"`
}

// ParseError is returned when the model's answer is not valid JSON. Raw holds
// the answer after code-fence stripping.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return "building: invalid JSON from estimator: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// MarshalJSON renders the error the way API clients expect it.
func (e *ParseError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"error": "Invalid JSON", "raw_output": e.Raw})
}

const promptTemplate = `You are an insurance data assistant.
Given an address and postal code in %s, return estimated building characteristics.

Input:
Address: %s
Postal: %s

Output strictly in JSON only.
Keys: ConstructionType, Occupancy, Stories, YearBuilt.`

// Defaults for the Claude estimator.
const (
	DefaultModel     = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens = 300
)

// ClaudeEstimator asks a Claude model for the attributes.
type ClaudeEstimator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	country   string
}

var _ Estimator = (*ClaudeEstimator)(nil)

// Option configures a ClaudeEstimator.
type Option func(*ClaudeEstimator)

// WithModel sets the model ID.
func WithModel(model string) Option {
	return func(e *ClaudeEstimator) {
		if model != "" {
			e.model = model
		}
	}
}

// WithMaxTokens caps the answer length.
func WithMaxTokens(n int64) Option {
	return func(e *ClaudeEstimator) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithCountry sets the country named in the prompt.
func WithCountry(country string) Option {
	return func(e *ClaudeEstimator) {
		if country != "" {
			e.country = country
		}
	}
}

// NewClaudeEstimator creates an estimator backed by client.
func NewClaudeEstimator(client anthropic.Client, opts ...Option) *ClaudeEstimator {
	e := &ClaudeEstimator{
		client:    client,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
		country:   "Germany",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate implements Estimator. A malformed answer yields a *ParseError.
func (e *ClaudeEstimator) Estimate(ctx context.Context, address, postalCode string) (*Attributes, error) {
	address, postalCode = strings.TrimSpace(address), strings.TrimSpace(postalCode)
	if address == "" || postalCode == "" {
		return nil, ErrMissingInput
	}

	temp := 0.0
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(promptTemplate, e.country, address, postalCode)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "building: estimate")
	}
	resp.Usage.LogCost(e.model, "building")

	attrs, err := Parse(resp.Text())
	if err != nil {
		zap.L().Warn("building: unparseable model answer", zap.String("address", address), zap.Error(err))
		return nil, err
	}
	return attrs, nil
}

// Parse decodes a model answer, tolerating a surrounding markdown code fence.
func Parse(raw string) (*Attributes, error) {
	cleaned := StripCodeFence(raw)
	var attrs Attributes
	if err := json.Unmarshal([]byte(cleaned), &attrs); err != nil {
		return nil, &ParseError{Raw: cleaned, Err: err}
	}
	return &attrs, nil
}

// StripCodeFence removes a leading ``` or ```json line and a trailing ```.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string ("json") on the opening line.
		if !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
