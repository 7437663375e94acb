package building

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dq-cli/pkg/anthropic"
)

type fakeClient struct {
	text string
	err  error
	last anthropic.MessageRequest
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
		Usage:   anthropic.TokenUsage{InputTokens: 80, OutputTokens: 40},
	}, nil
}

func TestClaudeEstimator_Estimate(t *testing.T) {
	fc := &fakeClient{text: `{"ConstructionType": "Masonry", "Occupancy": "Residential", "Stories": 3, "YearBuilt": "1965"}`}
	e := NewClaudeEstimator(fc, WithModel("claude-haiku-4-5-20251001"), WithMaxTokens(200))

	attrs, err := e.Estimate(context.Background(), "Schillerstrasse 8", "70839")
	require.NoError(t, err)
	assert.Equal(t, Value("Masonry"), attrs.ConstructionType)
	assert.Equal(t, Value("Residential"), attrs.Occupancy)
	assert.Equal(t, Value("3"), attrs.Stories)
	stories, ok := attrs.Stories.Int()
	assert.True(t, ok)
	assert.Equal(t, 3, stories)
	year, ok := attrs.YearBuilt.Int()
	assert.True(t, ok)
	assert.Equal(t, 1965, year)

	assert.Equal(t, "claude-haiku-4-5-20251001", fc.last.Model)
	assert.Equal(t, int64(200), fc.last.MaxTokens)
	require.NotNil(t, fc.last.Temperature)
	assert.Zero(t, *fc.last.Temperature)
	require.Len(t, fc.last.Messages, 1)
	assert.Contains(t, fc.last.Messages[0].Content, "Address: Schillerstrasse 8")
	assert.Contains(t, fc.last.Messages[0].Content, "Postal: 70839")
	assert.Contains(t, fc.last.Messages[0].Content, "in Germany")
}

func TestClaudeEstimator_CodeFence(t *testing.T) {
	fc := &fakeClient{text: "```json\n{\"ConstructionType\": \"Timber\", \"Stories\": null}\n```"}
	attrs, err := NewClaudeEstimator(fc).Estimate(context.Background(), "Am Markt 1", "01067")
	require.NoError(t, err)
	assert.Equal(t, Value("Timber"), attrs.ConstructionType)
	assert.Equal(t, Value(""), attrs.Stories)
}

func TestClaudeEstimator_ParseError(t *testing.T) {
	fc := &fakeClient{text: "I cannot determine this building's characteristics."}
	_, err := NewClaudeEstimator(fc).Estimate(context.Background(), "Am Markt 1", "01067")

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "I cannot determine this building's characteristics.", pe.Raw)

	data, mErr := json.Marshal(pe)
	require.NoError(t, mErr)
	assert.JSONEq(t, `{"error": "Invalid JSON", "raw_output": "I cannot determine this building's characteristics."}`, string(data))
}

func TestClaudeEstimator_ClientError(t *testing.T) {
	fc := &fakeClient{err: errors.New("overloaded")}
	_, err := NewClaudeEstimator(fc).Estimate(context.Background(), "Am Markt 1", "01067")
	require.Error(t, err)
	var pe *ParseError
	assert.False(t, errors.As(err, &pe))
}

func TestClaudeEstimator_MissingInput(t *testing.T) {
	fc := &fakeClient{}
	e := NewClaudeEstimator(fc)
	_, err := e.Estimate(context.Background(), "Am Markt 1", " ")
	assert.ErrorIs(t, err, ErrMissingInput)
	_, err = e.Estimate(context.Background(), "", "01067")
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.Empty(t, fc.last.Model, "no model call without input")
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"padded", "  {\"a\":1}\n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"single line", "```{\"a\":1}```", `{"a":1}`},
		{"unterminated", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestValue_Unmarshal(t *testing.T) {
	var a Attributes
	require.NoError(t, json.Unmarshal([]byte(`{"Stories": 2.5, "YearBuilt": "ca. 1970", "Occupancy": null}`), &a))
	assert.Equal(t, Value("2.5"), a.Stories)
	_, ok := a.Stories.Int()
	assert.False(t, ok)
	assert.Equal(t, Value("ca. 1970"), a.YearBuilt)
	assert.Equal(t, Value(""), a.Occupancy)

	assert.Error(t, json.Unmarshal([]byte(`{"Stories": true}`), &a))
}

func TestStubEstimator(t *testing.T) {
	s := NewStubEstimator().Add("Zeil 1", "60313", Attributes{ConstructionType: "Steel"})

	a, err := s.Estimate(context.Background(), "Zeil 1", "60313")
	require.NoError(t, err)
	assert.Equal(t, Value("Steel"), a.ConstructionType)

	a, err = s.Estimate(context.Background(), "Zeil 2", "60313")
	require.NoError(t, err)
	assert.Equal(t, Attributes{}, *a)

	_, err = s.Estimate(context.Background(), "Zeil 1", "")
	assert.ErrorIs(t, err, ErrMissingInput)

	s.FailWith(&ParseError{Raw: "nope", Err: errors.New("invalid character")})
	_, err = s.Estimate(context.Background(), "Zeil 1", "60313")
	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, 4, s.Calls())
}
