package scorer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiScorer_WithoutKeyIsUnavailable(t *testing.T) {
	s, err := NewGeminiScorer(context.Background(), "", "gemini-1.5-flash", zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	_, err = s.AIProbability(context.Background(), "some text")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.AnalyzeAnswer(context.Background(), "q", "a")
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.NoError(t, s.Close())
}

func TestParseProbability(t *testing.T) {
	p, err := parseProbability(`{"probability": 73.5}`)
	require.NoError(t, err)
	assert.Equal(t, 73.5, p)

	p, err = parseProbability("```json\n{\"probability\": 250}\n```")
	require.NoError(t, err)
	assert.Equal(t, 100.0, p)

	_, err = parseProbability("I think it is likely AI")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseAnalysis(t *testing.T) {
	a, err := parseAnalysis(`{"is_suspicious": true, "confidence": 88, "reasons": ["generic phrasing"]}`)
	require.NoError(t, err)
	assert.True(t, a.IsSuspicious)
	assert.Equal(t, 88.0, a.Confidence)
	assert.Equal(t, []string{"generic phrasing"}, a.Reasons)
	assert.True(t, a.Available)

	a, err = parseAnalysis(`{"is_suspicious": false, "confidence": -3}`)
	require.NoError(t, err)
	assert.Zero(t, a.Confidence)
	assert.NotNil(t, a.Reasons)
}
