// Package scorer wraps the external language model used to judge free-text
// answers. When no API key is configured every call fails with
// ErrUnavailable and callers fall back to neutral values.
package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"google.golang.org/api/option"
)

// ErrUnavailable is returned when the scorer is not configured or the
// upstream call failed.
var ErrUnavailable = errors.New("text scorer unavailable")

// Scorer judges free text written by students.
type Scorer interface {
	// AIProbability returns the probability in [0,100] that text was machine generated.
	AIProbability(ctx context.Context, text string) (float64, error)
	// AnalyzeAnswer flags an answer that looks generated, pasted or off-topic.
	AnalyzeAnswer(ctx context.Context, question, answer string) (*model.AnswerAnalysis, error)
}

const probabilityPrompt = `You detect AI-generated text in university exam answers.
Reply with a JSON object {"probability": <number 0-100>} estimating how likely the text below was written by an AI model.

Text:
%s`

const analysisPrompt = `You are a fraud detection assistant for an examination system.
Analyze the student's answer for signs of AI-generated content, copy-pasted content or content inappropriate for an exam answer.
Reply with a JSON object {"is_suspicious": bool, "confidence": number 0-100, "reasons": [string]}.

Question: %s

Student's Answer: %s`

// GeminiScorer calls a Gemini model through generative-ai-go.
type GeminiScorer struct {
	client *genai.Client
	model  *genai.GenerativeModel
	log    zerolog.Logger
}

// NewGeminiScorer builds a scorer. An empty apiKey yields a scorer whose calls
// return ErrUnavailable.
func NewGeminiScorer(ctx context.Context, apiKey, modelName string, log zerolog.Logger) (*GeminiScorer, error) {
	s := &GeminiScorer{log: log.With().Str("component", "scorer").Logger()}
	if apiKey == "" {
		s.log.Warn().Msg("GEMINI_API_KEY is not set, text scoring disabled")
		return s, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	m := client.GenerativeModel(modelName)
	m.SetTemperature(0)
	m.ResponseMIMEType = "application/json"

	s.client = client
	s.model = m
	return s, nil
}

// Enabled reports whether calls reach the upstream model.
func (s *GeminiScorer) Enabled() bool {
	return s != nil && s.model != nil
}

// Close releases the underlying client.
func (s *GeminiScorer) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *GeminiScorer) AIProbability(ctx context.Context, text string) (float64, error) {
	raw, err := s.generate(ctx, fmt.Sprintf(probabilityPrompt, text))
	if err != nil {
		return 0, err
	}
	return parseProbability(raw)
}

func (s *GeminiScorer) AnalyzeAnswer(ctx context.Context, question, answer string) (*model.AnswerAnalysis, error) {
	raw, err := s.generate(ctx, fmt.Sprintf(analysisPrompt, question, answer))
	if err != nil {
		return nil, err
	}
	return parseAnalysis(raw)
}

func (s *GeminiScorer) generate(ctx context.Context, prompt string) (string, error) {
	if !s.Enabled() {
		return "", ErrUnavailable
	}

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		s.log.Error().Err(err).Msg("Gemini request failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

// stripFence removes a ```json ... ``` wrapper some models add.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func parseProbability(raw string) (float64, error) {
	var out struct {
		Probability float64 `json:"probability"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &out); err != nil {
		return 0, fmt.Errorf("%w: decode probability: %v", ErrUnavailable, err)
	}
	return clamp(out.Probability), nil
}

func parseAnalysis(raw string) (*model.AnswerAnalysis, error) {
	var out model.AnswerAnalysis
	if err := json.Unmarshal([]byte(stripFence(raw)), &out); err != nil {
		return nil, fmt.Errorf("%w: decode analysis: %v", ErrUnavailable, err)
	}
	out.Confidence = clamp(out.Confidence)
	if out.Reasons == nil {
		out.Reasons = []string{}
	}
	out.Available = true
	return &out, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
