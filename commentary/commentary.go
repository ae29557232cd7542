// Package commentary asks a language model to comment the changes of a
// manager's portfolio.
package commentary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Instruction is the system instruction given to the model.
const Instruction = `
You are a financial writer summarizing the quarterly 13F filing of an investment manager
for a retail investor who follows this manager as a reference portfolio.

You receive a markdown report with the top positions, their change since last quarter,
the positions added this quarter and the positions fully exited.

Write at most three short paragraphs in plain markdown:
- what the manager bought, increased, trimmed or sold,
- how concentrated the portfolio is,
- anything notable in the numbers.

Only use the figures in the report. Do not give personalized investment advice.
`

// Model generates text from a prompt.
type Model interface {
	Generate(ctx context.Context, instruction, prompt string) (string, error)
}

// Gemini is a Model backed by the Gemini API.
type Gemini struct {
	client    *genai.Client
	ModelName string
}

// NewGemini creates a Gemini model. An empty apiKey makes the client read
// GEMINI_API_KEY or GOOGLE_API_KEY from the environment.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	var cfg *genai.ClientConfig
	if apiKey != "" {
		cfg = &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{client: client, ModelName: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, instruction, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.ModelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("cannot generate content with %s: %w", g.ModelName, err)
	}
	return resp.Text(), nil
}

// ErrEmpty is returned when the model answered nothing.
var ErrEmpty = errors.New("empty commentary")

// Analyst writes the commentary of a changes report.
type Analyst struct {
	Model       Model
	Instruction string
}

// NewAnalyst creates an analyst with the default instruction.
func NewAnalyst(m Model) *Analyst {
	return &Analyst{Model: m, Instruction: Instruction}
}

// Summarize returns the commentary of a markdown changes report.
func (a *Analyst) Summarize(ctx context.Context, report string) (string, error) {
	if strings.TrimSpace(report) == "" {
		return "", errors.New("cannot summarize an empty report")
	}
	prompt := "Here is the report:\n\n" + report
	text, err := a.Model.Generate(ctx, a.Instruction, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}
