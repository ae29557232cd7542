package commentary

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

type fakeModel struct {
	instruction, prompt string
	answer              string
	err                 error
}

func (m *fakeModel) Generate(_ context.Context, instruction, prompt string) (string, error) {
	m.instruction, m.prompt = instruction, prompt
	return m.answer, m.err
}

func TestSummarize(t *testing.T) {
	m := &fakeModel{answer: "\n  The manager added NEW.\n"}
	got, err := NewAnalyst(m).Summarize(context.Background(), "# Report\n\n- **NEW**\n")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got != "The manager added NEW." {
		t.Errorf("Summarize() = %q, want %q", got, "The manager added NEW.")
	}
	if m.instruction != Instruction {
		t.Errorf("model instruction = %q, want the default one", m.instruction)
	}
	if !strings.HasSuffix(m.prompt, "# Report\n\n- **NEW**\n") {
		t.Errorf("model prompt = %q, want the report in it", m.prompt)
	}
}

func TestSummarize_Errors(t *testing.T) {
	boom := errors.New("quota exceeded")
	tests := []struct {
		name   string
		report string
		model  *fakeModel
		want   error
	}{
		{"empty answer", "# Report", &fakeModel{answer: "   "}, ErrEmpty},
		{"model failure", "# Report", &fakeModel{err: boom}, boom},
		{"empty report", " \n", &fakeModel{answer: "x"}, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewAnalyst(test.model).Summarize(context.Background(), test.report)
			if err == nil {
				t.Fatal("Summarize() succeeded, want an error")
			}
			if test.want != nil && !errors.Is(err, test.want) {
				t.Errorf("Summarize() error = %v, want %v", err, test.want)
			}
		})
	}
}

func TestGemini_Live(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		t.Skip("no gemini api key")
	}
	ctx := context.Background()
	g, err := NewGemini(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	got, err := NewAnalyst(g).Summarize(ctx, "# Example 13F positions\n\n- **AAPL** 50%\n")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got == "" {
		t.Errorf("Summarize() = empty")
	}
}
