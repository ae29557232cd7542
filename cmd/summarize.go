package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/timberline/commentary"
	"github.com/etnz/timberline/renderer"
	"github.com/etnz/timberline/store"
)

type summarizeCmd struct {
	model string
	print bool
}

func (*summarizeCmd) Name() string { return "summarize" }
func (*summarizeCmd) Synopsis() string {
	return "ask Gemini to comment the changes of the quarter"
}
func (*summarizeCmd) Usage() string {
	return `tl summarize [-model <name>] [-report]

  Sends the changes report to Gemini and prints its commentary.
  Requires GEMINI_API_KEY or GOOGLE_API_KEY.
`
}

func (c *summarizeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.model, "model", "", "Gemini model, overrides GEMINI_MODEL")
	f.BoolVar(&c.print, "report", false, "print the report before the commentary")
}

func (c *summarizeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.model != "" {
		cfg.GeminiModel = c.model
	}

	st, closeStore, err := OpenStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening snapshot store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore()
	r, err := store.Reconcile(ctx, st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading snapshots: %v\n", err)
		return subcommands.ExitFailure
	}
	report := changesMarkdown(cfg, r, 0, renderer.ChangesRenderOptions{})

	model, err := commentary.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}
	text, err := commentary.NewAnalyst(model).Summarize(ctx, report)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Commentary failed:", err)
		return subcommands.ExitFailure
	}

	if c.print {
		printMarkdown(report)
	}
	printMarkdown(text)
	return subcommands.ExitSuccess
}
