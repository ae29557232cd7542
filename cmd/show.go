package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/timberline"
	"github.com/etnz/timberline/config"
	"github.com/etnz/timberline/renderer"
	"github.com/etnz/timberline/store"
)

// showCmd holds the flags for the 'show' subcommand.
type showCmd struct {
	top        int
	skipAdded  bool
	skipExited bool
	format     string
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display the latest positions and their changes since last quarter" }
func (*showCmd) Usage() string {
	return `tl show [-top <n>] [-skip-added] [-skip-exited] [-format md|json]

  Displays the latest published snapshot reconciled with the previous one:
  the top positions with their change, the positions added this quarter and
  the positions fully exited.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.top, "top", renderer.DefaultTop, "number of positions listed, 0 for all")
	f.BoolVar(&c.skipAdded, "skip-added", false, "do not list the added positions")
	f.BoolVar(&c.skipExited, "skip-exited", false, "do not list the exited positions")
	f.StringVar(&c.format, "format", "md", "output format: md or json (the latest snapshot)")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.format != "md" && c.format != "json" {
		fmt.Fprintf(os.Stderr, "unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
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

	if c.format == "json" {
		if err := timberline.EncodeSnapshot(os.Stdout, r.Current); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding snapshot: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	printMarkdown(changesMarkdown(cfg, r, c.top, renderer.ChangesRenderOptions{SkipAdded: c.skipAdded, SkipExited: c.skipExited}))
	return subcommands.ExitSuccess
}

func changesMarkdown(cfg config.Config, r timberline.Reconciliation, top int, opts renderer.ChangesRenderOptions) string {
	return renderer.RenderChanges(renderer.NewChanges(r, cfg.ManagerName, top), opts)
}

// printJSON writes v as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
