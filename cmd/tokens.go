package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/timberline/tokens"
)

type tokensCmd struct {
	json bool
}

func (*tokensCmd) Name() string     { return "tokens" }
func (*tokensCmd) Synopsis() string { return "manage the registered push tokens" }
func (*tokensCmd) Usage() string {
	return `tl tokens [-json] list|count|delete <token>...|clear

  Reads or edits the push token registry configured by TOKEN_BACKEND.
`
}

func (c *tokensCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "print the list as JSON")
}

func (c *tokensCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	reg, closeRegistry, err := OpenRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening token registry: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeRegistry()

	if err := c.run(ctx, reg, f.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// run executes a tokens action on reg.
func (c *tokensCmd) run(ctx context.Context, reg tokens.Registry, args []string) error {
	switch action := args[0]; action {
	case "list":
		list, err := reg.List(ctx)
		if err != nil {
			return err
		}
		if c.json {
			return printJSON(map[string]any{"tokens": list})
		}
		for _, t := range list {
			fmt.Printf("%s\t%s\t%s\n", t.Token, t.Platform, t.RegisteredAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	case "count":
		n, err := reg.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("delete expects at least one token")
		}
		for _, t := range args[1:] {
			if err := reg.Delete(ctx, t); err != nil {
				return err
			}
		}
		return nil
	case "clear":
		return reg.DeleteAll(ctx)
	default:
		return fmt.Errorf("unknown action %q, want list, count, delete or clear", action)
	}
}
