package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/etnz/timberline/notify"
	"github.com/etnz/timberline/thirteenf"
)

type updateCmd struct {
	dryRun bool
	notify bool
}

func (*updateCmd) Name() string { return "update" }
func (*updateCmd) Synopsis() string {
	return "ingest the latest and previous 13F filings of the manager"
}
func (*updateCmd) Usage() string {
	return `tl update [-n] [-notify]

  Reads the manager page on the aggregator, extracts the holdings of the
  latest filing and of the previous one, then publishes both snapshots.
  Nothing is published unless both filings were read successfully.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "n", false, "dry run: read the filings but do not publish the snapshots")
	f.BoolVar(&c.notify, "notify", false, "notify the registered devices after publishing")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "no arguments expected")
		return subcommands.ExitUsageError
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	logger := NewLogger()
	defer logger.Sync()

	p, err := NewPipeline(cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating pipeline: %v\n", err)
		return subcommands.ExitFailure
	}

	var report thirteenf.Report
	if c.dryRun {
		report, err = p.Fetch(ctx)
	} else {
		st, closeStore, openErr := OpenStore(cfg)
		if openErr != nil {
			fmt.Fprintf(os.Stderr, "Error opening snapshot store: %v\n", openErr)
			return subcommands.ExitFailure
		}
		defer closeStore()
		report, err = p.Run(ctx, st)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error updating holdings: %v\n", err)
		return subcommands.ExitFailure
	}

	printReport(report, c.dryRun)

	if c.notify && !c.dryRun {
		reg, closeRegistry, err := OpenRegistry(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening token registry: %v\n", err)
			return subcommands.ExitFailure
		}
		defer closeRegistry()
		d := newDispatcher(cfg, notify.FromRegistry(reg), logger)
		sent, err := d.Dispatch(ctx)
		fmt.Fprintf(os.Stderr, "%d notification(s) sent\n", sent)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error sending notifications: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

func printReport(r thirteenf.Report, dryRun bool) {
	verb := "published"
	if dryRun {
		verb = "read (dry run)"
	}
	printFiling := func(name string, f thirteenf.Filing) {
		fmt.Fprintf(os.Stderr, "%s %s: %s, %d positions from %d rows (%s)", name, verb, f.ID.Label(), f.Snapshot.Len(), f.Rows, f.Location.Format)
		if f.Skipped > 0 {
			fmt.Fprintf(os.Stderr, ", %d rows skipped", f.Skipped)
		}
		fmt.Fprintln(os.Stderr)
	}
	printFiling("latest", r.Latest)
	if r.Previous != nil {
		printFiling("previous", *r.Previous)
	} else {
		fmt.Fprintln(os.Stderr, "previous: no other filing listed, left untouched")
	}
	fmt.Fprintf(os.Stderr, "run %s done in %v\n", r.RunID, r.Took.Round(time.Millisecond))
}
