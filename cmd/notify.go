package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/etnz/timberline/config"
	"github.com/etnz/timberline/notify"
)

type notifyCmd struct {
	direct bool
	origin string
}

func (*notifyCmd) Name() string     { return "notify" }
func (*notifyCmd) Synopsis() string { return "notify every registered device of a portfolio update" }
func (*notifyCmd) Usage() string {
	return `tl notify [-direct] [-origin <name>]

  Sends the portfolio update notification to every registered push token.
  The tokens are read from the registry API at PUSH_TOKENS_URL with the
  ADMIN_API_KEY, or straight from the configured registry with -direct.
`
}

func (c *notifyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.direct, "direct", false, "read the tokens from the configured registry instead of the registry API")
	f.StringVar(&c.origin, "origin", "timberline-cli", "source of the notification, sent in its data")
}

func (c *notifyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	logger := NewLogger()
	defer logger.Sync()

	var source notify.TokenSource
	if c.direct {
		reg, closeRegistry, err := OpenRegistry(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening token registry: %v\n", err)
			return subcommands.ExitFailure
		}
		defer closeRegistry()
		source = notify.FromRegistry(reg)
	} else {
		if cfg.AdminAPIKey == "" {
			fmt.Fprintln(os.Stderr, "ADMIN_API_KEY is not set. Make sure it is available in .env.local or the environment.")
			return subcommands.ExitFailure
		}
		source = notify.NewRegistryAPI(cfg.PushTokensURL, cfg.AdminAPIKey)
	}

	d := newDispatcher(cfg, source, logger)
	d.Origin = c.origin
	sent, err := d.Dispatch(ctx)
	if sent == 0 && err == nil {
		fmt.Fprintln(os.Stderr, "No push tokens registered; nothing to send.")
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(os.Stderr, "%d notification(s) sent\n", sent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending notifications: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func newDispatcher(cfg config.Config, source notify.TokenSource, logger *zap.Logger) *notify.Dispatcher {
	return &notify.Dispatcher{
		Source:  source,
		Gateway: notify.NewExpoGateway(cfg.PushGatewayURL),
		Title:   cfg.NotificationTitle,
		Body:    cfg.NotificationBody,
		Origin:  "timberline-update",
		Logger:  logger,
	}
}
