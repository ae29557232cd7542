// Package cmd implements the CLI application to ingest and serve a manager's
// 13F holdings.
package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/etnz/timberline/config"
	"github.com/etnz/timberline/metrics"
	"github.com/etnz/timberline/store"
	"github.com/etnz/timberline/thirteenf"
	"github.com/etnz/timberline/tokens"
)

// Commands lists every subcommand, in the order of the help.
var Commands = []subcommands.Command{
	&updateCmd{},
	&showCmd{},
	&summarizeCmd{},
	&serveCmd{},
	&tokensCmd{},
	&notifyCmd{},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&updateCmd{}, "holdings")
	c.Register(&showCmd{}, "holdings")
	c.Register(&summarizeCmd{}, "holdings")

	c.Register(&serveCmd{}, "api")
	c.Register(&tokensCmd{}, "api")
	c.Register(&notifyCmd{}, "api")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var envFile = flag.String("env-file", config.DefaultEnvFile, "Path to a dotenv file, loaded when it exists")
var verbose = flag.Bool("v", false, "verbose logging")

// LoadConfig reads the configuration from the env file and the environment.
func LoadConfig() (config.Config, error) {
	return config.Load(*envFile)
}

// NewLogger creates the application logger.
func NewLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		logger, err = cfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NewMetrics registers the collectors on the default prometheus registry.
// It must be called once per process.
func NewMetrics() *metrics.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// OpenStore opens the snapshot store selected by the configuration.
// close must be called when done.
func OpenStore(cfg config.Config) (st store.Store, close func() error, err error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		r, err := store.NewRedis(redisConfig(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open redis store: %w", err)
		}
		return r, r.Close, nil
	default:
		return store.NewFile(cfg.DataDir, cfg.SnapshotPrefix), func() error { return nil }, nil
	}
}

// OpenRegistry opens the push token registry selected by the configuration.
// close must be called when done.
func OpenRegistry(cfg config.Config) (reg tokens.Registry, close func() error, err error) {
	switch cfg.TokenBackend {
	case config.TokensRedis:
		r, err := store.NewRedis(redisConfig(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open redis token registry: %w", err)
		}
		return tokens.NewRedis(r.Client(), cfg.RedisPrefix), r.Close, nil
	case config.TokensSQLite:
		s, err := tokens.NewSQLite(cfg.TokenDB)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open sqlite token registry: %w", err)
		}
		return s, s.Close, nil
	default:
		return tokens.NewMemory(), func() error { return nil }, nil
	}
}

func redisConfig(cfg config.Config) store.RedisConfig {
	return store.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
	}
}

// NewPipeline creates the ingestion pipeline of the configured manager.
func NewPipeline(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*thirteenf.Pipeline, error) {
	client, err := thirteenf.NewClient(cfg.SourceBaseURL,
		thirteenf.WithTimeout(cfg.HTTPTimeout),
		thirteenf.WithUserAgent(cfg.UserAgent),
		thirteenf.WithRate(cfg.RequestsPerSecond),
		thirteenf.WithCache(cfg.CacheDir),
		thirteenf.WithLogger(logger),
		thirteenf.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	source := thirteenf.Source{
		ManagerPath: cfg.ManagerPath,
		LinkPrefix:  cfg.FilingLinkPrefix,
		TableID:     cfg.DataTableID,
		RowsPath:    cfg.RowsPath,
	}
	return thirteenf.NewPipeline(client, source, logger, m), nil
}

// printMarkdown renders markdown for the terminal, or prints it raw when
// stdout is not a terminal or rendering fails.
func printMarkdown(md string) {
	fprintMarkdown(os.Stdout, md, isTerminal(os.Stdout))
}

func fprintMarkdown(w io.Writer, md string, pretty bool) {
	if pretty {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			if out, err := r.Render(md); err == nil {
				fmt.Fprint(w, out)
				return
			}
		}
	}
	fmt.Fprint(w, md)
	if !strings.HasSuffix(md, "\n") {
		fmt.Fprintln(w)
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
