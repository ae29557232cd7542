package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/etnz/timberline/server"
)

type serveCmd struct {
	port   int
	update time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the snapshots, their changes and the push token registry" }
func (*serveCmd) Usage() string {
	return `tl serve [-port <port>] [-update <interval>]

  Serves the HTTP API. With -update, the holdings are also ingested in the
  background at the given interval.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.port, "port", 0, "listening port, overrides PORT")
	f.DurationVar(&c.update, "update", 0, "ingest the holdings at this interval, 0 to disable")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.port != 0 {
		cfg.Port = c.port
	}

	logger := serveLogger(*verbose)
	if !*verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	defer logger.Sync()
	m := NewMetrics()

	st, closeStore, err := OpenStore(cfg)
	if err != nil {
		logger.Error("store", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer closeStore()
	reg, closeRegistry, err := OpenRegistry(cfg)
	if err != nil {
		logger.Error("token registry", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer closeRegistry()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.update > 0 {
		p, err := NewPipeline(cfg, logger, m)
		if err != nil {
			logger.Error("pipeline", zap.Error(err))
			return subcommands.ExitFailure
		}
		go func() {
			t := time.NewTicker(c.update)
			defer t.Stop()
			for {
				// failures are logged and counted by the pipeline, the previous snapshots stay served
				p.Run(ctx, st)
				select {
				case <-ctx.Done():
					return
				case <-t.C:
				}
			}
		}()
	}

	s := server.New(st, reg, server.Options{
		ManagerName: cfg.ManagerName,
		AdminAPIKey: cfg.AdminAPIKey,
		CORSOrigin:  cfg.CORSOrigin,
		Logger:      logger,
		Metrics:     m,
		Gatherer:    prometheus.DefaultGatherer,
	})
	if cfg.AdminAPIKey == "" {
		logger.Warn("ADMIN_API_KEY is not set, the token registry admin operations are disabled")
	}

	httpServer := &http.Server{Addr: cfg.Addr(), Handler: s.R}
	errc := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-errc:
		logger.Error("http", zap.Error(err))
		return subcommands.ExitFailure
	}
	cancel()
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = httpServer.Shutdown(ctxShut)
	logger.Info("shutdown complete")
	return subcommands.ExitSuccess
}

// serveLogger logs at info level in production, unlike the other commands.
func serveLogger(verbose bool) *zap.Logger {
	build := zap.NewProduction
	if verbose {
		build = zap.NewDevelopment
	}
	logger, err := build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
