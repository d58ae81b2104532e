// Package payrollwatch parses projection flags and launches the process.
package payrollwatch

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/payrollwatch/internal/payroll/ledger/ledgerfile"
	"github.com/louisbranch/payrollwatch/internal/payroll/projection"
	"github.com/louisbranch/payrollwatch/internal/payroll/service"
	"github.com/louisbranch/payrollwatch/internal/payroll/source"
	"github.com/louisbranch/payrollwatch/internal/payroll/token"
	entrypoint "github.com/louisbranch/payrollwatch/internal/platform/cmd"
	"github.com/louisbranch/payrollwatch/internal/server"
	"github.com/louisbranch/payrollwatch/internal/storage/deadletter"
)

// Config holds projection command configuration.
type Config struct {
	HTTPAddr       string        `env:"PAYROLLWATCH_HTTP_ADDR" envDefault:":8080"`
	LedgerPath     string        `env:"PAYROLLWATCH_LEDGER_PATH"`
	FeedPath       string        `env:"PAYROLLWATCH_FEED_PATH" envDefault:"-"`
	DeadLetterPath string        `env:"PAYROLLWATCH_DEADLETTER_PATH"`
	FoldTimeout    time.Duration `env:"PAYROLLWATCH_FOLD_TIMEOUT" envDefault:"10s"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP listen address")
	fs.StringVar(&cfg.LedgerPath, "ledger", cfg.LedgerPath, "Path to the ledger fixture document")
	fs.StringVar(&cfg.FeedPath, "feed", cfg.FeedPath, "Path to the JSONL event feed, or - for stdin")
	fs.StringVar(&cfg.DeadLetterPath, "dead-letters", cfg.DeadLetterPath, "Path to the dead-letter SQLite database (optional)")
	fs.DurationVar(&cfg.FoldTimeout, "fold-timeout", cfg.FoldTimeout, "Deadline for the ledger reads of one fold, 0 to disable")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the projection and its HTTP read surface.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePayrollwatch, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.LedgerPath) == "" {
		return fmt.Errorf("ledger fixture path is required")
	}
	reader, err := ledgerfile.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}

	if err := service.WaitUntilReady(ctx, reader, log.Default()); err != nil {
		return err
	}

	feedFile := os.Stdin
	if cfg.FeedPath != "-" {
		feedFile, err = os.Open(cfg.FeedPath)
		if err != nil {
			return fmt.Errorf("open event feed: %w", err)
		}
		defer feedFile.Close()
	}
	feed := source.NewJSONL(feedFile, log.Default())

	opts := []service.Option{service.WithFoldTimeout(cfg.FoldTimeout)}
	if strings.TrimSpace(cfg.DeadLetterPath) != "" {
		store, err := deadletter.Open(cfg.DeadLetterPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, service.WithDeadLetters(store))
	}

	engine := projection.New(reader, token.NewDirectory(reader))
	svc := service.New(engine, feed, opts...)

	httpServer, err := server.New(svc, server.Config{Addr: cfg.HTTPAddr}, log.Default())
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return svc.Run(groupCtx) })
	group.Go(func() error { return httpServer.Run(groupCtx) })
	return group.Wait()
}
