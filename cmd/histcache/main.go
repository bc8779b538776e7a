package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gbard/histcache/internal/app"
	"github.com/gbard/histcache/internal/common"
	"github.com/gbard/histcache/internal/models"
	"github.com/gbard/histcache/internal/services/chart"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "reconcile":
		err = runReconcile(os.Args[2:])
	case "chart":
		err = runChart(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	case "version":
		fmt.Println(common.GetFullVersion())
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: histcache <command> [flags]

Commands:
  reconcile   bring symbol caches up to a desired date range
  chart       render a cached series to a PNG
  watch       refresh configured symbols on a cron schedule
  version     print version information`)
}

// defaultWindow is used when dates are omitted: year-to-date start, end
// exclusive at today so the cache runs through yesterday's close.
func defaultWindow() (time.Time, time.Time) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, now
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, use YYYY-MM-DD", s)
	}
	return d, nil
}

func runReconcile(args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("HISTCACHE_CONFIG"), "config file path")
	symbolsFlag := fs.String("symbols", "", "comma-separated symbols, e.g. AAPL,MSFT")
	fromFlag := fs.String("from", "", "desired range start (YYYY-MM-DD, default: Jan 1 this year)")
	toFlag := fs.String("to", "", "desired range end, exclusive (YYYY-MM-DD, default: today)")
	skipValidate := fs.Bool("skip-validate", false, "skip remote symbol existence check")
	fs.Parse(args)

	if *symbolsFlag == "" {
		return fmt.Errorf("no symbols given; use -symbols")
	}
	symbols := splitSymbols(*symbolsFlag)

	from, to := defaultWindow()
	var err error
	if *fromFlag != "" {
		if from, err = parseDate(*fromFlag); err != nil {
			return err
		}
	}
	if *toFlag != "" {
		if to, err = parseDate(*toFlag); err != nil {
			return err
		}
	}

	a, err := app.NewApp(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !*skipValidate {
		valid, invalid := a.Reconciler.ValidateSymbols(ctx, symbols)
		for _, symbol := range invalid {
			a.Logger.Warn().Str("symbol", symbol).Msg("Unknown symbol; skipping")
		}
		symbols = valid
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no valid symbols to reconcile")
	}

	report := a.Reconciler.ReconcileBatch(ctx, symbols, from, to)
	printReport(report)

	if len(report.Failed()) > 0 {
		return fmt.Errorf("%d of %d symbols failed", len(report.Failed()), len(report.Results))
	}
	return nil
}

func runChart(args []string) error {
	fs := flag.NewFlagSet("chart", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("HISTCACHE_CONFIG"), "config file path")
	symbol := fs.String("symbol", "", "cached symbol to render")
	out := fs.String("out", "", "output PNG path (default: <SYMBOL>.png)")
	fs.Parse(args)

	if *symbol == "" {
		return fmt.Errorf("no symbol given; use -symbol")
	}

	a, err := app.NewApp(*configPath)
	if err != nil {
		return err
	}

	series, err := a.Store.Load(*symbol)
	if err != nil {
		return err
	}

	png, err := chart.RenderSeries(series)
	if err != nil {
		return err
	}

	target := *out
	if target == "" {
		target = *symbol + ".png"
	}
	if err := os.WriteFile(target, png, 0644); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}

	a.Logger.Info().Str("symbol", *symbol).Str("path", target).Msg("Chart written")
	return nil
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("HISTCACHE_CONFIG"), "config file path")
	fs.Parse(args)

	a, err := app.NewApp(*configPath)
	if err != nil {
		return err
	}
	if len(a.Config.Schedule.Symbols) == 0 {
		return fmt.Errorf("no symbols configured under [schedule]")
	}

	ctx, cancel := signalContext()
	defer cancel()

	sched := app.NewScheduler(a)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	sched.Stop()
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func splitSymbols(s string) []string {
	var symbols []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			symbols = append(symbols, part)
		}
	}
	return symbols
}

func printReport(report *models.BatchReport) {
	fmt.Printf("run %s: %d symbols in %s\n",
		report.RunID, len(report.Results), report.Finished.Sub(report.Started).Round(time.Millisecond))
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Printf("  %-8s %-14s error: %v\n", res.Symbol, res.Plan, res.Err)
			continue
		}
		fmt.Printf("  %-8s %-14s %-12s trust=%s rows=%d\n",
			res.Symbol, res.Plan, res.Outcome, res.Trust, res.RowsWritten)
	}
}
