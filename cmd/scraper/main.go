package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-collection/config"
	"github.com/aluiziolira/go-scrape-collection/models"
	"github.com/aluiziolira/go-scrape-collection/pipeline"
	"github.com/aluiziolira/go-scrape-collection/scraper"
)

// Process exit codes.
const (
	exitOK       = 0
	exitUsage    = 1
	exitAborted  = 2
	exitDelivery = 3
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

type flagValues struct {
	configPath    string
	member        string
	cookie        string
	pages         int
	pageDelay     time.Duration
	categoryDelay time.Duration
	randomDelay   time.Duration
	maxRetries    int
	output        string
	outputDir     string
	fallbackFile  string
	metricsAddr   string
	verbose       bool
}

func newRootCmd() *cobra.Command {
	var fv flagValues
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "collection-scraper",
		Short: "Export a member's card collection as an import-ready JSON payload",
		Long: `collection-scraper walks a member's collection listing one page at a time,
resolves every referenced set to its display name and year, and hands the
grouped result to the clipboard (or stdout), falling back to a file.

Configuration is layered: defaults, then the YAML config file, then
SCRAPER_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(fv.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, &fv)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	bindFlags(cmd, &fv, defaults)

	return cmd
}

func bindFlags(cmd *cobra.Command, fv *flagValues, defaults *config.Config) {
	flags := cmd.Flags()
	flags.StringVarP(&fv.configPath, "config", "c", "", "Path to YAML config file (default $XDG_CONFIG_HOME/"+config.AppName+"/"+config.DefaultConfigFile+")")
	flags.StringVarP(&fv.member, "member", "m", "", "Member whose collection is exported")
	flags.StringVar(&fv.cookie, "cookie", "", "Session cookie header copied from a logged-in browser")
	flags.IntVarP(&fv.pages, "pages", "p", defaults.MaxPages, "Maximum collection pages to fetch")
	flags.DurationVar(&fv.pageDelay, "page-delay", defaults.PageDelay, "Delay between collection page requests")
	flags.DurationVar(&fv.categoryDelay, "category-delay", defaults.CategoryDelay, "Delay between category lookups")
	flags.DurationVar(&fv.randomDelay, "random-delay", defaults.RandomDelay, "Random jitter added to each delay")
	flags.IntVar(&fv.maxRetries, "max-retries", defaults.MaxRetries, "Retry attempts per request")
	flags.StringVarP(&fv.output, "output", "o", defaults.Output, "Primary output channel: clipboard or stdout")
	flags.StringVar(&fv.outputDir, "output-dir", defaults.OutputDir, "Directory for the fallback file")
	flags.StringVar(&fv.fallbackFile, "fallback-file", defaults.FallbackFile, "Fallback file name")
	flags.StringVar(&fv.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolVarP(&fv.verbose, "verbose", "v", false, "Enable verbose logging")
}

// applyFlags overrides cfg with the flags the user actually set, so file and
// environment values survive unset flags.
func applyFlags(cmd *cobra.Command, cfg *config.Config, fv *flagValues) {
	changed := cmd.Flags().Changed
	if changed("member") {
		cfg.Member = fv.member
	}
	if changed("cookie") {
		cfg.Cookie = fv.cookie
	}
	if changed("pages") {
		cfg.MaxPages = fv.pages
	}
	if changed("page-delay") {
		cfg.PageDelay = fv.pageDelay
	}
	if changed("category-delay") {
		cfg.CategoryDelay = fv.categoryDelay
	}
	if changed("random-delay") {
		cfg.RandomDelay = fv.randomDelay
	}
	if changed("max-retries") {
		cfg.MaxRetries = fv.maxRetries
	}
	if changed("output") {
		cfg.Output = fv.output
	}
	if changed("output-dir") {
		cfg.OutputDir = fv.outputDir
	}
	if changed("fallback-file") {
		cfg.FallbackFile = fv.fallbackFile
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = fv.metricsAddr
	}
	if changed("verbose") {
		cfg.Verbose = fv.verbose
	}
}

func run(parent context.Context, cfg *config.Config, stderr io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.NewCollyFetcher(cfg, metrics)
	if err != nil {
		return fmt.Errorf("initialising fetcher: %w", err)
	}

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	runner := scraper.NewRunner(cfg, fetcher,
		scraper.WithMetrics(metrics),
		scraper.WithLogger(logger),
	)

	result, summary, err := runner.Run(ctx)
	if err != nil {
		printSummary(stderr, summary, nil, "")
		return &exitError{code: exitAborted, err: err}
	}

	fallback := pipeline.NewFileChannel(fallbackPath(cfg))
	sink := pipeline.NewSink(primaryChannel(cfg), fallback)
	channel, err := sink.Deliver(ctx, result)
	if channel == fallback.Name() {
		slog.Info("payload written to fallback file", slog.String("path", fallback.Path()))
	}
	printSummary(stderr, summary, result, channel)
	if err != nil {
		rescuePayload(stderr, err)
		return &exitError{code: exitDelivery, err: err}
	}
	return nil
}

// rescuePayload dumps the encoded payload to w when every channel refused it,
// so a long crawl is never lost to a delivery error.
func rescuePayload(w io.Writer, err error) {
	var failure *pipeline.DeliveryFailure
	if !errors.As(err, &failure) || len(failure.Payload) == 0 {
		return
	}
	fmt.Fprintf(w, "Payload (copy it manually):\n%s\n", failure.Payload)
}

func primaryChannel(cfg *config.Config) pipeline.OutputChannel {
	if cfg.Output == config.OutputStdout {
		return pipeline.NewWriterChannel(config.OutputStdout, os.Stdout)
	}
	return pipeline.NewClipboardChannel()
}

func fallbackPath(cfg *config.Config) string {
	return filepath.Join(cfg.OutputDir, cfg.FallbackFile)
}

func printSummary(w io.Writer, summary *models.RunSummary, result *models.CrawlResult, channel string) {
	if summary == nil {
		return
	}
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	if result == nil {
		fmt.Fprintln(w, "Run aborted")
	} else {
		fmt.Fprintln(w, "Export complete")
		fmt.Fprintf(w, "  Items:         %s\n", humanize.Comma(int64(result.TotalItems)))
		fmt.Fprintf(w, "  Sets:          %s\n", humanize.Comma(int64(result.TotalCategories)))
	}

	fmt.Fprintf(w, "  Estimate:      %s (%s)\n", humanize.Comma(int64(summary.Estimate.Total)), summary.Estimate.Source)
	fmt.Fprintf(w, "  Pages:         %d/%d\n", summary.PagesFetched, summary.PagesPlanned)
	fmt.Fprintf(w, "  Requests:      %s\n", humanize.Comma(int64(summary.RequestCount)))
	fmt.Fprintf(w, "  Retries:       %d\n", summary.RetryCount)
	fmt.Fprintf(w, "  Failed pages:  %d\n", len(summary.FailedPages))
	for _, f := range summary.FailedPages {
		fmt.Fprintf(w, "    page %d (%s): %s\n", f.Page, f.Kind, f.Err)
	}
	fmt.Fprintf(w, "  Unnamed sets:  %d\n", len(summary.FailedCategories))
	if len(summary.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:   %v\n", summary.ErrorsByType)
	}
	if !summary.EndTime.IsZero() {
		fmt.Fprintf(w, "  Duration:      %v\n", summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))
	}
	if channel != "" {
		fmt.Fprintf(w, "  Delivered to:  %s\n", channel)
	} else if result != nil {
		fmt.Fprintln(w, "  Delivered to:  nowhere (delivery failed)")
	}
	fmt.Fprintln(w, separator)
}

// newLogger writes to stderr so stdout stays clean for the payload.
func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
