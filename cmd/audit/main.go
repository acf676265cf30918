package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sitescan/product-audit/audit"
	"github.com/sitescan/product-audit/config"
	"github.com/sitescan/product-audit/models"
	"github.com/sitescan/product-audit/report"
)

func main() {
	defaultCfg := config.DefaultConfig()
	workersDefault := defaultCfg.Workers
	if value, ok, err := config.EnvInt("AUDIT_WORKERS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid AUDIT_WORKERS: %v\n", err)
		os.Exit(1)
	} else if ok {
		workersDefault = value
	}
	pagesDefault := defaultCfg.MaxPages
	if value, ok, err := config.EnvInt("AUDIT_MAX_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid AUDIT_MAX_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("AUDIT_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("AUDIT_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	cmsUserDefault, _ := config.EnvString("AUDIT_CMS_USER")
	cmsTokenDefault, _ := config.EnvString("AUDIT_CMS_TOKEN")
	enrichKeyDefault, _ := config.EnvString("AUDIT_ENRICH_KEY")
	productKeyDefault, _ := config.EnvString("AUDIT_PRODUCT_API_KEY")

	siteURL := flag.String("site", "", "Site root, domain or sitemap URL to audit")
	workers := flag.Int("workers", workersDefault, "Concurrent page workers")
	maxPages := flag.Int("pages", pagesDefault, "Maximum pages to audit")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	cacheDir := flag.String("cache-dir", defaultCfg.CacheDir, "Directory for persisted caches")
	cmsBaseURL := flag.String("cms-url", "", "CMS base URL for authenticated access")
	cmsUser := flag.String("cms-user", cmsUserDefault, "CMS user name")
	cmsToken := flag.String("cms-token", cmsTokenDefault, "CMS application password")
	productLimit := flag.Int("product-limit", defaultCfg.ProductLimit, "Product lookups per audit")
	outputFile := flag.String("output", outputDefault, "Report file path")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	discoverOnly := flag.Bool("discover-only", false, "Discover pages and print them without auditing")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.SiteURL = *siteURL
	cfg.Workers = *workers
	cfg.MaxPages = *maxPages
	cfg.RespectRobotsTxt = *respectRobots
	cfg.CacheDir = *cacheDir
	cfg.CMSBaseURL = *cmsBaseURL
	cfg.CMSUser = *cmsUser
	cfg.CMSToken = *cmsToken
	cfg.EnrichAPIKey = enrichKeyDefault
	cfg.ProductAPIKey = productKeyDefault
	cfg.ProductLimit = *productLimit
	cfg.OutputFile = *outputFile
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	a, err := audit.New(cfg)
	if err != nil {
		slog.Error("initialising auditor", slog.Any("error", err))
		os.Exit(1)
	}
	a.Cache().Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && a.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(a.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting audit",
		slog.String("site", cfg.SiteURL),
		slog.Int("workers", cfg.Workers),
		slog.Int("max_pages", cfg.MaxPages),
	)

	if *discoverOnly {
		pages, err := a.Discover(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, audit.FailureMessage(err))
			os.Exit(1)
		}
		for _, page := range pages {
			fmt.Printf("%s\t%s\n", page.ID, page.URL)
		}
		shutdownMetrics(metricsServer)
		return
	}

	result, err := a.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, audit.FailureMessage(err))
		os.Exit(1)
	}

	if err := report.Write(cfg.OutputFile, report.Build(cfg.SiteURL, result)); err != nil {
		slog.Error("writing report", slog.Any("error", err))
		os.Exit(1)
	}

	shutdownMetrics(metricsServer)
	printSummary(result, cfg.OutputFile)
}

func shutdownMetrics(server *http.Server) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(result *models.AuditResult, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Audit complete")

	fmt.Printf("  Pages audited: %d\n", result.PageCount)
	fmt.Printf("  Products:      %d\n", len(result.Products))
	fmt.Printf("  Groups:        %d\n", len(result.Groups))
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Report file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
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
