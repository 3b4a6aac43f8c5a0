package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/webtest/pkg/config"
	"github.com/Sriram-PR/webtest/pkg/crawler"
	"github.com/Sriram-PR/webtest/pkg/models"
	"github.com/Sriram-PR/webtest/pkg/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "crawl":
		os.Exit(runCrawl("crawl", os.Args[2:]))
	case "validate":
		runValidate(os.Args[2:])
	case "pages":
		runPages(os.Args[2:])
	case "version":
		fmt.Printf("webtest %s\n", config.Version)
	case "-h", "--help", "help":
		printUsage()
	default:
		// Bare URLs and flags start a crawl
		if isCrawlArg(os.Args[1]) {
			os.Exit(runCrawl("webtest", os.Args[1:]))
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func isCrawlArg(arg string) bool {
	return strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "@") || strings.Contains(arg, "://")
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `webtest - Website tester: finds dead links, redirections and invalid pages

Usage:
  webtest [crawl] [options] URL...
  webtest <command> [options]

Commands:
  crawl       Crawl from the given start URLs (default)
  validate    Validate configuration file
  pages       List the pages recorded in a state directory
  version     Show version info

Arguments of the form @FILE are replaced by the lines of FILE.
Run 'webtest <command> -h' for command-specific help.`)
}

// loadConfig loads the config file, or starts from an empty configuration when path is empty
func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		return &config.AppConfig{}, nil
	}
	return config.Load(path)
}

// setupLogger builds the stderr logger at the requested level
func setupLogger(levelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.WarnLevel)

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'warn'. Error: %v", levelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// buildConfig loads the config file and lays the command line over it
func buildConfig(fs *flag.FlagSet, f *crawlFlags) (*config.AppConfig, []string, error) {
	cfg, err := loadConfig(f.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	if err := f.apply(fs, cfg); err != nil {
		return nil, nil, err
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

// runCrawl parses the crawl command line and runs the crawl, returning the exit code
func runCrawl(name string, args []string) int {
	args, err := expandArgFiles(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fs, f := newCrawlFlagSet(name)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: webtest crawl [options] URL...\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  webtest https://example.com/\n")
		fmt.Fprintf(os.Stderr, "  webtest -valid-html -valid-css -report-html report.html https://example.com/\n")
		fmt.Fprintf(os.Stderr, "  webtest -config webtest.yaml @more-urls.txt\n")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	log := setupLogger(f.logLevel)

	cfg, warnings, err := buildConfig(fs, f)
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if fs.NArg() == 0 && f.configFile == "" {
			fs.Usage()
		}
		return 1
	}

	return executeCrawl(cfg, f.resetState, log)
}

// executeCrawl opens the page store, runs the crawler and handles interrupts
func executeCrawl(cfg *config.AppConfig, resetState bool, log *logrus.Logger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store storage.PageStore
	if cfg.StateDir != "" {
		name := firstStartURL(cfg)
		dbPath := storage.DBPath(cfg.StateDir, name)
		badgerStore, err := storage.NewBadgerStore(dbPath, resetState, log.WithField("component", "storage"))
		if err != nil {
			log.Errorf("Failed to open page store: %v", err)
			return 1
		}
		defer badgerStore.Close()
		go badgerStore.RunGC(ctx, 10*time.Minute)
		store = badgerStore
	}

	c, err := crawler.NewCrawler(cfg, crawler.Options{Store: store}, log.WithField("component", "crawler"))
	if err != nil {
		log.Errorf("Failed to start crawler: %v", err)
		return 1
	}

	// First signal stops after the current request, second aborts
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		log.Warnf("Received signal %v, finishing current request...", sig)
		c.Interrupt()

		sig, ok = <-sigChan
		if !ok {
			return
		}
		log.Warnf("Received second signal %v, aborting...", sig)
		cancel()

		select {
		case <-sigChan:
			log.Error("Forced exit")
		case <-time.After(30 * time.Second):
			log.Error("Shutdown timed out, forcing exit")
		}
		os.Exit(1)
	}()

	rep, err := c.Run(ctx)
	if err != nil {
		log.Errorf("Crawl finished with errors: %v", err)
		return 1
	}
	log.WithFields(logrus.Fields{
		"pages":    rep.PagesFetched,
		"errors":   len(rep.Errors),
		"warnings": len(rep.Warnings),
		"duration": rep.EndTime.Sub(rep.StartTime).Round(time.Millisecond),
	}).Info("Crawl complete")
	return 0
}

// firstStartURL names the page store after the first start URL, falling back to the first site
func firstStartURL(cfg *config.AppConfig) string {
	if len(cfg.StartURLs) > 0 {
		return cfg.StartURLs[0]
	}
	for _, address := range slices.Sorted(maps.Keys(cfg.Sites)) {
		if urls := cfg.Sites[address].StartURLs; len(urls) > 0 {
			return urls[0]
		}
	}
	return "webtest"
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "webtest.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: webtest validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	// Rule files are read at crawl start, check them now
	for _, path := range append(appCfg.IncludeRuleFiles, appCfg.ExcludeRuleFiles...) {
		if _, err := os.Stat(path); err != nil {
			fmt.Fprintf(stderr, "ERROR: rule file: %v\n", err)
			return 1
		}
	}

	fmt.Fprintf(stdout, "OK: %d start URLs, %d sites\n", len(appCfg.StartURLs), len(appCfg.Sites))
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runPages handles the pages subcommand
func runPages(args []string) {
	fs := flag.NewFlagSet("pages", flag.ExitOnError)
	stateDir := fs.String("state-dir", "state", "State directory of a previous crawl")
	status := fs.String("status", "", "Only list pages with this status (success, failure, redirected, skipped)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: webtest pages [options] START_URL\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger("error")
	exitCode := doPages(*stateDir, fs.Arg(0), models.PageStatus(*status), os.Stdout, os.Stderr, log.WithField("component", "storage"))
	os.Exit(exitCode)
}

// doPages lists the page records of the crawl started at startURL.
// Returns exit code (0 = success, 1 = error).
func doPages(stateDir, startURL string, status models.PageStatus, stdout, stderr io.Writer, logger *logrus.Entry) int {
	dbPath := storage.DBPath(stateDir, startURL)
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(stderr, "Error: no page store for %s in %s\n", startURL, stateDir)
		return 1
	}

	store, err := storage.NewBadgerStore(dbPath, false, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	listed := 0
	err = store.ForEach(context.Background(), func(url string, rec models.PageRecord) error {
		if status != "" && rec.Status != status {
			return nil
		}
		listed++
		line := fmt.Sprintf("%-10s %3d %s", rec.Status, rec.StatusCode, url)
		if rec.RedirectTo != "" {
			line += " --> " + rec.RedirectTo
		}
		if rec.Errors > 0 || rec.Warnings > 0 {
			line += fmt.Sprintf(" (%d errors, %d warnings)", rec.Errors, rec.Warnings)
		}
		_, err := fmt.Fprintln(stdout, line)
		return err
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "\n%d pages\n", listed)
	return 0
}
