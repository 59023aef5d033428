package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/page-fetcher/pkg/config"
	"github.com/Sriram-PR/page-fetcher/pkg/fetch"
	pflog "github.com/Sriram-PR/page-fetcher/pkg/log"
	"github.com/Sriram-PR/page-fetcher/pkg/models"
	"github.com/Sriram-PR/page-fetcher/pkg/orchestrate"
	"github.com/Sriram-PR/page-fetcher/pkg/process"
	"github.com/Sriram-PR/page-fetcher/pkg/render"
	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "fetch":
		runFetch(os.Args[2:])
	case "check":
		runCheck(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "version":
		fmt.Printf("page-fetcher %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `page-fetcher - Safe remote page fetcher

Usage:
  page-fetcher <command> [options]

Commands:
  fetch       Render one or more URLs and print the result as JSON
  check       Run the host safety check for a URL without rendering it
  validate    Validate configuration file
  mcp-server  Start MCP server for AI tool integration
  version     Show version info

Run 'page-fetcher <command> -h' for command-specific help.`)
}

// loadAndValidateConfig loads the config file (defaults when path is empty) and applies defaults
func loadAndValidateConfig(path string, log *logrus.Logger) (*config.AppConfig, error) {
	appCfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, err
	}
	return appCfg, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM
func signalContext(log *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal %v, cancelling...", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// newOrchestrator wires the safety checker and the configured renderer backend
func newOrchestrator(appCfg *config.AppConfig, log *logrus.Logger) (*orchestrate.Orchestrator, *fetch.HostSafetyChecker, error) {
	entry := logrus.NewEntry(log)
	checker := fetch.NewHostSafetyChecker(nil, appCfg.DNSTimeout, entry)
	launcher, err := render.NewLauncher(appCfg, entry)
	if err != nil {
		return nil, nil, err
	}
	return orchestrate.NewOrchestrator(appCfg, checker, launcher, entry), checker, nil
}

// runFetch handles the fetch subcommand
func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (defaults when empty)")
	full := fs.Bool("full", false, "Return full rendered content instead of the summary")
	format := fs.String("format", "html", "Full content format (html, markdown)")
	verbose := fs.Bool("verbose", false, "Include error detail for navigation and internal failures")
	backend := fs.String("backend", "", "Override renderer backend (playwright, http)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: page-fetcher fetch [options] URL [URL...]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  page-fetcher fetch https://example.com\n")
		fmt.Fprintf(os.Stderr, "  page-fetcher fetch -full -format markdown https://example.com/docs\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one URL is required")
		fs.Usage()
		os.Exit(1)
	}
	if *format != formatHTML && *format != formatMarkdown {
		fmt.Fprintf(os.Stderr, "Error: unsupported format %q\n", *format)
		os.Exit(1)
	}

	log := pflog.New(*logLevel, os.Stderr)
	appCfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *backend != "" {
		appCfg.Renderer.Backend = *backend
	}
	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *verbose {
		appCfg.Verbose = true
	}

	o, _, err := newOrchestrator(appCfg, log)
	if err != nil {
		log.Fatalf("Setup error: %v", err)
	}
	tokens, err := process.NewTokenCounter(appCfg.TokenizerEncoding)
	if err != nil {
		log.Warnf("Tokenizer unavailable, estimating token counts: %v", err)
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	reqs := make([]models.FetchRequest, 0, fs.NArg())
	for _, u := range fs.Args() {
		reqs = append(reqs, models.FetchRequest{
			TargetURL: u,
			Mode:      models.ModeFromFlag(*full || *format == formatMarkdown),
			Verbose:   appCfg.Verbose,
		})
	}

	exitCode := doFetch(ctx, o, reqs, *format, tokens, os.Stdout)
	cancel()
	os.Exit(exitCode)
}

const (
	formatHTML     = "html"
	formatMarkdown = "markdown"
)

// batchFetcher is satisfied by *orchestrate.Orchestrator
type batchFetcher interface {
	FetchAll(ctx context.Context, reqs []models.FetchRequest) []orchestrate.BatchResult
}

// fetchOutput is one entry of the fetch command's JSON output
type fetchOutput struct {
	URL        string          `json:"url"`
	RequestID  string          `json:"request_id,omitempty"`
	Summary    *models.Summary `json:"summary,omitempty"`
	Format     string          `json:"format,omitempty"`
	Content    string          `json:"content,omitempty"`
	TokenCount int             `json:"token_count,omitempty"`
	DurationMs int64           `json:"duration_ms,omitempty"`
	Error      string          `json:"error,omitempty"`
	Status     int             `json:"status,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// doFetch runs the requests and writes a JSON array to stdout.
// Returns exit code (0 = every fetch succeeded, 1 = at least one failed).
func doFetch(ctx context.Context, f batchFetcher, reqs []models.FetchRequest, format string, tokens *process.TokenCounter, stdout io.Writer) int {
	results := f.FetchAll(ctx, reqs)

	exitCode := 0
	outputs := make([]fetchOutput, 0, len(results))
	for _, r := range results {
		out := fetchOutput{URL: r.Request.TargetURL}
		if r.Err != nil {
			fe := utils.Classify(r.Err)
			out.Error = fe.Kind.String()
			out.Status = fe.StatusCode()
			out.Message = fe.Public(r.Request.Verbose)
			exitCode = 1
			outputs = append(outputs, out)
			continue
		}

		out.RequestID = r.Result.RequestID
		out.DurationMs = r.Result.Duration.Milliseconds()
		if r.Result.Mode == models.ModeFullContent {
			content := r.Result.HTML
			if format == formatMarkdown {
				md, err := process.ToMarkdown(content, r.Result.URL)
				if err != nil {
					out.Error = models.ErrorKindInternal.String()
					out.Status = models.ErrorKindInternal.HTTPStatus()
					out.Message = fmt.Sprintf("markdown conversion failed: %v", err)
					exitCode = 1
					outputs = append(outputs, out)
					continue
				}
				content = md
			}
			out.Format = format
			out.Content = content
			out.TokenCount = tokens.Count(content)
		} else {
			out.Summary = r.Result.Summary
		}
		outputs = append(outputs, out)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(outputs); err != nil {
		return 1
	}
	return exitCode
}

// runCheck handles the check subcommand
func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (defaults when empty)")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: page-fetcher check [options] URL\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	log := pflog.New(*logLevel, os.Stderr)
	appCfg, err := loadAndValidateConfig(*configFile, log)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	checker := fetch.NewHostSafetyChecker(nil, appCfg.DNSTimeout, logrus.NewEntry(log))

	ctx, cancel := signalContext(log)
	defer cancel()
	exitCode := doCheck(ctx, checker, fs.Arg(0), os.Stdout)
	cancel()
	os.Exit(exitCode)
}

// doCheck runs the host safety check and reports the outcome.
// Returns exit code (0 = allowed, 1 = rejected).
func doCheck(ctx context.Context, checker orchestrate.HostChecker, rawURL string, stdout io.Writer) int {
	if _, err := fetch.ValidateURL(rawURL); err != nil {
		fmt.Fprintf(stdout, "REJECTED (%s): %v\n", models.ErrorKindInvalidInput, err)
		return 1
	}
	addrs, err := checker.Check(ctx, rawURL)
	if err != nil {
		fmt.Fprintf(stdout, "REJECTED (%s): %v\n", models.ErrorKindDisallowedHost, err)
		return 1
	}
	fmt.Fprintf(stdout, "ALLOWED: %s\n", rawURL)
	for _, a := range addrs {
		fmt.Fprintf(stdout, "  %s\n", a)
	}
	return 0
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: page-fetcher validate [options]\n\nOptions:\n")
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
	appCfg, err := config.LoadConfig(configPath)
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

	fmt.Fprintf(stdout, "fetch_timeout:      %v\n", appCfg.FetchTimeout)
	fmt.Fprintf(stdout, "navigation_timeout: %v\n", appCfg.EffectiveNavigationTimeout())
	fmt.Fprintf(stdout, "retry_delay:        %v\n", appCfg.RetryDelay)
	fmt.Fprintf(stdout, "renderer:           %s (%s, headless=%t, wait_until=%s)\n",
		appCfg.Renderer.Backend, appCfg.Renderer.Browser, appCfg.Renderer.IsHeadless(), appCfg.Renderer.WaitUntil)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}
