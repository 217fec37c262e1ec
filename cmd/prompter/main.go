package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/s33g/gpt-prompter/internal/config"
	"github.com/s33g/gpt-prompter/internal/conversation"
	"github.com/s33g/gpt-prompter/internal/llm"
	"github.com/s33g/gpt-prompter/internal/metrics"
	"github.com/s33g/gpt-prompter/internal/prompter"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	session := flag.String("session", "", "History session name (default from config)")
	system := flag.String("system", "", "System message for a new session")
	single := flag.Bool("single", false, "Send the prompt without history")
	reset := flag.Bool("reset", false, "Clear the session history and exit")
	interactive := flag.Bool("i", false, "Read prompts line by line until EOF")
	listModels := flag.Bool("models", false, "List available models and exit")
	showUsage := flag.Bool("usage", false, "Show request limits and token usage and exit")
	showHistory := flag.Bool("history", false, "Print the session history and exit")
	metricsFile := flag.String("metrics-file", "", "Write Prometheus metrics to this file on exit")
	flag.Parse()

	// Load .env if present
	_ = godotenv.Load()

	// Setup logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	logger := log.With().Str("component", "main").Logger()

	// Load configuration
	logger.Debug().Str("path", *configPath).Msg("Loading configuration...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger = setupLogger(cfg.Logging).With().Str("component", "main").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	watchPath := ""
	if *interactive {
		watchPath = *configPath
	}

	notice := &failureNotice{out: os.Stderr}
	p, err := prompter.New(ctx, cfg, watchPath, log.Logger,
		prompter.WithTokenCounter(conversation.NewTokenCounter()),
		prompter.WithFailureHandler(notice.handle),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize")
	}
	p.Start()

	code := 0
	if err := run(ctx, p, runOptions{
		session:     *session,
		reset:       *reset,
		interactive: *interactive,
		listModels:  *listModels,
		showUsage:   *showUsage,
		showHistory: *showHistory,
		ask:         prompter.AskOptions{System: *system, Single: *single},
		args:        flag.Args(),
		in:          os.Stdin,
		out:         os.Stdout,
		notice:      notice,
	}); err != nil {
		notice.report(err)
		code = 1
	}

	p.Stop()
	if *metricsFile != "" {
		if err := metrics.WriteTextfile(*metricsFile); err != nil {
			logger.Error().Err(err).Str("path", *metricsFile).Msg("Failed to write metrics")
		}
	}
	stop()
	os.Exit(code)
}

type runOptions struct {
	session     string
	reset       bool
	interactive bool
	listModels  bool
	showUsage   bool
	showHistory bool
	ask         prompter.AskOptions
	args        []string

	in     io.Reader
	out    io.Writer
	notice *failureNotice
}

// failureNotice prints failed exchanges and remembers whether the latest
// error was already shown, so it is not printed twice.
type failureNotice struct {
	out   io.Writer
	shown atomic.Bool
}

func (n *failureNotice) handle(f llm.Failure) {
	fmt.Fprintf(n.out, "GPT request failed: %s\n", f.Message)
	n.shown.Store(true)
}

func (n *failureNotice) reset() {
	n.shown.Store(false)
}

// report prints err unless the failure handler already did
func (n *failureNotice) report(err error) {
	if !n.shown.Swap(false) {
		fmt.Fprintln(n.out, err)
	}
}

func run(ctx context.Context, p *prompter.Prompter, opts runOptions) error {
	switch {
	case opts.listModels:
		return p.WriteModels(opts.out)
	case opts.showUsage:
		return p.WriteUsage(ctx, opts.out, opts.session)
	case opts.showHistory:
		return p.WriteHistory(ctx, opts.out, opts.session)
	case opts.reset:
		return p.Reset(ctx, opts.session)
	case opts.interactive:
		return repl(ctx, p, opts)
	}

	prompt := strings.Join(opts.args, " ")
	if prompt == "" {
		data, err := io.ReadAll(opts.in)
		if err != nil {
			return fmt.Errorf("failed to read prompt: %w", err)
		}
		prompt = string(data)
	}

	opts.notice.reset()
	reply, err := p.Ask(ctx, opts.session, prompt, opts.ask)
	if reply != "" {
		fmt.Fprintln(opts.out, reply)
	}
	return err
}

// repl sends one prompt per input line; failures do not end the loop
func repl(ctx context.Context, p *prompter.Prompter, opts runOptions) error {
	scanner := bufio.NewScanner(opts.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	fmt.Fprint(os.Stderr, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			opts.notice.reset()
			reply, err := p.Ask(ctx, opts.session, line, opts.ask)
			if reply != "" {
				fmt.Fprintln(opts.out, reply)
			}
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				opts.notice.report(err)
			}
		}
		fmt.Fprint(os.Stderr, "> ")
	}
	fmt.Fprintln(os.Stderr)
	return scanner.Err()
}

// setupLogger applies the configured level and output format
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log.Logger
}
