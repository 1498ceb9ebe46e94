// Package cli implements the hookrelay command: read one hook event from
// stdin, ask the policy servers about it and exit with their decision.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
	"github.com/tjfontaine/hookrelay/internal/metrics"
	"github.com/tjfontaine/hookrelay/internal/pipeline"
	"github.com/tjfontaine/hookrelay/internal/pkg/config"
	"github.com/tjfontaine/hookrelay/internal/pkg/logging"
	"github.com/tjfontaine/hookrelay/internal/telemetry"
)

// Version is set at build time.
var Version = "dev"

type options struct {
	configPath string

	servers     []string
	timeoutMS   int
	deadlineMS  int
	apiKey      string
	failOpen    bool
	failClosed  bool
	quiet       bool
	debug       bool
	logLevel    string
	jsonOut     bool
	plainOut    bool
	noColor     bool
	noInput     bool
	insecure    bool
	denyPrivate bool
	metricsFile string
	trace       bool
}

// flagKeys maps flags onto config keys. Only flags set on the command line
// override file and environment values.
var flagKeys = map[string]string{
	"server":       "server_urls",
	"timeout":      "timeout_ms",
	"deadline":     "deadline_ms",
	"api-key":      "api_key",
	"quiet":        "quiet",
	"debug":        "debug",
	"log-level":    "log_level",
	"no-color":     "no_color",
	"no-input":     "no_input",
	"insecure":     "insecure",
	"deny-private": "deny_private",
	"metrics-file": "metrics_file",
	"trace":        "tracing",
}

func newRootCmd(ctx context.Context, streams Streams) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "hookrelay",
		Short: "Forward agent hook events to policy servers",
		Long: `hookrelay reads one hook event as JSON on stdin, wraps it in an
envelope and sends it to the configured policy servers. The exit status
carries the decision: 0 allows, 1 blocks, 2 asks the user.`,
		Example: `  echo '{"hook_event_name":"PreToolUse","session_id":"abc123","tool_name":"Bash"}' | hookrelay
  hookrelay --server https://policy.example.com/hook --fail-open < event.json
  hookrelay --json --server http://localhost:8080/hook < event.json`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(ctx, cmd, streams, opts)
		},
	}
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.Err)

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file (default: $HOME/.config/hookrelay/config.yaml)")
	f.StringSliceVar(&opts.servers, "server", nil, "policy server URL, repeat or comma-separate for failover (default: "+config.DefaultServerURL+")")
	f.IntVar(&opts.timeoutMS, "timeout", config.DefaultTimeoutMS, "per-request timeout in milliseconds")
	f.IntVar(&opts.deadlineMS, "deadline", 0, "overall dispatch budget in milliseconds, 0 for none")
	f.StringVar(&opts.apiKey, "api-key", "", "bearer token sent to the policy servers")
	f.BoolVar(&opts.failOpen, "fail-open", false, "allow the operation when no server gives a usable answer")
	f.BoolVar(&opts.failClosed, "fail-closed", false, "block the operation when no server gives a usable answer (default)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress notices on stderr")
	f.BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.BoolVar(&opts.jsonOut, "json", false, "print a JSON result instead of echoing the event")
	f.BoolVar(&opts.plainOut, "plain", false, "plain output for scripts, no colors or symbols")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colors")
	f.BoolVar(&opts.noInput, "no-input", false, "exit immediately without reading stdin")
	f.BoolVar(&opts.insecure, "insecure", false, "skip TLS verification and allow plain HTTP without warning")
	f.BoolVar(&opts.denyPrivate, "deny-private", false, "refuse to connect to private network addresses")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	f.BoolVar(&opts.trace, "trace", false, "write OpenTelemetry spans to stderr")
	cmd.MarkFlagsMutuallyExclusive("json", "plain")
	cmd.MarkFlagsMutuallyExclusive("fail-open", "fail-closed")

	return cmd
}

// overrides collects the flags the user actually set.
func overrides(cmd *cobra.Command, opts *options) map[string]any {
	out := make(map[string]any)
	f := cmd.Flags()
	for name, key := range flagKeys {
		if !f.Changed(name) {
			continue
		}
		switch name {
		case "server":
			out[key] = opts.servers
		case "timeout":
			out[key] = opts.timeoutMS
		case "deadline":
			out[key] = opts.deadlineMS
		case "api-key":
			out[key] = opts.apiKey
		case "log-level":
			out[key] = opts.logLevel
		case "metrics-file":
			out[key] = opts.metricsFile
		default:
			v, _ := f.GetBool(name)
			out[key] = v
		}
	}
	switch {
	case f.Changed("fail-open"):
		out["fail_open"] = opts.failOpen
	case f.Changed("fail-closed"):
		out["fail_open"] = !opts.failClosed
	}
	switch {
	case opts.jsonOut:
		out["output"] = config.OutputJSON
	case opts.plainOut:
		out["output"] = config.OutputPlain
	}
	return out
}

func run(ctx context.Context, cmd *cobra.Command, streams Streams, opts *options) error {
	cfg, err := config.Load(config.LoadOptions{Path: opts.configPath, Overrides: overrides(cmd, opts)})
	if err != nil {
		if !opts.quiet && !opts.jsonOut {
			newPrinter(streams.Err, false, false, !opts.plainOut).Error("%v", err)
		}
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(streams.Err, level, "text")
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger = logging.FromContext(ctx, logger)
	logger.Debug("configuration loaded", slog.Any("config", cfg))

	plain := cfg.Output == config.OutputPlain
	colored := !cfg.NoColor && !plain && os.Getenv("NO_COLOR") == "" && isTerminal(streams.Err)
	out := newPrinter(streams.Err, cfg.Quiet || cfg.Output == config.OutputJSON, colored, !plain)

	for _, w := range cfg.Warnings {
		out.Warn("Warning: %s", w)
	}

	if cfg.NoInput {
		out.Info("No input mode - exiting")
		return nil
	}
	if isTerminal(streams.In) {
		printUsage(cmd)
		return nil
	}

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
	}
	if cfg.Tracing {
		shutdown, err := telemetry.InitTracer("hookrelay", Version, streams.Err, logger)
		if err != nil {
			logger.Warn("tracing disabled", logging.Error(err))
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()
		}
	}

	input, err := readInput(streams.In)
	if err != nil {
		out.Error("Error: %v", err)
		return err
	}
	defer input.Release()

	p, err := pipeline.NewFromConfig(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
		pipeline.WithUserAgent("hookrelay/"+Version),
		pipeline.WithProgress(out),
	)
	if err != nil {
		out.Error("Error: %v", err)
		return &exitError{code: domain.ExitInternal, err: err}
	}
	defer p.Close()

	start := time.Now()
	res := p.Run(ctx, input.Bytes())

	switch {
	case domain.IsValidation(res.Err):
		out.Error("Error: %v", res.Err)
	case res.Err != nil && !cfg.FailOpen:
		urls := make([]string, 0, len(p.Endpoints()))
		for _, ep := range p.Endpoints() {
			urls = append(urls, ep.URL)
		}
		out.Unavailable(urls, res.Err)
	}
	out.Notices(res.Decision)

	if err := writeOutput(streams.Out, cfg.Output, res); err != nil {
		logger.Error("write output", logging.Error(err))
		return &exitError{code: domain.ExitIO, err: err}
	}

	if m != nil {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("write metrics", logging.Error(err), slog.String("path", cfg.MetricsFile))
		}
	}

	logger.Info("hook processed",
		logging.ExitCode(int(res.ExitCode())),
		logging.Duration(time.Since(start)),
	)

	if code := res.ExitCode(); code != domain.ExitAllow {
		return &exitError{code: code, err: errors.New(code.String())}
	}
	return nil
}

func printUsage(cmd *cobra.Command) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "hookrelay - agent hook dispatcher [version %s]\n\n", Version)
	fmt.Fprintf(w, "%s\n\nExample:\n%s\n\n", cmd.Long, cmd.Example)
	fmt.Fprintln(w, "For more options, use hookrelay --help")
}

// Execute runs the command with args and returns the process exit code.
func Execute(ctx context.Context, args []string, streams Streams) int {
	cmd := newRootCmd(ctx, streams)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return int(domain.ExitAllow)
	}

	var coder domain.ExitCoder
	if errors.As(err, &coder) {
		return int(coder.ExitCode())
	}

	// flag and argument errors from cobra
	fmt.Fprintf(streams.Err, "Error: %v\n", err)
	fmt.Fprintf(streams.Err, "Run 'hookrelay --help' for usage.\n")
	return int(domain.ExitInvalidArg)
}
