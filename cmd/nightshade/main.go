package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nightshade/scanner/internal/collector"
	"github.com/nightshade/scanner/internal/config"
	"github.com/nightshade/scanner/internal/core"
	"github.com/nightshade/scanner/internal/detectors"
	"github.com/nightshade/scanner/internal/input"
	"github.com/nightshade/scanner/internal/networking"
	"github.com/nightshade/scanner/internal/oob"
	"github.com/nightshade/scanner/internal/report"
	"github.com/nightshade/scanner/internal/utils"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "nightshade [targets...]",
	Short: "Blind vulnerability scanner with out-of-band confirmation",
	Long: `Nightshade probes targets for blind vulnerabilities (command injection,
SSRF, JNDI lookups) that give no observable response. Injected payloads carry
a unique correlation token; a finding is reported only when the remote
callback collector records an interaction tagged with that token.`,
	Version: config.Version,
	RunE:    run,
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "path to config file (YAML)")
	flags.String("targets", "", "file containing target URLs, one per line")
	flags.Bool("stdin", false, "read target URLs from stdin")
	flags.StringSlice("detectors", nil, "detectors to run (default: all)")

	flags.String("collector-url", "", "callback collector polling endpoint (required)")
	flags.String("callback-domain", "", "domain payloads call back to (required)")
	flags.Duration("collector-query-timeout", 10*time.Second, "timeout for a single collector query")

	flags.Duration("confirmation-timeout", 30*time.Second, "per-session budget for callback confirmation")
	flags.Duration("poll-initial-interval", 1*time.Second, "initial wait between collector polls")
	flags.Duration("poll-max-interval", 10*time.Second, "backoff cap between collector polls")

	flags.Int("workers", 10, "number of concurrent detector jobs")
	flags.Duration("timeout", 10*time.Second, "HTTP request timeout for target probes")
	flags.Int("retries", 2, "max retries per target request")
	flags.Float64("rps", 5, "max requests per second per target domain")
	flags.String("user-agent", "", "override the User-Agent header")
	flags.StringSlice("proxy", nil, "proxy URL(s), rotated per domain")
	flags.StringSlice("header", nil, "custom header applied to every target request (\"Name: Value\")")
	flags.Bool("insecure", false, "skip TLS certificate verification")

	flags.String("output", "", "file to write the report to (default: stdout)")
	flags.String("format", "text", "report format (text, json)")
	flags.String("loglevel", "info", "log level (debug, info, warn, error)")
	flags.Bool("no-color", false, "disable colored log output")
	flags.Bool("silent", false, "suppress non-critical logs")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind flags: %v\n", err)
		os.Exit(1)
	}
	viper.SetEnvPrefix("NIGHTSHADE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := buildConfig()
	logger := utils.NewDefaultLogger(utils.StringToLogLevel(cfg.Verbosity), cfg.NoColor, cfg.Silent)

	targets, err := readTargets(cfg, args, logger)
	if err != nil {
		return fmt.Errorf("failed to read targets: %w", err)
	}
	if len(targets) == 0 {
		return fmt.Errorf("no target URLs provided")
	}
	cfg.Targets = targets

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Infof("Nightshade %s initializing: %d target(s)", config.Version, len(targets))

	collectorClient, err := collector.NewClient(collector.ClientConfig{
		BaseURL:        cfg.Collector.BaseURL,
		CallbackDomain: cfg.Collector.CallbackDomain,
		Timeout:        cfg.Collector.QueryTimeout,
		UserAgent:      cfg.UserAgent,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create collector client: %w", err)
	}

	engine, err := oob.NewEngine(oob.EngineConfig{
		Registry:  collectorClient,
		Addresses: collectorClient,
		Logger:    logger,
		Poller: oob.PollerConfig{
			InitialInterval: cfg.PollInitialInterval,
			MaxInterval:     cfg.PollMaxInterval,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create confirmation engine: %w", err)
	}

	httpClient, err := networking.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	dets, err := detectors.Select(detectors.Deps{
		Client:              httpClient,
		Engine:              engine,
		Logger:              logger,
		ConfirmationTimeout: cfg.ConfirmationTimeout,
	}, cfg.Detectors)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := core.NewScheduler(ctx, cfg, dets, logger)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		logger.Warnf("Interrupt received. Shutting down gracefully...")
		scheduler.Shutdown()
	}()
	defer scheduler.Shutdown()

	reporter := report.NewReporter(logger)
	var errorsEncountered int

	for result := range scheduler.Schedule(targets) {
		if result.Error != nil {
			logger.Errorf("Error probing %s with %s: %v", result.Target, result.Detector, result.Error)
			errorsEncountered++
		}
		for _, finding := range result.Findings {
			reporter.AddFinding(finding)
		}
	}

	findings := reporter.Findings()
	logger.Infof("Scan finished. %d confirmed finding(s), %d error(s).", len(findings), errorsEncountered)

	if err := reporter.GenerateReport(cfg.OutputFile, cfg.OutputFormat); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	if cfg.OutputFile != "" {
		logger.Infof("Report written to %s (%s format).", cfg.OutputFile, cfg.OutputFormat)
	}
	return nil
}

// buildConfig materializes the merged viper state (defaults < file < env <
// flags) into the typed config struct.
func buildConfig() *config.Config {
	cfg := config.DefaultConfig()

	cfg.TargetsFile = viper.GetString("targets")
	cfg.Stdin = viper.GetBool("stdin")
	cfg.Detectors = viper.GetStringSlice("detectors")

	cfg.Collector.BaseURL = viper.GetString("collector-url")
	cfg.Collector.CallbackDomain = viper.GetString("callback-domain")
	cfg.Collector.QueryTimeout = viper.GetDuration("collector-query-timeout")

	cfg.ConfirmationTimeout = viper.GetDuration("confirmation-timeout")
	cfg.PollInitialInterval = viper.GetDuration("poll-initial-interval")
	cfg.PollMaxInterval = viper.GetDuration("poll-max-interval")

	cfg.Concurrency = viper.GetInt("workers")
	cfg.RequestTimeout = viper.GetDuration("timeout")
	cfg.MaxRetries = viper.GetInt("retries")
	cfg.RequestsPerSecond = viper.GetFloat64("rps")
	if ua := viper.GetString("user-agent"); ua != "" {
		cfg.UserAgent = ua
	}
	cfg.Proxies = viper.GetStringSlice("proxy")
	cfg.CustomHeaders = viper.GetStringSlice("header")
	cfg.InsecureSkipVerify = viper.GetBool("insecure")

	cfg.OutputFile = viper.GetString("output")
	cfg.OutputFormat = viper.GetString("format")
	cfg.Verbosity = viper.GetString("loglevel")
	cfg.NoColor = viper.GetBool("no-color")
	cfg.Silent = viper.GetBool("silent")

	return cfg
}

// readTargets centralizes target acquisition.
// Priority: --stdin flag, --targets file, then positional arguments.
func readTargets(cfg *config.Config, args []string, logger utils.Logger) ([]string, error) {
	inputReader := input.NewReader()

	switch {
	case cfg.Stdin:
		logger.Infof("Reading target URLs from stdin...")
		return inputReader.ReadURLsFromStdin()
	case cfg.TargetsFile != "":
		logger.Infof("Reading target URLs from file: %s", cfg.TargetsFile)
		return inputReader.ReadURLsFromFile(cfg.TargetsFile)
	case len(args) == 1:
		// A single argument may be a file path or a URL.
		if fi, err := os.Stat(args[0]); err == nil && !fi.IsDir() {
			logger.Infof("Reading target URLs from file provided as argument: %s", args[0])
			return inputReader.ReadURLsFromFile(args[0])
		}
		return args, nil
	default:
		return args, nil
	}
}
