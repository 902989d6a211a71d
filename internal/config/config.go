package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all the configuration for the Nightshade scanner.
// Fields are populated by Viper from defaults, config file, environment
// variables and flags.
type Config struct {
	Targets     []string
	TargetsFile string
	Stdin       bool

	// Detectors lists the enabled detector names; empty means all.
	Detectors []string

	Collector CollectorConfig

	// ConfirmationTimeout is the per-session budget for the send-then-poll
	// confirmation protocol. Mandatory and always passed explicitly; there is
	// no implicit default inside the engine.
	ConfirmationTimeout time.Duration
	PollInitialInterval time.Duration
	PollMaxInterval     time.Duration

	Concurrency       int
	RequestTimeout    time.Duration
	MaxRetries        int
	RetryDelayBaseMs  int
	RetryDelayMaxMs   int
	RequestsPerSecond float64

	UserAgent     string
	Proxies       []string
	CustomHeaders []string // "Name: Value" applied to every target request
	InsecureSkipVerify bool

	OutputFile   string
	OutputFormat string
	Verbosity    string
	NoColor      bool
	Silent       bool
}

// CollectorConfig locates the external callback collector.
type CollectorConfig struct {
	// BaseURL is the polling endpoint, e.g. "https://collector.example.com".
	BaseURL string
	// CallbackDomain is the domain injected payloads call back to.
	CallbackDomain string
	// QueryTimeout bounds a single poll query.
	QueryTimeout time.Duration
}

// DefaultConfig returns a Config populated with default values. Viper sets
// these as defaults and overrides them with file/env/flags.
func DefaultConfig() *Config {
	return &Config{
		Detectors:           []string{},
		ConfirmationTimeout: 30 * time.Second,
		PollInitialInterval: 1 * time.Second,
		PollMaxInterval:     10 * time.Second,
		Concurrency:         10,
		RequestTimeout:      10 * time.Second,
		MaxRetries:          2,
		RetryDelayBaseMs:    200,
		RetryDelayMaxMs:     5000,
		RequestsPerSecond:   5,
		UserAgent:           "nightshade-scanner/" + Version,
		OutputFormat:        "text",
		Verbosity:           "info",
		Collector: CollectorConfig{
			QueryTimeout: 10 * time.Second,
		},
	}
}

// Version is the scanner release version, stamped into reports and the
// default User-Agent.
const Version = "0.3.0"

// Validate checks the configuration for values the scanner cannot run with.
func (c *Config) Validate() error {
	if c.Collector.BaseURL == "" {
		return fmt.Errorf("collector base URL is required (--collector-url)")
	}
	if c.Collector.CallbackDomain == "" {
		return fmt.Errorf("collector callback domain is required (--callback-domain)")
	}
	if c.ConfirmationTimeout <= 0 {
		return fmt.Errorf("confirmation timeout must be positive, got %s", c.ConfirmationTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	switch strings.ToLower(c.OutputFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output format '%s' (expected text or json)", c.OutputFormat)
	}
	return nil
}
