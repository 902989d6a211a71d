// Package oob implements the blind-detection confirmation engine shared by
// every out-of-band style detector: correlation token generation, payload
// compilation, and the send-then-poll protocol against a remote callback
// collector.
package oob

import (
	"fmt"
	"io"

	"github.com/nightshade/scanner/internal/utils"
)

// EngineConfig carries the engine's collaborators. Registry and Addresses are
// required; the rest default sensibly (crypto/rand entropy, system clock,
// no-op logger).
type EngineConfig struct {
	Registry  Registry
	Addresses AddressProvider
	Rand      io.Reader
	Clock     Clock
	Logger    utils.Logger
	Poller    PollerConfig
}

// Engine is the entry point detectors use: it wires the token source, payload
// compiler and confirmation poller behind a single NewSession call. Safe for
// concurrent use; every session gets its own token.
type Engine struct {
	tokens   *TokenSource
	compiler *Compiler
	poller   *ConfirmationPoller
	logger   utils.Logger
}

// NewEngine creates an Engine from cfg.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("engine requires a callback registry")
	}
	if cfg.Addresses == nil {
		return nil, fmt.Errorf("engine requires a callback address provider")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = utils.NewNoOpLogger()
	}
	return &Engine{
		tokens:   NewTokenSource(cfg.Rand),
		compiler: NewCompiler(cfg.Addresses),
		poller:   NewConfirmationPoller(cfg.Registry, cfg.Clock, logger, cfg.Poller),
		logger:   logger,
	}, nil
}

// NewSession generates a fresh token, compiles the payload for spec and
// returns the session binding them. Fails with ErrEntropyUnavailable or
// ErrUnsupportedEnvironment.
func (e *Engine) NewSession(spec PayloadSpec) (*PayloadSession, error) {
	token, err := e.tokens.Next()
	if err != nil {
		return nil, err
	}
	payload, err := e.compiler.Compile(spec, token)
	if err != nil {
		return nil, err
	}
	e.logger.Debugf("Created payload session: token=%s class=%s env=%s", token, spec.Class, spec.Environment)
	return &PayloadSession{
		token:   token,
		payload: payload,
		poller:  e.poller,
		state:   StateCreated,
		outcome: OutcomePending,
	}, nil
}
