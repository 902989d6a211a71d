package oob

import (
	"context"
	"fmt"
	"time"

	"github.com/nightshade/scanner/internal/utils"
)

// ConfirmationOutcome is the terminal result of a confirmation attempt.
type ConfirmationOutcome int

const (
	OutcomePending ConfirmationOutcome = iota
	OutcomeConfirmed
	OutcomeNotConfirmed
	// OutcomeError means every poll attempt failed at the transport level. It
	// is indeterminate: callers must not treat it as absence of the
	// vulnerability.
	OutcomeError
)

func (o ConfirmationOutcome) String() string {
	switch o {
	case OutcomePending:
		return "PENDING"
	case OutcomeConfirmed:
		return "CONFIRMED"
	case OutcomeNotConfirmed:
		return "NOT_CONFIRMED"
	case OutcomeError:
		return "ERROR"
	default:
		return fmt.Sprintf("ConfirmationOutcome(%d)", int(o))
	}
}

const (
	// DefaultInitialPollInterval is the first wait between poll attempts.
	DefaultInitialPollInterval = 1 * time.Second
	// DefaultMaxPollInterval caps the exponential backoff growth.
	DefaultMaxPollInterval = 10 * time.Second
	// DefaultAttemptTimeout bounds a single registry query so one hanging
	// query can never consume the whole budget.
	DefaultAttemptTimeout = 5 * time.Second
)

// PollerConfig tunes the poll loop. Zero values take the package defaults.
type PollerConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	AttemptTimeout  time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.InitialInterval <= 0 {
		c.InitialInterval = DefaultInitialPollInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxPollInterval
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	return c
}

// ConfirmationPoller drives the poll half of the send-then-poll protocol:
// it repeatedly queries the registry for evidence matching a token until
// evidence arrives or the budget runs out, backing off between attempts.
type ConfirmationPoller struct {
	registry Registry
	clock    Clock
	logger   utils.Logger
	cfg      PollerConfig
}

// NewConfirmationPoller creates a poller over the given registry. A nil clock
// uses the system clock.
func NewConfirmationPoller(registry Registry, clock Clock, logger utils.Logger, cfg PollerConfig) *ConfirmationPoller {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = utils.NewNoOpLogger()
	}
	return &ConfirmationPoller{
		registry: registry,
		clock:    clock,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}
}

// Confirm polls the registry for evidence tagged with token until the budget
// elapses. It returns:
//
//   - OutcomeConfirmed as soon as matching evidence is observed,
//   - OutcomeNotConfirmed when the budget elapses (or ctx is cancelled) with
//     no evidence ever observed,
//   - OutcomeError, with a wrapped ErrCollectorUnreachable, when every
//     attempted query failed at the transport level.
//
// The budget is mandatory; a non-positive value fails with ErrInvalidDeadline.
func (p *ConfirmationPoller) Confirm(ctx context.Context, token CorrelationToken, filter Protocol, budget time.Duration) (ConfirmationOutcome, error) {
	if budget <= 0 {
		return OutcomeError, ErrInvalidDeadline
	}
	if filter == "" {
		filter = ProtocolAny
	}

	deadline := p.clock.Now().Add(budget)
	interval := p.cfg.InitialInterval
	attempts := 0
	failures := 0
	var lastErr error

	for {
		if ctx.Err() != nil {
			// Cancellation is not distinguished from timeout for detection
			// purposes.
			p.logger.Debugf("Poll for token %s cancelled after %d attempt(s)", token, attempts)
			return OutcomeNotConfirmed, nil
		}
		remaining := deadline.Sub(p.clock.Now())
		if remaining <= 0 {
			break
		}

		// Each query must end strictly before the budget does, so the loop, not
		// a query racing the deadline, makes the terminal decision.
		attemptTimeout := p.cfg.AttemptTimeout
		if attemptTimeout >= remaining {
			attemptTimeout = remaining - remaining/10
		}
		queryCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		evidence, err := p.registry.Query(queryCtx, token, filter)
		cancel()
		attempts++

		if err != nil {
			if ctx.Err() != nil {
				return OutcomeNotConfirmed, nil
			}
			failures++
			lastErr = err
			p.logger.Debugf("Poll attempt %d for token %s failed: %v", attempts, token, err)
		} else if evidence.HasInteraction {
			p.logger.Debugf("Evidence observed for token %s on attempt %d", token, attempts)
			return OutcomeConfirmed, nil
		}

		remaining = deadline.Sub(p.clock.Now())
		if remaining <= 0 {
			break
		}
		wait := interval
		if wait > remaining {
			wait = remaining
		}
		if err := p.clock.Sleep(ctx, wait); err != nil {
			p.logger.Debugf("Poll for token %s cancelled while waiting", token)
			return OutcomeNotConfirmed, nil
		}
		interval *= 2
		if interval > p.cfg.MaxInterval {
			interval = p.cfg.MaxInterval
		}
	}

	if attempts > 0 && failures == attempts {
		return OutcomeError, fmt.Errorf("%w: all %d poll attempts for token %s failed, last error: %v",
			ErrCollectorUnreachable, attempts, token, lastErr)
	}
	return OutcomeNotConfirmed, nil
}
