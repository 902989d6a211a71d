package oob

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SessionState tracks a session through its lifecycle.
type SessionState int

const (
	StateCreated SessionState = iota
	StateSent
	StatePolling
	// StateDone is terminal; the outcome may be read any number of times but
	// the session cannot be restarted.
	StateDone
)

func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateSent:
		return "SENT"
	case StatePolling:
		return "POLLING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// PayloadSession binds one token, one compiled payload and one confirmation
// outcome. It is the unit a calling detector interacts with: created per
// detection attempt, never shared across targets or concurrent probes, and
// discarded after the outcome is read. The token it owns is what prevents
// cross-target false correlation.
type PayloadSession struct {
	token   CorrelationToken
	payload CompiledPayload
	poller  *ConfirmationPoller

	mu      sync.Mutex
	state   SessionState
	outcome ConfirmationOutcome
}

// Token returns the session's correlation token.
func (s *PayloadSession) Token() CorrelationToken { return s.token }

// Payload returns the compiled payload for the calling detector to embed in
// its own request. The session never performs delivery itself.
func (s *PayloadSession) Payload() CompiledPayload { return s.payload }

// State returns the current lifecycle state.
func (s *PayloadSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome returns the confirmation outcome, OutcomePending until the session
// reaches a terminal state.
func (s *PayloadSession) Outcome() ConfirmationOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// MarkSent records that the caller transmitted the payload to the target.
// Valid only once, from the created state.
func (s *PayloadSession) MarkSent() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCreated {
		return fmt.Errorf("%w: cannot mark sent from %s", ErrInvalidSessionState, s.state)
	}
	s.state = StateSent
	return nil
}

// Confirm drives the session to a terminal state by polling the collector for
// evidence of the session's token, within the given budget. It is synchronous
// from the caller's perspective and suspends only between poll attempts.
// Valid only once, from the sent state.
func (s *PayloadSession) Confirm(ctx context.Context, filter Protocol, budget time.Duration) (ConfirmationOutcome, error) {
	s.mu.Lock()
	if s.state != StateSent {
		state := s.state
		s.mu.Unlock()
		return s.Outcome(), fmt.Errorf("%w: cannot confirm from %s", ErrInvalidSessionState, state)
	}
	s.state = StatePolling
	s.mu.Unlock()

	outcome, err := s.poller.Confirm(ctx, s.token, filter, budget)

	s.mu.Lock()
	s.state = StateDone
	s.outcome = outcome
	s.mu.Unlock()
	return outcome, err
}
