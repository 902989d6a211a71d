// Package detectors contains the blind vulnerability detector plugins. Each
// detector owns its target-specific request construction and delivery; the
// shared confirmation engine (internal/oob) owns tokens, payloads and the
// poll protocol.
package detectors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nightshade/scanner/internal/networking"
	"github.com/nightshade/scanner/internal/oob"
	"github.com/nightshade/scanner/internal/report"
	"github.com/nightshade/scanner/internal/utils"
)

// Detector probes one target for one vulnerability class and reports
// confirmed findings. Implementations must be safe for concurrent Probe calls
// on distinct targets.
type Detector interface {
	Name() string
	Probe(ctx context.Context, target string) ([]report.Finding, error)
}

// Deps carries the collaborators shared by all detectors.
type Deps struct {
	Client *networking.Client
	Engine *oob.Engine
	Logger utils.Logger
	// ConfirmationTimeout is the per-session confirmation budget, passed
	// explicitly to every session.
	ConfirmationTimeout time.Duration
}

// All returns the full closed set of detectors.
func All(deps Deps) []Detector {
	return []Detector{
		NewCommandInjectionDetector(deps),
		NewSSRFDetector(deps),
		NewJNDIDetector(deps),
	}
}

// Select returns the detectors matching names, or all of them when names is
// empty. Unknown names are an error rather than silently skipped.
func Select(deps Deps, names []string) ([]Detector, error) {
	available := All(deps)
	if len(names) == 0 {
		return available, nil
	}
	byName := make(map[string]Detector, len(available))
	for _, d := range available {
		byName[d.Name()] = d
	}
	var selected []Detector
	for _, name := range names {
		d, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown detector '%s'", name)
		}
		selected = append(selected, d)
	}
	return selected, nil
}

// pendingConfirmation pairs a sent session with the finding it produces if
// the callback is confirmed.
type pendingConfirmation struct {
	session *oob.PayloadSession
	filter  oob.Protocol
	finding report.Finding
}

// confirmAll drives every pending session to a terminal state concurrently.
// Sessions are independent by construction (distinct tokens), so their polls
// may overlap freely. Only CONFIRMED outcomes yield findings; ERROR outcomes
// (collector unreachable) are logged as indeterminate and never reported as
// negative or positive.
func (d Deps) confirmAll(ctx context.Context, pending []pendingConfirmation) []report.Finding {
	var (
		mu       sync.Mutex
		findings []report.Finding
		wg       sync.WaitGroup
	)

	for i := range pending {
		wg.Add(1)
		go func(p pendingConfirmation) {
			defer wg.Done()
			outcome, err := p.session.Confirm(ctx, p.filter, d.ConfirmationTimeout)
			switch outcome {
			case oob.OutcomeConfirmed:
				finding := p.finding
				finding.Token = string(p.session.Token())
				finding.DetectedAt = time.Now()
				mu.Lock()
				findings = append(findings, finding)
				mu.Unlock()
			case oob.OutcomeError:
				d.Logger.Warnf("Confirmation for %s on %s indeterminate (collector unreachable): %v",
					p.finding.Vulnerability, p.finding.Target, err)
			default:
				d.Logger.Debugf("No callback observed for token %s (%s on %s)",
					p.session.Token(), p.finding.Vulnerability, p.finding.Target)
			}
		}(pending[i])
	}

	wg.Wait()
	return findings
}

// newSession creates a session for spec, distinguishing skippable template
// gaps from fatal entropy failure.
func (d Deps) newSession(spec oob.PayloadSpec) (*oob.PayloadSession, bool, error) {
	session, err := d.Engine.NewSession(spec)
	if err != nil {
		if errors.Is(err, oob.ErrUnsupportedEnvironment) {
			d.Logger.Debugf("Skipping spec %s/%s: %v", spec.Class, spec.Environment, err)
			return nil, false, nil
		}
		return nil, false, err
	}
	return session, true, nil
}
