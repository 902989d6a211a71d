package detectors

import (
	"context"
	"fmt"

	"github.com/nightshade/scanner/internal/oob"
	"github.com/nightshade/scanner/internal/report"
)

// cmdiSeparators are the command separators tried per shell environment when
// appending the callback trigger to an existing parameter value.
var cmdiSeparators = map[oob.Environment][]string{
	oob.EnvLinuxShell:   {";", "&&", "|"},
	oob.EnvWindowsShell: {"&", "|"},
}

// CommandInjectionDetector probes for blind OS command injection: it appends
// shell commands that trigger an out-of-band callback to every discovered
// injection point, then waits for the collector to confirm execution.
type CommandInjectionDetector struct {
	deps Deps
}

// NewCommandInjectionDetector creates the detector.
func NewCommandInjectionDetector(deps Deps) *CommandInjectionDetector {
	return &CommandInjectionDetector{deps: deps}
}

func (d *CommandInjectionDetector) Name() string {
	return "blind-command-injection"
}

// Probe injects one payload session per (point, environment, separator)
// combination, delivers them all, then confirms concurrently. The target
// gives no observable response for a blind flaw; only a collector callback
// tagged with the session's token confirms execution.
func (d *CommandInjectionDetector) Probe(ctx context.Context, target string) ([]report.Finding, error) {
	points := collectInjectionPoints(ctx, d.deps.Client, target, d.deps.Logger)
	if len(points) == 0 {
		d.deps.Logger.Debugf("No injection points found on %s", target)
		return nil, nil
	}

	var pending []pendingConfirmation
	for _, point := range points {
		for env, separators := range cmdiSeparators {
			for _, sep := range separators {
				spec := oob.PayloadSpec{
					Environment: env,
					Class:       oob.ClassCommandInjection,
					Delivery:    oob.DeliveryRaw,
				}
				session, ok, err := d.deps.newSession(spec)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}

				injected := fmt.Sprintf("%s%s %s", point.Value, sep, session.Payload().Value)
				if err := sendToPoint(ctx, d.deps.Client, point, injected); err != nil {
					d.deps.Logger.Debugf("Delivery to %s param %s failed: %v", point.URL, point.Param, err)
					continue
				}
				if err := session.MarkSent(); err != nil {
					return nil, err
				}

				pending = append(pending, pendingConfirmation{
					session: session,
					filter:  oob.ProtocolAny,
					finding: report.Finding{
						Target:        target,
						Detector:      d.Name(),
						Vulnerability: "Blind OS Command Injection",
						Severity:      "critical",
						Parameter:     point.Param,
						Payload:       injected,
						Protocol:      string(oob.ProtocolAny),
						Evidence: fmt.Sprintf("out-of-band callback from injected %s command via %s parameter '%s'",
							env, point.Source, point.Param),
					},
				})
			}
		}
	}

	return d.deps.confirmAll(ctx, pending), nil
}
