package detectors

import (
	"context"
	"fmt"

	"github.com/nightshade/scanner/internal/oob"
	"github.com/nightshade/scanner/internal/report"
)

// SSRFDetector probes for blind server-side request forgery by replacing
// parameter values with a token-bound collector URL and waiting for the
// server to fetch it.
type SSRFDetector struct {
	deps Deps
}

// NewSSRFDetector creates the detector.
func NewSSRFDetector(deps Deps) *SSRFDetector {
	return &SSRFDetector{deps: deps}
}

func (d *SSRFDetector) Name() string {
	return "blind-ssrf"
}

func (d *SSRFDetector) Probe(ctx context.Context, target string) ([]report.Finding, error) {
	points := collectInjectionPoints(ctx, d.deps.Client, target, d.deps.Logger)
	if len(points) == 0 {
		d.deps.Logger.Debugf("No injection points found on %s", target)
		return nil, nil
	}

	spec := oob.PayloadSpec{
		Environment: oob.EnvGeneric,
		Class:       oob.ClassSSRF,
		Delivery:    oob.DeliveryRaw,
	}

	var pending []pendingConfirmation
	for _, point := range points {
		session, ok, err := d.deps.newSession(spec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		injected := session.Payload().Value
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
				Vulnerability: "Blind Server-Side Request Forgery",
				Severity:      "high",
				Parameter:     point.Param,
				Payload:       injected,
				Protocol:      string(oob.ProtocolAny),
				Evidence: fmt.Sprintf("server fetched the collector URL planted in %s parameter '%s'",
					point.Source, point.Param),
			},
		})
	}

	return d.deps.confirmAll(ctx, pending), nil
}
