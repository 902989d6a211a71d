package detectors

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nightshade/scanner/internal/networking"
	"github.com/nightshade/scanner/internal/oob"
	"github.com/nightshade/scanner/internal/report"
)

// jndiHeaders are the request headers commonly reflected into JVM logging
// pipelines.
var jndiHeaders = []string{
	"User-Agent",
	"Referer",
	"X-Api-Version",
	"X-Forwarded-For",
}

// JNDIDetector probes for log4shell-class vulnerabilities: a JNDI lookup
// string planted in request headers that, when logged by a vulnerable JVM,
// triggers an LDAP/DNS resolution of the token-bound collector address.
type JNDIDetector struct {
	deps Deps
}

// NewJNDIDetector creates the detector.
func NewJNDIDetector(deps Deps) *JNDIDetector {
	return &JNDIDetector{deps: deps}
}

func (d *JNDIDetector) Name() string {
	return "jndi-lookup"
}

func (d *JNDIDetector) Probe(ctx context.Context, target string) ([]report.Finding, error) {
	spec := oob.PayloadSpec{
		Environment: oob.EnvJVM,
		Class:       oob.ClassJNDILookup,
		Delivery:    oob.DeliveryRaw,
	}

	var pending []pendingConfirmation
	for _, header := range jndiHeaders {
		session, ok, err := d.deps.newSession(spec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		payload := session.Payload().Value
		respData := d.deps.Client.PerformRequest(networking.ClientRequestData{
			URL:            target,
			Method:         http.MethodGet,
			RequestHeaders: http.Header{header: []string{payload}},
			Ctx:            ctx,
		})
		if respData.Error != nil {
			d.deps.Logger.Debugf("Delivery to %s via header %s failed: %v", target, header, respData.Error)
			continue
		}
		if err := session.MarkSent(); err != nil {
			return nil, err
		}

		pending = append(pending, pendingConfirmation{
			session: session,
			// The JNDI lookup resolves the collector address over DNS before
			// any LDAP connection, so DNS evidence is the reliable signal.
			filter: oob.ProtocolDNS,
			finding: report.Finding{
				Target:        target,
				Detector:      d.Name(),
				Vulnerability: "Remote JNDI Lookup Injection",
				Severity:      "critical",
				Parameter:     header,
				Payload:       payload,
				Protocol:      string(oob.ProtocolDNS),
				Evidence:      fmt.Sprintf("DNS resolution of the collector address planted in the %s header", header),
			},
		})
	}

	return d.deps.confirmAll(ctx, pending), nil
}
