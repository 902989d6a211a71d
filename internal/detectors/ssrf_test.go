package detectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSSRF_VulnerableQueryParam(t *testing.T) {
	registry := newMemoryRegistry()

	// The app "fetches" whatever URL arrives in the url parameter.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		registry.recordFrom(r.URL.Query().Get("url"))
		w.Write([]byte("fetched"))
	}))
	defer server.Close()

	deps := newTestDeps(t, registry)
	detector := NewSSRFDetector(deps)

	findings, err := detector.Probe(context.Background(), server.URL+"/proxy?url=http://example.com/")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	finding := findings[0]
	if finding.Vulnerability != "Blind Server-Side Request Forgery" {
		t.Errorf("unexpected vulnerability type: %s", finding.Vulnerability)
	}
	if !strings.Contains(finding.Payload, finding.Token) {
		t.Errorf("payload %q does not embed token %q", finding.Payload, finding.Token)
	}
}

func TestSSRF_DiscoversFormFields(t *testing.T) {
	registry := newMemoryRegistry()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<form action="/fetch" method="post">
				<input type="text" name="endpoint" value="http://example.com">
				<input type="submit" value="Go">
			</form>
		</body></html>`))
	})
	mux.HandleFunc("/fetch", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil {
			registry.recordFrom(r.PostForm.Get("endpoint"))
		}
		w.Write([]byte("ok"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	deps := newTestDeps(t, registry)
	detector := NewSSRFDetector(deps)

	findings, err := detector.Probe(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding via form field, got %d", len(findings))
	}
	if findings[0].Parameter != "endpoint" {
		t.Errorf("unexpected parameter: %s", findings[0].Parameter)
	}
}

func TestJNDI_VulnerableHeader(t *testing.T) {
	registry := newMemoryRegistry()

	// A log4shell-style app: request headers flow into a vulnerable logger.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		registry.recordFrom(requestText(r))
		w.Write([]byte("logged"))
	}))
	defer server.Close()

	deps := newTestDeps(t, registry)
	detector := NewJNDIDetector(deps)

	findings, err := detector.Probe(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if len(findings) != len(jndiHeaders) {
		t.Fatalf("expected %d findings (one per header), got %d", len(jndiHeaders), len(findings))
	}
	for _, f := range findings {
		if !strings.Contains(f.Payload, "${jndi:ldap://") {
			t.Errorf("payload missing JNDI lookup: %s", f.Payload)
		}
	}
}

func TestJNDI_SafeTarget(t *testing.T) {
	registry := newMemoryRegistry()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	deps := newTestDeps(t, registry)
	detector := NewJNDIDetector(deps)

	findings, err := detector.Probe(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %d", len(findings))
	}
}
