package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nightshade/scanner/internal/oob"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		BaseURL:        baseURL,
		CallbackDomain: "oast.test",
		Timeout:        2 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestClient_CallbackAddress(t *testing.T) {
	client := newTestClient(t, "http://collector.test")
	addr := client.CallbackAddress("00112233445566778899aabbccddeeff")
	if addr != "00112233445566778899aabbccddeeff.oast.test" {
		t.Errorf("unexpected callback address: %s", addr)
	}
}

func TestClient_QueryEvidence(t *testing.T) {
	var gotToken, gotProtocol string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("token")
		gotProtocol = r.URL.Query().Get("protocol")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"has_http_interaction": true,
			"has_dns_interaction": false,
			"interactions": [
				{"protocol": "http", "remote_address": "203.0.113.7:44912", "timestamp": "2024-06-01T12:00:00Z", "raw_request": "GET / HTTP/1.1"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	evidence, err := client.Query(context.Background(), "abcd", oob.ProtocolHTTP)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if gotToken != "abcd" || gotProtocol != "http" {
		t.Errorf("poll request carried token=%q protocol=%q", gotToken, gotProtocol)
	}
	if !evidence.HasInteraction {
		t.Error("expected HasInteraction=true")
	}
	if len(evidence.Interactions) != 1 || evidence.Interactions[0].RemoteAddress != "203.0.113.7:44912" {
		t.Errorf("unexpected interaction details: %+v", evidence.Interactions)
	}
}

func TestClient_QueryProtocolFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"has_http_interaction": true, "has_dns_interaction": false}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	// DNS-only evidence requested, but only HTTP was observed.
	evidence, err := client.Query(context.Background(), "abcd", oob.ProtocolDNS)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if evidence.HasInteraction {
		t.Error("HTTP interaction counted as DNS evidence")
	}

	evidence, err = client.Query(context.Background(), "abcd", oob.ProtocolAny)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if !evidence.HasInteraction {
		t.Error("any-protocol filter missed HTTP interaction")
	}
}

func TestClient_QueryNoLogsYet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	evidence, err := client.Query(context.Background(), "abcd", oob.ProtocolAny)
	if err != nil {
		t.Fatalf("404 must be a negative read, got error: %v", err)
	}
	if evidence.HasInteraction {
		t.Error("404 reported as evidence")
	}
}

func TestClient_QueryUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(t, server.URL)
	_, err := client.Query(context.Background(), "abcd", oob.ProtocolAny)
	if !errors.Is(err, oob.ErrCollectorUnreachable) {
		t.Fatalf("expected ErrCollectorUnreachable, got %v", err)
	}
}

func TestClient_QueryUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Query(context.Background(), "abcd", oob.ProtocolAny)
	if !errors.Is(err, oob.ErrCollectorUnreachable) {
		t.Fatalf("expected ErrCollectorUnreachable, got %v", err)
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(ClientConfig{CallbackDomain: "oast.test"}, nil); err == nil {
		t.Error("missing base URL accepted")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "http://collector.test"}, nil); err == nil {
		t.Error("missing callback domain accepted")
	}
}
