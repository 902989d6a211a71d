// Package collector implements the HTTP client for the remote callback
// collector: it builds token-bound callback addresses for payloads and polls
// the collector's query endpoint for recorded interactions.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nightshade/scanner/internal/oob"
	"github.com/nightshade/scanner/internal/utils"
)

const defaultQueryTimeout = 10 * time.Second

// ClientConfig configures the collector client.
type ClientConfig struct {
	// BaseURL is the collector's polling endpoint base, e.g.
	// "https://collector.example.com".
	BaseURL string
	// CallbackDomain is the domain payloads call back to; callback addresses
	// are token-prefixed subdomains of it, e.g. "<token>.oast.example.com".
	CallbackDomain string
	// Timeout bounds a single poll query. The confirmation poller additionally
	// clips each attempt to the remaining budget.
	Timeout   time.Duration
	UserAgent string
}

// Client queries the callback collector. It implements both oob.Registry and
// oob.AddressProvider. Safe for concurrent use by many sessions.
type Client struct {
	httpClient *http.Client
	cfg        ClientConfig
	logger     utils.Logger
}

// NewClient creates a collector client from cfg.
func NewClient(cfg ClientConfig, logger utils.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("collector base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid collector base URL '%s': %w", cfg.BaseURL, err)
	}
	if cfg.CallbackDomain == "" {
		return nil, fmt.Errorf("collector callback domain is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultQueryTimeout
	}
	if logger == nil {
		logger = utils.NewNoOpLogger()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// CallbackAddress returns the schemeless address a payload must contact for
// the collector to attribute the interaction to token.
func (c *Client) CallbackAddress(token oob.CorrelationToken) string {
	return fmt.Sprintf("%s.%s", token, c.cfg.CallbackDomain)
}

// pollResponse is the collector's JSON answer to a poll query.
type pollResponse struct {
	HasHTTPInteraction bool                `json:"has_http_interaction"`
	HasDNSInteraction  bool                `json:"has_dns_interaction"`
	Interactions       []interactionRecord `json:"interactions,omitempty"`
}

type interactionRecord struct {
	Protocol      string    `json:"protocol"`
	RemoteAddress string    `json:"remote_address"`
	Timestamp     time.Time `json:"timestamp"`
	RawRequest    string    `json:"raw_request,omitempty"`
}

// Query fetches a fresh evidence snapshot for token. A 200 answer carries the
// interaction summary, a 404 means no interaction has been recorded yet (a
// negative read, not an error). Transport failures and unexpected statuses
// surface as ErrCollectorUnreachable so callers never mistake an unreachable
// collector for absence of evidence.
func (c *Client) Query(ctx context.Context, token oob.CorrelationToken, filter oob.Protocol) (oob.InteractionEvidence, error) {
	pollURL := fmt.Sprintf("%s/poll?token=%s&protocol=%s",
		strings.TrimSuffix(c.cfg.BaseURL, "/"),
		url.QueryEscape(string(token)),
		url.QueryEscape(string(filter)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return oob.InteractionEvidence{}, fmt.Errorf("failed to build poll request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oob.InteractionEvidence{}, fmt.Errorf("%w: %v", oob.ErrCollectorUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return oob.InteractionEvidence{}, fmt.Errorf("%w: reading poll response: %v", oob.ErrCollectorUnreachable, err)
		}
		var poll pollResponse
		if err := json.Unmarshal(body, &poll); err != nil {
			return oob.InteractionEvidence{}, fmt.Errorf("%w: malformed poll response: %v", oob.ErrCollectorUnreachable, err)
		}
		return evidenceFromPoll(token, filter, poll), nil
	case http.StatusNotFound:
		// No interaction recorded for this token yet.
		return oob.InteractionEvidence{Token: token}, nil
	default:
		return oob.InteractionEvidence{}, fmt.Errorf("%w: collector returned status %d", oob.ErrCollectorUnreachable, resp.StatusCode)
	}
}

func evidenceFromPoll(token oob.CorrelationToken, filter oob.Protocol, poll pollResponse) oob.InteractionEvidence {
	var has bool
	switch filter {
	case oob.ProtocolHTTP:
		has = poll.HasHTTPInteraction
	case oob.ProtocolDNS:
		has = poll.HasDNSInteraction
	default:
		has = poll.HasHTTPInteraction || poll.HasDNSInteraction
	}

	evidence := oob.InteractionEvidence{Token: token, HasInteraction: has}
	for _, rec := range poll.Interactions {
		evidence.Interactions = append(evidence.Interactions, oob.Interaction{
			Protocol:      oob.Protocol(rec.Protocol),
			RemoteAddress: rec.RemoteAddress,
			Timestamp:     rec.Timestamp,
			RawRequest:    rec.RawRequest,
		})
	}
	return evidence
}
