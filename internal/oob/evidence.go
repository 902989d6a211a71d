package oob

import (
	"context"
	"time"
)

// Protocol filters which interaction classes count as evidence.
type Protocol string

const (
	ProtocolAny  Protocol = "any"
	ProtocolHTTP Protocol = "http"
	ProtocolDNS  Protocol = "dns"
)

// Interaction is one recorded inbound contact with the collector.
type Interaction struct {
	Protocol      Protocol
	RemoteAddress string
	Timestamp     time.Time
	RawRequest    string
}

// InteractionEvidence is a read-only snapshot of what the collector has
// observed for a token. A fresh one is fetched on every poll attempt; it is
// never cached or reused across sessions.
type InteractionEvidence struct {
	Token          CorrelationToken
	HasInteraction bool
	Interactions   []Interaction
}

// Registry is the query surface of the remote callback collector. Queries are
// idempotent reads, individually time-bounded by ctx, and safe for concurrent
// use by many sessions. A transport failure must surface as an error, never
// as negative evidence.
type Registry interface {
	Query(ctx context.Context, token CorrelationToken, filter Protocol) (InteractionEvidence, error)
}
