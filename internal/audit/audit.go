// Package audit keeps the append-only, correlated record of every
// authentication outcome. Entries are never mutated or removed; the
// only derived structure is the per-event-type counter.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/0ashutosh1/Project/internal/logger"
)

// Event types recorded by the auth flows.
const (
	TypeLogin    = "login"
	TypeLink     = "link_account"
	TypeUnlink   = "unlink_account"
	TypeRefresh  = "token_refresh"
	TypeLogout   = "logout"
	TypeSecurity = "security"
)

// Security event severities.
const (
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Client carries the network context of the request being audited.
type Client struct {
	IP        string
	UserAgent string
}

// Event is one audit entry. CorrelationID ties together the entries of
// a multi-step flow; leave it empty to have Record assign one.
type Event struct {
	CorrelationID string
	Timestamp     time.Time
	Type          string
	Provider      string
	AccountID     string
	Email         string
	Client        Client
	Success       bool
	Reason        string
	Severity      string // security events only
	Metadata      map[string]any
}

// Trail is the in-process audit log. Constructed once at startup and
// injected wherever outcomes are recorded.
type Trail struct {
	mu     sync.Mutex
	events []Event
	counts map[string]int
	now    func() time.Time
}

func NewTrail() *Trail {
	return &Trail{
		counts: make(map[string]int),
		now:    time.Now,
	}
}

// Record appends the event and returns its correlation id.
func (t *Trail) Record(e Event) string {
	if e.CorrelationID == "" {
		e.CorrelationID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now().UTC()
	}

	t.mu.Lock()
	t.events = append(t.events, e)
	t.counts[e.Type]++
	t.mu.Unlock()

	fields := map[string]any{
		"correlation_id": e.CorrelationID,
		"event_type":     e.Type,
		"success":        e.Success,
	}
	if e.Provider != "" {
		fields["provider"] = e.Provider
	}
	if e.AccountID != "" {
		fields["account_id"] = e.AccountID
	}
	if e.Reason != "" {
		fields["reason"] = e.Reason
	}
	if e.Severity != "" {
		fields["severity"] = e.Severity
	}
	if e.Success {
		logger.Info("audit", fields)
	} else {
		logger.Warn("audit", fields)
	}

	return e.CorrelationID
}

// Security appends a security-severity entry. Replay detection and
// revoked-token reuse always come through here in addition to the
// ordinary outcome entry.
func (t *Trail) Security(e Event) string {
	e.Type = TypeSecurity
	if e.Severity == "" {
		e.Severity = SeverityHigh
	}
	e.Success = false
	return t.Record(e)
}

// Metrics returns the event counts by type.
func (t *Trail) Metrics() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// ByCorrelation returns all entries sharing a correlation id, in
// recording order.
func (t *Trail) ByCorrelation(correlationID string) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Event
	for _, e := range t.events {
		if e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns the most recent n entries, oldest first.
func (t *Trail) Recent(n int) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > len(t.events) {
		n = len(t.events)
	}
	out := make([]Event, n)
	copy(out, t.events[len(t.events)-n:])
	return out
}
