package agent

import (
	"strings"
	"sync"
	"time"

	"github.com/querypilot/querypilot/internal/observability"
)

const defaultSessionID = "default"

type pendingApproval struct {
	question  string
	sql       string
	updatedAt time.Time
}

// Gate holds SQL awaiting human approval, keyed by session. A session has at
// most one pending statement; submitting a new question for the same session
// replaces whatever was pending before.
type Gate struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]pendingApproval
}

func NewGate(ttl time.Duration) *Gate {
	return &Gate{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[string]pendingApproval),
	}
}

func (g *Gate) Put(sessionID, question, sqlText string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.purgeExpiredLocked()
	g.pending[normalizeSession(sessionID)] = pendingApproval{
		question:  question,
		sql:       sqlText,
		updatedAt: g.now(),
	}
	observability.SetPendingApprovals(len(g.pending))
}

// Pending returns the stored SQL when the session has an unexpired entry for
// the same question. The entry stays until Resolve or Cancel.
func (g *Gate) Pending(sessionID, question string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.purgeExpiredLocked()
	entry, ok := g.pending[normalizeSession(sessionID)]
	if !ok || !sameQuestion(entry.question, question) {
		return "", false
	}
	return entry.sql, true
}

// Resolve drops the session's pending entry after the statement ran.
func (g *Gate) Resolve(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, normalizeSession(sessionID))
	g.purgeExpiredLocked()
	observability.SetPendingApprovals(len(g.pending))
}

// Cancel discards the session's pending entry without executing it and
// reports whether anything was pending.
func (g *Gate) Cancel(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.purgeExpiredLocked()
	key := normalizeSession(sessionID)
	_, ok := g.pending[key]
	delete(g.pending, key)
	observability.SetPendingApprovals(len(g.pending))
	return ok
}

func (g *Gate) purgeExpiredLocked() {
	if g.ttl <= 0 {
		return
	}
	cutoff := g.now().Add(-g.ttl)
	for key, entry := range g.pending {
		if entry.updatedAt.Before(cutoff) {
			delete(g.pending, key)
		}
	}
}

func normalizeSession(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return defaultSessionID
	}
	return sessionID
}

func sameQuestion(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
