package nlp

import (
	"sync"
	"time"
)

const (
	// DefaultTokenBudget is the maximum number of LLM tokens allowed per
	// user per UTC day when no explicit budget is configured.
	// 50 000 tokens/day is enough for ~100 moderate chat exchanges while
	// keeping costs low on metered providers.
	DefaultTokenBudget = 50_000
)

// TokenBudget enforces a per-user daily token budget for chat completion
// calls.
//
// The counter for each user resets at midnight UTC.  Callers should:
//  1. Call Allow before issuing a completion request; it returns false
//     when the user has already exhausted today's allocation.
//  2. Call RecordUsage after a successful call to update the counter.
//
// TokenBudget is safe for concurrent use.
type TokenBudget struct {
	mu     sync.Mutex
	budget int
	usage  map[string]*userDailyUsage
}

// userDailyUsage tracks cumulative token consumption for one user within
// the current UTC day.
type userDailyUsage struct {
	tokens  int
	resetAt time.Time // next midnight UTC
}

// NewTokenBudget returns a TokenBudget that allows at most dailyBudget
// tokens per user per UTC day.
//
// If dailyBudget ≤ 0 it defaults to DefaultTokenBudget.
func NewTokenBudget(dailyBudget int) *TokenBudget {
	if dailyBudget <= 0 {
		dailyBudget = DefaultTokenBudget
	}
	return &TokenBudget{
		budget: dailyBudget,
		usage:  make(map[string]*userDailyUsage),
	}
}

// Budget returns the configured daily token limit per user.
func (tb *TokenBudget) Budget() int {
	return tb.budget
}

// Allow returns true when userID has not yet exhausted their daily token
// budget.  It does NOT consume any tokens; call RecordUsage after a
// successful completion call to record actual usage.
func (tb *TokenBudget) Allow(userID string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.resetIfNeeded(userID)

	u := tb.usage[userID]
	if u == nil {
		return true
	}
	return u.tokens < tb.budget
}

// RecordUsage adds tokens to userID's running daily total.  If this is the
// first call for the user today a new counter is initialised.
func (tb *TokenBudget) RecordUsage(userID string, tokens int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.resetIfNeeded(userID)

	u := tb.usage[userID]
	if u == nil {
		u = &userDailyUsage{resetAt: nextMidnightUTC()}
		tb.usage[userID] = u
	}
	u.tokens += tokens
}

// Remaining returns the number of tokens userID may still consume today.
// Returns 0 when the budget is exhausted.
func (tb *TokenBudget) Remaining(userID string) int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.resetIfNeeded(userID)

	u := tb.usage[userID]
	if u == nil {
		return tb.budget
	}
	if rem := tb.budget - u.tokens; rem > 0 {
		return rem
	}
	return 0
}

// Used returns the total tokens userID has consumed today.
func (tb *TokenBudget) Used(userID string) int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.resetIfNeeded(userID)

	u := tb.usage[userID]
	if u == nil {
		return 0
	}
	return u.tokens
}

// resetIfNeeded deletes the userID entry when the UTC calendar day has
// rolled over.  Must be called with tb.mu held.
func (tb *TokenBudget) resetIfNeeded(userID string) {
	u := tb.usage[userID]
	if u == nil {
		return
	}
	if time.Now().UTC().After(u.resetAt) {
		delete(tb.usage, userID)
	}
}

// nextMidnightUTC returns the time of midnight UTC at the start of the
// next calendar day.
func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}
