package cache

import (
	"strings"
	"time"
)

const (
	defaultAcceptedTTL = 30 * time.Minute
	defaultRejectedTTL = 10 * time.Minute
)

// VerdictCache remembers recent address checks so repeated registration
// attempts for the same email do not go back to the provider.
type VerdictCache[V any] interface {
	Get(email string) (V, bool)
	Set(email string, verdict V, accepted bool)
}

type verdictCache[V any] struct {
	entries     Cache[string, V]
	acceptedTTL time.Duration
	rejectedTTL time.Duration
}

// NewVerdictCache returns a VerdictCache. Zero TTLs fall back to the defaults.
func NewVerdictCache[V any](acceptedTTL, rejectedTTL time.Duration) VerdictCache[V] {
	if acceptedTTL <= 0 {
		acceptedTTL = defaultAcceptedTTL
	}
	if rejectedTTL <= 0 {
		rejectedTTL = defaultRejectedTTL
	}
	return &verdictCache[V]{
		entries:     NewTTLCache[string, V](),
		acceptedTTL: acceptedTTL,
		rejectedTTL: rejectedTTL,
	}
}

func (c *verdictCache[V]) Get(email string) (V, bool) {
	return c.entries.Get(cacheKey(email))
}

func (c *verdictCache[V]) Set(email string, verdict V, accepted bool) {
	key := cacheKey(email)
	if key == "" {
		return
	}
	ttl := c.rejectedTTL
	if accepted {
		ttl = c.acceptedTTL
	}
	c.entries.Set(key, verdict, ttl)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
