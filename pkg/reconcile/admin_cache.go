package reconcile

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// AdminCache remembers orgs where the service account was enrolled as Admin.
// Entries are process local and expire after the configured TTL.
type AdminCache struct {
	entries *expirable.LRU[int64, struct{}]
}

// NewAdminCache creates a cache whose entries live for ttl, forever when ttl <= 0
func NewAdminCache(ttl time.Duration) *AdminCache {
	return &AdminCache{
		entries: expirable.NewLRU[int64, struct{}](0, nil, ttl),
	}
}

// IsAdmin reports whether orgID is known to be enrolled
func (c *AdminCache) IsAdmin(orgID int64) bool {
	_, ok := c.entries.Get(orgID)
	return ok
}

// MarkAdmin records orgID as enrolled
func (c *AdminCache) MarkAdmin(orgID int64) {
	c.entries.Add(orgID, struct{}{})
}

// Forget drops orgID so the next pass enrolls again
func (c *AdminCache) Forget(orgID int64) {
	c.entries.Remove(orgID)
}

// Len returns the number of cached orgs
func (c *AdminCache) Len() int {
	return c.entries.Len()
}

// Reset empties the cache
func (c *AdminCache) Reset() {
	c.entries.Purge()
}
