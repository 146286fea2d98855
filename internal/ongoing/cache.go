package ongoing

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultSnapshotTTL matches the refresh rate of the detection pipeline:
// entries older than this are no longer "ongoing".
const DefaultSnapshotTTL = 10 * time.Second

// SnapshotCache is a short-TTL store of raw ongoings keyed by workspace.
// A miss means no detections this tick, never an error.
type SnapshotCache struct {
	store *gocache.Cache
}

// NewSnapshotCache creates a snapshot cache with the given TTL.
// A non-positive TTL falls back to DefaultSnapshotTTL.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{store: gocache.New(ttl, 2*ttl)}
}

// Put replaces the cached ongoings for a workspace.
func (c *SnapshotCache) Put(workspaceID string, ongoings []Ongoing) {
	c.store.SetDefault(workspaceID, ongoings)
}

// Get returns the cached ongoings for a workspace, or nil on a miss.
func (c *SnapshotCache) Get(workspaceID string) []Ongoing {
	v, ok := c.store.Get(workspaceID)
	if !ok {
		return nil
	}
	ongoings, ok := v.([]Ongoing)
	if !ok {
		return nil
	}
	return ongoings
}
