package inode

import (
	"strconv"
	"time"

	"github.com/rcosdp/rdmfs/internal/cache"
)

// ChildList is the ordered, materialised sequence of child Entities
// last observed for a parent (spec.md §4.2). Listing-cache entries are
// always atomically replaced, never merged (invariant 5).
type ChildList struct {
	ParentID uint64
	Children []*Entity
}

// ListingCache is the TTL map parent_id -> ChildList.
type ListingCache struct {
	c *cache.Cache[ChildList]
}

// NewListingCache builds a listing cache with the given TTL and
// capacity (design defaults: 180s, 256 entries, spec.md §4.2).
func NewListingCache(ttl time.Duration, maxEntries int) *ListingCache {
	return &ListingCache{c: cache.New[ChildList](ttl, maxEntries)}
}

func (lc *ListingCache) Get(parentID uint64) (ChildList, bool) {
	return lc.c.Get(listingKey(parentID))
}

func (lc *ListingCache) Set(parentID uint64, children []*Entity) {
	lc.c.Set(listingKey(parentID), ChildList{ParentID: parentID, Children: children})
}

// Delete drops the cached listing for parentID, so the next ChildrenOf
// re-lists before TTL expiry (spec.md §4.2). Registry.FindByName also
// replaces the entry when a cached listing lacks the requested name.
func (lc *ListingCache) Delete(parentID uint64) {
	lc.c.Delete(listingKey(parentID))
}

func (lc *ListingCache) Stop() { lc.c.Stop() }

func listingKey(id uint64) string { return strconv.FormatUint(id, 10) }
