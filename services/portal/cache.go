package portal

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// gymCache keeps slug lookups in memory. A nil *gymCache is a valid, always
// missing cache.
type gymCache struct {
	items *gocache.Cache
}

func newGymCache(ttl time.Duration) *gymCache {
	if ttl <= 0 {
		return nil
	}
	return &gymCache{items: gocache.New(ttl, 2*ttl)}
}

func (c *gymCache) get(slug string) (Gym, bool) {
	if c == nil {
		return Gym{}, false
	}
	v, found := c.items.Get(slug)
	if !found {
		return Gym{}, false
	}
	gym, ok := v.(Gym)
	return gym, ok
}

func (c *gymCache) set(gym Gym) {
	if c == nil {
		return
	}
	c.items.SetDefault(gym.Slug, gym)
}
