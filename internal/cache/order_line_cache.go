package cache

import (
	"context"
	"sync"

	"gitlab.com/teranga/resolution/internal/clients"
	"gitlab.com/teranga/resolution/internal/metrics"
)

type OrderFetcher interface {
	GetOrderLine(ctx context.Context, orderID string) (*clients.OrderLine, error)
}

// OrderLineCache is a read-through cache over the order service. Order lines
// are immutable once delivered, so entries never expire.
type OrderLineCache struct {
	mu      sync.RWMutex
	cache   map[string]*clients.OrderLine
	fetcher OrderFetcher
}

func NewOrderLineCache(fetcher OrderFetcher) *OrderLineCache {
	return &OrderLineCache{
		cache:   make(map[string]*clients.OrderLine),
		fetcher: fetcher,
	}
}

func (c *OrderLineCache) GetOrderLine(ctx context.Context, orderID string) (*clients.OrderLine, error) {
	c.mu.RLock()
	line, found := c.cache[orderID]
	c.mu.RUnlock()
	if found {
		cp := *line
		return &cp, nil
	}

	line, err := c.fetcher.GetOrderLine(ctx, orderID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	cp := *line
	c.cache[orderID] = &cp
	metrics.OrderLineCacheItems.Set(float64(len(c.cache)))
	c.mu.Unlock()
	return line, nil
}
