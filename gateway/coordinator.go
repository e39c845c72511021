package gateway

import (
	"context"
	"sync"

	"github.com/shimmeringbee/infragate/device"
)

// Coordinator serialises every operation that touches a device session. Inbound commands,
// periodic snapshots and API actions all run under the same guard.
type Coordinator struct {
	guard sync.Mutex

	router    CommandRouter
	collector StateCollector

	cacheLock sync.RWMutex
	last      []device.Telemetry
}

func NewCoordinator(router CommandRouter, collector StateCollector) *Coordinator {
	return &Coordinator{
		router:    router,
		collector: collector,
	}
}

func (c *Coordinator) Command(ctx context.Context, category device.Category, payload []byte) error {
	c.guard.Lock()
	defer c.guard.Unlock()

	return c.router.Route(ctx, category, payload)
}

// Snapshot collects telemetry for all devices under the guard, publishing is left to the caller
// once the guard has been released.
func (c *Coordinator) Snapshot(ctx context.Context) []device.Telemetry {
	c.guard.Lock()
	telemetry := c.collector.Collect(ctx)
	c.guard.Unlock()

	c.cacheLock.Lock()
	c.last = telemetry
	c.cacheLock.Unlock()

	return telemetry
}

// LastSnapshot returns the most recent telemetry without touching any device.
func (c *Coordinator) LastSnapshot() []device.Telemetry {
	c.cacheLock.RLock()
	defer c.cacheLock.RUnlock()

	return c.last
}

// Exclusive runs f while holding the guard.
func (c *Coordinator) Exclusive(f func()) {
	c.guard.Lock()
	defer c.guard.Unlock()

	f()
}
