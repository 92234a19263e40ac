package driver

import (
	"log/slog"
	"sync"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// Catalog maps application types to drivers
type Catalog struct {
	mu      sync.RWMutex
	drivers map[entities.AppType]ports.Driver
}

// NewCatalog creates a catalog holding drivers, keyed by their Type
func NewCatalog(drivers ...ports.Driver) *Catalog {
	c := &Catalog{drivers: make(map[entities.AppType]ports.Driver)}
	for _, d := range drivers {
		c.Register(d)
	}
	return c
}

// NewDefaultCatalog builds the enabled AppleScript drivers from configuration
func NewDefaultCatalog(cfg entities.DriversConfig, logger *slog.Logger) *Catalog {
	runner := NewRunner(cfg.GetTimeout(), logger)

	c := NewCatalog()
	if cfg.Keynote.Enabled {
		c.Register(NewKeynoteDriver(runner, cfg.Keynote.LivePoll, logger))
	}
	if cfg.PowerPoint.Enabled {
		c.Register(NewPowerPointDriver(runner, cfg.PowerPoint.LivePoll, logger))
	}
	return c
}

// Register adds or replaces the driver for d.Type()
func (c *Catalog) Register(d ports.Driver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drivers[d.Type()] = d
}

// DriverFor returns the driver registered for appType
func (c *Catalog) DriverFor(appType entities.AppType) (ports.Driver, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.drivers[appType]
	return d, ok
}

// Types lists the registered application types
func (c *Catalog) Types() []entities.AppType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]entities.AppType, 0, len(c.drivers))
	for t := range c.drivers {
		types = append(types, t)
	}
	return types
}

// Ensure Catalog implements ports.DriverCatalog
var _ ports.DriverCatalog = (*Catalog)(nil)
