package orchestrator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/dapo/pkg/domain"
)

// Catalog maps stage names to externally supplied stage functions so API
// submissions can reference work units by name. Deployments register
// their stage set before the worker pool starts.
type Catalog struct {
	mu     sync.RWMutex
	stages map[string]domain.StageFunc
}

// NewCatalog creates an empty stage catalog.
func NewCatalog() *Catalog {
	return &Catalog{stages: make(map[string]domain.StageFunc)}
}

// Register adds a named stage function. Re-registering a name fails.
func (c *Catalog) Register(name string, fn domain.StageFunc) error {
	if name == "" {
		return fmt.Errorf("stage name is required")
	}
	if fn == nil {
		return fmt.Errorf("stage %s: function is nil", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.stages[name]; exists {
		return fmt.Errorf("stage already registered: %s", name)
	}
	c.stages[name] = fn
	return nil
}

// Has reports whether a stage name is registered.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.stages[name]
	return ok
}

// Resolve turns a list of stage names into an executable chain.
func (c *Catalog) Resolve(names []string) ([]domain.Stage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stages := make([]domain.Stage, 0, len(names))
	for _, name := range names {
		fn, ok := c.stages[name]
		if !ok {
			return nil, fmt.Errorf("unknown stage: %s", name)
		}
		stages = append(stages, domain.Stage{Name: name, Fn: fn})
	}
	return stages, nil
}

// Names returns the registered stage names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.stages))
	for name := range c.stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
