package block

import "sync"

// Catalog maps block type ids to their definitions.
//
// Registration is insert-or-overwrite by id: registering a definition
// under an id that already exists replaces it (last registration wins)
// but keeps the id's original position in the listing order. Lookups of
// unknown ids return an explicit "absent" result, never an error.
type Catalog struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		defs: make(map[string]Definition),
	}
}

// Register inserts or overwrites the definition by its id.
// The catalog stores a deep copy, so later mutation of the argument has
// no effect on the registered definition.
func (c *Catalog) Register(def Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.defs[def.ID]; !exists {
		c.order = append(c.order, def.ID)
	}
	c.defs[def.ID] = def.clone()
}

// Get returns the definition for the id and whether it is registered.
func (c *Catalog) Get(id string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.defs[id]
	if !ok {
		return Definition{}, false
	}
	return def.clone(), true
}

// Has returns true if the id is registered.
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.defs[id]
	return ok
}

// List returns all registered definitions in registration order.
func (c *Catalog) List() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id].clone())
	}
	return out
}

// IDs returns the registered block type ids in registration order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}
