package tool

import (
	"slices"
	"strings"
	"sync"
)

// Catalog is a thread-safe registry of tools keyed by case-insensitive name.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]GenericTool
}

// NewCatalog creates a catalog pre-populated with the given tools.
func NewCatalog(tools ...GenericTool) *Catalog {
	catalog := &Catalog{tools: make(map[string]GenericTool)}
	catalog.AddTools(tools...)
	return catalog
}

// AddTools registers tools under their ToolInfo().Name, replacing any tool
// already registered with the same name.
func (c *Catalog) AddTools(tools ...GenericTool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tools {
		c.tools[strings.ToLower(t.ToolInfo().Name)] = t
	}
}

// Get retrieves a tool by name (case-insensitive).
func (c *Catalog) Get(name string) (GenericTool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tool, exists := c.tools[strings.ToLower(name)]
	return tool, exists
}

// Names returns the registered tool names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tools))
	for _, t := range c.tools {
		names = append(names, t.ToolInfo().Name)
	}
	slices.Sort(names)
	return names
}

// Size returns the number of tools in the catalog.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}
