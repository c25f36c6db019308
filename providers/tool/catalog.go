package tool

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/leofalp/aiflow/providers/ai"
)

// Catalog is a concurrency-safe registry of tools keyed by lower-cased name.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]GenericTool
}

func NewCatalog(tools ...GenericTool) *Catalog {
	catalog := &Catalog{tools: make(map[string]GenericTool)}
	catalog.AddTools(tools...)
	return catalog
}

// AddTools registers tools, replacing any with the same name.
func (c *Catalog) AddTools(tools ...GenericTool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tools {
		c.tools[strings.ToLower(t.ToolInfo().Name)] = t
	}
}

// Get looks a tool up by name, ignoring case.
func (c *Catalog) Get(name string) (GenericTool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tool, exists := c.tools[strings.ToLower(name)]
	return tool, exists
}

func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	lowerName := strings.ToLower(name)
	if _, exists := c.tools[lowerName]; !exists {
		return false
	}
	delete(c.tools, lowerName)
	return true
}

func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// Descriptions lists the registered tools sorted by name, ready for a
// [ai.ChatRequest].
func (c *Catalog) Descriptions() []ai.ToolDescription {
	c.mu.RLock()
	defer c.mu.RUnlock()

	descriptions := make([]ai.ToolDescription, 0, len(c.tools))
	for _, name := range slices.Sorted(maps.Keys(c.tools)) {
		descriptions = append(descriptions, c.tools[name].ToolInfo())
	}
	return descriptions
}

// Clone returns an independent copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Catalog{tools: maps.Clone(c.tools)}
}
