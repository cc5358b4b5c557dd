package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/gatewaylabs/creditmeter/domain/model"
	"github.com/gatewaylabs/creditmeter/ports"
)

// ErrModelNotFound is returned for unknown model ids.
var ErrModelNotFound = errors.New("model not found")

// Catalog is an in-memory implementation of ports.ModelCatalog.
type Catalog struct {
	mu     sync.RWMutex
	models map[string]model.Info
}

// NewCatalog creates a catalog pre-loaded with the given models.
func NewCatalog(models ...model.Info) *Catalog {
	c := &Catalog{models: make(map[string]model.Info, len(models))}
	for _, m := range models {
		c.models[m.ID] = m
	}
	return c
}

// Put adds or replaces a model.
func (c *Catalog) Put(m model.Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[m.ID] = m
}

// Get resolves model metadata by id.
func (c *Catalog) Get(ctx context.Context, modelID string) (model.Info, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[modelID]
	if !ok {
		return model.Info{}, ErrModelNotFound
	}
	return m, nil
}

// Ensure interface compliance.
var _ ports.ModelCatalog = (*Catalog)(nil)
