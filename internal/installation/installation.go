// Package installation yields the identifier of this local install.
package installation

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/baaskit/internal/common"
	"github.com/dmitrijs2005/baaskit/internal/config"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
)

const storageName = "installationId"

var newID = uuid.NewString

// Controller reads the id from storage, creating and persisting one on first
// use, and caches it for the life of the process.
type Controller struct {
	cfg      *config.Config
	registry *controllers.Registry

	mu sync.Mutex
	id string
}

func NewController(cfg *config.Config, reg *controllers.Registry) *Controller {
	return &Controller{cfg: cfg, registry: reg}
}

func (c *Controller) CurrentInstallationID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.id != "" {
		return c.id, nil
	}

	store, err := c.registry.Storage()
	if err != nil {
		return "", err
	}

	key := common.StorageKey(c.cfg.ApplicationID, storageName)
	if id, ok := store.GetItem(ctx, key); ok && id != "" {
		c.id = id
		return id, nil
	}

	id := newID()
	store.SetItem(ctx, key, id)
	c.id = id
	return id, nil
}
