// Package charm sequences the configuration of the Glance workload once its
// relations and storage allow it.
package charm

import (
	"context"
	"os"
)

// Relation is the handshake view of one declared relation.
type Relation interface {
	Name() string
	Present() bool
	Ready() bool
	Context() map[string]string
}

// StorageInventory counts storage attached by the deployment system.
type StorageInventory interface {
	CountAttachedStorage(name string) int
}

// Context is one named set of values handed to the config renderer.
type Context struct {
	Name string
	Data map[string]string
}

// Contexts is an ordered list of contexts. Later entries do not override
// earlier ones; each keeps its own name.
type Contexts []Context

// Get returns the data of the named context, or nil.
func (c Contexts) Get(name string) map[string]string {
	for _, ctx := range c {
		if ctx.Name == name {
			return ctx.Data
		}
	}
	return nil
}

// ConfigFile is a file rendered into the workload container.
type ConfigFile struct {
	Path        string
	User        string
	Group       string
	Permissions os.FileMode
}

// Renderer renders a config file from contexts and writes it.
type Renderer interface {
	Render(ctx context.Context, contexts Contexts, file ConfigFile) error
}

// Supervisor is the process supervisor of the workload container.
type Supervisor interface {
	// Ready reports whether the supervisor is reachable for this service.
	Ready(ctx context.Context) bool
	Execute(ctx context.Context, args []string, failOnNonzeroExit bool) error
	InitService(ctx context.Context, contexts Contexts) error
	// StartService starts the service unless it is already running.
	StartService(ctx context.Context) error
}

// StatusSink receives the service status shown to the administrator.
type StatusSink interface {
	SetStatus(status ServiceStatus)
}

// StorageInventoryFunc adapts a function to StorageInventory.
type StorageInventoryFunc func(name string) int

func (f StorageInventoryFunc) CountAttachedStorage(name string) int { return f(name) }
