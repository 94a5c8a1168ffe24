package dataset

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a dataset factory to the registry.
// Called by dataset implementations in their init() functions.
func Register(typeName string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[typeName] = factory
}

// Get retrieves a dataset factory by type name.
func Get(typeName string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[typeName]
	return f, ok
}

// New constructs a dataset from its config via the registered factory.
// The logger is passed through to the dataset (nil uses a discard logger).
func New(cfg Config, logger *slog.Logger) (Dataset, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("dataset type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownTypeError{
			Type:      cfg.Type,
			Available: Types(),
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(cfg, logger)
}

// Types returns all registered dataset type names (sorted).
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a dataset type is registered.
func IsRegistered(typeName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[typeName]
	return ok
}
