package persistence

import (
	"fmt"
	"sync"
)

// stores is the global registry of named Store instances. Config.Driver
// values that are not built in resolve here.
var (
	stores = map[string]Store{
		"shared": NewMemoryStore(),
	}
	storesMu sync.RWMutex
)

// GetStore retrieves a Store by name from the registry.
func GetStore(name string) (Store, error) {
	storesMu.RLock()
	defer storesMu.RUnlock()

	s, ok := stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, name)
	}
	return s, nil
}

// RegisterStore adds or replaces a named Store so configuration can refer
// to it by Config.Driver.
func RegisterStore(name string, s Store) {
	storesMu.Lock()
	defer storesMu.Unlock()
	stores[name] = s
}
