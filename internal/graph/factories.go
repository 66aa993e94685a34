package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a factory resolvable by function name. It panics on
// duplicates, which only happens on a programming error at init time.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("graph: factory %q registered twice", name))
	}
	factories[name] = f
}

// LookupFactory resolves a registered factory. Unknown names report the
// full set of known factories to make mapping typos obvious.
func LookupFactory(name string) (Factory, error) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown graph factory %q (known: %s)", name, strings.Join(factoryNamesLocked(), ", "))
	}
	return f, nil
}

// FactoryNames returns all registered factory names, sorted.
func FactoryNames() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return factoryNamesLocked()
}

func factoryNamesLocked() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
