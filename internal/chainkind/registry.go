package chainkind

import (
	"fmt"
	"sync"

	"github.com/hiveonboard/gateway/internal/models"
)

// Registry holds one CryptoKind per monitoring-enabled currency. It is
// grounded on the teacher toolkit's provider.Registry
// (src/chainadapter/provider/registry.go), narrowed to a fixed, known-small
// set of five chains instead of a dynamically-loaded provider list.
type Registry struct {
	mu    sync.RWMutex
	kinds map[models.Crypto]CryptoKind
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[models.Crypto]CryptoKind)}
}

// Register adds a CryptoKind. It panics on an unmonitored currency (a
// programming error, not a runtime condition) and on double-registration.
func (r *Registry) Register(k CryptoKind) {
	if !k.ID().MonitoringEnabled() {
		panic(fmt.Sprintf("chainkind: %s is not a monitoring-enabled currency", k.ID()))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.ID()]; exists {
		panic(fmt.Sprintf("chainkind: %s already registered", k.ID()))
	}
	r.kinds[k.ID()] = k
}

func (r *Registry) Get(c models.Crypto) (CryptoKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[c]
	return k, ok
}

// All returns every registered CryptoKind, sorted in no particular order;
// callers that need determinism (tests) should sort by ID().
func (r *Registry) All() []CryptoKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CryptoKind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	return out
}
