// Package registry implements the concurrent (tenant, periodicity,
// dataType) -> tenant.Config lookup that drives polymorphic routing
// (component C3). It is constructed explicitly and owned by
// IngestEngine/QueryEngine — there is no package-level singleton, per
// the "Cyclic/global state" design note.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/platformdata/dynengine/errors"
	"github.com/platformdata/dynengine/tenant"
)

type key struct {
	tenantID, periodicity, dataType string
}

func (k key) String() string {
	return fmt.Sprintf("(%s, %s, %s)", k.tenantID, k.periodicity, k.dataType)
}

// Registry is a concurrent lookup table from (tenantID, periodicity,
// dataType) to a *tenant.Config. The map is guarded by an RWMutex:
// lookups take the read lock and run concurrently with one another,
// but a lookup waits while Register, Unregister or Clear holds the
// write lock, and a writer waits for lookups in progress. Lookup also
// collects and sorts the known keys while holding the read lock.
type Registry struct {
	mu      sync.RWMutex
	configs map[key]*tenant.Config
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{configs: make(map[key]*tenant.Config)}
}

// Register installs cfg under (tenantID, periodicity, dataType),
// silently overwriting any existing entry — hot reconfiguration is
// intentional, per the specification. cfg itself was already validated
// at construction (tenant.New / tenant.NewWithBucket); Register does
// not re-validate it against live store schema.
func (r *Registry) Register(tenantID, periodicity, dataType string, cfg *tenant.Config) {
	k := key{tenantID, periodicity, dataType}
	r.mu.Lock()
	r.configs[k] = cfg
	r.mu.Unlock()
}

// Lookup returns the Config registered under the triple, or a coded
// ConfigNotFound error whose message enumerates the known keys so an
// operator can see what *is* registered.
func (r *Registry) Lookup(tenantID, periodicity, dataType string) (*tenant.Config, error) {
	k := key{tenantID, periodicity, dataType}
	r.mu.RLock()
	cfg, ok := r.configs[k]
	known := r.knownKeysLocked()
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrConfigNotFound,
			fmt.Sprintf("no configuration found for %s; known configs: %v", k, known))
	}
	return cfg, nil
}

// Exists reports whether a configuration is registered under the
// triple, without constructing a diagnostic error.
func (r *Registry) Exists(tenantID, periodicity, dataType string) bool {
	k := key{tenantID, periodicity, dataType}
	r.mu.RLock()
	_, ok := r.configs[k]
	r.mu.RUnlock()
	return ok
}

// Unregister removes the entry for the triple, if present. Per the
// specification this MUST be rare and externally synchronised with
// respect to in-flight requests; Registry itself makes no attempt to
// drain in-flight lookups before removing the entry.
func (r *Registry) Unregister(tenantID, periodicity, dataType string) {
	k := key{tenantID, periodicity, dataType}
	r.mu.Lock()
	delete(r.configs, k)
	r.mu.Unlock()
}

// Clear removes every registered configuration. Intended for test
// setup/teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.configs = make(map[key]*tenant.Config)
	r.mu.Unlock()
}

func (r *Registry) knownKeysLocked() []string {
	out := make([]string, 0, len(r.configs))
	for k := range r.configs {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return out
}
