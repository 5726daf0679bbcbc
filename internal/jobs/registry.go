package jobs

import (
	"fmt"
	"sync"

	"github.com/pytake/pytake-go/internal/logger"
)

// HandlerFactory lazily constructs the singleton Handler for a JobType. It
// is invoked at most once per type, the first time GetHandler is called.
type HandlerFactory func() Handler

// DuplicateHandlerError is returned by Register when it is called after
// Freeze, whether or not the type was registered before.
type DuplicateHandlerError struct {
	Type Type
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("jobs: duplicate handler registration for %q after freeze", e.Type.String())
}

type registryEntry struct {
	metadata Metadata
	factory  HandlerFactory
	handler  Handler // lazily populated
}

// Registry is the central, process-wide catalog mapping JobType to its
// Metadata and Handler. It is populated at startup by an explicit call
// (cmd/jobengine calls handlers.RegisterAll); Freeze is invoked once
// registration completes and subsequent registrations fail loudly.
type Registry struct {
	log *logger.Logger

	mu       sync.RWMutex
	entries  map[Type]*registryEntry
	frozen   bool
	resolved map[string]bool // capability name -> whether it's available
}

// NewRegistry creates an empty, unfrozen Registry. resolved names the
// capabilities the Engine was actually constructed with (e.g. "whatsapp",
// "ai", "webhook", "database"), consulted by ValidateDependencies.
func NewRegistry(log *logger.Logger, resolved map[string]bool) *Registry {
	return &Registry{
		log:      log,
		entries:  make(map[Type]*registryEntry),
		resolved: resolved,
	}
}

// Register adds or replaces the descriptor for metadata.Type. Idempotent by
// type: the last registration before Freeze wins, logging a warning on
// replacement. After Freeze, Register always fails with
// *DuplicateHandlerError.
func (r *Registry) Register(metadata Metadata, factory HandlerFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return &DuplicateHandlerError{Type: metadata.Type}
	}

	if _, exists := r.entries[metadata.Type]; exists && r.log != nil {
		r.log.Warn("job type re-registered, replacing previous descriptor",
			"job_type", metadata.Type.String())
	}

	r.entries[metadata.Type] = &registryEntry{metadata: metadata, factory: factory}
	return nil
}

// Freeze closes the registry to further registrations. Safe to call more
// than once.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// GetMetadata returns the descriptor for jobType, or nil if unregistered.
func (r *Registry) GetMetadata(jobType Type) (*Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[jobType]
	if !ok {
		return nil, false
	}
	m := e.metadata
	return &m, true
}

// GetHandler lazily constructs and caches the Handler singleton for
// jobType. Returns false if jobType is unregistered.
func (r *Registry) GetHandler(jobType Type) (Handler, bool) {
	r.mu.RLock()
	e, ok := r.entries[jobType]
	if ok && e.handler != nil {
		h := e.handler
		r.mu.RUnlock()
		return h, true
	}
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e.handler == nil {
		e.handler = e.factory()
	}
	return e.handler, true
}

// ListEnabled returns every registered (JobType, Metadata) pair whose
// Metadata.Enabled is true.
func (r *Registry) ListEnabled() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.entries))
	for _, e := range r.entries {
		if e.metadata.Enabled {
			out = append(out, e.metadata)
		}
	}
	return out
}

// ValidateDependencies returns the names of capabilities required by any
// registered job but not resolved by the Engine. It does not mutate state.
func (r *Registry) ValidateDependencies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var issues []string
	seen := make(map[string]bool)
	for _, e := range r.entries {
		for name, required := range capabilityMap(e.metadata.Capabilities) {
			if !required {
				continue
			}
			if r.resolved[name] {
				continue
			}
			key := e.metadata.Type.String() + ":" + name
			if seen[key] {
				continue
			}
			seen[key] = true
			issues = append(issues, fmt.Sprintf("%s requires unresolved capability %q", e.metadata.Type.String(), name))
		}
	}
	return issues
}

func capabilityMap(c Capabilities) map[string]bool {
	return map[string]bool{
		"whatsapp": c.RequiresWhatsApp,
		"ai":       c.RequiresAI,
		"webhook":  c.RequiresWebhook,
		"database": c.RequiresDatabase,
	}
}
