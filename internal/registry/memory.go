// Package registry holds an in-memory resource catalog implementing the
// same lookup capability as the MySQL-backed ResourceRepo.  Intended for
// single-instance deployments seeded at startup and for tests.
package registry

import (
    "context"
    "sync"

    "github.com/iliyamo/booking-core/internal/model"
)

// Memory is a concurrency-safe in-memory catalog of resources keyed by
// scope and resource id.  Resources are registered once and read-only
// afterwards, matching the catalog's lifecycle in the locking core.
type Memory struct {
    mu        sync.RWMutex
    resources map[string]map[string]model.Resource // scope id -> resource id -> resource
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() *Memory {
    return &Memory{resources: make(map[string]map[string]model.Resource)}
}

// Add registers resources in the catalog.  Registering an existing id
// overwrites it; the core never calls Add after composition.
func (m *Memory) Add(resources ...model.Resource) {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, r := range resources {
        scope, ok := m.resources[r.ScopeID]
        if !ok {
            scope = make(map[string]model.Resource)
            m.resources[r.ScopeID] = scope
        }
        scope[r.ID] = r
    }
}

// MissingResources implements booking.Registry.
func (m *Memory) MissingResources(ctx context.Context, scopeID string, resourceIDs []string) ([]string, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    m.mu.RLock()
    defer m.mu.RUnlock()
    scope := m.resources[scopeID]
    var missing []string
    for _, rid := range resourceIDs {
        if _, ok := scope[rid]; !ok {
            missing = append(missing, rid)
        }
    }
    return missing, nil
}

// Categories implements booking.Registry.
func (m *Memory) Categories(ctx context.Context, scopeID string, resourceIDs []string) (map[string]model.ResourceCategory, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    m.mu.RLock()
    defer m.mu.RUnlock()
    scope := m.resources[scopeID]
    out := make(map[string]model.ResourceCategory, len(resourceIDs))
    for _, rid := range resourceIDs {
        if r, ok := scope[rid]; ok {
            out[rid] = r.Category
        }
    }
    return out, nil
}

// ListByScope returns every resource registered in a scope.
func (m *Memory) ListByScope(ctx context.Context, scopeID string) ([]model.Resource, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    m.mu.RLock()
    defer m.mu.RUnlock()
    scope := m.resources[scopeID]
    out := make([]model.Resource, 0, len(scope))
    for _, r := range scope {
        out = append(out, r)
    }
    return out, nil
}
