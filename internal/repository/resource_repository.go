package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/booking-core/internal/model"
)

// ResourceRepo provides read access to the resource catalog.  Resources
// (seats, rooms, spots) are created by catalog administration outside
// this service; the locking core only needs existence checks and
// category lookups, so no mutating methods are exposed here.
type ResourceRepo struct {
    db *sql.DB
}

// NewResourceRepo returns a new ResourceRepo bound to the given database.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

// GetByID loads a single resource within a scope.  Returns
// ErrResourceNotFound when no row exists.
func (r *ResourceRepo) GetByID(ctx context.Context, scopeID, id string) (*model.Resource, error) {
    const q = `SELECT id, scope_id, category, label, created_at FROM resources WHERE scope_id = ? AND id = ?`
    var res model.Resource
    var category string
    err := r.db.QueryRowContext(ctx, q, scopeID, id).Scan(&res.ID, &res.ScopeID, &category, &res.Label, &res.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrResourceNotFound
    }
    if err != nil {
        return nil, err
    }
    res.Category = model.ResourceCategory(category)
    return &res, nil
}

// ListByScope returns every resource registered in a scope, ordered by
// label for stable seat-map rendering.
func (r *ResourceRepo) ListByScope(ctx context.Context, scopeID string) ([]model.Resource, error) {
    const q = `SELECT id, scope_id, category, label, created_at FROM resources WHERE scope_id = ? ORDER BY label`
    rows, err := r.db.QueryContext(ctx, q, scopeID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Resource
    for rows.Next() {
        var res model.Resource
        var category string
        if err := rows.Scan(&res.ID, &res.ScopeID, &category, &res.Label, &res.CreatedAt); err != nil {
            return nil, err
        }
        res.Category = model.ResourceCategory(category)
        out = append(out, res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// MissingResources returns the ids from resourceIDs without a catalog
// entry in the scope.  Implements booking.Registry.
func (r *ResourceRepo) MissingResources(ctx context.Context, scopeID string, resourceIDs []string) ([]string, error) {
    if len(resourceIDs) == 0 {
        return nil, nil
    }
    query := `SELECT id FROM resources WHERE scope_id = ? AND id IN (` +
        strings.TrimSuffix(strings.Repeat("?,", len(resourceIDs)), ",") + `)`
    args := make([]interface{}, 0, len(resourceIDs)+1)
    args = append(args, scopeID)
    for _, rid := range resourceIDs {
        args = append(args, rid)
    }
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    found := make(map[string]struct{}, len(resourceIDs))
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        found[id] = struct{}{}
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    var missing []string
    for _, rid := range resourceIDs {
        if _, ok := found[rid]; !ok {
            missing = append(missing, rid)
        }
    }
    return missing, nil
}

// Categories returns the category of each known resource, keyed by id.
// Implements booking.Registry.  Unknown ids are simply absent from the
// result; MissingResources is the place to detect them.
func (r *ResourceRepo) Categories(ctx context.Context, scopeID string, resourceIDs []string) (map[string]model.ResourceCategory, error) {
    out := make(map[string]model.ResourceCategory, len(resourceIDs))
    if len(resourceIDs) == 0 {
        return out, nil
    }
    query := `SELECT id, category FROM resources WHERE scope_id = ? AND id IN (` +
        strings.TrimSuffix(strings.Repeat("?,", len(resourceIDs)), ",") + `)`
    args := make([]interface{}, 0, len(resourceIDs)+1)
    args = append(args, scopeID)
    for _, rid := range resourceIDs {
        args = append(args, rid)
    }
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var id, category string
        if err := rows.Scan(&id, &category); err != nil {
            return nil, err
        }
        out[id] = model.ResourceCategory(category)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
