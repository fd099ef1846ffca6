package model

import "time"

// ResourceCategory classifies a lockable unit for pricing purposes.
// The set mirrors the seat classes used by the booking frontends;
// other deployments map their own classes onto these values (e.g.
// room types or vehicle size classes).
type ResourceCategory string

const (
    CategoryRegular  ResourceCategory = "REGULAR"
    CategoryPremium  ResourceCategory = "PREMIUM"
    CategoryRecliner ResourceCategory = "RECLINER"
)

// Resource describes one lockable unit (a seat, room or spot) within a
// booking scope.  Resources are created by catalog administration, which
// is outside the locking core; the core only reads them.
//
// Fields:
//  ID        – stable identifier, unique within its scope.
//  ScopeID   – the booking context (showing, date-range, floor) that
//              owns this resource.
//  Category  – pricing/class category.
//  Label     – human-readable label such as "A7".
//  CreatedAt – creation timestamp.
type Resource struct {
    ID        string           // resources.id
    ScopeID   string           // resources.scope_id
    Category  ResourceCategory // resources.category
    Label     string           // resources.label
    CreatedAt time.Time        // resources.created_at
}
