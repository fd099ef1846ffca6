package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/booking-core/internal/booking"
    "github.com/iliyamo/booking-core/internal/lock"
    "github.com/iliyamo/booking-core/internal/middleware"
    "github.com/iliyamo/booking-core/internal/model"
    q "github.com/iliyamo/booking-core/internal/queue"
    "github.com/iliyamo/booking-core/internal/repository"
    queue_publisher "github.com/iliyamo/booking-core/internal/service"
)

// ResourceLister lists the catalog entries of a scope for the seat-map
// endpoint.  Both the MySQL ResourceRepo and the in-memory registry
// satisfy it.
type ResourceLister interface {
    ListByScope(ctx context.Context, scopeID string) ([]model.Resource, error)
}

// BookingHandler exposes the booking core over HTTP.  All methods assume
// JWT authentication has already run; the acting owner is read from the
// request context.  The transport maps 1:1 onto the core operations:
// start, confirm, cancel, availability check, plus lock and seat-map
// introspection for diagnostics.
type BookingHandler struct {
    Manager   *booking.Manager
    Locks     lock.Store
    Records   booking.RecordStore
    Resources ResourceLister // may be nil when no catalog is wired
}

// NewBookingHandler constructs a BookingHandler.  Manager, Locks and
// Records must be non-nil; Resources is optional.
func NewBookingHandler(m *booking.Manager, locks lock.Store, records booking.RecordStore, resources ResourceLister) *BookingHandler {
    if m == nil || locks == nil || records == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Manager: m, Locks: locks, Records: records, Resources: resources}
}

// StartBooking handles POST /v1/scopes/:id/bookings.  It places an
// atomic hold on the requested resources and opens a Pending
// transaction.  The body must contain a "resource_ids" array; an
// optional "total_amount_cents" overrides the catalog quote.  Responds
// 201 with the transaction and the hold expiry on success.
func (h *BookingHandler) StartBooking(c echo.Context) error {
    ownerID, err := middleware.OwnerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    scopeID := c.Param("id")
    if scopeID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid scope id"})
    }
    var body struct {
        ResourceIDs      []string `json:"resource_ids"`
        TotalAmountCents uint32   `json:"total_amount_cents"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(body.ResourceIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_ids is required"})
    }

    ctx := c.Request().Context()
    tx, err := h.Manager.StartBooking(ctx, scopeID, ownerID, body.ResourceIDs, body.TotalAmountCents)
    if err != nil {
        return writeBookingError(c, err)
    }
    expiresAt := time.Now().UTC().Add(h.Manager.HoldTTL())
    return c.JSON(http.StatusCreated, echo.Map{
        "transaction_id":     tx.ID,
        "status":             tx.Status,
        "resource_ids":       tx.ResourceIDs,
        "total_amount_cents": tx.PriceCents,
        "expires_at":         expiresAt.Format(time.RFC3339),
    })
}

// Confirm handles POST /v1/transactions/:id/confirm.  It finalises a
// Pending transaction into a durable booking.  On success a
// booking.confirmed event is published best-effort; publish failures
// never fail the request because the booking is already durable.
func (h *BookingHandler) Confirm(c echo.Context) error {
    ownerID, err := middleware.OwnerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    txID := c.Param("id")
    ctx := c.Request().Context()

    b, err := h.Manager.Confirm(ctx, txID, ownerID)
    if err != nil {
        return writeBookingError(c, err)
    }

    event := q.BookingConfirmedEvent{
        BookingID:        b.ID,
        TransactionID:    txID,
        OwnerID:          b.OwnerID,
        ScopeID:          b.ScopeID,
        ResourceIDs:      b.ResourceIDs,
        TotalAmountCents: b.PriceCents,
        ConfirmedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
    }
    if err := queue_publisher.PublishBookingConfirmed(ctx, event); err != nil {
        log.Printf("booking: confirmed event publish failed for %s: %v", b.ID, err)
    }

    return c.JSON(http.StatusCreated, echo.Map{
        "booking_id":         b.ID,
        "status":             b.Status,
        "resource_ids":       b.ResourceIDs,
        "total_amount_cents": b.PriceCents,
    })
}

// Cancel handles DELETE /v1/transactions/:id.  It releases every hold
// of a Pending transaction.  Cancelling a transaction that already
// reached a terminal state responds 409.
func (h *BookingHandler) Cancel(c echo.Context) error {
    ownerID, err := middleware.OwnerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    txID := c.Param("id")
    cancelled, err := h.Manager.Cancel(c.Request().Context(), txID, ownerID)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"cancelled": cancelled})
}

// GetTransaction handles GET /v1/transactions/:id.  A Pending
// transaction whose holds have lapsed is reported as FAILED.
func (h *BookingHandler) GetTransaction(c echo.Context) error {
    ownerID, err := middleware.OwnerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    txID := c.Param("id")
    tx, err := h.Manager.Get(c.Request().Context(), txID, ownerID)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "transaction_id":     tx.ID,
        "scope_id":           tx.ScopeID,
        "status":             tx.Status,
        "resource_ids":       tx.ResourceIDs,
        "total_amount_cents": tx.PriceCents,
        "booking_id":         tx.BookingID,
    })
}

// CheckAvailability handles GET /v1/scopes/:id/availability.  The
// resource ids are passed as a comma-separated "resource_ids" query
// parameter.  The answer is advisory: availability can change between
// this check and a subsequent hold, which is why holds go through the
// atomic batch acquire.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
    ownerID, err := middleware.OwnerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    scopeID := c.Param("id")
    raw := c.QueryParam("resource_ids")
    if raw == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_ids is required"})
    }
    var ids []string
    for _, s := range strings.Split(raw, ",") {
        if s = strings.TrimSpace(s); s != "" {
            ids = append(ids, s)
        }
    }
    available, unavailable, err := h.Manager.Checker().CheckAvailability(c.Request().Context(), scopeID, ids, ownerID)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "available":   available,
        "unavailable": unavailable,
    })
}

// GetBooking handles GET /v1/bookings/:id.  Only the booking's owner
// may view it; anyone else receives 404 so ownership is not leaked.
func (h *BookingHandler) GetBooking(c echo.Context) error {
    ownerID, err := middleware.OwnerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    b, err := h.Records.GetBooking(c.Request().Context(), c.Param("id"))
    if err != nil {
        if errors.Is(err, repository.ErrBookingNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
    }
    if b.OwnerID != ownerID {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "booking_id":         b.ID,
        "scope_id":           b.ScopeID,
        "status":             b.Status,
        "resource_ids":       b.ResourceIDs,
        "total_amount_cents": b.PriceCents,
        "created_at":         b.CreatedAt.UTC().Format(time.RFC3339),
    })
}

// CancelBooking handles DELETE /v1/bookings/:id — the compensating
// cancellation of an already-confirmed booking.  The resources return
// to the availability pool; refund handling lives elsewhere.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
    ownerID, err := middleware.OwnerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if err := h.Manager.CancelConfirmedBooking(c.Request().Context(), c.Param("id"), ownerID); err != nil {
        if errors.Is(err, repository.ErrBookingNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return writeBookingError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListLocks handles GET /v1/scopes/:id/locks.  Diagnostic listing of
// the active holds in a scope.  Returns 501 when the configured lock
// store cannot enumerate its claims.
func (h *BookingHandler) ListLocks(c echo.Context) error {
    if _, err := middleware.OwnerID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    lister, ok := h.Locks.(lock.Lister)
    if !ok {
        return c.JSON(http.StatusNotImplemented, echo.Map{"error": "lock listing not supported"})
    }
    locks, err := lister.ListScope(c.Request().Context(), c.Param("id"))
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list locks"})
    }
    items := make([]echo.Map, 0, len(locks))
    for _, l := range locks {
        items = append(items, echo.Map{
            "resource_id": l.ResourceID,
            "owner_id":    l.OwnerID,
            "expires_at":  l.ExpiresAt.UTC().Format(time.RFC3339),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ScopeResources handles GET /v1/scopes/:id/resources.  It renders the
// scope's seat map: every catalog resource with its current status —
// FREE, HELD (actively locked) or BOOKED (committed by a confirmed
// booking).  The confirmed set wins over any lingering lock entry.
func (h *BookingHandler) ScopeResources(c echo.Context) error {
    if _, err := middleware.OwnerID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if h.Resources == nil {
        return c.JSON(http.StatusNotImplemented, echo.Map{"error": "no resource catalog configured"})
    }
    ctx := c.Request().Context()
    scopeID := c.Param("id")

    resources, err := h.Resources.ListByScope(ctx, scopeID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list resources"})
    }
    confirmed, err := h.Records.ListConfirmedResourceIDs(ctx, scopeID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }
    confirmedSet := make(map[string]struct{}, len(confirmed))
    for _, rid := range confirmed {
        confirmedSet[rid] = struct{}{}
    }

    items := make([]echo.Map, 0, len(resources))
    for _, r := range resources {
        status := "FREE"
        if _, ok := confirmedSet[r.ID]; ok {
            status = "BOOKED"
        } else {
            locked, err := h.Locks.IsLocked(ctx, scopeID, r.ID, "")
            if err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read lock state"})
            }
            if locked {
                status = "HELD"
            }
        }
        items = append(items, echo.Map{
            "resource_id": r.ID,
            "label":       r.Label,
            "category":    r.Category,
            "status":      status,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// writeBookingError translates core error types into HTTP responses.
// Typed errors keep their id lists so clients can offer alternatives.
func writeBookingError(c echo.Context, err error) error {
    var unavailable *booking.ResourceUnavailableError
    var contention *booking.LockContentionError
    var expired *booking.LockExpiredError
    var store *booking.BackingStoreError
    switch {
    case errors.As(err, &unavailable):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":       "some resources are unavailable",
            "unavailable": unavailable.ResourceIDs,
        })
    case errors.As(err, &contention):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":  "resources were taken by another booking",
            "failed": contention.ResourceIDs,
        })
    case errors.As(err, &expired):
        return c.JSON(http.StatusGone, echo.Map{
            "error":   "holds expired before confirmation",
            "expired": expired.ResourceIDs,
        })
    case errors.Is(err, booking.ErrUnknownTransaction):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
    case errors.Is(err, booking.ErrUnauthorized):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, booking.ErrInvalidState):
        return c.JSON(http.StatusConflict, echo.Map{"error": "transaction not in required state"})
    case errors.As(err, &store):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "backing store unavailable"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}
