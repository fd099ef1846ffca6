package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/booking-core/internal/model"
)

// BookingRepo persists confirmed bookings and their resource
// associations.  Bookings group one or more resources committed by a
// single transaction for one owner and scope.  The booking header lives
// in the bookings table and the per-resource rows in booking_resources;
// the two are always written together inside one database transaction.
// All timestamps are stored in UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for callers that need to coordinate
// wider transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// CreateBooking inserts the booking header and every resource
// association atomically.  Either the whole booking becomes durable or
// nothing does; a failure on any row rolls the transaction back.
func (r *BookingRepo) CreateBooking(ctx context.Context, b *model.Booking) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const ins = `INSERT INTO bookings (id, owner_id, scope_id, status, total_amount_cents) VALUES (?, ?, ?, ?, ?)`
    if _, err := tx.ExecContext(ctx, ins, b.ID, b.OwnerID, b.ScopeID, string(b.Status), b.PriceCents); err != nil {
        return err
    }

    if len(b.ResourceIDs) > 0 {
        query := `INSERT INTO booking_resources (booking_id, scope_id, resource_id) VALUES `
        args := make([]interface{}, 0, len(b.ResourceIDs)*3)
        for i, rid := range b.ResourceIDs {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?)"
            args = append(args, b.ID, b.ScopeID, rid)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }

    // Query back the creation timestamp set by the database.
    const sel = `SELECT created_at FROM bookings WHERE id = ?`
    if err := tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt); err != nil {
        return err
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetBooking loads one booking with its resource ids.  Returns
// ErrBookingNotFound when no row exists.
func (r *BookingRepo) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
    const q = `SELECT id, owner_id, scope_id, status, total_amount_cents, created_at FROM bookings WHERE id = ?`
    var b model.Booking
    var status string
    err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.OwnerID, &b.ScopeID, &status, &b.PriceCents, &b.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrBookingNotFound
    }
    if err != nil {
        return nil, err
    }
    b.Status = model.BookingStatus(status)

    const qs = `SELECT resource_id FROM booking_resources WHERE booking_id = ? ORDER BY resource_id`
    rows, err := r.db.QueryContext(ctx, qs, id)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var rid string
        if err := rows.Scan(&rid); err != nil {
            return nil, err
        }
        b.ResourceIDs = append(b.ResourceIDs, rid)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return &b, nil
}

// ListConfirmedResourceIDs returns the resource ids committed by
// CONFIRMED bookings in a scope.  Cancelled bookings do not contribute;
// their resources are available for resale.
func (r *BookingRepo) ListConfirmedResourceIDs(ctx context.Context, scopeID string) ([]string, error) {
    const q = `SELECT br.resource_id
               FROM booking_resources br
               JOIN bookings b ON b.id = br.booking_id
               WHERE br.scope_id = ? AND b.status = 'CONFIRMED'`
    rows, err := r.db.QueryContext(ctx, q, scopeID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []string
    for rows.Next() {
        var rid string
        if err := rows.Scan(&rid); err != nil {
            return nil, err
        }
        ids = append(ids, rid)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return ids, nil
}

// UpdateBookingStatus transitions a booking's status.  Only
// CONFIRMED -> CANCELLED is permitted here; this is the compensating
// cancellation path, so the update is guarded in SQL to avoid reviving
// a cancelled booking under concurrency.
func (r *BookingRepo) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error {
    if status != model.BookingCancelled {
        return ErrInvalidTransition
    }
    const q = `UPDATE bookings SET status = ? WHERE id = ? AND status = 'CONFIRMED'`
    res, err := r.db.ExecContext(ctx, q, string(status), id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Either the booking does not exist or it is not CONFIRMED.
        if _, err := r.GetBooking(ctx, id); err != nil {
            return err
        }
        return ErrInvalidTransition
    }
    return nil
}
