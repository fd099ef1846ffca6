package model

import "time"

// BookingStatus enumerates durable booking record states.  A booking is
// written as CONFIRMED; CANCELLED is reached only through the separate
// compensating cancellation, never through the transaction state machine.
type BookingStatus string

const (
    BookingConfirmed BookingStatus = "CONFIRMED"
    BookingCancelled BookingStatus = "CANCELLED"
)

// Booking is the durable record of a confirmed reservation.  Once
// written, the booking record store is the source of truth for which
// resources are permanently committed in a scope.
//
// Fields:
//  ID          – booking identifier (UUID string).
//  OwnerID     – actor the booking belongs to.
//  ScopeID     – booking context.
//  ResourceIDs – resources committed by this booking.
//  Status      – CONFIRMED or CANCELLED.
//  PriceCents  – total amount paid in cents.
//  CreatedAt   – creation timestamp.
type Booking struct {
    ID          string        // bookings.id
    OwnerID     string        // bookings.owner_id
    ScopeID     string        // bookings.scope_id
    ResourceIDs []string      // booking_resources.resource_id rows
    Status      BookingStatus // bookings.status
    PriceCents  uint32        // bookings.total_amount_cents
    CreatedAt   time.Time     // bookings.created_at
}
