package model

import "time"

// TransactionStatus enumerates the states of a booking transaction.
// Pending is the only non-terminal state; Confirmed, Cancelled and
// Failed are terminal and admit no further transitions.
type TransactionStatus string

const (
    TxPending   TransactionStatus = "PENDING"
    TxConfirmed TransactionStatus = "CONFIRMED"
    TxCancelled TransactionStatus = "CANCELLED"
    TxFailed    TransactionStatus = "FAILED"
)

// BookingTransaction is the unit of work that converts a set of held
// resources into a durable booking.  The transaction manager owns these
// objects while Pending; once resolved the resource set and price are
// either discarded (Cancelled/Failed) or handed off into an immutable
// booking record (Confirmed).
//
// Fields:
//  ID          – opaque transaction identifier.
//  OwnerID     – actor who started the booking.
//  ScopeID     – booking context of the held resources.
//  ResourceIDs – resources held for this transaction.
//  Status      – current state (see TransactionStatus).
//  PriceCents  – total price for the resource set.
//  BookingID   – durable booking identifier, set once Confirmed.
//  CreatedAt   – creation timestamp.
type BookingTransaction struct {
    ID          string            // transaction id
    OwnerID     string            // requesting actor
    ScopeID     string            // booking scope
    ResourceIDs []string          // held resources
    Status      TransactionStatus // state machine position
    PriceCents  uint32            // total price in cents
    BookingID   string            // durable booking id when confirmed
    CreatedAt   time.Time         // creation timestamp
}
