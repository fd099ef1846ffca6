// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking transaction reaches
// the Confirmed state.  It carries enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type BookingConfirmedEvent struct {
    BookingID        string   `json:"booking_id"`
    TransactionID    string   `json:"transaction_id"`
    OwnerID          string   `json:"owner_id"`
    ScopeID          string   `json:"scope_id"`
    ResourceIDs      []string `json:"resource_ids"`
    TotalAmountCents uint32   `json:"total_amount_cents"`
    ConfirmedAt      string   `json:"confirmed_at"`
}
