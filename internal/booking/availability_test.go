package booking_test

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/booking-core/internal/booking"
    "github.com/iliyamo/booking-core/internal/lock"
    "github.com/iliyamo/booking-core/internal/model"
    "github.com/iliyamo/booking-core/internal/registry"
)

func newChecker(t *testing.T) (*booking.Checker, *lock.MemoryStore, *memRecords) {
    t.Helper()
    locks := lock.NewMemoryStore()
    records := newMemRecords()
    catalog := registry.NewMemory()
    catalog.Add(
        model.Resource{ID: "seat1", ScopeID: "showing-1", Category: model.CategoryRegular, Label: "A1"},
        model.Resource{ID: "seat2", ScopeID: "showing-1", Category: model.CategoryRegular, Label: "A2"},
        model.Resource{ID: "seat3", ScopeID: "showing-1", Category: model.CategoryPremium, Label: "B1"},
    )
    return booking.NewChecker(locks, records, catalog), locks, records
}

func TestCheckAvailabilityAllFree(t *testing.T) {
    c, _, _ := newChecker(t)

    ok, unavailable, err := c.CheckAvailability(context.Background(), "showing-1", []string{"seat1", "seat2"}, "userA")
    require.NoError(t, err)
    assert.True(t, ok)
    assert.Empty(t, unavailable)
}

func TestCheckAvailabilityLockedByOther(t *testing.T) {
    c, locks, _ := newChecker(t)
    ctx := context.Background()

    _, err := locks.TryAcquire(ctx, "showing-1", "seat2", "userB", time.Minute)
    require.NoError(t, err)

    ok, unavailable, err := c.CheckAvailability(ctx, "showing-1", []string{"seat1", "seat2"}, "userA")
    require.NoError(t, err)
    assert.False(t, ok)
    assert.Equal(t, []string{"seat2"}, unavailable)

    // The holder's own lock does not make the seat unavailable to them.
    ok, unavailable, err = c.CheckAvailability(ctx, "showing-1", []string{"seat1", "seat2"}, "userB")
    require.NoError(t, err)
    assert.True(t, ok)
    assert.Empty(t, unavailable)
}

func TestCheckAvailabilityConfirmedBooking(t *testing.T) {
    c, _, records := newChecker(t)
    ctx := context.Background()

    require.NoError(t, records.CreateBooking(ctx, &model.Booking{
        ID:          "bk-1",
        OwnerID:     "userB",
        ScopeID:     "showing-1",
        ResourceIDs: []string{"seat1"},
        Status:      model.BookingConfirmed,
    }))

    // A confirmed seat is unavailable even to the booking's owner.
    ok, unavailable, err := c.CheckAvailability(ctx, "showing-1", []string{"seat1", "seat3"}, "userB")
    require.NoError(t, err)
    assert.False(t, ok)
    assert.Equal(t, []string{"seat1"}, unavailable)
}

func TestCheckAvailabilityCancelledBookingFreesSeat(t *testing.T) {
    c, _, records := newChecker(t)
    ctx := context.Background()

    require.NoError(t, records.CreateBooking(ctx, &model.Booking{
        ID:          "bk-1",
        OwnerID:     "userB",
        ScopeID:     "showing-1",
        ResourceIDs: []string{"seat1"},
        Status:      model.BookingConfirmed,
    }))
    require.NoError(t, records.UpdateBookingStatus(ctx, "bk-1", model.BookingCancelled))

    ok, _, err := c.CheckAvailability(ctx, "showing-1", []string{"seat1"}, "userA")
    require.NoError(t, err)
    assert.True(t, ok)
}

func TestCheckAvailabilityUnknownResource(t *testing.T) {
    c, _, _ := newChecker(t)

    ok, unavailable, err := c.CheckAvailability(context.Background(), "showing-1", []string{"seat1", "seat99"}, "userA")
    require.NoError(t, err)
    assert.False(t, ok)
    assert.Equal(t, []string{"seat99"}, unavailable)
}

func TestCheckAvailabilityReportsCallerOrder(t *testing.T) {
    c, locks, records := newChecker(t)
    ctx := context.Background()

    _, err := locks.TryAcquire(ctx, "showing-1", "seat3", "userB", time.Minute)
    require.NoError(t, err)
    require.NoError(t, records.CreateBooking(ctx, &model.Booking{
        ID:          "bk-1",
        OwnerID:     "userC",
        ScopeID:     "showing-1",
        ResourceIDs: []string{"seat1"},
        Status:      model.BookingConfirmed,
    }))

    _, unavailable, err := c.CheckAvailability(ctx, "showing-1", []string{"seat3", "seat2", "seat1"}, "userA")
    require.NoError(t, err)
    assert.Equal(t, []string{"seat3", "seat1"}, unavailable, "reported ids keep the request order")
}
