package booking_test

import (
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/booking-core/internal/booking"
    "github.com/iliyamo/booking-core/internal/model"
)

func TestPriceFor(t *testing.T) {
    assert.Equal(t, uint32(300), booking.PriceFor(model.CategoryRegular))
    assert.Equal(t, uint32(450), booking.PriceFor(model.CategoryPremium))
    assert.Equal(t, uint32(600), booking.PriceFor(model.CategoryRecliner))
    assert.Equal(t, uint32(300), booking.PriceFor(model.ResourceCategory("VIP")), "unknown categories charge the regular price")
}

func TestQuotePrice(t *testing.T) {
    categories := map[string]model.ResourceCategory{
        "seat1": model.CategoryRegular,
        "seat3": model.CategoryPremium,
        "seat5": model.CategoryRecliner,
    }

    assert.Equal(t, uint32(1350), booking.QuotePrice(categories, []string{"seat1", "seat3", "seat5"}))
    assert.Equal(t, uint32(0), booking.QuotePrice(categories, nil))
    // Resources missing from the category map fall back to regular.
    assert.Equal(t, uint32(600), booking.QuotePrice(categories, []string{"seat1", "unknown"}))
}
