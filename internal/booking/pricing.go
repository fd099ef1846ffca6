package booking

import "github.com/iliyamo/booking-core/internal/model"

// categoryPriceCents maps a resource category to its price.  A plain
// table is all the polymorphism pricing needs here; deployments with
// richer rules can swap QuotePrice for their own function.
var categoryPriceCents = map[model.ResourceCategory]uint32{
    model.CategoryRegular:  300,
    model.CategoryPremium:  450,
    model.CategoryRecliner: 600,
}

// PriceFor returns the per-unit price for a category.  Unknown
// categories fall back to the regular price rather than failing; the
// catalog is the place that validates categories.
func PriceFor(category model.ResourceCategory) uint32 {
    if p, ok := categoryPriceCents[category]; ok {
        return p
    }
    return categoryPriceCents[model.CategoryRegular]
}

// QuotePrice totals the price of the given resources from their
// categories.  Resources missing from the map are charged the regular
// price.
func QuotePrice(categories map[string]model.ResourceCategory, resourceIDs []string) uint32 {
    var total uint32
    for _, rid := range resourceIDs {
        total += PriceFor(categories[rid])
    }
    return total
}
