package venue

import (
	"sort"

	"github.com/shopspring/decimal"

	"arbitrage/internal/models"
)

// RawLevel is one unaggregated (price, size) tick as read off a venue's
// order-book payload, before price-deduplication and sort ordering are
// normalized.
type RawLevel struct {
	PriceCents decimal.Decimal
	Units      int64
}

// AggregateAsks collapses duplicate price levels into a single (price,
// total-size) entry and sorts the result ascending by price, so the input
// order does not matter (Venue-B's descending ask list needs no reversal
// first). It does not pick a best ask; BestAsk reads levels[0] of the result.
func AggregateAsks(raw []RawLevel) []models.LadderLevel {
	byPrice := make(map[string]*models.LadderLevel, len(raw))
	order := make([]string, 0, len(raw))
	for _, lvl := range raw {
		key := lvl.PriceCents.String()
		if existing, ok := byPrice[key]; ok {
			existing.Units += lvl.Units
			continue
		}
		entry := &models.LadderLevel{PriceCents: lvl.PriceCents, Units: lvl.Units}
		byPrice[key] = entry
		order = append(order, key)
	}
	out := make([]models.LadderLevel, 0, len(order))
	for _, key := range order {
		out = append(out, *byPrice[key])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PriceCents.LessThan(out[j].PriceCents)
	})
	return out
}

// BestAsk returns the lowest-priced level and its depth, or (Missing, nil)
// if levels is empty.
func BestAsk(levels []models.LadderLevel) (models.Price, *int64) {
	if len(levels) == 0 {
		return models.MissingPrice(), nil
	}
	depth := levels[0].Units
	return models.PresentPrice(levels[0].PriceCents), &depth
}
