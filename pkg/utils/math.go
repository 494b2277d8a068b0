package utils

import "math"

// RoundToLotSize truncates value down to the nearest multiple of lotSize.
// A non-positive lotSize is treated as "no rounding" and value is returned
// unchanged.
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Trunc(value/lotSize) * lotSize
}

// RoundToLotSizeUp rounds value up to the nearest multiple of lotSize.
func RoundToLotSizeUp(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Ceil(value/lotSize) * lotSize
}

// RoundToLotSizeNearest rounds value to the nearest multiple of lotSize,
// ties rounding up (Go's math.Round convention).
func RoundToLotSizeNearest(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Round(value/lotSize) * lotSize
}

// CalculateSpread returns the percentage gap of priceHigh over priceLow.
// A non-positive priceLow is undefined and reports zero.
func CalculateSpread(priceHigh, priceLow float64) float64 {
	if priceLow <= 0 {
		return 0
	}
	return (priceHigh - priceLow) / priceLow * 100
}

// CalculateSpreadFromPrices returns the spread between two prices
// regardless of which one is higher.
func CalculateSpreadFromPrices(priceA, priceB float64) float64 {
	if priceA <= 0 || priceB <= 0 {
		return 0
	}
	if priceA >= priceB {
		return CalculateSpread(priceA, priceB)
	}
	return CalculateSpread(priceB, priceA)
}

// CalculateNetSpread subtracts round-trip fees (each leg charged once on
// entry and once on exit) from a gross percentage spread.
func CalculateNetSpread(spreadPct, feeA, feeB float64) float64 {
	totalFeePct := 2 * (feeA + feeB) * 100
	return spreadPct - totalFeePct
}

// CalculateNetSpreadDirect computes the gross spread from two prices and
// nets it against fees in one call.
func CalculateNetSpreadDirect(priceHigh, priceLow, feeA, feeB float64) float64 {
	return CalculateNetSpread(CalculateSpread(priceHigh, priceLow), feeA, feeB)
}

// CalculateWeightedAverage computes a volume-weighted average price.
// Negative weights are ignored; mismatched slice lengths or an all-zero
// weight sum report zero.
func CalculateWeightedAverage(values, weights []float64) float64 {
	if len(values) == 0 || len(values) != len(weights) {
		return 0
	}

	var weightedSum, totalWeight float64
	for i, w := range weights {
		if w < 0 {
			continue
		}
		weightedSum += values[i] * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// OrderBookLevel is one (price, available volume) rung of an order book
// side, used to simulate walking the book for a market order.
type OrderBookLevel struct {
	Price  float64
	Volume float64
}

// SimulateMarketBuy walks ascending ask levels to fill targetVolume,
// returning the volume-weighted fill price, the volume actually filled
// (capped by available liquidity), and the slippage percentage versus the
// top-of-book price.
func SimulateMarketBuy(asks []OrderBookLevel, targetVolume float64) (price, filled, slippagePct float64) {
	return simulateMarketOrder(asks, targetVolume)
}

// SimulateMarketSell walks descending bid levels to fill targetVolume,
// returning the volume-weighted fill price, the volume actually filled,
// and the slippage percentage versus the top-of-book price.
func SimulateMarketSell(bids []OrderBookLevel, targetVolume float64) (price, filled, slippagePct float64) {
	return simulateMarketOrder(bids, targetVolume)
}

func simulateMarketOrder(levels []OrderBookLevel, targetVolume float64) (price, filled, slippagePct float64) {
	if len(levels) == 0 || targetVolume <= 0 {
		return 0, 0, 0
	}

	var cost float64
	remaining := targetVolume
	for _, level := range levels {
		if remaining <= 0 {
			break
		}
		take := level.Volume
		if take > remaining {
			take = remaining
		}
		cost += take * level.Price
		filled += take
		remaining -= take
	}
	if filled == 0 {
		return 0, 0, 0
	}

	price = cost / filled
	topOfBook := levels[0].Price
	slippagePct = CalculateSpread(price, topOfBook)
	return price, filled, slippagePct
}

// CalculatePNL returns the profit/loss of a single leg: side must be "long"
// or "short"; any other value reports zero.
func CalculatePNL(side string, entryPrice, currentPrice, quantity float64) float64 {
	switch side {
	case "long":
		return (currentPrice - entryPrice) * quantity
	case "short":
		return (entryPrice - currentPrice) * quantity
	default:
		return 0
	}
}

// CalculateTotalPNL sums the PNL of a long leg entered at longEntry and a
// short leg entered at shortEntry, both evaluated at their current prices.
func CalculateTotalPNL(longEntry, longCurrent, shortEntry, shortCurrent, quantity float64) float64 {
	return CalculatePNL("long", longEntry, longCurrent, quantity) +
		CalculatePNL("short", shortEntry, shortCurrent, quantity)
}

// SplitVolume divides totalVolume into nParts equal, lot-size-rounded
// chunks. Returns nil for nParts <= 0 or totalVolume <= 0.
func SplitVolume(totalVolume float64, nParts int, lotSize float64) []float64 {
	if nParts <= 0 || totalVolume <= 0 {
		return nil
	}

	part := RoundToLotSize(totalVolume/float64(nParts), lotSize)
	parts := make([]float64, nParts)
	for i := range parts {
		parts[i] = part
	}
	return parts
}

// IsSpreadSufficient reports whether spread clears the configured entry
// threshold.
func IsSpreadSufficient(spread, threshold float64) bool {
	return spread >= threshold
}

// ShouldExit reports whether spread has compressed to or below the
// configured exit threshold.
func ShouldExit(spread, exitThreshold float64) bool {
	return spread <= exitThreshold
}

// IsStopLossHit reports whether pnl has fallen to or below the negated
// stop-loss limit. stopLoss <= 0 disables the check.
func IsStopLossHit(pnl, stopLoss float64) bool {
	if stopLoss <= 0 {
		return false
	}
	return pnl <= -stopLoss
}

// Clamp restricts value to the closed interval [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
