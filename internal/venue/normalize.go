package venue

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"arbitrage/internal/models"
)

// cryptoAssetKeywords maps title/ticker keywords to their canonical ticker.
// Extend this map, not the parsing logic, when a new asset needs
// matching.
var cryptoAssetKeywords = map[string]string{
	"bitcoin": "BTC", "btc": "BTC",
	"ethereum": "ETH", "eth": "ETH",
	"solana": "SOL", "sol": "SOL",
	"xrp": "XRP", "ripple": "XRP",
	"dogecoin": "DOGE", "doge": "DOGE",
}

var aboveWords = []string{"above", "over", "exceed", "higher than", "more than", "reach"}
var belowWords = []string{"below", "under", "less than", "fall below", "drop below"}

var thresholdRE = regexp.MustCompile(`\$?([0-9][0-9,]*(?:\.[0-9]+)?)\s*([kKmMbB]\b)?`)

// NormalizeCryptoQuestion extracts (asset, direction, threshold) from a raw
// crypto market title by keyword-scanning for each of the three fields
// independently. ok is false if any of the three could not be found,
// per the "reject if any of the three is missing" rule.
func NormalizeCryptoQuestion(question string) (asset string, direction models.Direction, threshold decimal.Decimal, ok bool) {
	lower := strings.ToLower(question)

	for kw, canonical := range cryptoAssetKeywords {
		if strings.Contains(lower, kw) {
			asset = canonical
			break
		}
	}
	if asset == "" {
		return "", "", decimal.Zero, false
	}

	foundDirection := false
	for _, w := range aboveWords {
		if strings.Contains(lower, w) {
			direction = models.DirectionAbove
			foundDirection = true
			break
		}
	}
	if !foundDirection {
		for _, w := range belowWords {
			if strings.Contains(lower, w) {
				direction = models.DirectionBelow
				foundDirection = true
				break
			}
		}
	}
	if !foundDirection {
		return "", "", decimal.Zero, false
	}

	match := thresholdRE.FindStringSubmatch(question)
	if match == nil || match[1] == "" {
		return "", "", decimal.Zero, false
	}
	numStr := strings.ReplaceAll(match[1], ",", "")
	amount, err := decimal.NewFromString(numStr)
	if err != nil {
		return "", "", decimal.Zero, false
	}
	switch strings.ToLower(match[2]) {
	case "k":
		amount = amount.Mul(decimal.NewFromInt(1_000))
	case "m":
		amount = amount.Mul(decimal.NewFromInt(1_000_000))
	case "b":
		amount = amount.Mul(decimal.NewFromInt(1_000_000_000))
	}

	return asset, direction, amount, true
}

var wrapperTokens = map[string]bool{
	"team": true, "esports": true, "gaming": true, "fc": true, "sc": true,
}

var trailingDigitsRE = regexp.MustCompile(`[0-9]+$`)
var punctuationRE = regexp.MustCompile(`[^a-z0-9\s]`)

// NormalizeTeamName lowercases, strips punctuation, drops wrapper tokens
// ("team", "esports", "gaming", "fc", "sc"), and strips trailing digits
//, so that "Team Liquid" and "liquid" compare equal.
func NormalizeTeamName(name string) string {
	lower := strings.ToLower(name)
	lower = punctuationRE.ReplaceAllString(lower, " ")

	words := strings.Fields(lower)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		w = trailingDigitsRE.ReplaceAllString(w, "")
		if w == "" || wrapperTokens[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// ParseThresholdToken finds the first dollar-amount token in s, supporting
// K/M/B suffixes, returning ok=false if none is present. Exposed separately
// from NormalizeCryptoQuestion for callers (e.g. the matcher's diagnostics)
// that only need the threshold.
func ParseThresholdToken(s string) (decimal.Decimal, bool) {
	match := thresholdRE.FindStringSubmatch(s)
	if match == nil || match[1] == "" {
		return decimal.Zero, false
	}
	numStr := strings.ReplaceAll(match[1], ",", "")
	amount, err := decimal.NewFromString(numStr)
	if err != nil {
		return decimal.Zero, false
	}
	switch strings.ToLower(match[2]) {
	case "k":
		amount = amount.Mul(decimal.NewFromInt(1_000))
	case "m":
		amount = amount.Mul(decimal.NewFromInt(1_000_000))
	case "b":
		amount = amount.Mul(decimal.NewFromInt(1_000_000_000))
	}
	return amount, true
}

// parseIntSafe is a small helper used by venue-specific payload parsing for
// fields the JSON decoder leaves as strings.
func parseIntSafe(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
