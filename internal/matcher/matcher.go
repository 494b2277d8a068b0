package matcher

import (
	"time"

	"github.com/google/uuid"

	"arbitrage/internal/models"
)

// ResolutionTolerance is the maximum allowed gap between two markets'
// resolution times for them to still be considered the same event.
const ResolutionTolerance = time.Hour

// Config controls which categories the matcher considers.
type Config struct {
	// CryptoGateEnabled allows crypto pairs to match. Disabled by default:
	// a Venue-A/Venue-B crypto question can reference different oracles for
	// the same nominal threshold, and a false match trades real money
	// against markets that can resolve opposite ways.
	CryptoGateEnabled bool
}

// RejectionCounts tallies why candidate pairs were rejected during one
// matching pass, for a reader debugging a catalog that produced
// unexpectedly few pairs.
type RejectionCounts struct {
	CategoryMismatch     int
	CryptoGateDisabled   int
	ThresholdMismatch    int
	ResolutionOutOfRange int
	OpponentMismatch     int
	MapNumberMismatch    int
}

// bucketKey is the equality-only portion of a match predicate. Two markets
// can only match if their bucketKey is identical; resolution-time tolerance
// and (for sports) opponent/map-number agreement are checked only within a
// bucket, not across the whole catalog.
type bucketKey struct {
	category  models.MarketCategory
	asset     string
	direction models.Direction
	sport     string
	team      string
	subtype   models.SportSubtype
}

func keyFor(m *models.Market) bucketKey {
	if m.Category == models.CategoryCrypto {
		return bucketKey{category: models.CategoryCrypto, asset: m.Asset, direction: m.Direction}
	}
	return bucketKey{category: models.CategorySports, sport: m.Sport, team: m.Team, subtype: m.SportSubtype}
}

// Match finds every Venue-A/Venue-B market pair whose category-specific
// predicate holds. It is symmetric: swapping the a and b slices produces the
// same set of pairs (by (a_id, b_id) identity), since every predicate checked
// is itself symmetric in its two operands.
func Match(cfg Config, aMarkets, bMarkets []*models.Market) ([]*models.MatchedPair, RejectionCounts) {
	var rejections RejectionCounts

	// Bucket the B side first: a single pass building an index, then an O(k)
	// lookup per A market instead of an O(n*m) nested scan.
	buckets := make(map[bucketKey][]*models.Market, len(bMarkets))
	for _, b := range bMarkets {
		k := keyFor(b)
		buckets[k] = append(buckets[k], b)
	}

	// usedB tracks which Venue-B markets have already been claimed by an
	// earlier Venue-A market this pass, so every market appears in at most
	// one pair: the first acceptable Venue-B candidate wins and is removed
	// from consideration for every subsequent Venue-A market.
	usedB := make(map[string]bool, len(bMarkets))

	var pairs []*models.MatchedPair
	for _, a := range aMarkets {
		if a.Category == models.CategoryCrypto && !cfg.CryptoGateEnabled {
			rejections.CryptoGateDisabled++
			continue
		}
		candidates, ok := buckets[keyFor(a)]
		if !ok {
			rejections.CategoryMismatch++
			continue
		}
		for _, b := range candidates {
			if b.Category == models.CategoryCrypto && !cfg.CryptoGateEnabled {
				continue
			}
			if usedB[b.PlatformID] {
				continue
			}
			if ok, reason := matches(a, b); ok {
				usedB[b.PlatformID] = true
				pairs = append(pairs, &models.MatchedPair{
					ID:       uuid.NewString(),
					Category: a.Category,
					VenueA:   a,
					VenueB:   b,
				})
				break
			} else {
				tally(&rejections, reason)
			}
		}
	}
	return pairs, rejections
}

type rejectReason int

const (
	reasonNone rejectReason = iota
	reasonThresholdMismatch
	reasonResolutionOutOfRange
	reasonOpponentMismatch
	reasonMapNumberMismatch
)

func tally(r *RejectionCounts, reason rejectReason) {
	switch reason {
	case reasonThresholdMismatch:
		r.ThresholdMismatch++
	case reasonResolutionOutOfRange:
		r.ResolutionOutOfRange++
	case reasonOpponentMismatch:
		r.OpponentMismatch++
	case reasonMapNumberMismatch:
		r.MapNumberMismatch++
	}
}

// matches checks the category-specific predicate for two markets already
// known to share a bucketKey (so asset/direction, or sport/team/subtype,
// already agree).
func matches(a, b *models.Market) (bool, rejectReason) {
	if !withinResolutionTolerance(a.ResolutionAt, b.ResolutionAt) {
		return false, reasonResolutionOutOfRange
	}

	if a.Category == models.CategoryCrypto {
		if !a.Threshold.Equal(b.Threshold) {
			return false, reasonThresholdMismatch
		}
		return true, reasonNone
	}

	// Sports: opponent must agree when both sides specify one, and
	// map_number must agree when both specify one. A market that omits
	// either field (opponent unknown, series-level market with no map
	// number) does not reject on that field alone.
	if a.Opponent != "" && b.Opponent != "" && a.Opponent != b.Opponent {
		return false, reasonOpponentMismatch
	}
	if a.MapNumber != nil && b.MapNumber != nil && *a.MapNumber != *b.MapNumber {
		return false, reasonMapNumberMismatch
	}
	return true, reasonNone
}

func withinResolutionTolerance(a, b time.Time) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= ResolutionTolerance
}
