package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"arbitrage/internal/models"
)

func cryptoMarket(platform models.Platform, asset string, dir models.Direction, threshold int64, resolution time.Time) *models.Market {
	return &models.Market{
		Platform:     platform,
		PlatformID:   string(platform) + "-" + asset,
		Category:     models.CategoryCrypto,
		Asset:        asset,
		Direction:    dir,
		Threshold:    decimal.NewFromInt(threshold),
		ResolutionAt: resolution,
	}
}

func sportsMarket(platform models.Platform, sport, team, opponent string, mapNumber *int, resolution time.Time) *models.Market {
	return &models.Market{
		Platform:     platform,
		PlatformID:   string(platform) + "-" + team,
		Category:     models.CategorySports,
		Sport:        sport,
		Team:         team,
		Opponent:     opponent,
		SportSubtype: models.SportSubtypeSeries,
		MapNumber:    mapNumber,
		ResolutionAt: resolution,
	}
}

func TestMatch_Crypto_RequiresGateEnabled(t *testing.T) {
	now := time.Now()
	a := []*models.Market{cryptoMarket(models.PlatformA, "BTC", models.DirectionAbove, 90000, now)}
	b := []*models.Market{cryptoMarket(models.PlatformB, "BTC", models.DirectionAbove, 90000, now)}

	pairs, rej := Match(Config{CryptoGateEnabled: false}, a, b)
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs with gate disabled, got %d", len(pairs))
	}
	if rej.CryptoGateDisabled == 0 {
		t.Fatalf("expected CryptoGateDisabled rejection to be tallied")
	}

	pairs, _ = Match(Config{CryptoGateEnabled: true}, a, b)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair with gate enabled, got %d", len(pairs))
	}
}

func TestMatch_Crypto_ThresholdMustMatchExactly(t *testing.T) {
	now := time.Now()
	a := []*models.Market{cryptoMarket(models.PlatformA, "BTC", models.DirectionAbove, 90000, now)}
	b := []*models.Market{cryptoMarket(models.PlatformB, "BTC", models.DirectionAbove, 95000, now)}

	pairs, rej := Match(Config{CryptoGateEnabled: true}, a, b)
	if len(pairs) != 0 {
		t.Fatalf("expected no match on differing threshold, got %d", len(pairs))
	}
	if rej.ThresholdMismatch != 1 {
		t.Fatalf("expected 1 ThresholdMismatch, got %d", rej.ThresholdMismatch)
	}
}

func TestMatch_Crypto_ResolutionTolerance(t *testing.T) {
	now := time.Now()
	a := []*models.Market{cryptoMarket(models.PlatformA, "BTC", models.DirectionAbove, 90000, now)}

	withinTolerance := []*models.Market{cryptoMarket(models.PlatformB, "BTC", models.DirectionAbove, 90000, now.Add(59*time.Minute))}
	pairs, _ := Match(Config{CryptoGateEnabled: true}, a, withinTolerance)
	if len(pairs) != 1 {
		t.Fatalf("expected match within 1h tolerance, got %d pairs", len(pairs))
	}

	outsideTolerance := []*models.Market{cryptoMarket(models.PlatformB, "BTC", models.DirectionAbove, 90000, now.Add(2*time.Hour))}
	pairs, rej := Match(Config{CryptoGateEnabled: true}, a, outsideTolerance)
	if len(pairs) != 0 {
		t.Fatalf("expected no match outside tolerance, got %d pairs", len(pairs))
	}
	if rej.ResolutionOutOfRange != 1 {
		t.Fatalf("expected 1 ResolutionOutOfRange, got %d", rej.ResolutionOutOfRange)
	}
}

func TestMatch_Sports_OpponentAndMapNumber(t *testing.T) {
	now := time.Now()
	map1, map2 := 1, 2

	a := []*models.Market{sportsMarket(models.PlatformA, "csgo", "liquid", "navi", &map1, now)}

	matching := []*models.Market{sportsMarket(models.PlatformB, "csgo", "liquid", "navi", &map1, now)}
	pairs, _ := Match(Config{}, a, matching)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 sports match, got %d", len(pairs))
	}

	wrongOpponent := []*models.Market{sportsMarket(models.PlatformB, "csgo", "liquid", "faze", &map1, now)}
	pairs, rej := Match(Config{}, a, wrongOpponent)
	if len(pairs) != 0 || rej.OpponentMismatch != 1 {
		t.Fatalf("expected opponent mismatch rejection, got %d pairs, rej=%+v", len(pairs), rej)
	}

	wrongMap := []*models.Market{sportsMarket(models.PlatformB, "csgo", "liquid", "navi", &map2, now)}
	pairs, rej = Match(Config{}, a, wrongMap)
	if len(pairs) != 0 || rej.MapNumberMismatch != 1 {
		t.Fatalf("expected map number mismatch rejection, got %d pairs, rej=%+v", len(pairs), rej)
	}
}

func TestMatch_Sports_MissingOpponentDoesNotReject(t *testing.T) {
	now := time.Now()
	a := []*models.Market{sportsMarket(models.PlatformA, "csgo", "liquid", "", nil, now)}
	b := []*models.Market{sportsMarket(models.PlatformB, "csgo", "liquid", "navi", nil, now)}

	pairs, _ := Match(Config{}, a, b)
	if len(pairs) != 1 {
		t.Fatalf("expected match when only one side specifies an opponent, got %d", len(pairs))
	}
}

func TestMatch_EachVenueBMarketUsedAtMostOnce(t *testing.T) {
	now := time.Now()

	a := cryptoMarket(models.PlatformA, "BTC", models.DirectionAbove, 90000, now)
	b1 := cryptoMarket(models.PlatformB, "BTC", models.DirectionAbove, 90000, now)
	b1.PlatformID = "b-btc-first"
	b2 := cryptoMarket(models.PlatformB, "BTC", models.DirectionAbove, 90000, now)
	b2.PlatformID = "b-btc-second"

	pairs, _ := Match(Config{CryptoGateEnabled: true}, []*models.Market{a}, []*models.Market{b1, b2})
	if len(pairs) != 1 {
		t.Fatalf("expected exactly 1 pair even though both venue-b candidates match, got %d", len(pairs))
	}
	if pairs[0].VenueB.PlatformID != "b-btc-first" {
		t.Fatalf("expected the first acceptable candidate to win, got %s", pairs[0].VenueB.PlatformID)
	}

	// A second venue-A market in the same bucket must fall through to the
	// still-unclaimed b2, never re-claim b1.
	a2 := cryptoMarket(models.PlatformA, "BTC", models.DirectionAbove, 90000, now)
	a2.PlatformID = "a-btc-second"

	pairs, _ = Match(Config{CryptoGateEnabled: true}, []*models.Market{a, a2}, []*models.Market{b1, b2})
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, one per venue-b market, got %d", len(pairs))
	}
	claimed := map[string]bool{}
	for _, p := range pairs {
		if claimed[p.VenueB.PlatformID] {
			t.Fatalf("venue-b market %s claimed by more than one pair", p.VenueB.PlatformID)
		}
		claimed[p.VenueB.PlatformID] = true
	}
}

func TestMatch_IsSymmetric(t *testing.T) {
	now := time.Now()
	a := []*models.Market{
		cryptoMarket(models.PlatformA, "BTC", models.DirectionAbove, 90000, now),
		sportsMarket(models.PlatformA, "csgo", "liquid", "navi", nil, now),
	}
	b := []*models.Market{
		cryptoMarket(models.PlatformB, "BTC", models.DirectionAbove, 90000, now),
		sportsMarket(models.PlatformB, "csgo", "liquid", "navi", nil, now),
	}

	forward, _ := Match(Config{CryptoGateEnabled: true}, a, b)
	backward, _ := Match(Config{CryptoGateEnabled: true}, b, a)

	if len(forward) != len(backward) {
		t.Fatalf("expected symmetric pair counts, got forward=%d backward=%d", len(forward), len(backward))
	}

	forwardKeys := map[[2]string]bool{}
	for _, p := range forward {
		forwardKeys[p.Key()] = true
	}
	for _, p := range backward {
		// backward pairs have VenueA/VenueB swapped relative to forward
		swapped := [2]string{p.VenueB.PlatformID, p.VenueA.PlatformID}
		if !forwardKeys[swapped] {
			t.Fatalf("backward pair %v has no corresponding forward pair", p.Key())
		}
	}
}
