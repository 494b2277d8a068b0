package finder

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"arbitrage/internal/models"
	"arbitrage/internal/schedule"
)

// ScheduleValidator is the subset of schedule.Validator the finder depends
// on, so tests can supply a stub without a real oracle.
type ScheduleValidator interface {
	Verify(ctx context.Context, sport, team, opponent string) schedule.Verdict
}

// Config tunes which combined-cost discrepancies are surfaced as
// opportunities.
type Config struct {
	TierBounds            []models.TierBound
	MinSpreadCents        decimal.Decimal // discard spreads below this
	MinLegPriceCents      decimal.Decimal // discard legs quoting near-zero, usually stale data
	MinHoursToClose       float64         // discard pairs resolving too soon to safely unwind
	ScheduleAllowNotFound bool            // if true, a NotFound verdict warns instead of dropping
}

// Finder evaluates matched pairs for combined-cost discrepancies across both
// strategies (buy YES on Venue-A + NO on Venue-B, and the reverse) and
// returns every discrepancy clearing the configured thresholds, sorted by
// spread descending.
type Finder struct {
	cfg       Config
	scheduler ScheduleValidator
	log       *zap.Logger
}

func NewFinder(cfg Config, scheduler ScheduleValidator, log *zap.Logger) *Finder {
	return &Finder{cfg: cfg, scheduler: scheduler, log: log}
}

// Evaluate scans every pair for both strategies and returns the surfaced
// opportunities sorted by SpreadCents descending.
func (f *Finder) Evaluate(ctx context.Context, pairs []*models.MatchedPair) []*models.Opportunity {
	var out []*models.Opportunity
	now := time.Now()

	for _, pair := range pairs {
		if op := f.evaluateStrategy(ctx, pair, models.SideYes, models.SideNo, now); op != nil {
			out = append(out, op)
		}
		if op := f.evaluateStrategy(ctx, pair, models.SideNo, models.SideYes, now); op != nil {
			out = append(out, op)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].SpreadCents.GreaterThan(out[j].SpreadCents)
	})
	return out
}

// evaluateStrategy checks buying aSide on Venue-A and bSide on Venue-B. For
// a binary market aSide and bSide are complementary (YES+NO), so together
// the two legs always pay out exactly 100c regardless of outcome; the
// opportunity is the gap between that guaranteed payout and what the two
// legs cost today.
func (f *Finder) evaluateStrategy(ctx context.Context, pair *models.MatchedPair, aSide, bSide models.Side, now time.Time) *models.Opportunity {
	aAsk := pair.VenueA.AskFor(aSide)
	bAsk := pair.VenueB.AskFor(bSide)
	if !aAsk.IsPresent() || !bAsk.IsPresent() {
		return nil
	}
	if f.cfg.MinLegPriceCents.IsPositive() {
		if aAsk.Cents().LessThan(f.cfg.MinLegPriceCents) || bAsk.Cents().LessThan(f.cfg.MinLegPriceCents) {
			return nil
		}
	}

	combined := aAsk.Cents().Add(bAsk.Cents())
	faceValue := decimal.NewFromInt(100)
	spread := faceValue.Sub(combined)
	if !spread.IsPositive() {
		return nil
	}
	if f.cfg.MinSpreadCents.IsPositive() && spread.LessThan(f.cfg.MinSpreadCents) {
		return nil
	}

	resolution := pair.EarlierResolution().ResolutionAt
	hoursToClose := resolution.Sub(now).Hours()
	if hoursToClose < f.cfg.MinHoursToClose {
		return nil
	}

	if pair.Category == models.CategorySports && f.scheduler != nil {
		verdict := f.scheduler.Verify(ctx, pair.VenueA.Sport, pair.VenueA.Team, pair.VenueA.Opponent)
		if verdict == schedule.VerdictNotFound {
			if !f.cfg.ScheduleAllowNotFound {
				return nil
			}
			f.log.Warn("schedule oracle found no match for sports pair; allowing by configuration",
				zap.String("sport", pair.VenueA.Sport), zap.String("team", pair.VenueA.Team),
				zap.String("opponent", pair.VenueA.Opponent))
		}
		// VerdictUnknown allows the pair through: an oracle outage should
		// not silently stop trading every sports market.
	}

	return &models.Opportunity{
		ID:                uuid.NewString(),
		Pair:              pair,
		VenueASide:        aSide,
		VenueBSide:        bSide,
		VenueACostCents:   aAsk.Cents(),
		VenueBCostCents:   bAsk.Cents(),
		CombinedCostCents: combined,
		SpreadCents:       spread,
		Tier:              models.TierFor(spread, f.cfg.TierBounds),
		HoursToClose:      hoursToClose,
		DetectedAt:        now,
		VenueADepth:       pair.VenueA.AskDepthFor(aSide),
		VenueBDepth:       pair.VenueB.AskDepthFor(bSide),
		VenueBLadder:      pair.VenueB.AskLevelsFor(bSide),
	}
}
