package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arbitrage/internal/finder"
	"arbitrage/internal/matcher"
	"arbitrage/internal/models"
	"arbitrage/internal/repository"
	"arbitrage/internal/venue"
)

// executor is the subset of bot.Executor / bot.PaperExecutor the runner
// depends on, so tests can script a double without pulling in package bot.
type executor interface {
	Execute(ctx context.Context, op *models.Opportunity) models.ExecutionResult
}

// Runner drives the two-speed scan loop: a slow catalog refresh that
// re-lists and re-matches both venues' markets, and a fast poll that
// re-prices the held pairs, evaluates them, and executes whatever the
// finder surfaces.
type Runner struct {
	cfg Config

	venueA venue.Client
	venueB venue.Client

	finder *finder.Finder
	exec   executor

	opportunityRepo *repository.OpportunityRepository
	tradeRepo       *repository.TradeRepository
	blacklistRepo   *repository.BlacklistRepository
	sidecar         *ndjsonSidecar

	log *zap.Logger

	mu    sync.RWMutex
	pairs []*models.MatchedPair
}

// Deps bundles the collaborators NewRunner needs beyond Config; repository
// fields are optional (nil disables persistence / blacklist filtering,
// respectively). The NDJSON sidecar is not a dependency: it is opened from
// Config.OpportunitiesLogPath.
type Deps struct {
	VenueA venue.Client
	VenueB venue.Client

	Finder   *finder.Finder
	Executor executor

	OpportunityRepo *repository.OpportunityRepository
	TradeRepo       *repository.TradeRepository
	BlacklistRepo   *repository.BlacklistRepository

	Log *zap.Logger
}

func NewRunner(cfg Config, deps Deps) (*Runner, error) {
	cfg.applyDefaults()

	r := &Runner{
		cfg:             cfg,
		venueA:          deps.VenueA,
		venueB:          deps.VenueB,
		finder:          deps.Finder,
		exec:            deps.Executor,
		opportunityRepo: deps.OpportunityRepo,
		tradeRepo:       deps.TradeRepo,
		blacklistRepo:   deps.BlacklistRepo,
		log:             deps.Log,
	}

	if cfg.OpportunitiesLogPath != "" {
		sc, err := newNDJSONSidecar(cfg.OpportunitiesLogPath)
		if err != nil {
			return nil, err
		}
		r.sidecar = sc
	}

	return r, nil
}

// Run drives the loop until ctx is cancelled, performing one slow refresh up
// front so the first fast tick has pairs to evaluate.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.slowRefresh(ctx); err != nil {
		r.log.Warn("runner: initial catalog refresh failed", zap.Error(err))
	}

	slowTicker := time.NewTicker(r.cfg.SlowRefreshInterval)
	fastTicker := time.NewTicker(r.cfg.FastPollInterval)
	defer slowTicker.Stop()
	defer fastTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			if r.sidecar != nil {
				r.sidecar.Close()
			}
			return ctx.Err()
		case <-slowTicker.C:
			if err := r.slowRefresh(ctx); err != nil {
				r.log.Warn("runner: catalog refresh failed", zap.Error(err))
			}
		case <-fastTicker.C:
			r.fastPoll(ctx)
		}
	}
}

// slowRefresh re-lists both venues' catalogs and re-matches them, replacing
// the held pair set. A listing failure on one venue degrades to an empty
// pair set for this cycle rather than trading against a stale, possibly
// one-sided catalog.
func (r *Runner) slowRefresh(ctx context.Context) error {
	start := time.Now()
	defer func() { scanDuration.WithLabelValues("slow_refresh").Observe(time.Since(start).Seconds()) }()

	opts := venue.ListOptions{ScanWindow: r.cfg.ScanWindow}

	var aMarkets, bMarkets []*models.Market
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		markets, err := r.venueA.ListMarkets(gctx, opts)
		if err != nil {
			return err
		}
		aMarkets = markets
		return nil
	})
	g.Go(func() error {
		markets, err := r.venueB.ListMarkets(gctx, opts)
		if err != nil {
			return err
		}
		bMarkets = markets
		return nil
	})
	if err := g.Wait(); err != nil {
		r.mu.Lock()
		r.pairs = nil
		r.mu.Unlock()
		matchedPairs.Set(0)
		return err
	}

	pairs, rejections := matcher.Match(r.cfg.MatcherCfg, aMarkets, bMarkets)
	pairs, blacklisted := r.filterBlacklisted(pairs)
	r.log.Info("runner: slow refresh complete",
		zap.Int("venue_a_markets", len(aMarkets)),
		zap.Int("venue_b_markets", len(bMarkets)),
		zap.Int("matched_pairs", len(pairs)),
		zap.Int("category_mismatch", rejections.CategoryMismatch),
		zap.Int("threshold_mismatch", rejections.ThresholdMismatch),
		zap.Int("resolution_out_of_range", rejections.ResolutionOutOfRange),
		zap.Int("blacklisted", blacklisted),
	)

	r.mu.Lock()
	r.pairs = pairs
	r.mu.Unlock()
	matchedPairs.Set(float64(len(pairs)))

	return nil
}

// filterBlacklisted drops every pair whose crypto Asset is blacklisted,
// returning the surviving pairs and a count of how many were dropped.
// Sports pairs have no Asset and are never blacklisted. A nil blacklistRepo
// (no persistence configured) disables the check entirely.
func (r *Runner) filterBlacklisted(pairs []*models.MatchedPair) ([]*models.MatchedPair, int) {
	if r.blacklistRepo == nil {
		return pairs, 0
	}

	var (
		kept    = pairs[:0:0]
		dropped int
	)
	for _, p := range pairs {
		if p.Category != models.CategoryCrypto {
			kept = append(kept, p)
			continue
		}
		blocked, err := r.blacklistRepo.Contains(p.VenueA.Asset)
		if err != nil {
			r.log.Warn("runner: blacklist lookup failed, keeping pair", zap.String("asset", p.VenueA.Asset), zap.Error(err))
			kept = append(kept, p)
			continue
		}
		if blocked {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}

// fastPoll re-prices the held pairs, evaluates them for opportunities, and
// executes every surfaced opportunity in turn. Best-effort throughout: a
// pricing failure on one venue resets that venue's live state to Missing
// (per venue.Client's contract) and the cycle continues with whatever priced
// correctly.
func (r *Runner) fastPoll(ctx context.Context) {
	start := time.Now()
	defer func() { scanDuration.WithLabelValues("fast_poll").Observe(time.Since(start).Seconds()) }()

	r.mu.RLock()
	pairs := r.pairs
	r.mu.RUnlock()
	if len(pairs) == 0 {
		return
	}

	aMarkets := marketsOf(pairs, true)
	bMarkets := marketsOf(pairs, false)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.venueA.FetchLivePrices(gctx, aMarkets) })
	g.Go(func() error { return r.venueB.FetchLivePrices(gctx, bMarkets) })
	if err := g.Wait(); err != nil {
		r.log.Warn("runner: fast poll pricing failed", zap.Error(err))
	}

	opportunities := r.finder.Evaluate(ctx, pairs)
	for _, op := range opportunities {
		opportunitiesDetected.WithLabelValues(string(op.Tier)).Inc()

		if r.sidecar != nil {
			if err := r.sidecar.Append(op); err != nil {
				r.log.Warn("runner: opportunities sidecar write failed", zap.Error(err))
			}
		}

		var opportunityID int64 = -1
		if r.opportunityRepo != nil {
			rec := opportunityRecordFrom(op)
			if err := r.opportunityRepo.Create(rec); err != nil {
				r.log.Warn("runner: failed to persist opportunity", zap.Error(err))
			} else {
				opportunityID = rec.ID
			}
		}

		if r.exec == nil {
			continue
		}

		result := r.exec.Execute(ctx, op)
		tradesTotal.WithLabelValues(string(result.Status)).Inc()
		if result.Status == models.StatusFilled {
			netProfitTotal.Add(mustFloat64(result.NetProfitUSD))
		}

		if result.Status != models.StatusSkipped && r.opportunityRepo != nil && opportunityID >= 0 {
			if err := r.opportunityRepo.MarkExecuted(opportunityID); err != nil {
				r.log.Warn("runner: failed to mark opportunity executed", zap.Error(err))
			}
		}
		if r.tradeRepo != nil {
			rec := tradeRecordFrom(op, result, opportunityID)
			if err := r.tradeRepo.Create(rec); err != nil {
				r.log.Warn("runner: failed to persist trade", zap.Error(err))
			}
		}
	}
}

func marketsOf(pairs []*models.MatchedPair, venueA bool) []*models.Market {
	seen := make(map[string]bool, len(pairs))
	out := make([]*models.Market, 0, len(pairs))
	for _, p := range pairs {
		m := p.VenueB
		if venueA {
			m = p.VenueA
		}
		if seen[m.PlatformID] {
			continue
		}
		seen[m.PlatformID] = true
		out = append(out, m)
	}
	return out
}
