package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arbitrage/internal/config"
	"arbitrage/internal/matcher"
	"arbitrage/internal/models"
	"arbitrage/internal/venue"
)

// runQA is the `arbitrage qa` one-shot: list and match both venues' catalogs,
// fetch a single round of live prices, and print what the scan loop would see
// without placing any orders. Useful for an operator checking venue
// connectivity and credential validity before flipping on the executor.
func runQA(cfg *config.Config, log *zap.Logger) error {
	venueA, err := newVenueA(cfg, log)
	if err != nil {
		return fmt.Errorf("venue-a client: %w", err)
	}
	venueB, err := newVenueB(cfg, log)
	if err != nil {
		return fmt.Errorf("venue-b client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	opts := venue.ListOptions{ScanWindow: cfg.Runner.ScanWindow, Force: true}

	var aMarkets, bMarkets []*models.Market
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		markets, err := venueA.ListMarkets(gctx, opts)
		if err != nil {
			return fmt.Errorf("venue-a list: %w", err)
		}
		aMarkets = markets
		return nil
	})
	g.Go(func() error {
		markets, err := venueB.ListMarkets(gctx, opts)
		if err != nil {
			return fmt.Errorf("venue-b list: %w", err)
		}
		bMarkets = markets
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	pairs, rejections := matcher.Match(cfg.Matcher, aMarkets, bMarkets)
	fmt.Printf("venue-a markets: %d, venue-b markets: %d, matched pairs: %d\n", len(aMarkets), len(bMarkets), len(pairs))
	fmt.Printf("rejections: category_mismatch=%d threshold_mismatch=%d resolution_out_of_range=%d\n\n",
		rejections.CategoryMismatch, rejections.ThresholdMismatch, rejections.ResolutionOutOfRange)

	if len(pairs) == 0 {
		return nil
	}

	if err := fetchLivePricesForPairs(ctx, venueA, venueB, pairs); err != nil {
		log.Warn("qa: live price fetch failed", zap.Error(err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "PAIR\tCATEGORY\tA-TICKER\tB-TICKER\tA YES ASK\tB YES ASK\tRESOLVES")
	for _, p := range pairs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Category, p.VenueA.PlatformID, p.VenueB.PlatformID,
			formatPrice(p.VenueA.YesAsk), formatPrice(p.VenueB.YesAsk),
			p.EarlierResolution().ResolutionAt.UTC().Format(time.RFC3339))
	}
	return w.Flush()
}

// fetchLivePricesForPairs fetches one round of live prices for both venues' halves of pairs in
// parallel, mirroring runner.fastPoll's fan-out for a single tick.
func fetchLivePricesForPairs(ctx context.Context, venueA, venueB venue.Client, pairs []*models.MatchedPair) error {
	aMarkets := make([]*models.Market, 0, len(pairs))
	bMarkets := make([]*models.Market, 0, len(pairs))
	for _, p := range pairs {
		aMarkets = append(aMarkets, p.VenueA)
		bMarkets = append(bMarkets, p.VenueB)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return venueA.FetchLivePrices(gctx, aMarkets) })
	g.Go(func() error { return venueB.FetchLivePrices(gctx, bMarkets) })
	return g.Wait()
}

func formatPrice(p models.Price) string {
	if !p.IsPresent() {
		return "-"
	}
	return p.Cents().StringFixed(2)
}
