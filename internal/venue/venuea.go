package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arbitrage/internal/models"
	"arbitrage/pkg/ratelimit"
)

// VenueAConfig configures the cent-priced, centrally-cleared venue client.
type VenueAConfig struct {
	BaseURL         string
	APIKeyID        string
	APISecret       string
	ScanWindow      time.Duration
	RefreshInterval time.Duration
	HTTPTimeout     time.Duration
	WorkerPoolSize  int
	TakerFeeRate    decimal.Decimal // e.g. 0.07 = 7% of notional
	CryptoEnabled   bool
}

func (c *VenueAConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://trading-api.venue-a.example/v2"
	}
	if c.ScanWindow <= 0 {
		c.ScanWindow = 72 * time.Hour
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 2 * time.Hour
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 20
	}
}

// VenueA adapts the cent-priced, asymmetric-signed venue. Orders are
// integer cents 0..100, rejected outside [1,99]; requests carry an API key id
// and a millisecond timestamp header. No request signature is attached.
type VenueA struct {
	cfg     VenueAConfig
	http    *resty.Client
	limiter *ratelimit.RateLimiter
	log     *zap.Logger

	cacheMu     sync.Mutex
	cached      []*models.Market
	cachedAt    time.Time
}

// NewVenueA builds a client against cfg. Credentials may be empty — callers
// that only need ListMarkets/FetchLivePrices can still
// operate. An empty secret is not checked: PlaceOrder signs nothing and sends
// the request with the key id and timestamp headers only.
func NewVenueA(cfg VenueAConfig, log *zap.Logger) *VenueA {
	cfg.applyDefaults()
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("Content-Type", "application/json")
	return &VenueA{
		cfg:     cfg,
		http:    client,
		limiter: ratelimit.NewRateLimiter(10, 20),
		log:     log,
	}
}

func (v *VenueA) Platform() models.Platform { return models.PlatformA }

func (v *VenueA) sign(timestampMs, method, path string) string {
	message := timestampMs + method + path
	h := hmac.New(sha256.New, []byte(v.cfg.APISecret))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

func (v *VenueA) signedRequest(ctx context.Context) *resty.Request {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return v.http.R().
		SetContext(ctx).
		SetHeader("VENUE-A-ACCESS-KEY", v.cfg.APIKeyID).
		SetHeader("VENUE-A-ACCESS-TIMESTAMP", ts)
}

type venueAMarketPage struct {
	Markets []venueAMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

type venueAMarket struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Category     string `json:"category"`
	CloseTime    string `json:"close_time"`
	YesAskCents  *int64 `json:"yes_ask"`
	NoAskCents   *int64 `json:"no_ask"`
	YesBidCents  *int64 `json:"yes_bid"`
	NoBidCents   *int64 `json:"no_bid"`
	YesAskDepth  *int64 `json:"yes_ask_depth"`
	NoAskDepth   *int64 `json:"no_ask_depth"`
}

// ListMarkets paginates the catalog, returning open markets resolving
// within opts.ScanWindow, caching the result for cfg.RefreshInterval.
func (v *VenueA) ListMarkets(ctx context.Context, opts ListOptions) ([]*models.Market, error) {
	v.cacheMu.Lock()
	if !opts.Force && v.cached != nil && time.Since(v.cachedAt) < v.cfg.RefreshInterval {
		cached := v.cached
		v.cacheMu.Unlock()
		return cached, nil
	}
	v.cacheMu.Unlock()

	scanWindow := opts.ScanWindow
	if scanWindow <= 0 {
		scanWindow = v.cfg.ScanWindow
	}
	cutoff := time.Now().Add(scanWindow)

	var out []*models.Market
	cursor := ""
	for {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		var page venueAMarketPage
		req := v.http.R().SetContext(ctx).SetQueryParam("status", "open").SetResult(&page)
		if cursor != "" {
			req.SetQueryParam("cursor", cursor)
		}
		resp, err := req.Get("/markets")
		if err != nil {
			return nil, fmt.Errorf("list markets page: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("list markets page: status %d", resp.StatusCode())
		}
		for i := range page.Markets {
			raw := page.Markets[i]
			closeTime, err := time.Parse(time.RFC3339, raw.CloseTime)
			if err != nil || closeTime.After(cutoff) {
				continue
			}
			market, ok := v.normalize(raw, closeTime)
			if !ok {
				continue
			}
			out = append(out, market)
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	v.cacheMu.Lock()
	v.cached = out
	v.cachedAt = time.Now()
	v.cacheMu.Unlock()
	return out, nil
}

func (v *VenueA) normalize(raw venueAMarket, closeTime time.Time) (*models.Market, bool) {
	m := &models.Market{
		Platform:     models.PlatformA,
		PlatformID:   raw.Ticker,
		PlatformURL:  v.cfg.BaseURL + "/markets/" + raw.Ticker,
		RawQuestion:  raw.Title,
		ResolutionAt: closeTime,
	}

	if strings.HasPrefix(raw.EventTicker, "SERIES-") || strings.HasPrefix(raw.EventTicker, "MAP-") {
		m.Category = models.CategorySports
		m.Sport = strings.ToLower(strings.TrimPrefix(strings.SplitN(raw.EventTicker, "-", 2)[0], "SERIES"))
		teams := strings.SplitN(raw.Subtitle, " vs ", 2)
		m.Team = NormalizeTeamName(teams[0])
		if len(teams) > 1 {
			m.Opponent = NormalizeTeamName(teams[1])
		}
		if strings.HasPrefix(raw.EventTicker, "MAP-") {
			m.SportSubtype = models.SportSubtypeMap
		} else {
			m.SportSubtype = models.SportSubtypeSeries
		}
		m.EventID = raw.EventTicker
	} else {
		if !v.cfg.CryptoEnabled {
			return nil, false
		}
		asset, direction, threshold, ok := NormalizeCryptoQuestion(raw.Title)
		if !ok {
			return nil, false
		}
		m.Category = models.CategoryCrypto
		m.Asset = asset
		m.Direction = direction
		m.Threshold = threshold
	}

	applyCentField(&m.YesAsk, raw.YesAskCents)
	applyCentField(&m.NoAsk, raw.NoAskCents)
	applyCentField(&m.YesBid, raw.YesBidCents)
	applyCentField(&m.NoBid, raw.NoBidCents)
	m.YesAskDepth = raw.YesAskDepth
	m.NoAskDepth = raw.NoAskDepth

	return m, true
}

func applyCentField(dst *models.Price, raw *int64) {
	if raw == nil {
		*dst = models.MissingPrice()
		return
	}
	*dst = models.PresentPrice(decimal.NewFromInt(*raw))
}

// FetchLivePrices refreshes top-of-book for markets in parallel, bounded by
// cfg.WorkerPoolSize. A per-market failure resets that market's live state
// rather than aborting the batch.
func (v *VenueA) FetchLivePrices(ctx context.Context, markets []*models.Market) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.WorkerPoolSize)

	for _, m := range markets {
		m := m
		g.Go(func() error {
			if err := v.limiter.Wait(gctx); err != nil {
				m.ResetLiveState()
				return nil
			}
			var raw venueAMarket
			resp, err := v.http.R().SetContext(gctx).SetResult(&raw).Get("/markets/" + m.PlatformID)
			if err != nil || resp.IsError() {
				m.ResetLiveState()
				return nil
			}
			applyCentField(&m.YesAsk, raw.YesAskCents)
			applyCentField(&m.NoAsk, raw.NoAskCents)
			applyCentField(&m.YesBid, raw.YesBidCents)
			applyCentField(&m.NoBid, raw.NoBidCents)
			m.YesAskDepth = raw.YesAskDepth
			m.NoAskDepth = raw.NoAskDepth
			return nil
		})
	}
	return g.Wait()
}

type venueAOrderRequest struct {
	Ticker     string `json:"ticker"`
	Action     string `json:"action"`
	Side       string `json:"side"`
	Count      int64  `json:"count"`
	PriceCents int64  `json:"yes_price,omitempty"`
	Type       string `json:"type"`
}

type venueAOrderResponse struct {
	Order struct {
		OrderID   string `json:"order_id"`
		Status    string `json:"status"`
		FillCount int64  `json:"fill_count"`
		Remaining int64  `json:"remaining_count"`
	} `json:"order"`
}

// PlaceOrder places a limit order (req.Action, buy when unset) for
// req.Units at req.PriceCents. Prices
// outside [1,99] are rejected before any request is sent.
func (v *VenueA) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	price := req.PriceCents.IntPart()
	if price < 1 || price > 99 {
		return OrderResult{}, fmt.Errorf("venue-a: price %d cents out of [1,99]", price)
	}

	action := req.Action
	if action == "" {
		action = ActionBuy
	}

	body := venueAOrderRequest{
		Ticker:     req.Instrument,
		Action:     string(action),
		Side:       string(req.Side),
		Count:      req.Units,
		PriceCents: price,
		Type:       "limit",
	}
	var out venueAOrderResponse
	resp, err := v.signedRequest(ctx).SetBody(body).SetResult(&out).Post("/portfolio/orders")
	if err != nil {
		return OrderResult{}, fmt.Errorf("venue-a place order: %w", err)
	}
	if resp.StatusCode() == 409 {
		return OrderResult{}, fmt.Errorf("venue-a place order rejected: %w", ErrConflict)
	}
	if resp.IsError() {
		return OrderResult{}, fmt.Errorf("venue-a place order: status %d", resp.StatusCode())
	}
	if out.Order.OrderID == "" {
		return OrderResult{}, fmt.Errorf("venue-a place order: response missing order_id")
	}
	return OrderResult{OrderID: out.Order.OrderID}, nil
}

func (v *VenueA) GetOrder(ctx context.Context, orderID string) (OrderStatus, error) {
	var out venueAOrderResponse
	resp, err := v.signedRequest(ctx).SetResult(&out).Get("/portfolio/orders/" + orderID)
	if err != nil {
		return OrderStatus{}, fmt.Errorf("venue-a get order: %w", err)
	}
	if resp.IsError() {
		return OrderStatus{}, fmt.Errorf("venue-a get order: status %d", resp.StatusCode())
	}
	return OrderStatus{
		OrderID:   out.Order.OrderID,
		FillCount: out.Order.FillCount,
		Remaining: out.Order.Remaining,
		Status:    out.Order.Status,
	}, nil
}

func (v *VenueA) CancelOrder(ctx context.Context, orderID string) error {
	resp, err := v.signedRequest(ctx).Delete("/portfolio/orders/" + orderID)
	if err != nil {
		return fmt.Errorf("venue-a cancel order: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != 404 {
		return fmt.Errorf("venue-a cancel order: status %d", resp.StatusCode())
	}
	return nil
}

func (v *VenueA) GetMarketPrice(ctx context.Context, instrument string, side models.Side) (models.Price, error) {
	var raw venueAMarket
	resp, err := v.http.R().SetContext(ctx).SetResult(&raw).Get("/markets/" + instrument)
	if err != nil {
		return models.MissingPrice(), fmt.Errorf("venue-a get market price: %w", err)
	}
	if resp.IsError() {
		return models.MissingPrice(), fmt.Errorf("venue-a get market price: status %d", resp.StatusCode())
	}
	var field *int64
	if side == models.SideYes {
		field = raw.YesBidCents
	} else {
		field = raw.NoBidCents
	}
	if field == nil {
		return models.MissingPrice(), nil
	}
	return models.PresentPrice(decimal.NewFromInt(*field)), nil
}

type venueABalanceResponse struct {
	BalanceCents int64 `json:"balance"`
}

func (v *VenueA) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var out venueABalanceResponse
	resp, err := v.signedRequest(ctx).SetResult(&out).Get("/portfolio/balance")
	if err != nil {
		return decimal.Zero, fmt.Errorf("venue-a get balance: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("venue-a get balance: status %d", resp.StatusCode())
	}
	return decimal.NewFromInt(out.BalanceCents).Div(decimal.NewFromInt(100)), nil
}

func (v *VenueA) GetActualFill(ctx context.Context, orderID string, estimated int64) (int64, error) {
	status, err := v.GetOrder(ctx, orderID)
	if err != nil {
		return estimated, err
	}
	return status.FillCount, nil
}
