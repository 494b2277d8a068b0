package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Verdict is the tri-valued result of consulting the schedule oracle. A
// sports pair is only ever rejected on NotFound (configurable); Unknown —
// oracle unreachable, rate-limited, or no credentials configured — lets the
// pair through, since an outage should degrade to "trust the matcher" rather
// than silently stop trading every sports market.
type Verdict string

const (
	VerdictVerified Verdict = "verified"
	VerdictNotFound Verdict = "not_found"
	VerdictUnknown  Verdict = "unknown"
)

// Config configures the schedule oracle HTTP client.
type Config struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
	CacheTTL    time.Duration // default 30 minutes
}

func (c *Config) applyDefaults() {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Minute
	}
}

type cachedTeamSet struct {
	matches   []scheduledMatch
	updatedAt time.Time
}

type scheduledMatch struct {
	participants []string
}

type verdictKey struct {
	sport, team, opponent string
}

type cachedVerdict struct {
	verdict   Verdict
	updatedAt time.Time
}

// Validator consults a schedule oracle to confirm two teams are actually
// scheduled against each other before the matcher's equality predicate is
// trusted alone. Results are cached per sport (the raw schedule) and per
// (sport, team, opponent) (the computed verdict) for Config.CacheTTL.
type Validator struct {
	cfg  Config
	http *resty.Client
	log  *zap.Logger

	teamSets sync.Map // sport -> *cachedTeamSet
	verdicts sync.Map // verdictKey -> *cachedVerdict

	warnOnce sync.Once
}

// NewValidator builds a Validator. An empty APIKey is valid: every Verify
// call then returns VerdictUnknown after a once-per-process warning, rather
// than failing startup, since schedule validation is optional hardening
// layered over the matcher's own predicate.
func NewValidator(cfg Config, log *zap.Logger) *Validator {
	cfg.applyDefaults()
	return &Validator{
		cfg:  cfg,
		http: resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(cfg.HTTPTimeout),
		log:  log,
	}
}

// Verify reports whether team and opponent are scheduled against each other
// in sport, per a fuzzy match against the oracle's participant names.
func (v *Validator) Verify(ctx context.Context, sport, team, opponent string) Verdict {
	if v.cfg.APIKey == "" {
		v.warnOnce.Do(func() {
			v.log.Warn("schedule oracle has no credentials configured; sports pairs will not be cross-checked",
				zap.String("component", "schedule"))
		})
		return VerdictUnknown
	}

	key := verdictKey{sport: sport, team: team, opponent: opponent}
	if cached, ok := v.verdicts.Load(key); ok {
		cv := cached.(*cachedVerdict)
		if time.Since(cv.updatedAt) < v.cfg.CacheTTL {
			return cv.verdict
		}
	}

	matches, err := v.matchesForSport(ctx, sport)
	if err != nil {
		v.log.Warn("schedule oracle lookup failed, treating as unknown",
			zap.String("sport", sport), zap.Error(err))
		return VerdictUnknown
	}

	verdict := VerdictNotFound
	for _, m := range matches {
		if participantsInclude(m.participants, team) && participantsInclude(m.participants, opponent) {
			verdict = VerdictVerified
			break
		}
	}

	v.verdicts.Store(key, &cachedVerdict{verdict: verdict, updatedAt: time.Now()})
	return verdict
}

func participantsInclude(participants []string, name string) bool {
	for _, p := range participants {
		if fuzzyMatch(p, name) {
			return true
		}
	}
	return false
}

type scheduleResponse struct {
	Result []struct {
		MatchParticipants []struct {
			Name string `json:"name"`
		} `json:"match_participants"`
	} `json:"result"`
}

func (v *Validator) matchesForSport(ctx context.Context, sport string) ([]scheduledMatch, error) {
	if cached, ok := v.teamSets.Load(sport); ok {
		cs := cached.(*cachedTeamSet)
		if time.Since(cs.updatedAt) < v.cfg.CacheTTL {
			return cs.matches, nil
		}
	}

	var payload scheduleResponse
	resp, err := v.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+v.cfg.APIKey).
		SetQueryParam("sport", sport).
		SetResult(&payload).
		Get("/schedule")
	if err != nil {
		return nil, fmt.Errorf("schedule oracle request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("schedule oracle returned status %d", resp.StatusCode())
	}

	matches := make([]scheduledMatch, 0, len(payload.Result))
	for _, m := range payload.Result {
		names := make([]string, 0, len(m.MatchParticipants))
		for _, p := range m.MatchParticipants {
			names = append(names, p.Name)
		}
		matches = append(matches, scheduledMatch{participants: names})
	}

	v.teamSets.Store(sport, &cachedTeamSet{matches: matches, updatedAt: time.Now()})
	return matches, nil
}
