package runner

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"arbitrage/internal/models"
)

func newTestOpsServer(t *testing.T, pairs []*models.MatchedPair) *OpsServer {
	t.Helper()
	r := &Runner{log: zap.NewNop(), pairs: pairs}
	return NewOpsServer(r, zap.NewNop())
}

func TestOpsServer_Healthz(t *testing.T) {
	s := newTestOpsServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %q", body["status"])
	}
}

func TestOpsServer_Metrics(t *testing.T) {
	s := newTestOpsServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestOpsServer_DebugPairs(t *testing.T) {
	pair := &models.MatchedPair{
		ID:       "pair-1",
		Category: models.CategoryCrypto,
		VenueA:   testMarket(models.PlatformA, "A-1", 40),
		VenueB:   testMarket(models.PlatformB, "B-1", 45),
	}

	s := newTestOpsServer(t, []*models.MatchedPair{pair})

	req := httptest.NewRequest(http.MethodGet, "/debug/pairs", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var summaries []pairSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("unexpected error decoding body: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 pair summary, got %d", len(summaries))
	}
	if summaries[0].ID != "pair-1" {
		t.Fatalf("expected pair-1, got %q", summaries[0].ID)
	}
	if summaries[0].VenueATicker != "A-1" || summaries[0].VenueBTicker != "B-1" {
		t.Fatalf("unexpected venue tickers: %+v", summaries[0])
	}
}

func TestOpsServer_DebugPairsRejectsNonGet(t *testing.T) {
	s := newTestOpsServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/debug/pairs", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestOpsServer_RecoveryMiddlewareConvertsPanicTo500(t *testing.T) {
	router := func() http.Handler {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})
		mw := recoveryMiddleware(zap.NewNop())
		return mw(h)
	}()

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after recovered panic, got %d", w.Code)
	}
}

func TestOpsServer_LoggingMiddlewarePassesThrough(t *testing.T) {
	called := false
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})
	mw := loggingMiddleware(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	w := httptest.NewRecorder()
	mw(h).ServeHTTP(w, req)

	if !called {
		t.Fatal("expected wrapped handler to be called")
	}
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected status passed through, got %d", w.Code)
	}
}
