package runner

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// OpsServer exposes read-only introspection for an operator: liveness,
// Prometheus metrics, and a snapshot of the currently matched pairs. It is
// explicitly not a trading control surface — every route here is a GET.
type OpsServer struct {
	router *mux.Router
	log    *zap.Logger
}

// NewOpsServer wires the ops routes against the Runner's live pair set.
func NewOpsServer(r *Runner, log *zap.Logger) *OpsServer {
	router := mux.NewRouter()
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))

	router.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/debug/pairs", debugPairsHandler(r)).Methods(http.MethodGet)

	return &OpsServer{router: router, log: log}
}

func (s *OpsServer) Handler() http.Handler { return s.router }

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type pairSummary struct {
	ID           string `json:"id"`
	Category     string `json:"category"`
	VenueATicker string `json:"venue_a_ticker"`
	VenueBTicker string `json:"venue_b_ticker"`
	ResolutionAt string `json:"resolution_at"`
}

func debugPairsHandler(r *Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mu.RLock()
		pairs := r.pairs
		r.mu.RUnlock()

		summaries := make([]pairSummary, 0, len(pairs))
		for _, p := range pairs {
			summaries = append(summaries, pairSummary{
				ID:           p.ID,
				Category:     string(p.Category),
				VenueATicker: p.VenueA.PlatformID,
				VenueBTicker: p.VenueB.PlatformID,
				ResolutionAt: p.EarlierResolution().ResolutionAt.UTC().Format(time.RFC3339),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(summaries)
	}
}

// loggingMiddleware logs every ops-server request structurally, completing
// the shape the teacher's net/http logging middleware leaves as a TODO.
func loggingMiddleware(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			log.Info("ops request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// recoveryMiddleware converts a handler panic into a 500 instead of taking
// down the whole ops server, completing the teacher's equivalent TODO.
func recoveryMiddleware(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("ops server panic",
						zap.Any("recovered", rec),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.statusCode = code
	s.ResponseWriter.WriteHeader(code)
}
