package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"arbitrage/internal/models"
)

// opportunityLogLine is the flattened, stable-field shape written to the
// NDJSON sidecar — deliberately decoupled from models.Opportunity so a
// refactor of the live struct doesn't silently change the on-disk format.
type opportunityLogLine struct {
	ID              string  `json:"id"`
	DetectedAt      string  `json:"detected_at"`
	VenueATicker    string  `json:"venue_a_ticker"`
	VenueBTokenID   string  `json:"venue_b_token_id"`
	VenueASide      string  `json:"venue_a_side"`
	VenueBSide      string  `json:"venue_b_side"`
	SpreadCents     string  `json:"spread_cents"`
	Tier            string  `json:"tier"`
	HoursToClose    float64 `json:"hours_to_close"`
}

// ndjsonSidecar appends one JSON object per line to a file, best-effort:
// a write failure is reported to the caller but never blocks the scan loop
// that produced the line.
type ndjsonSidecar struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func newNDJSONSidecar(path string) (*ndjsonSidecar, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open opportunities sidecar: %w", err)
	}
	return &ndjsonSidecar{file: f, enc: json.NewEncoder(f)}, nil
}

func (s *ndjsonSidecar) Append(op *models.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(opportunityLogLine{
		ID:            op.ID,
		DetectedAt:    op.DetectedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		VenueATicker:  op.Pair.VenueA.PlatformID,
		VenueBTokenID: op.Pair.VenueB.PlatformID,
		VenueASide:    string(op.VenueASide),
		VenueBSide:    string(op.VenueBSide),
		SpreadCents:   op.SpreadCents.String(),
		Tier:          string(op.Tier),
		HoursToClose:  op.HoursToClose,
	})
}

func (s *ndjsonSidecar) Close() error {
	return s.file.Close()
}
