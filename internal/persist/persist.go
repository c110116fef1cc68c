// Package persist mirrors the engine's in-memory sensor histories to a
// pluggable backend. Two backends ship: a SQLite durable store and an
// atomic JSON state file. The backend is chosen once at construction and
// the engine depends only on the Backend interface.
package persist

import (
	"errors"
	"sync"
	"time"

	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/history"
	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/logger"
)

// SnapshotVersion is bumped on incompatible layout changes
const SnapshotVersion = 1

// Series is one persisted (truck, metric) reading sequence
type Series struct {
	Readings []history.Reading `json:"readings"`
}

// Snapshot is the full persisted state: every retained reading of every
// (truck, metric) series.
type Snapshot struct {
	Version int                          `json:"version"`
	SavedAt time.Time                    `json:"saved_at"`
	Trucks  map[string]map[string]Series `json:"histories"`
}

// NewSnapshot returns an empty current-version snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now().UTC(),
		Trucks:  make(map[string]map[string]Series),
	}
}

// ReadingCount returns the total readings across all series
func (s *Snapshot) ReadingCount() int {
	n := 0
	for _, metrics := range s.Trucks {
		for _, series := range metrics {
			n += len(series.Readings)
		}
	}
	return n
}

// Load error classes. The gateway logs each distinctly; all converge on the
// fallback chain.
var (
	// ErrNoSchema indicates the durable store exists but was never written
	ErrNoSchema = errors.New("history schema not present")

	// ErrNoRows indicates the schema exists but holds no readings
	ErrNoRows = errors.New("no stored readings")

	// ErrCorrupt indicates stored state that exists but cannot be decoded
	ErrCorrupt = errors.New("stored state corrupt")
)

// Backend is a persistence implementation
type Backend interface {
	// Save durably stores the snapshot
	Save(snap *Snapshot) error

	// Load restores the last stored snapshot
	Load() (*Snapshot, error)

	// Flush forces any deferred writes to storage
	Flush() error

	// Close releases backend resources
	Close() error
}

// Gateway fronts the chosen backend: it buffers the pending snapshot across
// transient save failures and degrades load failures to an empty start
// instead of surfacing them.
type Gateway struct {
	mu       sync.Mutex
	backend  Backend
	fallback Backend // optional read-side fallback, usually the state file
	pending  *Snapshot
}

// NewGateway wraps backend. fallback may be nil; when set it is consulted on
// load when the primary has nothing usable.
func NewGateway(backend, fallback Backend) *Gateway {
	return &Gateway{backend: backend, fallback: fallback}
}

// Save stores the snapshot. On failure the snapshot is kept pending and
// retried on the next Save or Flush; the returned error is informational,
// the engine keeps running either way.
func (g *Gateway) Save(snap *Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.backend.Save(snap); err != nil {
		g.pending = snap
		logger.Warn("save failed, snapshot buffered for retry",
			"readings", snap.ReadingCount(), "error", err)
		return err
	}

	g.pending = nil
	return nil
}

// Flush retries the pending snapshot, if any, then flushes the backend
func (g *Gateway) Flush() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending != nil {
		if err := g.backend.Save(g.pending); err != nil {
			return err
		}
		logger.Info("buffered snapshot persisted", "readings", g.pending.ReadingCount())
		g.pending = nil
	}

	return g.backend.Flush()
}

// HasPending reports whether a failed save is waiting for retry
func (g *Gateway) HasPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// Load restores state for engine construction. It tries the primary backend
// first and falls back to the secondary; every failure mode is logged
// distinctly and the worst case is an empty state, never an error.
func (g *Gateway) Load() *Snapshot {
	snap, err := g.backend.Load()
	switch {
	case err == nil:
		logger.Info("state restored from durable store", "readings", snap.ReadingCount())
		return snap
	case errors.Is(err, ErrNoSchema):
		logger.Warn("durable store schema absent, trying fallback")
	case errors.Is(err, ErrNoRows):
		logger.Warn("durable store holds no readings, trying fallback")
	case errors.Is(err, ErrCorrupt):
		logger.Error("stored state corrupt, trying fallback", "error", err)
	default:
		logger.Error("durable store unreachable, trying fallback", "error", err)
	}

	if g.fallback != nil {
		snap, err = g.fallback.Load()
		switch {
		case err == nil:
			logger.Info("state restored from fallback file", "readings", snap.ReadingCount())
			return snap
		case errors.Is(err, ErrNoRows):
			logger.Info("no fallback state file, starting empty")
		case errors.Is(err, ErrCorrupt):
			logger.Error("fallback state file corrupt, starting empty", "error", err)
		default:
			logger.Error("fallback state file unreadable, starting empty", "error", err)
		}
	}

	return NewSnapshot()
}

// Close closes both backends
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.backend.Close()
	if g.fallback != nil {
		if ferr := g.fallback.Close(); err == nil {
			err = ferr
		}
	}
	return err
}
