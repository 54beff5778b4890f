// Package ports defines the interfaces (contracts) that adapters must implement.
// Domain and app code depend only on these interfaces, never on concrete
// implementations.
package ports

import "errors"

// ErrRunNotFound is returned by RunStore.LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunStore persists ranking runs so results can be reviewed later.
// The backing store (bbolt) groups runs by project root. Concurrent reads
// are safe; writes are serialized by the adapter.
//
// Crash safety: SaveRun must be transactional. A crash mid-write must not
// corrupt previously committed runs.
type RunStore interface {
	// SaveRun persists a run under run.ID. Overwrites a run with the same ID.
	SaveRun(run *Run) error

	// LoadRun retrieves a run by ID. Returns ErrRunNotFound if absent.
	LoadRun(id string) (*Run, error)

	// ListRuns returns summaries of every run for root, newest first.
	// An empty root lists runs of all roots.
	ListRuns(root string) ([]RunSummary, error)

	// DeleteRun removes a run. Idempotent.
	DeleteRun(id string) error
}

// Run is one complete ranking of a document set.
type Run struct {
	ID            string
	Root          string
	Keywords      []string
	CaseSensitive bool
	Engine        string // "kmp" or "aho"
	CreatedAt     int64  // unix seconds
	ElapsedMs     int64

	// MaxScore is the highest unclamped raw score; HasMax is false when no
	// document was scored.
	MaxScore float64
	HasMax   bool

	Entries []RunEntry // ranking order, best first
	Failed  []string   // documents that could not be read
}

// RunEntry is one ranked document.
type RunEntry struct {
	ID      string
	Score   float64 // clamped raw score
	Percent float64 // Score / MaxScore * 100; 0 when no baseline
	Counts  []int   // per-keyword match counts, in Run.Keywords order
}

// HasBaseline reports whether percentages in the run are meaningful.
func (r *Run) HasBaseline() bool {
	return r.HasMax && r.MaxScore > 0
}

// RunSummary is the listing view of a Run.
type RunSummary struct {
	ID        string  `json:"run"`
	Root      string  `json:"root"`
	CreatedAt int64   `json:"created_at"`
	Documents int     `json:"documents"`
	Top       string  `json:"top,omitempty"` // best-ranked document, empty if none
	MaxScore  float64 `json:"max_score"`
}
