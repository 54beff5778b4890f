// Package ranker scores documents against a keyword list and keeps them
// ordered by relevance.
//
// A document's raw score is the sum over keywords of log(count + 0.75).
// The offset keeps absent keywords defined (log 0.75 < 0) and damps
// repeated hits. Stored scores are clamped at zero; the running maximum is
// taken before clamping. Normalized scores express each stored score as a
// percentage of that maximum.
package ranker

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/corey/scoreweb/internal/domain/kmp"
	"github.com/corey/scoreweb/internal/ports"
)

// presenceOffset is added to every match count before taking the logarithm.
const presenceOffset = 0.75

// ErrNoBaseline is returned by NormalizedScores when there is no positive
// maximum to divide by.
var ErrNoBaseline = errors.New("ranker: no baseline score")

// Entry is one scored document. Score is the clamped raw score.
type Entry struct {
	ID    string
	Score float64
}

// Normalized is an entry's score as a percentage of the maximum raw score.
type Normalized struct {
	ID      string
	Percent float64
}

// Ranker owns a keyword counter and the ranking built from it.
// Score and Add may be called concurrently.
type Ranker struct {
	counter ports.KeywordCounter

	mu      sync.Mutex
	entries []Entry // descending Score, insertion order on ties
	max     float64
	hasMax  bool
}

type options struct {
	caseSensitive bool
	parallel      bool
}

// Option configures New.
type Option func(*options)

// WithCaseSensitive switches keyword matching to exact byte comparison.
// The default folds ASCII letters.
func WithCaseSensitive(v bool) Option {
	return func(o *options) { o.caseSensitive = v }
}

// WithParallel scans the keywords of one document concurrently.
func WithParallel(v bool) Option {
	return func(o *options) { o.parallel = v }
}

// New builds a Ranker with one KMP matcher per keyword.
//
// An empty keyword list is accepted. Every document then scores log(0.75),
// a single absent-keyword term, which clamps to 0.
func New(keywords []string, opts ...Option) (*Ranker, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	set, err := kmp.NewSet(keywords, o.caseSensitive, o.parallel)
	if err != nil {
		return nil, err
	}
	return NewWithCounter(set), nil
}

// NewWithCounter builds a Ranker on an existing counter.
func NewWithCounter(c ports.KeywordCounter) *Ranker {
	return &Ranker{counter: c}
}

// Keywords returns the keyword list in scoring order.
func (r *Ranker) Keywords() []string {
	return r.counter.Keywords()
}

// Counts returns the per-keyword match counts for text without recording anything.
func (r *Ranker) Counts(text string) []int {
	return r.counter.Counts(text)
}

// RawScore is the unclamped score for a set of per-keyword counts.
func RawScore(counts []int) float64 {
	if len(counts) == 0 {
		return math.Log(presenceOffset)
	}
	sum := 0.0
	for _, c := range counts {
		sum += math.Log(float64(c) + presenceOffset)
	}
	return sum
}

// Score matches every keyword against text, records the document and
// returns its clamped score.
func (r *Ranker) Score(id, text string) float64 {
	return r.Add(id, r.counter.Counts(text))
}

// Add records a document from precomputed counts and returns its clamped score.
func (r *Ranker) Add(id string, counts []int) float64 {
	return r.insert(id, RawScore(counts))
}

// insert updates the maximum from raw, then stores the clamped score.
// The maximum deliberately sees the unclamped value.
func (r *Ranker) insert(id string, raw float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasMax || raw > r.max {
		r.max = raw
		r.hasMax = true
	}

	score := raw
	if score < 0 {
		score = 0
	}

	// First position holding a strictly lower score keeps ties in insertion order.
	pos := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Score < score
	})
	r.entries = append(r.entries, Entry{})
	copy(r.entries[pos+1:], r.entries[pos:])
	r.entries[pos] = Entry{ID: id, Score: score}

	return score
}

// Entries returns a snapshot of the ranking, best first.
func (r *Ranker) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of scored documents.
func (r *Ranker) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Max returns the highest unclamped raw score seen, and false if nothing
// has been scored yet.
func (r *Ranker) Max() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.max, r.hasMax
}

// NormalizedScores returns every entry's score as a percentage of the
// maximum raw score, in ranking order. It fails with ErrNoBaseline when no
// document has been scored or the maximum is not positive.
func (r *Ranker) NormalizedScores() ([]Normalized, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasMax || r.max <= 0 {
		return nil, ErrNoBaseline
	}
	out := make([]Normalized, len(r.entries))
	for i, e := range r.entries {
		out[i] = Normalized{ID: e.ID, Percent: e.Score / r.max * 100.0}
	}
	return out, nil
}
