// Package bbolt implements the ports.RunStore interface using bbolt (embedded B+ tree).
// Full runs live in the "runs" bucket and a small summary of each in the
// "summaries" bucket, both keyed by run ID, so listing history never decodes
// full rankings. Writes are transactional: a crash mid-write cannot corrupt
// previously committed runs.
package bbolt

import (
	"fmt"
	"sort"
	"time"

	"github.com/corey/scoreweb/internal/ports"
	bolt "go.etcd.io/bbolt"
)

// Bucket keys
var (
	bucketRuns      = []byte("runs")
	bucketSummaries = []byte("summaries")
)

// Store implements ports.RunStore backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists a run and its summary in one transaction.
func (s *Store) SaveRun(run *ports.Run) error {
	if run == nil {
		return fmt.Errorf("nil run")
	}
	if run.ID == "" {
		return fmt.Errorf("run has no ID")
	}

	runData, err := encodeGob(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	sumData, err := encodeGob(summarize(run))
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		rb, err := tx.CreateBucketIfNotExists(bucketRuns)
		if err != nil {
			return err
		}
		sb, err := tx.CreateBucketIfNotExists(bucketSummaries)
		if err != nil {
			return err
		}
		if err := rb.Put([]byte(run.ID), runData); err != nil {
			return err
		}
		return sb.Put([]byte(run.ID), sumData)
	})
}

// LoadRun retrieves a run by ID.
func (s *Store) LoadRun(id string) (*ports.Run, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket(bucketRuns)
		if rb == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := rb.Get([]byte(id)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrRunNotFound, id)
	}

	var run ports.Run
	if err := decodeGob(data, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns run summaries for root (all roots when empty), newest first.
func (s *Store) ListRuns(root string) ([]ports.RunSummary, error) {
	var out []ports.RunSummary

	err := s.db.View(func(tx *bolt.Tx) error {
		sb := tx.Bucket(bucketSummaries)
		if sb == nil {
			return nil
		}
		return sb.ForEach(func(k, v []byte) error {
			var sum ports.RunSummary
			if err := decodeGob(v, &sum); err != nil {
				return fmt.Errorf("decode summary %s: %w", k, err)
			}
			if root == "" || sum.Root == root {
				out = append(out, sum)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteRun removes a run. Deleting a nonexistent run is not an error.
func (s *Store) DeleteRun(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketRuns, bucketSummaries} {
			if b := tx.Bucket(name); b != nil {
				if err := b.Delete([]byte(id)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
