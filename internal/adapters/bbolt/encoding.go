// Run blobs are gob-encoded. Runs are written once and read rarely, and gob
// keeps float64 scores exact without a custom binary format.
package bbolt

import (
	"bytes"
	"encoding/gob"

	"github.com/corey/scoreweb/internal/ports"
)

// encodeGob encodes a value using gob.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob decodes gob-encoded data into target. Target must be a pointer.
func decodeGob(data []byte, target interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(target)
}

// summarize builds the listing view stored next to each run.
func summarize(run *ports.Run) ports.RunSummary {
	s := ports.RunSummary{
		ID:        run.ID,
		Root:      run.Root,
		CreatedAt: run.CreatedAt,
		Documents: len(run.Entries),
		MaxScore:  run.MaxScore,
	}
	if len(run.Entries) > 0 {
		s.Top = run.Entries[0].ID
	}
	return s
}
