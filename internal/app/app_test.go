package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/scoreweb/internal/adapters/bbolt"
	"github.com/corey/scoreweb/internal/adapters/fsdocs"
	"github.com/corey/scoreweb/internal/ports"
)

// memSource is an in-memory ports.DocumentSource.
type memSource struct {
	docs    map[string]string
	order   []string
	failing map[string]bool
}

func newMemSource(pairs ...string) *memSource {
	s := &memSource{docs: map[string]string{}, failing: map[string]bool{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.docs[pairs[i]] = pairs[i+1]
		s.order = append(s.order, pairs[i])
	}
	return s
}

func (s *memSource) List() ([]string, error) {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

func (s *memSource) Read(id string) (string, error) {
	if s.failing[id] {
		return "", fmt.Errorf("permission denied")
	}
	text, ok := s.docs[id]
	if !ok {
		return "", os.ErrNotExist
	}
	return text, nil
}

// memStore is an in-memory ports.RunStore.
type memStore struct {
	mu   sync.Mutex
	runs map[string]*ports.Run
	err  error
}

func (m *memStore) SaveRun(run *ports.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.runs == nil {
		m.runs = map[string]*ports.Run{}
	}
	m.runs[run.ID] = run
	return nil
}

func (m *memStore) LoadRun(id string) (*ports.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, ports.ErrRunNotFound
}

func (m *memStore) ListRuns(root string) ([]ports.RunSummary, error) { return nil, nil }
func (m *memStore) DeleteRun(id string) error                        { return nil }

func quietService(store ports.RunStore) *Service {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return NewService(store, logrus.NewEntry(l))
}

func entryIDs(run *ports.Run) []string {
	out := make([]string, len(run.Entries))
	for i, e := range run.Entries {
		out[i] = e.ID
	}
	return out
}

func TestRank_CatDog(t *testing.T) {
	store := &memStore{}
	svc := quietService(store)
	cfg := &Config{Keywords: []string{"cat", "dog"}}

	src := newMemSource("B", "bird", "A", "cat cat dog")
	run, err := svc.Rank(context.Background(), "/docs", src, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, entryIDs(run))
	assert.Equal(t, []int{2, 1}, run.Entries[0].Counts)
	assert.Equal(t, []int{0, 0}, run.Entries[1].Counts)
	assert.InDelta(t, 100.0, run.Entries[0].Percent, 1e-9)
	assert.InDelta(t, 0.0, run.Entries[1].Percent, 1e-9)
	assert.InDelta(t, math.Log(2.75)+math.Log(1.75), run.MaxScore, 1e-9)
	assert.True(t, run.HasBaseline())
	assert.Equal(t, "/docs", run.Root)
	assert.Equal(t, EngineKMP, run.Engine)
	assert.NotEmpty(t, run.ID)

	stored, err := store.LoadRun(run.ID)
	require.NoError(t, err)
	assert.Same(t, run, stored)
}

func TestRank_EnginesAgree(t *testing.T) {
	src := newMemSource(
		"iot.html", "The Internet of Things connects every device and node to a network.",
		"robots.html", "Autonomous robots: smart automation systems with artificial intelligence.",
		"cake.html", "Flour, sugar, eggs.",
		"dist.html", "Distributed computing: processes exchange data over a protocol.",
	)

	kmpRun, err := quietService(nil).Rank(context.Background(), "r", src, &Config{Keywords: DefaultKeywords, Engine: EngineKMP})
	require.NoError(t, err)
	ahoRun, err := quietService(nil).Rank(context.Background(), "r", src, &Config{Keywords: DefaultKeywords, Engine: EngineAho})
	require.NoError(t, err)

	require.Equal(t, entryIDs(kmpRun), entryIDs(ahoRun))
	for i := range kmpRun.Entries {
		assert.Equal(t, kmpRun.Entries[i].Counts, ahoRun.Entries[i].Counts)
		assert.InDelta(t, kmpRun.Entries[i].Score, ahoRun.Entries[i].Score, 1e-12)
	}
	assert.Equal(t, "cake.html", kmpRun.Entries[len(kmpRun.Entries)-1].ID)
}

func TestRank_DeterministicAcrossWorkers(t *testing.T) {
	var pairs []string
	for i := 0; i < 40; i++ {
		// Every third document ties on the same text.
		text := fmt.Sprintf("data node %d", i%3)
		pairs = append(pairs, fmt.Sprintf("doc-%02d", i), text)
	}
	src := newMemSource(pairs...)
	cfg := &Config{Keywords: []string{"data", "node", "1"}}

	want, err := quietService(nil).Rank(context.Background(), "r", src, &Config{Keywords: cfg.Keywords, Workers: 1})
	require.NoError(t, err)
	for _, workers := range []int{2, 8, 0} {
		got, err := quietService(nil).Rank(context.Background(), "r", src, &Config{Keywords: cfg.Keywords, Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, entryIDs(want), entryIDs(got), "workers=%d", workers)
	}

	// Documents containing "1" rank first; every group keeps list order.
	var expected, rest []string
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("doc-%02d", i)
		if i%3 == 1 {
			expected = append(expected, id)
		} else {
			rest = append(rest, id)
		}
	}
	assert.Equal(t, append(expected, rest...), entryIDs(want))
}

func TestRank_ReadFailuresSkipped(t *testing.T) {
	src := newMemSource("ok.txt", "cat", "locked.txt", "cat cat")
	src.failing["locked.txt"] = true
	src.order = append(src.order, "gone.txt")

	run, err := quietService(nil).Rank(context.Background(), "r", src, &Config{Keywords: []string{"cat"}})
	require.Error(t, err)
	require.NotNil(t, run, "run is still returned")

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.True(t, errors.Is(merr.Errors[1], os.ErrNotExist))

	assert.Equal(t, []string{"ok.txt"}, entryIDs(run))
	assert.Equal(t, []string{"locked.txt", "gone.txt"}, run.Failed)
}

func TestRank_NoBaseline(t *testing.T) {
	run, err := quietService(nil).Rank(context.Background(), "r",
		newMemSource("a", "nothing here", "b", "nor here"), &Config{Keywords: []string{"cat"}})
	require.NoError(t, err)
	assert.False(t, run.HasBaseline())
	assert.True(t, run.HasMax)
	assert.InDelta(t, math.Log(0.75), run.MaxScore, 1e-9)
	for _, e := range run.Entries {
		assert.Equal(t, 0.0, e.Score)
		assert.Equal(t, 0.0, e.Percent)
	}
}

// queueSource lists ids as given and answers each Read of an id with the
// next queued text for it, so one id can name several documents.
type queueSource struct {
	mu    sync.Mutex
	ids   []string
	texts map[string][]string
}

func (s *queueSource) List() ([]string, error) {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out, nil
}

func (s *queueSource) Read(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.texts[id]
	if len(q) == 0 {
		return "", os.ErrNotExist
	}
	s.texts[id] = q[1:]
	return q[0], nil
}

func TestRank_DuplicateIDsKeepPerDocumentValues(t *testing.T) {
	svc := quietService(nil)
	cfg := &Config{Keywords: []string{"cat"}, Workers: 1}
	src := &queueSource{
		ids:   []string{"x", "x"},
		texts: map[string][]string{"x": {"cat", "cat cat cat"}},
	}

	run, err := svc.Rank(context.Background(), "/docs", src, cfg)
	require.NoError(t, err)
	require.Len(t, run.Entries, 2)

	assert.Equal(t, []string{"x", "x"}, entryIDs(run))
	assert.Equal(t, []int{3}, run.Entries[0].Counts)
	assert.InDelta(t, math.Log(3.75), run.Entries[0].Score, 1e-9)
	assert.InDelta(t, 100.0, run.Entries[0].Percent, 1e-9)

	assert.Equal(t, []int{1}, run.Entries[1].Counts)
	assert.InDelta(t, math.Log(1.75), run.Entries[1].Score, 1e-9)
	assert.InDelta(t, math.Log(1.75)/math.Log(3.75)*100, run.Entries[1].Percent, 1e-9)
}

func TestRank_EmptySource(t *testing.T) {
	run, err := quietService(nil).Rank(context.Background(), "r", newMemSource(), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, run.Entries)
	assert.False(t, run.HasMax)
}

func TestRank_InvalidConfig(t *testing.T) {
	_, err := quietService(nil).Rank(context.Background(), "r", newMemSource(), &Config{Keywords: []string{""}})
	assert.Error(t, err)
	_, err = quietService(nil).Rank(context.Background(), "r", newMemSource(), &Config{Engine: "regex"})
	assert.Error(t, err)
}

func TestRank_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := quietService(nil).Rank(ctx, "r", newMemSource("a", "cat"), &Config{Keywords: []string{"cat"}})
	assert.Nil(t, run)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank_SaveFailure(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	_, err := quietService(store).Rank(context.Background(), "r", newMemSource("a", "cat"), &Config{Keywords: []string{"cat"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save run")
}

func TestRank_LogsCompletion(t *testing.T) {
	logger, hook := test.NewNullLogger()
	svc := NewService(nil, logrus.NewEntry(logger))

	_, err := svc.Rank(context.Background(), "r", newMemSource("a", "cat"), &Config{Keywords: []string{"cat"}})
	require.NoError(t, err)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "ranking complete", last.Message)
	assert.Equal(t, "app", last.Data["component"])
	assert.Equal(t, 1, last.Data["scored"])
}

func TestRank_FilesystemAndBolt(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.html"), []byte("cat cat dog"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "b.html"), []byte("bird"), 0644))

	store, err := bbolt.NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	fixed := time.Unix(1700000000, 0)
	svc := quietService(store)
	svc.Now = func() time.Time { return fixed }

	run, err := svc.Rank(context.Background(), docs, &fsdocs.Source{Root: docs}, &Config{Keywords: []string{"cat", "dog"}})
	require.NoError(t, err)

	loaded, err := store.LoadRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html", "b.html"}, entryIDs(loaded))
	assert.Equal(t, int64(1700000000), loaded.CreatedAt)

	runs, err := store.ListRuns(docs)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "a.html", runs[0].Top)
}

// fakeWatcher delivers changes on demand.
type fakeWatcher struct {
	mu       sync.Mutex
	onChange func(string)
	stopped  bool
	ready    chan struct{}
}

func newFakeWatcher() *fakeWatcher { return &fakeWatcher{ready: make(chan struct{})} }

func (f *fakeWatcher) Watch(dir string, onChange func(string)) error {
	f.mu.Lock()
	f.onChange = onChange
	f.mu.Unlock()
	close(f.ready)
	return nil
}

func (f *fakeWatcher) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeWatcher) fire(path string) {
	<-f.ready
	f.mu.Lock()
	cb := f.onChange
	f.mu.Unlock()
	cb(path)
}

func TestWatch_ReranksOnChange(t *testing.T) {
	docs := t.TempDir()
	docA := filepath.Join(docs, "a.txt")
	require.NoError(t, os.WriteFile(docA, []byte("cat"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "b.txt"), []byte("cat cat"), 0644))

	src := &fsdocs.Source{Root: docs, Extensions: []string{".txt"}}
	w := newFakeWatcher()
	runs := make(chan *ports.Run, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- quietService(nil).Watch(ctx, docs, src, &Config{Keywords: []string{"cat"}}, w,
			func(run *ports.Run, err error) {
				assert.NoError(t, err)
				runs <- run
			})
	}()

	first := <-runs
	assert.Equal(t, []string{"b.txt", "a.txt"}, entryIDs(first))

	// Ignored by the source's extension filter: no re-rank.
	w.fire(filepath.Join(docs, "notes.md"))

	require.NoError(t, os.WriteFile(docA, []byte("cat cat cat"), 0644))
	w.fire(docA)

	select {
	case second := <-runs:
		assert.Equal(t, []string{"a.txt", "b.txt"}, entryIDs(second))
	case <-time.After(2 * time.Second):
		t.Fatal("expected a re-rank after change")
	}

	select {
	case extra := <-runs:
		t.Fatalf("unexpected extra run %v", entryIDs(extra))
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
	assert.True(t, w.stopped)
}

func TestNewCounter(t *testing.T) {
	for _, engine := range []string{EngineKMP, EngineAho, ""} {
		c, err := NewCounter(&Config{Keywords: []string{"aa"}, Engine: engine})
		require.NoError(t, err, engine)
		assert.Equal(t, []int{3}, c.Counts("AAAA"), engine)
	}
	_, err := NewCounter(&Config{Engine: "bogus"})
	assert.Error(t, err)
}

func TestRank_SortedScores(t *testing.T) {
	src := newMemSource("x", "robot", "y", "robot robot robot", "z", "robot robot")
	run, err := quietService(nil).Rank(context.Background(), "r", src, &Config{Keywords: []string{"robot"}})
	require.NoError(t, err)
	assert.True(t, sort.SliceIsSorted(run.Entries, func(i, j int) bool {
		return run.Entries[i].Score > run.Entries[j].Score
	}))
	assert.Equal(t, []string{"y", "z", "x"}, entryIDs(run))
}
