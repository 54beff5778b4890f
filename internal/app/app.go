// Package app wires the document source, keyword counters, ranker and run
// store together. It provides the two operations the CLI exposes: rank a
// directory once, and keep re-ranking it as documents change.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/corey/scoreweb/internal/adapters/ahocorasick"
	"github.com/corey/scoreweb/internal/domain/kmp"
	"github.com/corey/scoreweb/internal/domain/ranker"
	"github.com/corey/scoreweb/internal/ports"
)

// Service runs rankings and records them.
type Service struct {
	// Store receives every completed run. Nil disables history.
	Store ports.RunStore

	Log *logrus.Entry

	// Now is the clock used for run timestamps. Nil means time.Now.
	Now func() time.Time
}

// NewService returns a Service logging under the "app" component.
func NewService(store ports.RunStore, log *logrus.Entry) *Service {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = logrus.NewEntry(l)
	}
	return &Service{
		Store: store,
		Log:   log.WithField("component", "app"),
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NewCounter builds the keyword counter selected by cfg.Engine.
func NewCounter(cfg *Config) (ports.KeywordCounter, error) {
	switch cfg.Engine {
	case EngineAho:
		return ahocorasick.NewCounter(cfg.Keywords, cfg.CaseSensitive)
	case EngineKMP, "":
		return kmp.NewSet(cfg.Keywords, cfg.CaseSensitive, cfg.ParallelKeywords)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

// docResult is the outcome of reading and counting one document.
type docResult struct {
	counts []int
	err    error
}

// Rank scores every document of src and returns the run.
//
// Documents are read and counted concurrently (at most cfg.Workers at a
// time) but inserted into the ranking in src.List order, so ties keep the
// source order and repeated runs are identical. A document that cannot be
// read is skipped and recorded in Run.Failed; those failures are returned
// together as a *multierror.Error alongside the (still valid) run. Any other
// error returns a nil run.
func (s *Service) Rank(ctx context.Context, root string, src ports.DocumentSource, cfg *Config) (*ports.Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	counter, err := NewCounter(cfg)
	if err != nil {
		return nil, err
	}
	rk := ranker.NewWithCounter(counter)

	start := s.now()
	ids, err := src.List()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	s.Log.WithFields(logrus.Fields{
		"root":      root,
		"documents": len(ids),
		"keywords":  len(cfg.Keywords),
		"engine":    cfg.Engine,
	}).Debug("ranking")

	results := make([]docResult, len(ids))
	p := pool.New().WithMaxGoroutines(cfg.workers()).WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := src.Read(id)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].counts = rk.Counts(text)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	run := &ports.Run{
		ID:            uuid.NewString(),
		Root:          root,
		Keywords:      counter.Keywords(),
		CaseSensitive: cfg.CaseSensitive,
		Engine:        cfg.Engine,
		CreatedAt:     start.Unix(),
	}

	// The ranker is keyed by source position, not document ID, so a source
	// listing the same ID twice still gets per-document counts and percents.
	var readErrs *multierror.Error
	for i, id := range ids {
		if err := results[i].err; err != nil {
			readErrs = multierror.Append(readErrs, fmt.Errorf("read %s: %w", id, err))
			run.Failed = append(run.Failed, id)
			s.Log.WithField("document", id).WithError(err).Warn("skipping unreadable document")
			continue
		}
		rk.Add(strconv.Itoa(i), results[i].counts)
	}

	run.MaxScore, run.HasMax = rk.Max()
	entries := rk.Entries()
	norm, err := rk.NormalizedScores()
	switch {
	case err == nil:
	case errors.Is(err, ranker.ErrNoBaseline):
		s.Log.WithField("root", root).Debug("no positive score, percentages omitted")
	default:
		return nil, err
	}

	for pos, e := range entries {
		i, err := strconv.Atoi(e.ID)
		if err != nil {
			return nil, fmt.Errorf("ranker entry %q: %w", e.ID, err)
		}
		entry := ports.RunEntry{
			ID:     ids[i],
			Score:  e.Score,
			Counts: results[i].counts,
		}
		if norm != nil {
			entry.Percent = norm[pos].Percent
		}
		run.Entries = append(run.Entries, entry)
	}
	run.ElapsedMs = s.now().Sub(start).Milliseconds()

	if s.Store != nil {
		if err := s.Store.SaveRun(run); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
	}

	s.Log.WithFields(logrus.Fields{
		"run":        run.ID,
		"scored":     len(run.Entries),
		"failed":     len(run.Failed),
		"max_score":  run.MaxScore,
		"elapsed_ms": run.ElapsedMs,
	}).Info("ranking complete")

	return run, readErrs.ErrorOrNil()
}

// pathMatcher is implemented by sources that can tell whether a changed
// path belongs to them (fsdocs.Source does).
type pathMatcher interface {
	Matches(path string) bool
}

// Watch ranks root once, then re-ranks it after every relevant change
// reported by w until ctx is done. onRun receives each run and its error
// exactly as Rank returned them. Watch returns nil on cancellation.
func (s *Service) Watch(ctx context.Context, root string, src ports.DocumentSource, cfg *Config, w ports.Watcher, onRun func(*ports.Run, error)) error {
	onRun(s.Rank(ctx, root, src, cfg))

	trigger := make(chan struct{}, 1)
	err := w.Watch(root, func(path string) {
		if m, ok := src.(pathMatcher); ok && !m.Matches(path) {
			return
		}
		s.Log.WithField("path", path).Debug("document changed")
		select {
		case trigger <- struct{}{}:
		default: // a re-rank is already queued
		}
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			run, err := s.Rank(ctx, root, src, cfg)
			if ctx.Err() != nil {
				return nil
			}
			onRun(run, err)
		}
	}
}
