package kmp

import (
	"fmt"

	"github.com/sourcegraph/conc"
)

// Set holds one Matcher per keyword and implements ports.KeywordCounter.
type Set struct {
	keywords      []string
	matchers      []*Matcher
	caseSensitive bool
	parallel      bool
}

// NewSet builds a Matcher for every keyword, preserving order and duplicates.
// An empty keyword fails with ErrEmptyPattern wrapped with its position.
// When parallel is set, Counts scans keywords on separate goroutines.
func NewSet(keywords []string, caseSensitive, parallel bool) (*Set, error) {
	s := &Set{
		keywords:      make([]string, len(keywords)),
		matchers:      make([]*Matcher, len(keywords)),
		caseSensitive: caseSensitive,
		parallel:      parallel,
	}
	copy(s.keywords, keywords)
	for i, kw := range keywords {
		m, err := New(kw)
		if err != nil {
			return nil, fmt.Errorf("keyword %d: %w", i, err)
		}
		s.matchers[i] = m
	}
	return s, nil
}

// Keywords returns the keywords in construction order.
func (s *Set) Keywords() []string {
	out := make([]string, len(s.keywords))
	copy(out, s.keywords)
	return out
}

// CaseSensitive reports the comparison mode used by Counts.
func (s *Set) CaseSensitive() bool {
	return s.caseSensitive
}

// Counts returns the match count of every keyword in text.
func (s *Set) Counts(text string) []int {
	counts := make([]int, len(s.matchers))
	if !s.parallel || len(s.matchers) < 2 {
		for i, m := range s.matchers {
			counts[i] = m.Count(text, s.caseSensitive)
		}
		return counts
	}

	var wg conc.WaitGroup
	for i, m := range s.matchers {
		wg.Go(func() {
			counts[i] = m.Count(text, s.caseSensitive)
		})
	}
	wg.Wait()
	return counts
}
