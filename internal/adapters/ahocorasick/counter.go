// Package ahocorasick implements ports.KeywordCounter with a single
// Aho-Corasick automaton. It wraps the petar-dambovaliev/aho-corasick
// library: one O(n + z) pass over the text counts every keyword at once,
// where the KMP counter makes one pass per keyword.
package ahocorasick

import (
	"fmt"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/corey/scoreweb/internal/domain/kmp"
)

// Counter counts overlapping keyword occurrences in one pass.
// Case-insensitive counters fold ASCII letters in both keywords and text,
// matching kmp.Equal.
type Counter struct {
	automaton     aho.AhoCorasick
	keywords      []string
	slots         [][]int // automaton pattern index -> keyword positions
	caseSensitive bool
}

// NewCounter compiles the automaton. Duplicate keywords (after folding, when
// case-insensitive) share one pattern and each receive the full count.
func NewCounter(keywords []string, caseSensitive bool) (*Counter, error) {
	c := &Counter{
		keywords:      make([]string, len(keywords)),
		caseSensitive: caseSensitive,
	}
	copy(c.keywords, keywords)

	var patterns []string
	index := make(map[string]int, len(keywords))
	for i, kw := range keywords {
		if kw == "" {
			return nil, fmt.Errorf("keyword %d: %w", i, kmp.ErrEmptyPattern)
		}
		p := kw
		if !caseSensitive {
			p = kmp.Fold(kw)
		}
		pi, ok := index[p]
		if !ok {
			pi = len(patterns)
			index[p] = pi
			patterns = append(patterns, p)
			c.slots = append(c.slots, nil)
		}
		c.slots[pi] = append(c.slots[pi], i)
	}

	if len(patterns) > 0 {
		builder := aho.NewAhoCorasickBuilder(aho.Opts{
			DFA: true,
		})
		c.automaton = builder.Build(patterns)
	}
	return c, nil
}

// Keywords returns the keywords in construction order.
func (c *Counter) Keywords() []string {
	out := make([]string, len(c.keywords))
	copy(out, c.keywords)
	return out
}

// Counts returns the match count of every keyword in text.
func (c *Counter) Counts(text string) []int {
	counts := make([]int, len(c.keywords))
	if len(c.slots) == 0 || text == "" {
		return counts
	}

	haystack := []byte(text)
	if !c.caseSensitive {
		haystack = []byte(kmp.Fold(text))
	}

	perPattern := make([]int, len(c.slots))
	iter := c.automaton.IterOverlappingByte(haystack)
	for next := iter.Next(); next != nil; next = iter.Next() {
		perPattern[next.Pattern()]++
	}

	for pi, n := range perPattern {
		for _, ki := range c.slots[pi] {
			counts[ki] = n
		}
	}
	return counts
}
