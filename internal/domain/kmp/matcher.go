// Package kmp implements single-pattern substring counting with the
// Knuth-Morris-Pratt algorithm.
//
// A Matcher precomputes its failure table once in O(m) and then scans any
// number of texts in O(n) each. Overlapping occurrences are counted, so
// "aa" occurs twice in "aaa". Matchers hold no mutable state after New
// returns and may be shared freely between goroutines.
package kmp

import "errors"

// ErrEmptyPattern is returned by New when the pattern has no bytes.
var ErrEmptyPattern = errors.New("kmp: empty pattern")

// Matcher counts occurrences of one fixed pattern.
type Matcher struct {
	pattern string

	// next is the optimized failure table for exact comparison, len(pattern)+1 entries.
	next []int

	// folded and foldNext are the ASCII-lowercased pattern and its table.
	// Case-insensitive scans need borders computed under the same equality
	// they compare with, otherwise overlaps like "aA" in "aAA" are lost.
	folded   string
	foldNext []int
}

// New builds a Matcher for pattern.
func New(pattern string) (*Matcher, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	folded := Fold(pattern)
	return &Matcher{
		pattern:  pattern,
		next:     buildNext(pattern),
		folded:   folded,
		foldNext: buildNext(folded),
	}, nil
}

// MustNew is like New but panics on an empty pattern.
func MustNew(pattern string) *Matcher {
	m, err := New(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// buildNext computes the optimized failure table. next[i] is the length of
// the longest proper border of p[:i], skipped further along the chain while
// p[next[i]] == p[i], since falling back to an identical byte would fail again.
// next[0] is -1 and next[len(p)] is the plain border used to resume after a match.
func buildNext(p string) []int {
	m := len(p)
	next := make([]int, m+1)
	i, j := 0, -1
	next[0] = -1
	for i < m {
		for j > -1 && p[i] != p[j] {
			j = next[j]
		}
		i++
		j++
		if i < m && p[i] == p[j] {
			next[i] = next[j]
		} else {
			next[i] = j
		}
	}
	return next
}

// Pattern returns the pattern the Matcher was built with.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Len returns the pattern length in bytes.
func (m *Matcher) Len() int {
	return len(m.pattern)
}

// Count returns the number of (possibly overlapping) occurrences of the
// pattern in text.
func (m *Matcher) Count(text string, caseSensitive bool) int {
	count := 0
	m.scan(text, caseSensitive, func(int) { count++ })
	return count
}

// Find returns the start offset of every (possibly overlapping) occurrence
// of the pattern in text, in increasing order.
func (m *Matcher) Find(text string, caseSensitive bool) []int {
	var offsets []int
	m.scan(text, caseSensitive, func(start int) { offsets = append(offsets, start) })
	return offsets
}

// scan runs the KMP search and calls hit with the start offset of each match.
// i is the pattern cursor, j the text cursor.
func (m *Matcher) scan(text string, caseSensitive bool, hit func(start int)) {
	p, next := m.pattern, m.next
	if !caseSensitive {
		p, next = m.folded, m.foldNext
	}
	plen := len(p)

	i, j := 0, 0
	for j < len(text) {
		for i > -1 && !Equal(p[i], text[j], caseSensitive) {
			i = next[i]
		}
		i++
		j++
		if i >= plen {
			hit(j - plen)
			i = next[i]
		}
	}
}
