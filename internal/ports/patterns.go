package ports

// KeywordCounter counts occurrences of a fixed keyword list in a text.
// Counts must include overlapping occurrences and be returned in keyword
// order (one slot per keyword, duplicates included). Implementations are
// immutable after construction and safe for concurrent Counts calls.
type KeywordCounter interface {
	// Keywords returns the keyword list in construction order.
	Keywords() []string

	// Counts returns one match count per keyword for text.
	Counts(text string) []int
}
