package kmp

// foldOffset is the distance between an ASCII lowercase letter and its uppercase form.
const foldOffset = 'a' - 'A'

// foldTable maps every byte to its ASCII-lowercase form. Non-letters,
// including every byte >= 0x80, map to themselves.
var foldTable = func() [256]byte {
	var t [256]byte
	for i := range t {
		b := byte(i)
		if b >= 'A' && b <= 'Z' {
			b += foldOffset
		}
		t[i] = b
	}
	return t
}()

// Equal reports whether x and y match under the comparator.
// Case-sensitive comparison is plain byte equality. Otherwise two ASCII
// letters match when they differ only by case; digits, punctuation and
// non-ASCII bytes must still be identical.
func Equal(x, y byte, caseSensitive bool) bool {
	if caseSensitive {
		return x == y
	}
	return foldTable[x] == foldTable[y]
}

// Fold returns s with ASCII letters lowercased. Other bytes are untouched,
// so the result has the same length and byte offsets as s.
func Fold(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		b[i] = foldTable[s[i]]
	}
	return string(b)
}
