// Package sanitize normalizes raw filesystem names before they are persisted
// or compared. Filesystems on every platform can hand back byte sequences that
// are not valid UTF-8; those bytes still round-trip through syscalls, but they
// must never reach the catalog database or a comparison untouched.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

// Placeholder substitutes undecodable byte sequences and embedded NUL bytes.
const Placeholder = "�"

// Name returns a best-effort decoding of a raw filesystem name. Invalid UTF-8
// sequences and NUL bytes are replaced with Placeholder; the rest of the name
// is preserved as-is. Name never fails and never truncates.
func Name(raw string) string {
	s := raw
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, Placeholder)
	}
	if strings.ContainsRune(s, 0x00) {
		s = strings.ReplaceAll(s, "\x00", Placeholder)
	}
	return s
}

// Path applies the same normalization to a full path. Path separators are
// ASCII and survive UTF-8 repair, so segment boundaries are never disturbed.
func Path(raw string) string {
	return Name(raw)
}
