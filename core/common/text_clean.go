package common

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// runs of spaces/tabs
	spaceRe = regexp.MustCompile(`[ \t\f\v]+`)
	// three or more newlines (one blank line kept)
	newlineRe = regexp.MustCompile(`\n{3,}`)
	// any whitespace run, newlines included
	anySpaceRe = regexp.MustCompile(`\s+`)
)

// zero-width characters
var zeroWidthRunes = map[rune]bool{
	'\u200B': true, // Zero Width Space
	'\u200C': true, // Zero Width Non-Joiner
	'\u200D': true, // Zero Width Joiner
	'\uFEFF': true, // Zero Width No-Break Space (BOM)
	'\u2060': true, // Word Joiner
	'\u180E': true, // Mongolian Vowel Separator
}

// non-standard spaces, mapped to ' '
var nonStandardSpaces = map[rune]bool{
	'\u00A0': true, // Non-breaking space
	'\u1680': true, // Ogham Space Mark
	'\u2000': true, // En Quad
	'\u2001': true, // Em Quad
	'\u2002': true, // En Space
	'\u2003': true, // Em Space
	'\u2004': true, // Three-Per-Em Space
	'\u2005': true, // Four-Per-Em Space
	'\u2006': true, // Six-Per-Em Space
	'\u2007': true, // Figure Space
	'\u2008': true, // Punctuation Space
	'\u2009': true, // Thin Space
	'\u200A': true, // Hair Space
	'\u202F': true, // Narrow No-Break Space
	'\u205F': true, // Medium Mathematical Space
	'\u3000': true, // Ideographic Space
}

// CleanText removes control and zero-width characters, applies NFC and maps
// non-standard spaces to ASCII space. Newlines and tabs survive.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u0000", "")
	s = removeControlChars(s)
	s = removeZeroWidthChars(s)
	s = norm.NFC.String(s)
	return normalizeNonStandardSpaces(s)
}

// CollapseSpaces turns every whitespace run, newlines included, into one space and trims
func CollapseSpaces(s string) string {
	return strings.TrimSpace(anySpaceRe.ReplaceAllString(s, " "))
}

// NormalizeWhitespace unifies line endings, collapses horizontal whitespace,
// trims every line, keeps at most one blank line between paragraphs and trims the result.
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = spaceRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")

	s = newlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// removeControlChars drops control characters except \n, \t and \r
func removeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

func removeZeroWidthChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if zeroWidthRunes[r] {
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

func normalizeNonStandardSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if nonStandardSpaces[r] {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}

	return b.String()
}
