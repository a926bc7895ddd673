package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxFileStemBytes keeps generated names well under common 255-byte limits
// once a candidate ID and extension are appended.
const maxFileStemBytes = 160

// fileNameStripper removes characters that are illegal or awkward in paths.
var fileNameStripper = strings.NewReplacer(
	"<", "",
	">", "",
	":", "",
	"\"", "",
	"/", "",
	"\\", "",
	"|", "",
	"?", "",
	"*", "",
	"’", "",
	"!", "",
)

var controlRemover = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.IsControl(r) && !unicode.IsSpace(r)
}))

// SanitizeFileName derives a filesystem-safe stem from a title. Illegal path
// characters are stripped, the text is NFC-normalized, and each whitespace run
// collapses to a single underscore. Returns empty string when nothing usable
// remains.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if cleaned, _, err := transform.String(transform.Chain(norm.NFC, controlRemover), name); err == nil {
		name = cleaned
	}
	name = fileNameStripper.Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = strings.Trim(name, "._")
	return truncateBytes(name, maxFileStemBytes)
}

// NormalizeSpace collapses every whitespace run to a single space and trims
// the ends.
func NormalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncateBytes(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return strings.TrimRight(value[:cut], "._")
}

// Truncate collapses whitespace in text and shortens it to at most limit
// bytes, marking a cut with "...".
func Truncate(text string, limit int) string {
	text = NormalizeSpace(text)
	if limit <= 3 || len(text) <= limit {
		return text
	}
	return truncateBytes(text, limit-3) + "..."
}
