package language

import (
	"sort"
	"strings"
	"unicode"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"te", "tel", "", "Telugu", []string{"telugu"}},
	{"gu", "guj", "", "Gujarati", []string{"gujarati"}},
	{"ta", "tam", "", "Tamil", []string{"tamil"}},
	{"kn", "kan", "", "Kannada", []string{"kannada"}},
	{"ml", "mal", "", "Malayalam", []string{"malayalam"}},
	{"mr", "mar", "", "Marathi", []string{"marathi"}},
	{"bn", "ben", "", "Bengali", []string{"bengali", "bangla"}},
	{"pa", "pan", "", "Punjabi", []string{"punjabi", "panjabi"}},
	{"ur", "urd", "", "Urdu", []string{"urdu"}},
	{"or", "ori", "", "Odia", []string{"odia", "oriya"}},
	{"as", "asm", "", "Assamese", []string{"assamese"}},
	{"ne", "nep", "", "Nepali", []string{"nepali"}},
	{"sa", "san", "", "Sanskrit", []string{"sanskrit"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input.
// If the input is already a 2-letter code (even if unknown), it passes through.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParseLabel extracts the bare language code from a classifier label such as
// "hi: Hindi" or "te (0.93)". The text before the first ':' or whitespace is
// taken as the code; any score or display suffix is discarded. Codes missing
// from the table are returned lowercased when they look like an ISO 639 code
// (two or three ASCII letters). Returns empty string when no code can be
// recovered.
func ParseLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	end := strings.IndexFunc(label, func(r rune) bool {
		return r == ':' || unicode.IsSpace(r)
	})
	if end >= 0 {
		label = label[:end]
	}
	label = strings.Trim(label, "[]()'\"")
	// Regional variants such as "en-IN" or "pt_BR" collapse to the base language.
	if idx := strings.IndexAny(label, "-_"); idx > 0 {
		label = label[:idx]
	}
	if e := lookup(label); e != nil {
		return e.code2
	}
	if isBareCode(label) {
		return strings.ToLower(label)
	}
	return ""
}

func isBareCode(value string) bool {
	if len(value) < 2 || len(value) > 3 {
		return false
	}
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// NormalizeList deduplicates and normalizes a list of language codes to ISO 639-1.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		trimmed := strings.ToLower(strings.TrimSpace(lang))
		if trimmed == "" {
			continue
		}
		if len(trimmed) > 2 {
			if mapped := ToISO2(trimmed); mapped != "" {
				trimmed = mapped
			}
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

// Set is a closed set of accepted ISO 639-1 codes.
type Set map[string]struct{}

// NewSet builds a Set from codes in any recognized form.
func NewSet(codes ...string) Set {
	set := make(Set, len(codes))
	for _, code := range NormalizeList(codes) {
		set[code] = struct{}{}
	}
	return set
}

// Contains reports whether code (in any recognized form) is in the set.
func (s Set) Contains(code string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[ToISO2(code)]
	return ok
}

// Codes returns the set members in sorted order.
func (s Set) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
