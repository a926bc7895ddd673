package language

import (
	"reflect"
	"testing"
)

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"eng", "en"},
		{"hin", "hi"},
		{"tel", "te"},
		{"guj", "gu"},
		{"fre", "fr"},
		{"english", "en"},
		{"Hindi", "hi"},
		{"TELUGU", "te"},
		{"bangla", "bn"},
		{"xy", "xy"},
		{"xyz", ""},
		{"", ""},
		{" ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ToISO2(tt.input); result != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"hi", "Hindi"},
		{"guj", "Gujarati"},
		{"te", "Telugu"},
		{"", "Unknown"},
		{"xyz", "XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := DisplayName(tt.input); result != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hi: Hindi", "hi"},
		{"te: Telugu", "te"},
		{"  gu:Gujarati ", "gu"},
		{"en", "en"},
		{"en (0.97)", "en"},
		{"en-IN", "en"},
		{"'ta'", "ta"},
		{"hin: Hindi", "hi"},
		{"fr: French", "fr"},
		{"xx: Unknown", "xx"},
		{"ceb: Cebuano", "ceb"},
		{"HAW: Hawaiian", "haw"},
		{"sco", "sco"},
		{"???", ""},
		{"e1: Broken", ""},
		{"cebu: Cebuano", ""},
		{": nothing", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ParseLabel(tt.input); result != tt.expected {
				t.Errorf("ParseLabel(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil", nil, nil},
		{"empty", []string{}, nil},
		{"dedup", []string{"en", "en"}, []string{"en"}},
		{"normalize 3-letter", []string{"eng", "hin"}, []string{"en", "hi"}},
		{"words", []string{"ENG", "hindi", "te", "te"}, []string{"en", "hi", "te"}},
		{"unknown passes through", []string{"en", "xx"}, []string{"en", "xx"}},
		{"strips whitespace", []string{" en ", " "}, []string{"en"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeList(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Fatalf("NormalizeList(%v) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSet(t *testing.T) {
	set := NewSet("en", "Hindi", "tel", "gu")
	for _, code := range []string{"en", "hi", "hin", "te", "GU"} {
		if !set.Contains(code) {
			t.Errorf("expected set to contain %q", code)
		}
	}
	for _, code := range []string{"fr", "", "ta"} {
		if set.Contains(code) {
			t.Errorf("expected set to reject %q", code)
		}
	}
	if got := set.Codes(); !reflect.DeepEqual(got, []string{"en", "gu", "hi", "te"}) {
		t.Fatalf("unexpected codes %v", got)
	}
	var empty Set
	if empty.Contains("en") {
		t.Fatal("empty set must not contain anything")
	}
}
