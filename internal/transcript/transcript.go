package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"reelscribe/internal/fileutil"
	"reelscribe/internal/textutil"
)

// DelimiterPattern matches segment headers.
const DelimiterPattern = `====\s*Video\s*\d+(?:\s*\([^)]*\))?\s*====`

var (
	delimiterRe = regexp.MustCompile(DelimiterPattern)
	headerRe    = regexp.MustCompile(`====\s*Video\s*(\d+)(?:\s*\(([^)]*)\))?\s*====`)
)

// Segment is one candidate's transcribed text.
type Segment struct {
	Ordinal  int
	Language string
	Text     string
}

// Header renders the segment delimiter.
func (s Segment) Header() string {
	return fmt.Sprintf("==== Video %d (%s) ====", s.Ordinal, s.Language)
}

// Assembler collects the segments of one work item.
type Assembler struct {
	segments []Segment
}

// Add records a segment. Empty text is ignored and reported as false.
func (a *Assembler) Add(ordinal int, language, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || ordinal <= 0 {
		return false
	}
	a.segments = append(a.segments, Segment{Ordinal: ordinal, Language: language, Text: text})
	return true
}

// Len returns the number of segments collected.
func (a *Assembler) Len() int {
	return len(a.segments)
}

// Segments returns the collected segments ordered by ordinal.
func (a *Assembler) Segments() []Segment {
	out := append([]Segment(nil), a.segments...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

// Render produces the transcript document.
func (a *Assembler) Render() string {
	blocks := make([]string, 0, len(a.segments))
	for _, seg := range a.Segments() {
		blocks = append(blocks, seg.Header()+"\n"+seg.Text+"\n")
	}
	return strings.Join(blocks, "\n")
}

// FileName returns the transcript file name for topic.
func FileName(topic string) string {
	name := textutil.SanitizeFileName(topic)
	if name == "" {
		name = "untitled"
	}
	return name + "_transcript.txt"
}

// Write stores the document for topic in dir and returns its path. With no
// segments nothing is written and the returned path is empty.
func (a *Assembler) Write(dir, topic string) (string, error) {
	if len(a.segments) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure transcripts dir: %w", err)
	}
	path := filepath.Join(dir, FileName(topic))
	if err := fileutil.WriteAtomic(path, []byte(a.Render()), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// Split returns the text between delimiters, dropping anything before the
// first header. Each part is trimmed.
func Split(content string) []string {
	locs := delimiterRe.FindAllStringIndex(content, -1)
	parts := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		parts = append(parts, strings.TrimSpace(content[loc[1]:end]))
	}
	return parts
}

// Parse recovers the segments of a transcript document.
func Parse(content string) ([]Segment, error) {
	locs := headerRe.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		if strings.TrimSpace(content) == "" {
			return nil, nil
		}
		return nil, errors.New("transcript has no segment headers")
	}
	segments := make([]Segment, 0, len(locs))
	for i, loc := range locs {
		ordinal, err := strconv.Atoi(content[loc[2]:loc[3]])
		if err != nil {
			return nil, fmt.Errorf("segment %d: bad ordinal: %w", i+1, err)
		}
		var lang string
		if loc[4] >= 0 {
			lang = strings.TrimSpace(content[loc[4]:loc[5]])
		}
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segments = append(segments, Segment{
			Ordinal:  ordinal,
			Language: lang,
			Text:     strings.TrimSpace(content[loc[1]:end]),
		})
	}
	return segments, nil
}
