package discovery

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Candidate is a video returned by the search provider. Candidates are not
// mutated after discovery.
type Candidate struct {
	ID         string
	Title      string
	URL        string
	UploadDate string
	Duration   float64
	Metadata   map[string]any
}

// searchEntry mirrors the yt-dlp --dump-json fields the pipeline consumes.
type searchEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	WebpageURL string  `json:"webpage_url"`
	UploadDate string  `json:"upload_date"`
	Duration   float64 `json:"duration"`
}

var consumedKeys = []string{"id", "title", "webpage_url", "upload_date", "duration"}

// ParseCandidates decodes newline-delimited yt-dlp JSON. Lines that do not
// decode to an object are counted in malformed and skipped.
func ParseCandidates(data []byte) (candidates []Candidate, malformed int) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		candidate, err := parseLine([]byte(line))
		if err != nil {
			malformed++
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, malformed
}

func parseLine(line []byte) (Candidate, error) {
	var entry searchEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return Candidate{}, fmt.Errorf("decode search entry: %w", err)
	}
	var metadata map[string]any
	if err := json.Unmarshal(line, &metadata); err != nil {
		return Candidate{}, fmt.Errorf("decode search metadata: %w", err)
	}
	for _, key := range consumedKeys {
		delete(metadata, key)
	}
	url := strings.TrimSpace(entry.WebpageURL)
	return Candidate{
		ID:         CandidateID(entry.ID, url),
		Title:      strings.TrimSpace(entry.Title),
		URL:        url,
		UploadDate: strings.TrimSpace(entry.UploadDate),
		Duration:   entry.Duration,
		Metadata:   metadata,
	}, nil
}

// CandidateID returns the provider id when present, otherwise a stable
// 12-character SHA-256 prefix of the URL.
func CandidateID(providerID, url string) string {
	id := strings.TrimSpace(providerID)
	if id != "" {
		return id
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])[:12]
}
