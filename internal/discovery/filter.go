package discovery

import "time"

const uploadDateLayout = "20060102"

// Filter keeps candidates uploaded on or after the date lookbackDays before
// now and lasting at least minDurationSeconds. Dates are compared as calendar
// days in now's location. Candidates with a missing or unparseable upload
// date are dropped. Input order is preserved.
func Filter(candidates []Candidate, lookbackDays, minDurationSeconds int, now time.Time) []Candidate {
	y, m, d := now.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -lookbackDays)

	kept := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Duration < float64(minDurationSeconds) {
			continue
		}
		uploaded, ok := ParseUploadDate(candidate.UploadDate, now.Location())
		if !ok || uploaded.Before(cutoff) {
			continue
		}
		kept = append(kept, candidate)
	}
	return kept
}

// ParseUploadDate parses a YYYYMMDD date in loc.
func ParseUploadDate(value string, loc *time.Location) (time.Time, bool) {
	if len(value) != len(uploadDateLayout) {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(uploadDateLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
