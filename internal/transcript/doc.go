// Package transcript assembles per-video text segments into the delimited
// document written for each work item, and splits such documents back into
// segments.
//
// Each segment is introduced by a header of the form "==== Video N (lang) ====",
// where N is the candidate's 1-based ordinal among the candidates that
// survived filtering. Downstream consumers recover per-video boundaries by
// splitting on DelimiterPattern.
package transcript
