// Package langid tags normalized audio with a spoken-language code.
//
// Identify cuts a bounded excerpt into the scratch directory, prepares it for
// the classifier (mono, classifier sample rate, bounded frame count), runs the
// classifier command and parses its top-ranked label into an ISO 639-1 code.
// Classification failures resolve through a named policy: tag the candidate
// with the fallback language, or report it so the candidate is skipped. The
// excerpt is removed on every exit path.
//
// EnsureModel provisions the classifier checkpoint from the Hugging Face hub.
package langid
