// Package language normalizes language codes to ISO 639-1 and parses the
// ranked labels printed by the language classifier.
//
// The accepted-language set, the recognition model table, and classifier
// output all pass through here so a tag such as "hin", "Hindi" or "hi: Hindi"
// always resolves to the same code.
package language
