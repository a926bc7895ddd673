// Package staging manages the transient areas under the work directory: the
// shared scratch directory used for classifier excerpts, and the per-run
// work directories that hold downloads and normalized audio.
package staging
