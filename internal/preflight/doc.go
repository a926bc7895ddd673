// Package preflight provides readiness checks for the external binaries,
// directories, and model files reelscribe depends on.
//
// "reelscribe doctor" prints every check; "reelscribe run" executes them
// before the first work item and logs failures as warnings, since a missing
// tool only costs the candidates that need it.
package preflight
