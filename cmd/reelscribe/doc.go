// Package main hosts the reelscribe CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration and logging once, then hands
// off to the internal packages: run drives the pipeline over the ledger,
// search and transcribe exercise single stages, split inspects transcript
// artifacts, history reads the run database, and doctor and models check and
// provision the environment.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through a command here.
package main
