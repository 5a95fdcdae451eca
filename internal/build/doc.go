// Package build runs the site build as an ordered pipeline of stages:
// load_content, derive_fields, plan, emit and feed.
//
// Every execution path (CLI build, CLI plan, daemon) goes through Service.
// Stage failures are recorded in a Report; fatal ones abort the pipeline
// before anything is emitted when they occur during planning.
package build
