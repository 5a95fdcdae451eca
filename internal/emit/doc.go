// Package emit materializes a page plan: a filesystem emitter that writes
// page descriptors and redirect tables under an output directory, and an
// in-memory emitter for tests and dry runs.
package emit
