// Package errors provides sentinel errors for content loading and querying.
// These enable consistent classification of load stage failures.
package errors

import "errors"

var (
	// ErrSourceNotFound indicates a configured content source directory does not exist.
	ErrSourceNotFound = errors.New("content source not found")

	// ErrSourceWalkFailed indicates filesystem traversal of a content source failed.
	ErrSourceWalkFailed = errors.New("content source walk failed")

	// ErrFileReadFailed indicates reading a content file failed.
	ErrFileReadFailed = errors.New("content file read failed")

	// ErrInvalidFrontmatter indicates a content file carried unparseable frontmatter.
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")

	// ErrUnknownCategory indicates a source was configured with an unsupported category.
	ErrUnknownCategory = errors.New("unknown content category")
)
