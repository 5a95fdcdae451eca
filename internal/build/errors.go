package build

import "errors"

// ErrSlugCollision is reported when two pages claim the same route and
// strict slugs are enabled.
var ErrSlugCollision = errors.New("slug collision")
