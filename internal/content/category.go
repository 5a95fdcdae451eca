package content

import (
	"fmt"

	cerrors "git.home.luguber.info/inful/sitebuilder/internal/content/errors"
)

// Category identifies which kind of content a node is. It is assigned by the
// loader from the source the node was discovered in.
type Category string

const (
	CategoryBlog     Category = "blog"
	CategoryWorkshop Category = "workshop"
	CategoryPage     Category = "page"
)

// ParseCategory converts a configured category name.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryBlog, CategoryWorkshop, CategoryPage:
		return Category(s), nil
	default:
		return "", fmt.Errorf("%w: %q", cerrors.ErrUnknownCategory, s)
	}
}

func (c Category) String() string { return string(c) }
