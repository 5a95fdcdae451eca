package plan

import (
	"strconv"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// PageSize is the number of items on one listing page.
const PageSize = 7

// Paginate splits ids into consecutive groups of size, the last one possibly
// shorter. Order is preserved.
func Paginate(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	groups := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		groups = append(groups, append([]string(nil), ids[start:end]...))
	}
	return groups
}

// PagePath returns the route of listing page k: the bare prefix for the
// first page, prefix/k afterwards.
func PagePath(prefix string, k int) string {
	if k == 0 {
		return prefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strconv.Itoa(k)
}

// ListingPages partitions seq into listing pages of PageSize ids under prefix.
//
// Page 0 owns the bare prefix and holds the newest content. From page k the
// next link points to page k-1 (the bare prefix when k is 1) and is nil on
// page 0; the previous link points to page k+1 and is nil on the last page.
func ListingPages(seq content.Sequence, prefix, template string) []Page {
	groups := Paginate(seq.IDs(), PageSize)
	count := len(groups)

	pages := make([]Page, 0, count)
	for k, ids := range groups {
		var next, previous *string
		if k > 0 {
			next = strPtr(PagePath(prefix, k-1))
		}
		if k < count-1 {
			previous = strPtr(PagePath(prefix, k+1))
		}

		pages = append(pages, Page{
			Path:     PagePath(prefix, k),
			Template: template,
			Kind:     KindListing,
			Listing: &ListingContext{
				Pagination: Pagination{
					Page:             ids,
					NextPagePath:     next,
					PreviousPagePath: previous,
					PageCount:        count,
					PathPrefix:       prefix,
				},
				Categories: []string{},
			},
		})
	}
	return pages
}

func strPtr(s string) *string { return &s }
