package plan

import "git.home.luguber.info/inful/sitebuilder/internal/content"

// DetailPages emits one page per node at its derived slug, linking each node
// to its neighbours in sequence order.
func DetailPages(seq content.Sequence, template string) []Page {
	n := seq.Len()
	pages := make([]Page, 0, n)
	for i := range n {
		node := seq.At(i)

		var prev, next *content.Node
		if i > 0 {
			prev = seq.At(i - 1)
		}
		if i < n-1 {
			next = seq.At(i + 1)
		}

		pages = append(pages, Page{
			Path:     node.Fields.Slug,
			Template: template,
			Kind:     KindDetail,
			Detail:   &DetailContext{ID: node.ID, Prev: prev, Next: next},
		})
	}
	return pages
}
