package plan

import "git.home.luguber.info/inful/sitebuilder/internal/content"

// Redirects emits one permanent in-browser redirect per legacy path of every
// node in seq, pointing at the node's slug. Aliases are neither deduplicated
// nor checked for cycles.
func Redirects(seq content.Sequence) []Redirect {
	var out []Redirect
	for i := range seq.Len() {
		node := seq.At(i)
		for _, from := range node.Fields.Redirects {
			out = append(out, Redirect{
				FromPath:          from,
				ToPath:            node.Fields.Slug,
				RedirectInBrowser: true,
				IsPermanent:       true,
			})
		}
	}
	return out
}
