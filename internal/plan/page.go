package plan

import (
	"encoding/json"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// Template identifiers handed to the renderer.
const (
	TemplatePost     = "post"
	TemplateWorkshop = "workshop"
	TemplateBlog     = "blog"
)

// PageKind distinguishes detail pages from listing pages.
type PageKind string

const (
	KindDetail  PageKind = "detail"
	KindListing PageKind = "listing"
)

// Page instructs the emitter to materialize one route.
type Page struct {
	Path     string
	Template string
	Kind     PageKind
	Detail   *DetailContext
	Listing  *ListingContext
}

// DetailContext is the context of a single content page. Prev and Next are
// the neighbouring nodes of the ordered sequence, nil at either end.
type DetailContext struct {
	ID   string        `json:"id"`
	Prev *content.Node `json:"prev"`
	Next *content.Node `json:"next"`
}

// ListingContext is the context of one page of a paginated listing.
type ListingContext struct {
	Pagination Pagination `json:"pagination"`
	Categories []string   `json:"categories"`
}

// Pagination describes one listing page and its neighbours. Next moves to
// older content, previous to newer content.
type Pagination struct {
	Page             []string `json:"page"`
	NextPagePath     *string  `json:"nextPagePath"`
	PreviousPagePath *string  `json:"previousPagePath"`
	PageCount        int      `json:"pageCount"`
	PathPrefix       string   `json:"pathPrefix"`
}

// Context returns the typed context of the page.
func (p Page) Context() any {
	if p.Kind == KindListing {
		return p.Listing
	}
	return p.Detail
}

type pageJSON struct {
	Path      string `json:"path"`
	Component string `json:"component"`
	Context   any    `json:"context"`
}

// MarshalJSON renders the page as {path, component, context}.
func (p Page) MarshalJSON() ([]byte, error) {
	return json.Marshal(pageJSON{Path: p.Path, Component: p.Template, Context: p.Context()})
}

// Redirect is a declarative redirect from a legacy path.
type Redirect struct {
	FromPath          string `json:"fromPath"`
	ToPath            string `json:"toPath"`
	RedirectInBrowser bool   `json:"redirectInBrowser"`
	IsPermanent       bool   `json:"isPermanent"`
}
