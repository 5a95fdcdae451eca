package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// ErrEmptyContentSet aborts planning when the blog or workshop sequence is
// empty. It is never retried.
var ErrEmptyContentSet = errors.New("empty content set")

// EmptyContentSetError names the section that had no content.
type EmptyContentSetError struct {
	Section string
}

func (e *EmptyContentSetError) Error() string {
	return fmt.Sprintf("%s: there are no %s", ErrEmptyContentSet, e.Section)
}

// Is makes errors.Is(err, ErrEmptyContentSet) hold.
func (e *EmptyContentSetError) Is(target error) bool { return target == ErrEmptyContentSet }

// Querier supplies the ordered content sequences. Errors are returned to the
// caller of Generate unchanged.
type Querier interface {
	Blog(ctx context.Context) (content.Sequence, error)
	Workshops(ctx context.Context) (content.Sequence, error)
}

// Emitter materializes planned pages and redirects.
type Emitter interface {
	CreatePage(ctx context.Context, page Page) error
	CreateRedirect(ctx context.Context, r Redirect) error
}

// Options tune plan generation.
type Options struct {
	BlogPathPrefix string
}

// DefaultBlogPathPrefix is the listing prefix used when Options leaves it empty.
const DefaultBlogPathPrefix = "/articles"

// Plan is the complete, ordered set of emission instructions for one build.
type Plan struct {
	Pages     []Page
	Redirects []Redirect
}

// Generate builds the plan: blog detail pages and redirects, then blog
// listing pages, then workshop detail pages. Nothing is emitted here, so a
// failed plan never leaves partial output behind.
func Generate(ctx context.Context, q Querier, opts Options) (*Plan, error) {
	if opts.BlogPathPrefix == "" {
		opts.BlogPathPrefix = DefaultBlogPathPrefix
	}

	blog, err := q.Blog(ctx)
	if err != nil {
		return nil, err
	}
	workshops, err := q.Workshops(ctx)
	if err != nil {
		return nil, err
	}

	if blog.Empty() {
		return nil, &EmptyContentSetError{Section: "posts"}
	}
	if workshops.Empty() {
		return nil, &EmptyContentSetError{Section: "workshops"}
	}

	p := &Plan{}
	p.Pages = append(p.Pages, DetailPages(blog, TemplatePost)...)
	p.Redirects = Redirects(blog)
	p.Pages = append(p.Pages, ListingPages(blog, opts.BlogPathPrefix, TemplateBlog)...)
	p.Pages = append(p.Pages, DetailPages(workshops, TemplateWorkshop)...)
	return p, nil
}

// Apply hands every page, then every redirect, to the emitter in plan order.
// It stops at the first emitter error or when ctx is cancelled.
func Apply(ctx context.Context, p *Plan, e Emitter) error {
	for _, page := range p.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.CreatePage(ctx, page); err != nil {
			return fmt.Errorf("create page %s: %w", page.Path, err)
		}
	}
	for _, r := range p.Redirects {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.CreateRedirect(ctx, r); err != nil {
			return fmt.Errorf("create redirect %s: %w", r.FromPath, err)
		}
	}
	return nil
}

// Collision is a route claimed more than once.
type Collision struct {
	Path    string
	Sources []string
}

// PathCollisions returns the page paths claimed by more than one page,
// sorted by path. Sources are the claiming node ids or listing templates.
func (p *Plan) PathCollisions() []Collision {
	claims := make(map[string][]string)
	for _, page := range p.Pages {
		claims[page.Path] = append(claims[page.Path], pageSource(page))
	}
	var out []Collision
	for path, sources := range claims {
		if len(sources) > 1 {
			out = append(out, Collision{Path: path, Sources: sources})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// RedirectConflicts returns redirects whose source path is also a page path.
func (p *Plan) RedirectConflicts() []Collision {
	pages := make(map[string]string, len(p.Pages))
	for _, page := range p.Pages {
		if _, ok := pages[page.Path]; !ok {
			pages[page.Path] = pageSource(page)
		}
	}
	var out []Collision
	for _, r := range p.Redirects {
		if src, ok := pages[r.FromPath]; ok {
			out = append(out, Collision{Path: r.FromPath, Sources: []string{src, "redirect to " + r.ToPath}})
		}
	}
	return out
}

func pageSource(page Page) string {
	if page.Kind == KindDetail && page.Detail != nil {
		return page.Detail.ID
	}
	return page.Template
}

// Counts returns the number of detail pages, listing pages and redirects.
func (p *Plan) Counts() (detail, listing, redirects int) {
	for _, page := range p.Pages {
		if page.Kind == KindListing {
			listing++
		} else {
			detail++
		}
	}
	return detail, listing, len(p.Redirects)
}

type planJSON struct {
	Pages     []Page     `json:"pages"`
	Redirects []Redirect `json:"redirects"`
}

// MarshalJSON renders the plan as {pages, redirects}.
func (p *Plan) MarshalJSON() ([]byte, error) {
	out := planJSON{Pages: p.Pages, Redirects: p.Redirects}
	if out.Pages == nil {
		out.Pages = []Page{}
	}
	if out.Redirects == nil {
		out.Redirects = []Redirect{}
	}
	return json.Marshal(out)
}

// Digest fingerprints the serialized plan. Identical inputs yield identical
// digests.
func (p *Plan) Digest() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	return mdfp.CalculateFingerprintFromParts("", string(data)), nil
}
