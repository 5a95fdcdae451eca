// Package derive computes the routing slug and flattened fields of content
// nodes. Derivation is a pure function of a single node.
package derive

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
)

// DefaultAuthor is used when neither frontmatter nor options name an author.
const DefaultAuthor = "Kent C. Dodds"

// WorkshopPathPrefix is the route namespace of workshop detail pages.
const WorkshopPathPrefix = "/workshops/"

// Options carries site-level defaults.
type Options struct {
	DefaultAuthor string
}

// Slug returns the canonical route of n. The first matching rule wins:
//
//  1. blog:     "/" + (frontmatter slug or slugified file name)
//  2. workshop: "/workshops/" + (frontmatter slug or slugified title)
//  3. page:     frontmatter slug or the file path ("/about/")
func Slug(n *content.Node) string {
	fm := n.Frontmatter
	switch n.Category {
	case content.CategoryBlog:
		if fm.Slug != "" {
			return "/" + fm.Slug
		}
		return "/" + Slugify(n.Name)
	case content.CategoryWorkshop:
		if fm.Slug != "" {
			return WorkshopPathPrefix + fm.Slug
		}
		return WorkshopPathPrefix + Slugify(fm.Title)
	default:
		if fm.Slug != "" {
			return fm.Slug
		}
		return FilePath(n.RelativePath)
	}
}

// FilePath turns a source-relative file path into a route: the extension is
// dropped, index files stand for their directory and the result is wrapped
// in slashes ("guides/setup.md" is "/guides/setup/", "index.md" is "/").
func FilePath(rel string) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	if path.Base(rel) == "index" {
		rel = path.Dir(rel)
	}
	rel = strings.Trim(rel, "/")
	if rel == "" || rel == "." {
		return "/"
	}
	return "/" + rel + "/"
}

// Derive computes the fields of n. It does not modify n.
func Derive(n *content.Node, opts Options) content.Fields {
	fm := n.Frontmatter

	author := fm.Author
	if author == "" {
		author = opts.DefaultAuthor
	}
	if author == "" {
		author = DefaultAuthor
	}

	isWorkshop := n.Category == content.CategoryWorkshop

	return content.Fields{
		ID:                   n.ID,
		Slug:                 Slug(n),
		Published:            fm.Published,
		Title:                fm.Title,
		Author:               author,
		Description:          fm.Description,
		PlainTextDescription: markdown.PlainText([]byte(fm.Description)),
		Date:                 firstToken(fm.Date),
		Banner:               fm.Banner,
		BannerCredit:         fm.BannerCredit,
		Categories:           orEmpty(fm.Categories),
		Keywords:             orEmpty(fm.Keywords),
		Redirects:            fm.Redirects,
		NoFooter:             fm.NoFooter != nil && *fm.NoFooter,
		IsWorkshop:           isWorkshop,
		IsScheduled:          isWorkshop && fm.Date != "",
	}
}

// All derives and attaches fields for every node, returning the number of
// nodes processed.
func All(nodes []*content.Node, opts Options) int {
	for _, n := range nodes {
		n.Fields = Derive(n, opts)
	}
	return len(nodes)
}

func firstToken(s string) string {
	if s == "" {
		return ""
	}
	first, _, _ := strings.Cut(s, " ")
	return first
}

func orEmpty(s []string) []string {
	if len(s) == 0 {
		return []string{}
	}
	return append([]string(nil), s...)
}
