package build

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/derive"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
)

func stageLoadContent(ctx context.Context, st *State) error {
	sources := make([]content.Source, 0, len(st.Config.Content.Sources))
	for _, s := range st.Config.Content.Sources {
		cat, err := content.ParseCategory(s.Category)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid content source").
				WithContext("source", s.Name).
				Fatal().
				Build()
		}
		sources = append(sources, content.Source{Name: s.Name, Root: s.Path, Category: cat})
	}

	nodes, err := content.NewLoader(sources).Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return NewCanceledStageError(StageLoadContent, err)
		}
		return ferrors.WrapError(err, ferrors.CategoryContent, "load content").Fatal().Build()
	}

	st.Nodes = nodes
	st.Collection = content.NewCollection(nodes)
	for _, cat := range []content.Category{content.CategoryBlog, content.CategoryWorkshop, content.CategoryPage} {
		st.Report.Nodes[cat.String()] = content.Query(nodes, cat).Len()
	}
	return nil
}

func stageDeriveFields(ctx context.Context, st *State) error {
	n := derive.All(st.Nodes, derive.Options{DefaultAuthor: st.Config.Site.DefaultAuthor})
	observability.DebugContext(ctx, "Fields derived", slog.Int("nodes", n))

	pages := st.Collection.Pages()
	st.Report.GenericPages = make([]string, 0, pages.Len())
	for i := range pages.Len() {
		st.Report.GenericPages = append(st.Report.GenericPages, pages.At(i).Fields.Slug)
	}
	return nil
}
