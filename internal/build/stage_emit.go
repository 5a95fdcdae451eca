package build

import (
	"context"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/feed"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/plan"
)

// flusher is implemented by emitters that buffer output until the plan has
// been applied.
type flusher interface {
	Flush(ctx context.Context) error
}

func stageEmit(ctx context.Context, st *State) error {
	if err := plan.Apply(ctx, st.Plan, st.Emitter); err != nil {
		if ctx.Err() != nil {
			return NewCanceledStageError(StageEmit, err)
		}
		return ferrors.WrapError(err, ferrors.CategoryEmit, "emit plan").Fatal().Build()
	}
	if f, ok := st.Emitter.(flusher); ok {
		if err := f.Flush(ctx); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryEmit, "write redirect tables").Fatal().Build()
		}
	}
	observability.InfoContext(ctx, "Plan emitted", logfields.Path(st.OutputDir))
	return nil
}

func stageFeed(ctx context.Context, st *State) error {
	blog, err := st.Collection.Blog(ctx)
	if err != nil {
		return err
	}

	path := filepath.Join(st.OutputDir, st.Config.Build.FeedPath)
	opts := feed.Options{
		Title:       st.Config.Site.Title,
		SiteURL:     st.Config.Site.URL,
		Description: st.Config.Site.Description,
		Author:      st.Config.Site.DefaultAuthor,
	}
	if err := feed.Write(path, blog, opts); err != nil {
		return NewWarnStageError(StageFeed, err)
	}
	st.Report.FeedPath = path
	observability.InfoContext(ctx, "Feed written", logfields.File(path), slog.Int("items", blog.Len()))
	return nil
}
