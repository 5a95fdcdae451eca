package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/plan"
)

func stagePlan(ctx context.Context, st *State) error {
	p, err := plan.Generate(ctx, st.Collection, plan.Options{BlogPathPrefix: st.Config.Content.BlogPathPrefix})
	if err != nil {
		if errors.Is(err, plan.ErrEmptyContentSet) {
			return ferrors.WrapError(err, ferrors.CategoryPlan, "nothing to plan").Fatal().Build()
		}
		return err
	}

	for _, c := range p.PathCollisions() {
		cerr := fmt.Errorf("%w: %s claimed by %s", ErrSlugCollision, c.Path, strings.Join(c.Sources, ", "))
		if st.Config.Build.StrictSlugs {
			return ferrors.WrapError(cerr, ferrors.CategoryPlan, "duplicate route").
				WithContext("path", c.Path).
				Fatal().
				Build()
		}
		observability.WarnContext(ctx, "Route claimed by more than one page", logfields.Slug(c.Path), slog.Any("sources", c.Sources))
		st.Report.Warn(IssueSlugCollision, StagePlan, cerr)
	}
	for _, c := range p.RedirectConflicts() {
		cerr := fmt.Errorf("redirect source %s is also a page (%s)", c.Path, strings.Join(c.Sources, ", "))
		observability.WarnContext(ctx, "Redirect shadows a page", logfields.Slug(c.Path), slog.Any("sources", c.Sources))
		st.Report.Warn(IssueRedirectConflict, StagePlan, cerr)
	}

	digest, err := p.Digest()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "fingerprint plan").Build()
	}

	st.Plan = p
	st.Report.PlanDigest = digest
	st.Report.DetailPages, st.Report.ListingPages, st.Report.Redirects = p.Counts()
	observability.InfoContext(ctx, "Plan generated",
		logfields.Pages(len(p.Pages)),
		logfields.Redirects(len(p.Redirects)))
	return nil
}
