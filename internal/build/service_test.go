package build

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/plan"
)

type site struct {
	root string
	cfg  *config.Config
}

func newSite(t *testing.T) *site {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Content.Sources = []config.SourceConfig{
		{Name: "blog", Path: filepath.Join(root, "content", "blog"), Category: "blog"},
		{Name: "workshops", Path: filepath.Join(root, "content", "workshops"), Category: "workshop"},
		{Name: "pages", Path: filepath.Join(root, "content", "pages"), Category: "page"},
	}
	cfg.Output.Directory = filepath.Join(root, "public")
	for _, s := range cfg.Content.Sources {
		require.NoError(t, os.MkdirAll(s.Path, 0o750))
	}
	return &site{root: root, cfg: cfg}
}

func (s *site) write(t *testing.T, source, rel, body string) {
	t.Helper()
	path := filepath.Join(s.root, "content", source, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func (s *site) post(t *testing.T, name, date string, extra string) {
	t.Helper()
	s.write(t, "blog", name+".md", fmt.Sprintf("---\ntitle: %s\ndate: %s\n%s---\nBody of %s.\n", name, date, extra, name))
}

func (s *site) workshop(t *testing.T, title string) {
	t.Helper()
	s.write(t, "workshops", title+".md", fmt.Sprintf("---\ntitle: %s\ndate: 2020-01-01\n---\nWorkshop.\n", title))
}

func TestService_FullBuild(t *testing.T) {
	s := newSite(t)
	for i := 1; i <= 9; i++ {
		extra := ""
		if i == 3 {
			extra = "redirects:\n  - /old-three\n  - /older-three\n"
		}
		s.post(t, fmt.Sprintf("post-%d", i), fmt.Sprintf("2019-01-%02d", i), extra)
	}
	s.workshop(t, "React Hooks")
	s.write(t, "pages", "about.md", "---\ntitle: About\n---\nAbout us.\n")

	res, err := NewService(s.cfg).Run(t.Context(), Request{})
	require.NoError(t, err)

	r := res.Report
	require.Equal(t, OutcomeSuccess, r.Outcome)
	require.NotEmpty(t, r.BuildID)
	require.Equal(t, "cli", r.Trigger)
	require.Equal(t, 9, r.Nodes["blog"])
	require.Equal(t, 1, r.Nodes["workshop"])
	require.Equal(t, 10, r.DetailPages)
	require.Equal(t, 2, r.ListingPages)
	require.Equal(t, 2, r.Redirects)
	require.Equal(t, []string{"/about/"}, r.GenericPages)
	require.NotEmpty(t, r.PlanDigest)
	require.Empty(t, r.ContentRevision)

	out := s.cfg.Output.Directory
	require.FileExists(t, filepath.Join(out, "pages", "post-9", "index.json"))
	require.FileExists(t, filepath.Join(out, "pages", "workshops", "react-hooks", "index.json"))
	require.FileExists(t, filepath.Join(out, "rss.xml"))
	require.FileExists(t, filepath.Join(out, ReportFile))

	data, err := os.ReadFile(filepath.Join(out, "pages", "articles", "1", "index.json"))
	require.NoError(t, err)
	var page struct {
		Path    string `json:"path"`
		Context struct {
			Pagination struct {
				Page         []string `json:"page"`
				NextPagePath *string  `json:"nextPagePath"`
			} `json:"pagination"`
		} `json:"context"`
	}
	require.NoError(t, json.Unmarshal(data, &page))
	require.Equal(t, "/articles/1", page.Path)
	require.Len(t, page.Context.Pagination.Page, 2)
	require.Equal(t, "/articles", *page.Context.Pagination.NextPagePath)

	data, err = os.ReadFile(filepath.Join(out, "_redirects"))
	require.NoError(t, err)
	require.Equal(t, "/old-three /post-3 301\n/older-three /post-3 301\n", string(data))
}

func TestService_EmptyBlogAbortsWithoutOutput(t *testing.T) {
	s := newSite(t)
	s.workshop(t, "Testing")

	res, err := NewService(s.cfg).Run(t.Context(), Request{})
	require.Error(t, err)
	require.ErrorIs(t, err, plan.ErrEmptyContentSet)

	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, ferrors.CategoryPlan, ce.Category())
	require.True(t, ce.IsFatal())

	require.Nil(t, res.Plan)
	require.Equal(t, OutcomeFailed, res.Report.Outcome)
	require.Equal(t, 0, res.Report.DetailPages)
	require.NoDirExists(t, s.cfg.Output.Directory)
}

func TestService_DryRunDoesNotWrite(t *testing.T) {
	s := newSite(t)
	s.post(t, "only", "2020-01-01", "")
	s.workshop(t, "Intro")

	res, err := NewService(s.cfg).Run(t.Context(), Request{DryRun: true})
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	require.Len(t, res.Plan.Pages, 3)
	require.NoDirExists(t, s.cfg.Output.Directory)
}

func TestService_SlugCollisions(t *testing.T) {
	s := newSite(t)
	s.post(t, "a", "2020-01-01", "slug: same\n")
	s.post(t, "b", "2020-01-02", "slug: same\n")
	s.workshop(t, "W")

	res, err := NewService(s.cfg).Run(t.Context(), Request{DryRun: true})
	require.NoError(t, err)
	require.Equal(t, OutcomeWarning, res.Report.Outcome)
	require.Equal(t, IssueSlugCollision, res.Report.Issues[0].Code)

	s.cfg.Build.StrictSlugs = true
	res, err = NewService(s.cfg).Run(t.Context(), Request{DryRun: true})
	require.ErrorIs(t, err, ErrSlugCollision)
	require.Equal(t, OutcomeFailed, res.Report.Outcome)
}

func TestService_Canceled(t *testing.T) {
	s := newSite(t)
	s.post(t, "a", "2020-01-01", "")
	s.workshop(t, "W")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	res, err := NewService(s.cfg).Run(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, OutcomeCanceled, res.Report.Outcome)
}

func TestService_EmitterFactoryFailure(t *testing.T) {
	s := newSite(t)
	s.post(t, "a", "2020-01-01", "")
	s.workshop(t, "W")

	svc := NewService(s.cfg).WithEmitterFactory(func(string, bool) (plan.Emitter, error) {
		return nil, os.ErrPermission
	})
	res, err := svc.Run(t.Context(), Request{})
	require.ErrorIs(t, err, os.ErrPermission)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	require.Equal(t, OutcomeFailed, res.Report.Outcome)
}

func TestService_Pipeline(t *testing.T) {
	cfg := config.Default()
	svc := NewService(cfg)
	require.Equal(t, []StageName{StageLoadContent, StageDeriveFields, StagePlan, StageEmit, StageFeed}, svc.Pipeline(Request{}).Names())
	require.Equal(t, []StageName{StageLoadContent, StageDeriveFields, StagePlan}, svc.Pipeline(Request{DryRun: true}).Names())

	off := false
	cfg.Build.Feed = &off
	require.NotContains(t, svc.Pipeline(Request{}).Names(), StageFeed)
}
