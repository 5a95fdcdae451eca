package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithCancel(t.Context())
}

func boolPtr(b bool) *bool { return &b }

func node(id string, cat Category, date string) *Node {
	return &Node{ID: id, Category: cat, Frontmatter: Frontmatter{Title: id, Date: date}}
}

func TestQuery_FiltersCategoryAndPublished(t *testing.T) {
	draft := node("draft", CategoryBlog, "2020-01-01")
	draft.Frontmatter.Published = boolPtr(false)
	explicit := node("explicit", CategoryBlog, "2019-01-01")
	explicit.Frontmatter.Published = boolPtr(true)

	nodes := []*Node{
		node("w1", CategoryWorkshop, "2021-01-01"),
		draft,
		explicit,
		node("b1", CategoryBlog, "2019-06-01"),
		node("p1", CategoryPage, ""),
	}

	seq := Query(nodes, CategoryBlog)
	require.Equal(t, []string{"b1", "explicit"}, seq.IDs())
	require.Equal(t, []string{"w1"}, Query(nodes, CategoryWorkshop).IDs())
}

func TestQuery_SortsNewestFirstStable(t *testing.T) {
	nodes := []*Node{
		node("old", CategoryBlog, "2018-01-01"),
		node("undated-a", CategoryBlog, ""),
		node("new", CategoryBlog, "2020-05-01 10:00"),
		node("tie-a", CategoryBlog, "2019-01-01"),
		node("undated-b", CategoryBlog, "someday"),
		node("tie-b", CategoryBlog, "2019-01-01"),
	}

	seq := Query(nodes, CategoryBlog)
	require.Equal(t, []string{"new", "tie-a", "tie-b", "old", "undated-a", "undated-b"}, seq.IDs())
}

func TestQuery_Empty(t *testing.T) {
	seq := Query(nil, CategoryBlog)
	require.True(t, seq.Empty())
	require.Zero(t, seq.Len())
}

func TestNewSequence_KeepsOrderAndCopies(t *testing.T) {
	a, b := node("a", CategoryBlog, ""), node("b", CategoryBlog, "")
	in := []*Node{b, a}
	seq := NewSequence(in)
	in[0] = a

	require.Equal(t, []string{"b", "a"}, seq.IDs())
	require.Same(t, b, seq.At(0))
	out := seq.Nodes()
	out[0] = a
	require.Same(t, b, seq.At(0))
}

func TestParseDate(t *testing.T) {
	cases := map[string]bool{
		"2019-02-11":           true,
		"2019-02-11 10:00":     true,
		"2019-02-11T10:00:00Z": true,
		"2019-02-11 10:00 PST": true,
		"":                     false,
		"next spring":          false,
	}
	for in, ok := range cases {
		_, got := ParseDate(in)
		require.Equal(t, ok, got, in)
	}
}

func TestCollection_QueriesByCategory(t *testing.T) {
	ctx, cancel := testContext(t)
	defer cancel()

	c := NewCollection([]*Node{
		node("old", CategoryBlog, "2018-01-01"),
		node("w", CategoryWorkshop, "2020-01-01"),
		node("new", CategoryBlog, "2019-01-01"),
		node("about", CategoryPage, ""),
	})

	blog, err := c.Blog(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"new", "old"}, blog.IDs())

	workshops, err := c.Workshops(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"w"}, workshops.IDs())
	require.Equal(t, []string{"about"}, c.Pages().IDs())

	cancel()
	_, err = c.Blog(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
