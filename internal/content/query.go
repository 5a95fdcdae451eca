package content

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Sequence is an ordered, read-only list of nodes. Planning trusts its order;
// it is built either by Query (date descending) or NewSequence (caller order).
type Sequence struct {
	nodes []*Node
}

// NewSequence wraps nodes that are already in the desired order.
func NewSequence(nodes []*Node) Sequence {
	return Sequence{nodes: append([]*Node(nil), nodes...)}
}

// Len returns the number of nodes.
func (s Sequence) Len() int { return len(s.nodes) }

// At returns the node at index i.
func (s Sequence) At(i int) *Node { return s.nodes[i] }

// Empty reports whether the sequence holds no nodes.
func (s Sequence) Empty() bool { return len(s.nodes) == 0 }

// Nodes returns a copy of the ordered nodes.
func (s Sequence) Nodes() []*Node { return append([]*Node(nil), s.nodes...) }

// IDs returns the node ids in order.
func (s Sequence) IDs() []string {
	ids := make([]string, len(s.nodes))
	for i, n := range s.nodes {
		ids[i] = n.ID
	}
	return ids
}

// Query selects the published nodes of one category, newest first. Nodes
// without a parseable date sort after dated ones; ties keep input order.
func Query(nodes []*Node, category Category) Sequence {
	selected := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Category == category && n.Frontmatter.IsPublished() {
			selected = append(selected, n)
		}
	}

	keys := make(map[*Node]time.Time, len(selected))
	for _, n := range selected {
		if t, ok := ParseDate(n.Frontmatter.Date); ok {
			keys[n] = t
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		ti, iok := keys[selected[i]]
		tj, jok := keys[selected[j]]
		switch {
		case iok && jok:
			return ti.After(tj)
		case iok != jok:
			return iok
		default:
			return false
		}
	})
	return Sequence{nodes: selected}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// ParseDate parses the date formats authors use in frontmatter.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Fall back to the leading date token ("2019-02-11 10:00 PST").
	if first, _, ok := strings.Cut(s, " "); ok {
		if t, err := time.Parse("2006-01-02", first); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Collection answers the planner's queries from an in-memory node set.
type Collection struct {
	nodes []*Node
}

// NewCollection wraps the loaded nodes.
func NewCollection(nodes []*Node) *Collection {
	return &Collection{nodes: nodes}
}

// Blog returns the published blog posts, newest first.
func (c *Collection) Blog(ctx context.Context) (Sequence, error) {
	if err := ctx.Err(); err != nil {
		return Sequence{}, err
	}
	return Query(c.nodes, CategoryBlog), nil
}

// Workshops returns the published workshops, newest first.
func (c *Collection) Workshops(ctx context.Context) (Sequence, error) {
	if err := ctx.Err(); err != nil {
		return Sequence{}, err
	}
	return Query(c.nodes, CategoryWorkshop), nil
}

// Pages returns the published generic pages.
func (c *Collection) Pages() Sequence {
	return Query(c.nodes, CategoryPage)
}
