package content

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/inful/mdfp"

	cerrors "git.home.luguber.info/inful/sitebuilder/internal/content/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// nodeNamespace scopes the UUIDv5 node identifiers.
var nodeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://moonhighway.com/sitebuilder/content"))

// Source is a content root with the category every file below it belongs to.
type Source struct {
	Name     string
	Root     string
	Category Category
}

// Loader discovers and parses content files under a set of sources.
type Loader struct {
	sources []Source
}

// NewLoader creates a loader for the given sources.
func NewLoader(sources []Source) *Loader {
	return &Loader{sources: sources}
}

// Load walks every source and returns the parsed nodes. Sources are processed
// in configuration order and files in lexical path order, so repeated loads of
// an unchanged tree return nodes in the same order.
func (l *Loader) Load(ctx context.Context) ([]*Node, error) {
	var nodes []*Node
	for _, src := range l.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := os.Stat(src.Root); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (%s)", cerrors.ErrSourceNotFound, src.Name, src.Root)
		}

		found, err := l.walkSource(ctx, src)
		if err != nil {
			return nil, err
		}
		slog.Info("Content discovered", logfields.Source(src.Name), logfields.Category(src.Category.String()), slog.Int("files", len(found)))
		nodes = append(nodes, found...)
	}
	return nodes, nil
}

func (l *Loader) walkSource(ctx context.Context, src Source) ([]*Node, error) {
	var paths []string
	err := filepath.WalkDir(src.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != src.Root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsContentFile(p) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", cerrors.ErrSourceWalkFailed, src.Name, err)
	}
	sort.Strings(paths)

	nodes := make([]*Node, 0, len(paths))
	for _, p := range paths {
		node, err := parseFile(src, p)
		if err != nil {
			return nil, err
		}
		slog.Debug("Parsed content file", logfields.File(node.RelativePath), logfields.Source(src.Name), logfields.NodeID(node.ID))
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func parseFile(src Source, p string) (*Node, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", cerrors.ErrFileReadFailed, p, err)
	}

	rel, err := filepath.Rel(src.Root, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", cerrors.ErrSourceWalkFailed, p, err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}

	node, err := ParseDocument(src, filepath.ToSlash(rel), raw)
	if err != nil {
		return nil, err
	}
	node.SourcePath = abs
	return node, nil
}

// ParseDocument builds a node from raw file content. rel is the slash
// separated path relative to the source root.
func ParseDocument(src Source, rel string, raw []byte) (*Node, error) {
	fm, body, _, err := frontmatter.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", cerrors.ErrInvalidFrontmatter, src.Name, rel, err)
	}

	node := &Node{
		ID:           NodeID(src.Name, rel),
		SourceName:   src.Name,
		SourcePath:   path.Join(src.Root, rel),
		RelativePath: rel,
		Name:         nodeName(rel),
		Category:     src.Category,
		Body:         body,
	}
	if err := frontmatter.Decode(fm, &node.Frontmatter); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", cerrors.ErrInvalidFrontmatter, src.Name, rel, err)
	}

	canonical, err := frontmatter.Canonical(fm)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", cerrors.ErrInvalidFrontmatter, src.Name, rel, err)
	}
	node.Fingerprint = mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(canonical), "\n"), string(body))
	return node, nil
}

// NodeID returns the stable identifier of the file rel within source.
func NodeID(source, rel string) string {
	return uuid.NewSHA1(nodeNamespace, []byte(source+":"+rel)).String()
}

// IsContentFile reports whether p is an authored Markdown/MDX file.
func IsContentFile(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".md", ".mdx", ".markdown":
		return true
	default:
		return false
	}
}

// nodeName is the file name without extension. Files named index stand for
// their directory (content/blog/my-post/index.mdx is "my-post").
func nodeName(rel string) string {
	base := path.Base(rel)
	name := strings.TrimSuffix(base, path.Ext(base))
	if strings.EqualFold(name, "index") {
		if dir := path.Dir(rel); dir != "." {
			return path.Base(dir)
		}
	}
	return name
}
