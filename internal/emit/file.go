package emit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitebuilder/internal/plan"
)

const (
	pagesDir          = "pages"
	pageFile          = "index.json"
	redirectsFile     = "_redirects"
	redirectsJSONFile = "redirects.json"
)

// ErrUnsafePath is returned for routes that would escape the output directory.
var ErrUnsafePath = errors.New("unsafe route path")

// FileEmitter writes the plan under a root directory:
//
//	<root>/
//	  pages/
//	    articles/index.json      (one descriptor per route)
//	    workshops/react/index.json
//	  _redirects                 (from to 301, one per line)
//	  redirects.json
//
// Redirects are buffered until Flush so both tables are written whole.
type FileEmitter struct {
	root string

	mu        sync.Mutex
	redirects []plan.Redirect
	pages     int
}

// NewFileEmitter creates the output directory. With clean set, previously
// emitted pages and redirect tables are removed first; other files under
// root are left alone.
func NewFileEmitter(root string, clean bool) (*FileEmitter, error) {
	if clean {
		for _, name := range []string{pagesDir, redirectsFile, redirectsJSONFile} {
			if err := os.RemoveAll(filepath.Join(root, name)); err != nil {
				return nil, fmt.Errorf("clean %s: %w", name, err)
			}
		}
	}
	if err := os.MkdirAll(filepath.Join(root, pagesDir), 0o750); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", root, err)
	}
	return &FileEmitter{root: root}, nil
}

// Root returns the output directory.
func (e *FileEmitter) Root() string { return e.root }

// CreatePage writes the page descriptor to pages/<route>/index.json.
func (e *FileEmitter) CreatePage(ctx context.Context, page plan.Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := e.PageFile(page.Path)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal page %s: %w", page.Path, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create page directory: %w", err)
	}
	if err := writeFileAtomic(target, append(data, '\n')); err != nil {
		return fmt.Errorf("write page %s: %w", page.Path, err)
	}
	e.pages++
	return nil
}

// CreateRedirect records r for the redirect tables written by Flush.
func (e *FileEmitter) CreateRedirect(ctx context.Context, r plan.Redirect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := routeSegments(r.FromPath); err != nil {
		return err
	}
	e.mu.Lock()
	e.redirects = append(e.redirects, r)
	e.mu.Unlock()
	return nil
}

// Flush writes _redirects and redirects.json. Both files are always written,
// empty when the plan had no redirects.
func (e *FileEmitter) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var b strings.Builder
	for _, r := range e.redirects {
		status := 302
		if r.IsPermanent {
			status = 301
		}
		fmt.Fprintf(&b, "%s %s %d\n", r.FromPath, r.ToPath, status)
	}
	if err := writeFileAtomic(filepath.Join(e.root, redirectsFile), []byte(b.String())); err != nil {
		return fmt.Errorf("write %s: %w", redirectsFile, err)
	}

	table := e.redirects
	if table == nil {
		table = []plan.Redirect{}
	}
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal redirects: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(e.root, redirectsJSONFile), append(data, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", redirectsJSONFile, err)
	}
	return nil
}

// Stats returns the number of pages written and redirects recorded.
func (e *FileEmitter) Stats() (pages, redirects int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pages, len(e.redirects)
}

// PageFile maps a route to its descriptor file.
func (e *FileEmitter) PageFile(route string) (string, error) {
	segs, err := routeSegments(route)
	if err != nil {
		return "", err
	}
	parts := append([]string{e.root, pagesDir}, segs...)
	return filepath.Join(append(parts, pageFile)...), nil
}

func routeSegments(route string) ([]string, error) {
	if !strings.HasPrefix(route, "/") {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrUnsafePath, route)
	}
	var segs []string
	for _, s := range strings.Split(route, "/") {
		switch s {
		case "", ".":
			continue
		case "..":
			return nil, fmt.Errorf("%w: %q", ErrUnsafePath, route)
		}
		if strings.ContainsAny(s, "\\\x00") {
			return nil, fmt.Errorf("%w: %q", ErrUnsafePath, route)
		}
		segs = append(segs, s)
	}
	return segs, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
