// Package feed renders the RSS feed of blog posts.
package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
)

// excerptRunes bounds the body excerpt used for posts without a description.
const excerptRunes = 280

// ErrNoSiteURL is returned when item links cannot be made absolute.
var ErrNoSiteURL = errors.New("feed requires a site url")

// Options describe the channel.
type Options struct {
	Title       string
	SiteURL     string
	Description string
	Author      string
}

// Build creates the feed from seq, keeping its order. The channel date is the
// newest item date so identical content yields an identical feed.
func Build(seq content.Sequence, opts Options) (*feeds.Feed, error) {
	base := strings.TrimSuffix(opts.SiteURL, "/")
	if base == "" {
		return nil, ErrNoSiteURL
	}

	f := &feeds.Feed{
		Title:       opts.Title,
		Link:        &feeds.Link{Href: base + "/"},
		Description: opts.Description,
	}
	if opts.Author != "" {
		f.Author = &feeds.Author{Name: opts.Author}
	}

	for i := range seq.Len() {
		n := seq.At(i)
		created, _ := content.ParseDate(n.Fields.Date)
		if created.After(f.Created) {
			f.Created = created
		}

		desc := n.Fields.PlainTextDescription
		if desc == "" {
			desc = n.Fields.Description
		}
		if desc == "" {
			desc = markdown.Excerpt(n.Body, excerptRunes)
		}
		link := base + n.Fields.Slug
		item := &feeds.Item{
			Id:          link,
			Title:       n.Fields.Title,
			Link:        &feeds.Link{Href: link},
			Description: desc,
			Created:     created,
		}
		if n.Fields.Author != "" {
			item.Author = &feeds.Author{Name: n.Fields.Author}
		}
		f.Items = append(f.Items, item)
	}
	if f.Created.IsZero() {
		f.Created = time.Unix(0, 0).UTC()
	}
	return f, nil
}

// Render returns the RSS document for seq.
func Render(seq content.Sequence, opts Options) (string, error) {
	f, err := Build(seq, opts)
	if err != nil {
		return "", err
	}
	rss, err := f.ToRss()
	if err != nil {
		return "", fmt.Errorf("render rss: %w", err)
	}
	return rss, nil
}

// Write renders the feed to path, creating parent directories.
func Write(path string, seq content.Sequence, opts Options) error {
	rss, err := Render(seq, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create feed directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(rss), 0o644); err != nil { //nolint:gosec // public site artifact
		return fmt.Errorf("write feed: %w", err)
	}
	return nil
}
