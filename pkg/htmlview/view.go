// Package htmlview adapts rendered HTML pages to collector.View so scroll-based
// platforms can be scanned from saved snapshots or from a rendering endpoint.
// Each Advance moves to the next page; once the pages run out the last one is
// served again, which the collector sees as a stall.
package htmlview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"followscan/pkg/collector"
	"followscan/pkg/models"
	"followscan/pkg/upstream"

	"github.com/PuerkitoBio/goquery"
)

// Source loads the page shown after pass scroll passes
type Source interface {
	Document(ctx context.Context, pass int) (*goquery.Document, error)
	Len() int
}

// ParseFunc extracts candidates from one rendered page
type ParseFunc func(doc *goquery.Document) []models.BasicUserInfo

// View is a collector.View over a Source
type View struct {
	source Source
	parse  ParseFunc
	pass   int
}

var _ collector.View = (*View)(nil)

// New creates a view reading source with parse
func New(source Source, parse ParseFunc) *View {
	return &View{source: source, parse: parse}
}

// Extract implements collector.View
func (v *View) Extract(ctx context.Context) ([]models.BasicUserInfo, error) {
	pass := v.pass
	if n := v.source.Len(); n > 0 && pass >= n {
		pass = n - 1
	}
	doc, err := v.source.Document(ctx, pass)
	if err != nil {
		return nil, err
	}
	return v.parse(doc), nil
}

// Advance implements collector.View
func (v *View) Advance(ctx context.Context) error {
	v.pass++
	return ctx.Err()
}

// FileSource serves HTML files in order
type FileSource struct {
	paths []string
}

// NewFileSource serves the given files in order
func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

// NewDirSource serves every .html/.htm file of dir in name order
func NewDirSource(dir string) (*FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".html" || ext == ".htm") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no html snapshots in %s", dir)
	}
	sort.Strings(paths)
	return &FileSource{paths: paths}, nil
}

func (s *FileSource) Len() int { return len(s.paths) }

// Document implements Source
func (s *FileSource) Document(ctx context.Context, pass int) (*goquery.Document, error) {
	if pass < 0 || pass >= len(s.paths) {
		return nil, fmt.Errorf("no snapshot for pass %d", pass)
	}
	f, err := os.Open(s.paths[pass])
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", s.paths[pass], err)
	}
	return doc, nil
}

// URLSource fetches one URL per pass
type URLSource struct {
	client *upstream.Client
	urls   []string
}

// NewURLSource fetches urls in order through client
func NewURLSource(client *upstream.Client, urls ...string) *URLSource {
	return &URLSource{client: client, urls: urls}
}

func (s *URLSource) Len() int { return len(s.urls) }

// Document implements Source
func (s *URLSource) Document(ctx context.Context, pass int) (*goquery.Document, error) {
	if pass < 0 || pass >= len(s.urls) {
		return nil, fmt.Errorf("no page for pass %d", pass)
	}
	return s.client.GetDocument(ctx, s.urls[pass])
}
