// Package content indexes the markdown collections of a local content
// checkout for the newsletter aggregator. It walks a collection
// directory recursively, splits each document's frontmatter, and skips
// drafts; date filtering belongs to the callers because project
// documents may carry dates on activity entries instead.
package content

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tendfield/garden/internal/frontmatter"
)

// Document is one indexed markdown file of a collection.
type Document struct {
	Collection  string
	Slug        string // path relative to the collection dir, no extension
	Frontmatter string
	Body        string
}

// Walk lists all .md files under dir recursively, sorted by path.
// A missing directory yields no files and no error.
func Walk(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	paths := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads every non-draft document of a collection under root.
func Load(root, collection string) ([]Document, error) {
	dir := filepath.Join(root, collection)
	paths, err := Walk(dir)
	if err != nil {
		return nil, err
	}

	docs := []Document{}
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		fm, body := frontmatter.Split(string(raw))
		if frontmatter.Bool(fm, "draft") {
			continue
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil, err
		}
		slug := strings.TrimSuffix(filepath.ToSlash(rel), ".md")

		docs = append(docs, Document{
			Collection:  collection,
			Slug:        slug,
			Frontmatter: fm,
			Body:        body,
		})
	}
	return docs, nil
}
