package search

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/timmy/chanindex/internal/execx"
)

// excludedExt are the shared UI assets served once for all channels.
var excludedExt = map[string]bool{".js": true, ".css": true}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Language}}">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<main data-pagefind-body>
<h1 data-pagefind-meta="title">{{.Title}}</h1>
<span data-pagefind-sort="date:{{.Date}}" hidden></span>
<p>{{.Content}}</p>
</main>
</body>
</html>
`))

// PagefindBuilder renders one HTML page per record under a temporary site
// and runs the pagefind CLI over it. Each record is indexed at URL /{id}/.
type PagefindBuilder struct {
	path    string
	workDir string
	runner  execx.Runner
}

// NewPagefindBuilder creates a builder. Empty path means "pagefind" on PATH;
// a nil runner runs the real binary.
func NewPagefindBuilder(path, workDir string, runner execx.Runner) *PagefindBuilder {
	if path == "" {
		path = "pagefind"
	}
	if runner == nil {
		runner = execx.ExecRunner{}
	}
	return &PagefindBuilder{path: path, workDir: workDir, runner: runner}
}

func (b *PagefindBuilder) Build(ctx context.Context, records []Record, outDir string) ([]string, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to index")
	}

	site, err := os.MkdirTemp(b.workDir, "pagefind-site-*")
	if err != nil {
		return nil, fmt.Errorf("create site dir: %w", err)
	}
	defer os.RemoveAll(site)

	for _, rec := range records {
		if err := writePage(site, rec); err != nil {
			return nil, err
		}
	}

	if err := os.RemoveAll(outDir); err != nil {
		return nil, fmt.Errorf("clear %s: %w", outDir, err)
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, err
	}
	if _, err := b.runner.Run(ctx, "", b.path, "--site", site, "--output-path", absOut); err != nil {
		return nil, fmt.Errorf("build search bundle: %w", err)
	}

	files, err := collectBundle(absOut)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("build search bundle: no files written to %s", outDir)
	}
	return files, nil
}

func writePage(site string, rec Record) error {
	if rec.ID == "" || strings.ContainsAny(rec.ID, `/\`) || rec.ID == "." || rec.ID == ".." {
		return fmt.Errorf("invalid record id %q", rec.ID)
	}
	if rec.Language == "" {
		rec.Language = "en"
	}
	dir := filepath.Join(site, rec.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create page dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "index.html"))
	if err != nil {
		return fmt.Errorf("create page for %s: %w", rec.ID, err)
	}
	err = pageTemplate.Execute(f, rec)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("render page for %s: %w", rec.ID, err)
	}
	return nil
}

// collectBundle removes shared assets from dir and lists the remaining files.
func collectBundle(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if excludedExt[strings.ToLower(filepath.Ext(path))] {
			return os.Remove(path)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect search bundle: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
