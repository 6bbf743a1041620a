package app

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

//go:embed docs/*.md
var docsFS embed.FS

//go:embed templates/docs.html
var docsTemplateFS embed.FS

// DocPage represents a parsed documentation page
type DocPage struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`
	Slug        string `yaml:"-"`
	Content     template.HTML
}

// DocsData holds template data for docs pages
type DocsData struct {
	Title       string
	Description string
	Content     template.HTML
	CurrentPath string
	Version     string
	Nav         []*DocPage
}

// DocsManager renders the embedded markdown docs once and serves them.
type DocsManager struct {
	pages   map[string]*DocPage
	nav     []*DocPage
	tmpl    *template.Template
	md      goldmark.Markdown
	version string
}

// NewDocsManager parses the template and every embedded page.
func NewDocsManager(version string) (*DocsManager, error) {
	dm := &DocsManager{
		pages:   make(map[string]*DocPage),
		version: version,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Table),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}

	var err error
	dm.tmpl, err = template.ParseFS(docsTemplateFS, "templates/docs.html")
	if err != nil {
		return nil, err
	}
	if err := dm.loadDocs(); err != nil {
		return nil, err
	}
	return dm, nil
}

// loadDocs parses docs/*.md. docs/index.md maps to /docs/, docs/x.md to /docs/x.
func (dm *DocsManager) loadDocs() error {
	err := fs.WalkDir(docsFS, "docs", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".md" {
			return nil
		}
		content, err := docsFS.ReadFile(p)
		if err != nil {
			return err
		}
		page, err := dm.parsePage(content)
		if err != nil {
			return err
		}

		slug := strings.TrimSuffix(strings.TrimPrefix(p, "docs/"), ".md")
		if slug == "index" {
			slug = ""
		}
		page.Slug = "/docs/" + slug
		dm.pages[page.Slug] = page
		dm.nav = append(dm.nav, page)
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(dm.nav, func(i, j int) bool {
		if dm.nav[i].Order != dm.nav[j].Order {
			return dm.nav[i].Order < dm.nav[j].Order
		}
		return dm.nav[i].Slug < dm.nav[j].Slug
	})
	return nil
}

// parsePage extracts frontmatter and renders markdown
func (dm *DocsManager) parsePage(content []byte) (*DocPage, error) {
	page := &DocPage{}

	if bytes.HasPrefix(content, []byte("---\n")) {
		parts := bytes.SplitN(content[4:], []byte("\n---\n"), 2)
		if len(parts) == 2 {
			if err := yaml.Unmarshal(parts[0], page); err != nil {
				return nil, err
			}
			content = parts[1]
		}
	}

	var buf bytes.Buffer
	if err := dm.md.Convert(content, &buf); err != nil {
		return nil, err
	}
	page.Content = template.HTML(buf.String())
	return page, nil
}

// ServeDocs handles documentation pages at /docs/*
func (dm *DocsManager) ServeDocs(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	if p == "/docs" {
		http.Redirect(w, r, "/docs/", http.StatusMovedPermanently)
		return
	}
	if p != "/docs/" {
		p = strings.TrimSuffix(p, "/")
	}

	page, ok := dm.pages[p]
	if !ok {
		http.NotFound(w, r)
		return
	}

	data := DocsData{
		Title:       page.Title,
		Description: page.Description,
		Content:     page.Content,
		CurrentPath: p,
		Version:     dm.version,
		Nav:         dm.nav,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dm.tmpl.ExecuteTemplate(w, "docs", data); err != nil {
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}
