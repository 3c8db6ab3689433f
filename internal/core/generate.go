package core

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"
)

// TemplateManifest maps generation categories to file patterns, read from
// templates/<name>.toml. A missing manifest falls back to the built-in
// categories.
type TemplateManifest struct {
	Name       string              `toml:"name"`
	Categories map[string][]string `toml:"categories"`
}

// defaultCategories covers the conventional layout of a generated repo.
func defaultCategories() map[string][]string {
	return map[string][]string{
		"basis":    {"go.mod", "README.md", "LICENSE", "CONTRIBUTING.md"},
		"docs":     {"docs/**"},
		"ci":       {".github/**"},
		"tests":    {"tests/**"},
		"examples": {"examples/**"},
		"scripts":  {"scripts/**"},
		"plan":     {"plan/**"},
	}
}

// Generator expands template categories into concrete files and renders
// them into an output directory.
type Generator interface {
	// Expand resolves a category (or "all") to the matching repo-relative
	// paths, sorted and deduplicated.
	Expand(templateName, category string) ([]string, error)
	// Render copies the given repo-relative paths into outDir, running
	// path and content through text/template with vars. Existing files are
	// skipped unless force is set. Returns the paths written.
	Render(paths []string, outDir string, vars map[string]string, force bool) ([]string, error)
}

type fileGenerator struct {
	repoRoot string
}

func NewGenerator(repoRoot string) Generator {
	return &fileGenerator{repoRoot: repoRoot}
}

// loadTemplateManifest reads templates/<name>.toml; nil when absent.
func (g *fileGenerator) loadTemplateManifest(name string) (*TemplateManifest, error) {
	path := filepath.Join(g.repoRoot, "templates", name+".toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m TemplateManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

func (g *fileGenerator) Expand(templateName, category string) ([]string, error) {
	categories := defaultCategories()
	if m, err := g.loadTemplateManifest(templateName); err != nil {
		return nil, err
	} else if m != nil && len(m.Categories) > 0 {
		categories = m.Categories
	}

	var patterns []string
	if category == "all" {
		for _, pats := range categories {
			patterns = append(patterns, pats...)
		}
	} else {
		pats, ok := categories[category]
		if !ok {
			names := make([]string, 0, len(categories))
			for n := range categories {
				names = append(names, n)
			}
			sort.Strings(names)
			return nil, userErrf("unknown category %q, expected one of: all, %s", category, strings.Join(names, ", "))
		}
		patterns = pats
	}

	seen := map[string]bool{}
	var paths []string
	for _, pat := range patterns {
		matches, err := g.expandPattern(pat)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// expandPattern resolves one pattern. A trailing "/**" walks the named
// directory recursively; anything else goes through filepath.Glob. .git is
// always skipped.
func (g *fileGenerator) expandPattern(pat string) ([]string, error) {
	var paths []string
	if dir, ok := strings.CutSuffix(pat, "/**"); ok {
		root := filepath.Join(g.repoRoot, dir)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			rel, err := filepath.Rel(g.repoRoot, path)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
		return paths, nil
	}

	matches, err := filepath.Glob(filepath.Join(g.repoRoot, pat))
	if err != nil {
		return nil, fmt.Errorf("globbing %q: %w", pat, err)
	}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(g.repoRoot, m)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(rel, ".git"+string(filepath.Separator)) {
			continue
		}
		paths = append(paths, filepath.ToSlash(rel))
	}
	return paths, nil
}

func (g *fileGenerator) Render(paths []string, outDir string, vars map[string]string, force bool) ([]string, error) {
	var written []string
	for _, rel := range paths {
		src := filepath.Join(g.repoRoot, rel)
		data, err := os.ReadFile(src)
		if err != nil {
			return written, fmt.Errorf("reading %s: %w", src, err)
		}

		destRel, err := renderString(rel, vars)
		if err != nil {
			return written, fmt.Errorf("rendering path %q: %w", rel, err)
		}
		content, err := renderBytes(data, vars)
		if err != nil {
			// Binary or non-template content is copied verbatim.
			content = data
		}

		dest := filepath.Join(outDir, filepath.FromSlash(destRel))
		if _, err := os.Stat(dest); err == nil && !force {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return written, err
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", dest, err)
		}
		written = append(written, destRel)
	}
	return written, nil
}

func renderString(s string, vars map[string]string) (string, error) {
	out, err := renderBytes([]byte(s), vars)
	return string(out), err
}

func renderBytes(data []byte, vars map[string]string) ([]byte, error) {
	if !bytes.Contains(data, []byte("{{")) {
		return data, nil
	}
	tpl, err := template.New("gen").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, vars); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
