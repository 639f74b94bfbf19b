package doctree

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Site is the subset of an mkdocs-style site file the sync needs.
type Site struct {
	Name    string    `yaml:"site_name"`
	DocsDir string    `yaml:"docs_dir"`
	Nav     yaml.Node `yaml:"nav"`
}

// Loader builds a Tree from a site file and its docs directory.
type Loader struct {
	// IsDocument reports whether a file under the docs dir is a syncable
	// document. Other files (images, stylesheets) are never pages.
	IsDocument func(name string) bool
	Log        *slog.Logger
}

// LoadSite reads the site file at sitePath and builds the navigation tree.
//
// Declared nav entries keep their order. Documents on disk that the nav does
// not mention are appended as top-level pages with derived titles. When the
// site file declares no nav at all, the tree mirrors the directory layout.
func (l *Loader) LoadSite(sitePath string) (*Tree, *Site, error) {
	raw, err := os.ReadFile(sitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read site file: %w", err)
	}

	var site Site
	if err := yaml.Unmarshal(raw, &site); err != nil {
		return nil, nil, fmt.Errorf("parse site file: %w", err)
	}
	if site.DocsDir == "" {
		site.DocsDir = "docs"
	}
	docsDir := site.DocsDir
	if !filepath.IsAbs(docsDir) {
		docsDir = filepath.Join(filepath.Dir(sitePath), docsDir)
	}

	tree := NewTree(docsDir)
	if site.Nav.Kind == 0 || site.Nav.Tag == "!!null" {
		if err := l.addDirectory(tree, tree.Root, ""); err != nil {
			return nil, nil, err
		}
		return tree, &site, nil
	}

	seen := make(map[string]bool)
	if err := l.addNavEntries(tree.Root, &site.Nav, seen); err != nil {
		return nil, nil, err
	}
	if err := l.addOrphans(tree, seen); err != nil {
		return nil, nil, err
	}
	return tree, &site, nil
}

func (l *Loader) addNavEntries(parent *Node, seq *yaml.Node, seen map[string]bool) error {
	if seq.Kind != yaml.SequenceNode {
		return fmt.Errorf("nav: line %d: expected a list", seq.Line)
	}
	for _, item := range seq.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			l.addNavPage(parent, "", item.Value, seen)
		case yaml.MappingNode:
			for i := 0; i+1 < len(item.Content); i += 2 {
				key, val := item.Content[i], item.Content[i+1]
				switch val.Kind {
				case yaml.ScalarNode:
					l.addNavPage(parent, key.Value, val.Value, seen)
				case yaml.SequenceNode:
					section := parent.Add(&Node{
						Kind:     KindSection,
						Title:    ResolveTitle(key.Value, key.Value, KindSection, l.Log),
						Declared: key.Value != "",
					})
					if err := l.addNavEntries(section, val, seen); err != nil {
						return err
					}
				default:
					return fmt.Errorf("nav: line %d: unsupported entry for %q", val.Line, key.Value)
				}
			}
		default:
			return fmt.Errorf("nav: line %d: unsupported entry", item.Line)
		}
	}
	return nil
}

func (l *Loader) addNavPage(parent *Node, title, target string, seen map[string]bool) {
	if isExternal(target) {
		l.Log.Debug("skipping external nav link", "title", title, "url", target)
		return
	}
	rel := filepath.ToSlash(filepath.Clean(target))
	seen[rel] = true
	parent.Add(&Node{
		Kind:     KindPage,
		Title:    ResolveTitle(title, rel, KindPage, l.Log),
		Path:     rel,
		Declared: title != "",
	})
}

func (l *Loader) addOrphans(tree *Tree, seen map[string]bool) error {
	var orphans []string
	err := filepath.WalkDir(tree.DocsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !l.isDocument(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(tree.DocsDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !seen[rel] {
			orphans = append(orphans, rel)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan docs dir: %w", err)
	}
	for _, rel := range orphans {
		tree.Root.Add(&Node{
			Kind:  KindPage,
			Title: ResolveTitle("", rel, KindPage, l.Log),
			Path:  rel,
		})
	}
	return nil
}

// addDirectory mirrors dir (relative to the docs dir) under parent: files
// first, then one section per subdirectory.
func (l *Loader) addDirectory(tree *Tree, parent *Node, dir string) error {
	entries, err := os.ReadDir(filepath.Join(tree.DocsDir, dir))
	if err != nil {
		return fmt.Errorf("read docs dir: %w", err)
	}
	var subdirs []string
	for _, e := range entries {
		rel := filepath.ToSlash(filepath.Join(dir, e.Name()))
		if e.IsDir() {
			subdirs = append(subdirs, rel)
			continue
		}
		if !l.isDocument(e.Name()) {
			continue
		}
		parent.Add(&Node{
			Kind:  KindPage,
			Title: ResolveTitle("", rel, KindPage, l.Log),
			Path:  rel,
		})
	}
	for _, rel := range subdirs {
		section := parent.Add(&Node{
			Kind:  KindSection,
			Title: ResolveTitle("", rel, KindSection, l.Log),
			Path:  rel,
		})
		if err := l.addDirectory(tree, section, rel); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) isDocument(name string) bool {
	if l.IsDocument == nil {
		ext := strings.ToLower(filepath.Ext(name))
		return ext == ".md" || ext == ".markdown"
	}
	return l.IsDocument(name)
}

func isExternal(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:")
}
