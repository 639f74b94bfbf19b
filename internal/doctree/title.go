package doctree

import (
	"log/slog"
	"path"
	"path/filepath"
	"strings"
)

// ResolveTitle returns the explicit title when one is declared. Otherwise it
// derives one from the last path segment (extension stripped for pages) and
// logs a warning: such a node is synced but not reachable from the declared
// navigation.
func ResolveTitle(explicit, relPath string, kind Kind, log *slog.Logger) string {
	if explicit != "" {
		return explicit
	}

	title := DeriveTitle(relPath, kind)
	log.Warn("no entry in the declared navigation, using title derived from path",
		"kind", kind.String(),
		"path", relPath,
		"title", title,
	)
	return title
}

// DeriveTitle builds a title from a relative path.
func DeriveTitle(relPath string, kind Kind) string {
	p := strings.TrimRight(filepath.ToSlash(relPath), "/")
	name := path.Base(p)
	if kind == KindPage {
		name = strings.TrimSuffix(name, path.Ext(name))
	}
	if name == "" || name == "." || name == "/" {
		name = "untitled"
	}
	return name
}
