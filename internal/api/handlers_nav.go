package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/wikisync/internal/doctree"
	"github.com/dgallion1/wikisync/internal/render"
)

type navEntry struct {
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Depth    int    `json:"depth"`
	Declared bool   `json:"declared"`
	Label    string `json:"label"`
}

// handleNav returns the local navigation tree as the next pass would see it.
func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	loader := &doctree.Loader{IsDocument: render.IsSupportedExtension, Log: s.log}
	tree, site, err := loader.LoadSite(s.cfg.SiteFile)
	if err != nil {
		jsonError(w, "failed to load site: "+err.Error(), http.StatusInternalServerError)
		return
	}

	idx := doctree.NewIndex(tree)
	entries := make([]navEntry, 0, idx.Len())
	for _, e := range idx.Entries() {
		entries = append(entries, navEntry{
			Title:    e.Title,
			Kind:     e.Kind.String(),
			Depth:    e.Depth,
			Declared: e.Declared,
			Label:    idx.Label(e.Title),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"site":    site.Name,
		"root":    s.cfg.RootTitle(),
		"space":   s.cfg.SpaceKey,
		"pages":   len(tree.Pages()),
		"entries": entries,
	})
}
