package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/wikisync/internal/confluence"
)

// DryRunGateway forwards reads to the wrapped gateway and answers every
// mutation with a synthetic success, so a pass can be previewed without
// touching the wiki. Pages "created" during the pass are kept in an overlay
// and are visible to later reads, which keeps the engine's call sequence and
// the pass report identical to a real run.
//
// One DryRunGateway serves one pass.
type DryRunGateway struct {
	next Gateway
	log  *slog.Logger

	order   []string
	created map[string]*confluence.Page // by title
	byID    map[string]*confluence.Page // every page seen or created
}

func NewDryRunGateway(next Gateway, log *slog.Logger) *DryRunGateway {
	return &DryRunGateway{
		next:    next,
		log:     log,
		created: make(map[string]*confluence.Page),
		byID:    make(map[string]*confluence.Page),
	}
}

func (g *DryRunGateway) GetPageByTitle(ctx context.Context, spaceKey, title string, expandAncestors bool) (*confluence.Page, error) {
	if p, ok := g.created[title]; ok {
		return clonePage(p, expandAncestors), nil
	}
	p, err := g.next.GetPageByTitle(ctx, spaceKey, title, expandAncestors)
	if err != nil || p == nil {
		return p, err
	}
	if known, ok := g.byID[p.ID]; !ok || known.Ancestors == nil {
		seen := *p
		g.byID[p.ID] = &seen
	}
	return p, nil
}

func (g *DryRunGateway) CreatePage(ctx context.Context, spaceKey, title, body, parentID string) (*confluence.Page, error) {
	page := &confluence.Page{
		ID:       fmt.Sprintf("dryrun-%d", len(g.order)+1),
		Title:    title,
		SpaceKey: spaceKey,
		Version:  1,
	}
	if parent, ok := g.byID[parentID]; ok {
		page.Ancestors = append(append([]confluence.Ancestor{}, parent.Ancestors...), confluence.Ancestor{ID: parent.ID, Title: parent.Title})
	} else if parentID != "" {
		page.Ancestors = []confluence.Ancestor{{ID: parentID}}
	}
	g.order = append(g.order, title)
	g.created[title] = page
	g.byID[page.ID] = page
	g.log.Info("dry run: skipped create", "title", title, "parent_id", parentID, "synthetic_id", page.ID)
	return clonePage(page, true), nil
}

func (g *DryRunGateway) UpdatePage(ctx context.Context, page *confluence.Page, body string) (*confluence.Page, error) {
	updated := clonePage(page, true)
	updated.Version++
	g.log.Info("dry run: skipped update", "title", page.Title, "page_id", page.ID, "version", updated.Version)
	return updated, nil
}

func (g *DryRunGateway) UploadAttachment(ctx context.Context, pageID, filename string, data []byte, contentType string) error {
	g.log.Info("dry run: skipped attachment upload", "page_id", pageID, "file", filename, "bytes", len(data), "content_type", contentType)
	return nil
}

func (g *DryRunGateway) GetAncestors(ctx context.Context, pageID string) ([]confluence.Ancestor, error) {
	if p, ok := g.byID[pageID]; ok && p.Ancestors != nil {
		return append([]confluence.Ancestor{}, p.Ancestors...), nil
	}
	return g.next.GetAncestors(ctx, pageID)
}

// Created returns the titles of the synthetic pages, in creation order.
func (g *DryRunGateway) Created() []string {
	return append([]string(nil), g.order...)
}

func clonePage(p *confluence.Page, withAncestors bool) *confluence.Page {
	c := *p
	c.Ancestors = nil
	if withAncestors {
		c.Ancestors = append([]confluence.Ancestor{}, p.Ancestors...)
	}
	return &c
}
