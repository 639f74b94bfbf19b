package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/wikisync/internal/confluence"
	"github.com/dgallion1/wikisync/internal/doctree"
)

type call struct {
	Op       string
	Title    string
	ParentID string
}

func (c call) String() string {
	if c.ParentID != "" {
		return fmt.Sprintf("%s(%s, parent=%s)", c.Op, c.Title, c.ParentID)
	}
	return fmt.Sprintf("%s(%s)", c.Op, c.Title)
}

// fakeGateway is an in-memory wiki that records every call. Created pages
// are visible immediately.
type fakeGateway struct {
	pages  map[string]*confluence.Page
	byID   map[string]*confluence.Page
	bodies map[string]string
	calls  []call
	nextID int

	createErrs map[string][]error // popped in order before a create succeeds
	uploadErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pages:      make(map[string]*confluence.Page),
		byID:       make(map[string]*confluence.Page),
		bodies:     make(map[string]string),
		createErrs: make(map[string][]error),
	}
}

// addPage seeds a page under parentTitle ("" for the space root).
func (f *fakeGateway) addPage(title, parentTitle string) *confluence.Page {
	var parentID string
	if parentTitle != "" {
		parentID = f.pages[parentTitle].ID
	}
	return f.insert(title, parentID, "")
}

func (f *fakeGateway) insert(title, parentID, body string) *confluence.Page {
	f.nextID++
	p := &confluence.Page{ID: fmt.Sprintf("id-%d", f.nextID), Title: title, SpaceKey: "DOCS", Version: 1}
	if parent, ok := f.byID[parentID]; ok {
		p.Ancestors = append(append([]confluence.Ancestor{}, parent.Ancestors...), confluence.Ancestor{ID: parent.ID, Title: parent.Title})
	}
	f.pages[title] = p
	f.byID[p.ID] = p
	f.bodies[title] = body
	return p
}

func (f *fakeGateway) GetPageByTitle(ctx context.Context, spaceKey, title string, expandAncestors bool) (*confluence.Page, error) {
	f.calls = append(f.calls, call{Op: "get", Title: title})
	p, ok := f.pages[title]
	if !ok {
		return nil, nil
	}
	c := *p
	c.Ancestors = nil
	if expandAncestors {
		c.Ancestors = append([]confluence.Ancestor{}, p.Ancestors...)
	}
	return &c, nil
}

func (f *fakeGateway) CreatePage(ctx context.Context, spaceKey, title, body, parentID string) (*confluence.Page, error) {
	f.calls = append(f.calls, call{Op: "create", Title: title, ParentID: parentID})
	if errs := f.createErrs[title]; len(errs) > 0 {
		f.createErrs[title] = errs[1:]
		return nil, errs[0]
	}
	if _, ok := f.byID[parentID]; parentID != "" && !ok {
		return nil, &confluence.APIError{Op: "create_page", StatusCode: http.StatusNotFound}
	}
	p := f.insert(title, parentID, body)
	c := *p
	return &c, nil
}

func (f *fakeGateway) UpdatePage(ctx context.Context, page *confluence.Page, body string) (*confluence.Page, error) {
	f.calls = append(f.calls, call{Op: "update", Title: page.Title})
	p := f.byID[page.ID]
	p.Version++
	f.bodies[p.Title] = body
	c := *p
	return &c, nil
}

func (f *fakeGateway) UploadAttachment(ctx context.Context, pageID, filename string, data []byte, contentType string) error {
	f.calls = append(f.calls, call{Op: "upload", Title: filename + " " + contentType, ParentID: pageID})
	return f.uploadErr
}

func (f *fakeGateway) GetAncestors(ctx context.Context, pageID string) ([]confluence.Ancestor, error) {
	f.calls = append(f.calls, call{Op: "ancestors", Title: pageID})
	p, ok := f.byID[pageID]
	if !ok {
		return nil, &confluence.APIError{Op: "get_ancestors", StatusCode: http.StatusNotFound}
	}
	return append([]confluence.Ancestor{}, p.Ancestors...), nil
}

func (f *fakeGateway) count(op string) int {
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *fakeGateway) mutations() []call {
	var out []call
	for _, c := range f.calls {
		if c.Op == "create" || c.Op == "update" || c.Op == "upload" {
			out = append(out, c)
		}
	}
	return out
}

// tracer records the ops and titles an engine issues, whatever the gateway
// behind it does.
type tracer struct {
	next  Gateway
	trace []string
}

func (t *tracer) GetPageByTitle(ctx context.Context, spaceKey, title string, expandAncestors bool) (*confluence.Page, error) {
	t.trace = append(t.trace, "get "+title)
	return t.next.GetPageByTitle(ctx, spaceKey, title, expandAncestors)
}

func (t *tracer) CreatePage(ctx context.Context, spaceKey, title, body, parentID string) (*confluence.Page, error) {
	t.trace = append(t.trace, "create "+title)
	return t.next.CreatePage(ctx, spaceKey, title, body, parentID)
}

func (t *tracer) UpdatePage(ctx context.Context, page *confluence.Page, body string) (*confluence.Page, error) {
	t.trace = append(t.trace, "update "+page.Title)
	return t.next.UpdatePage(ctx, page, body)
}

func (t *tracer) UploadAttachment(ctx context.Context, pageID, filename string, data []byte, contentType string) error {
	t.trace = append(t.trace, "upload "+filename)
	return t.next.UploadAttachment(ctx, pageID, filename, data, contentType)
}

func (t *tracer) GetAncestors(ctx context.Context, pageID string) ([]confluence.Ancestor, error) {
	t.trace = append(t.trace, "ancestors")
	return t.next.GetAncestors(ctx, pageID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		SpaceKey:      "DOCS",
		RetryAttempts: 10,
		Backoff:       FixedBackoff(0),
		Waiter:        Waiter{Interval: time.Millisecond, Timeout: 5 * time.Millisecond},
	}
}

func newTestEngine(gw Gateway, opts Options) *Engine {
	return NewEngine(gw, opts, discardLogger())
}

// buildTree makes a tree from "Section/Section/Page" paths. Missing sections
// are created on the way, in order of first mention.
func buildTree(paths ...string) *doctree.Tree {
	tree := doctree.NewTree("/docs")
	for _, p := range paths {
		parts := strings.Split(p, "/")
		parent := tree.Root
		for _, section := range parts[:len(parts)-1] {
			var found *doctree.Node
			for _, c := range parent.Children {
				if c.Kind == doctree.KindSection && c.Title == section {
					found = c
				}
			}
			if found == nil {
				found = parent.Add(&doctree.Node{Kind: doctree.KindSection, Title: section, Declared: true})
			}
			parent = found
		}
		title := parts[len(parts)-1]
		parent.Add(&doctree.Node{Kind: doctree.KindPage, Title: title, Path: strings.ToLower(title) + ".md", Declared: true})
	}
	return tree
}

func unitsFor(tree *doctree.Tree) []*Unit {
	var units []*Unit
	for _, n := range tree.Pages() {
		units = append(units, &Unit{Node: n, Body: "<p>" + n.Title + " body</p>"})
	}
	return units
}

func pageNode(tree *doctree.Tree, title string) *doctree.Node {
	for _, n := range tree.Pages() {
		if n.Title == title {
			return n
		}
	}
	return nil
}
