package syncer

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/dgallion1/wikisync/internal/confluence"
	"github.com/dgallion1/wikisync/internal/doctree"
)

// Action is what happened to a unit's own page.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// Unit is the working record for one page during a pass.
type Unit struct {
	Node   *doctree.Node
	Body   string   // storage format
	Assets []string // local files referenced by Body

	// Set by Resolve.
	ParentTitle      string
	GrandparentTitle string

	// Set once the page exists remotely.
	Remote *confluence.Page
}

// Result describes the remote effect of syncing one unit.
type Result struct {
	Title            string
	Action           Action
	PageID           string
	Placeholders     []string // ancestor titles created, in creation order
	Attachments      int
	AttachmentErrors []error
}

// Options configures an Engine.
type Options struct {
	SpaceKey        string
	MainParentTitle string

	// RetryAttempts bounds creates whose parent is not yet resolvable.
	RetryAttempts int
	Backoff       Backoff
	Waiter        Waiter
}

// Engine brings one local page at a time into agreement with the remote
// tree. It is not safe for concurrent use; units are synced one after the
// other.
type Engine struct {
	gw          Gateway
	opts        Options
	attachments *Attachments
	log         *slog.Logger
}

func NewEngine(gw Gateway, opts Options, log *slog.Logger) *Engine {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 10
	}
	if opts.Backoff == nil {
		opts.Backoff = FixedBackoff(5 * time.Second)
	}
	if opts.Waiter == (Waiter{}) {
		opts.Waiter = DefaultWaiter
	}
	return &Engine{
		gw:          gw,
		opts:        opts,
		attachments: NewAttachments(gw, opts.SpaceKey, log),
		log:         log,
	}
}

// MainParent is the configured main parent title, or the space key.
func (e *Engine) MainParent() string {
	if e.opts.MainParentTitle != "" {
		return e.opts.MainParentTitle
	}
	return e.opts.SpaceKey
}

// Resolve fills in the unit's parent and grandparent titles from its local
// section ancestors, falling back to the main parent.
func (e *Engine) Resolve(u *Unit) error {
	main := e.MainParent()
	if main == "" {
		return fmt.Errorf("%w: no main parent title or space key configured", ErrRootUnresolved)
	}
	anc := u.Node.Ancestors()
	u.ParentTitle, u.GrandparentTitle = main, main
	if len(anc) > 0 {
		u.ParentTitle = anc[0]
	}
	if len(anc) > 1 {
		u.GrandparentTitle = anc[1]
	}
	return nil
}

// SyncPage creates or updates the unit's page, creating missing ancestors
// first, then uploads its attachments.
//
// An existing page whose remote parent differs from the local parent is
// never touched and yields ErrStructuralMismatch.
func (e *Engine) SyncPage(ctx context.Context, u *Unit) (Result, error) {
	res := Result{Title: u.Node.Title, Action: ActionSkipped}
	if err := e.Resolve(u); err != nil {
		return res, err
	}
	log := e.log.With("title", u.Node.Title, "parent", u.ParentTitle, "grandparent", u.GrandparentTitle)

	existing, err := e.gw.GetPageByTitle(ctx, e.opts.SpaceKey, u.Node.Title, true)
	if err != nil {
		return res, fmt.Errorf("look up page %q: %w", u.Node.Title, err)
	}

	if existing != nil {
		remoteParent, err := e.remoteParentTitle(ctx, existing)
		if err != nil {
			return res, fmt.Errorf("look up parent of %q: %w", u.Node.Title, err)
		}
		if remoteParent != u.ParentTitle {
			log.Error("parents do not match, page left untouched", "remote_parent", remoteParent)
			return res, fmt.Errorf("%w: %q is under %q remotely, %q locally", ErrStructuralMismatch, u.Node.Title, remoteParent, u.ParentTitle)
		}
		updated, err := e.gw.UpdatePage(ctx, existing, u.Body)
		if err != nil {
			return res, fmt.Errorf("update page %q: %w", u.Node.Title, err)
		}
		u.Remote = updated
		res.Action = ActionUpdated
		res.PageID = existing.ID
		log.Debug("page updated", "page_id", existing.ID, "version", updated.Version)
	} else {
		parent, placeholders, err := e.materializeAncestors(ctx, u, log)
		res.Placeholders = placeholders
		if err != nil {
			return res, err
		}
		created, err := e.createUnder(ctx, u.Node.Title, u.Body, u.ParentTitle, parent, log)
		if err != nil {
			return res, err
		}
		u.Remote = created
		res.Action = ActionCreated
		res.PageID = created.ID
		log.Debug("page created", "page_id", created.ID)
	}

	if len(u.Assets) > 0 {
		res.Attachments, res.AttachmentErrors = e.attachments.SyncAttachments(ctx, u.Node.Title, u.Assets)
	}
	return res, nil
}

// remoteParentTitle returns the title of the page's immediate remote parent.
// Ancestors are fetched separately when the lookup did not carry them.
func (e *Engine) remoteParentTitle(ctx context.Context, page *confluence.Page) (string, error) {
	if page.Ancestors != nil {
		return page.ParentTitle(), nil
	}
	anc, err := e.gw.GetAncestors(ctx, page.ID)
	if err != nil {
		return "", err
	}
	if len(anc) == 0 {
		return "", nil
	}
	return anc[len(anc)-1].Title, nil
}

// materializeAncestors makes sure the unit's parent exists remotely and
// returns it. Missing ancestors get placeholder pages: the grandparent under
// the main parent, then the parent under the grandparent.
func (e *Engine) materializeAncestors(ctx context.Context, u *Unit, log *slog.Logger) (*confluence.Page, []string, error) {
	main := e.MainParent()
	parent, err := e.lookup(ctx, u.ParentTitle)
	if err != nil {
		return nil, nil, err
	}
	if parent != nil {
		return parent, nil, nil
	}
	if u.ParentTitle == main {
		return nil, nil, e.mainParentMissing(main)
	}

	var placeholders []string
	grandTitle := u.GrandparentTitle
	if grandTitle == u.ParentTitle {
		grandTitle = main
	}
	grand, err := e.lookup(ctx, grandTitle)
	if err != nil {
		return nil, nil, err
	}
	if grand == nil {
		if grandTitle == main {
			return nil, nil, e.mainParentMissing(main)
		}
		root, err := e.lookup(ctx, main)
		if err != nil {
			return nil, nil, err
		}
		if root == nil {
			return nil, nil, e.mainParentMissing(main)
		}
		log.Info("creating placeholder", "placeholder", grandTitle, "under", main)
		grand, err = e.createPlaceholder(ctx, grandTitle, main, root, log)
		if err != nil {
			return nil, nil, err
		}
		placeholders = append(placeholders, grandTitle)
	}

	log.Info("creating placeholder", "placeholder", u.ParentTitle, "under", grandTitle)
	parent, err = e.createPlaceholder(ctx, u.ParentTitle, grandTitle, grand, log)
	if err != nil {
		return nil, placeholders, err
	}
	placeholders = append(placeholders, u.ParentTitle)
	return parent, placeholders, nil
}

func (e *Engine) mainParentMissing(main string) error {
	return fmt.Errorf("%w: %q in space %s", ErrMainParentMissing, main, e.opts.SpaceKey)
}

func (e *Engine) createPlaceholder(ctx context.Context, title, parentTitle string, parent *confluence.Page, log *slog.Logger) (*confluence.Page, error) {
	page, err := e.createUnder(ctx, title, PlaceholderBody(title), parentTitle, parent, log)
	if err != nil {
		return nil, err
	}
	placeholdersTotal.Inc()
	visible := e.opts.Waiter.WaitUntil(ctx, func(ctx context.Context) bool {
		p, err := e.lookup(ctx, title)
		return err == nil && p != nil
	})
	if !visible {
		log.Warn("placeholder not visible yet, continuing", "placeholder", title)
	}
	return page, nil
}

// createUnder creates title under parent. While the remote rejects the create
// because the parent is not resolvable yet, it backs off, looks the parent up
// again by title and retries, up to RetryAttempts times in total.
func (e *Engine) createUnder(ctx context.Context, title, body, parentTitle string, parent *confluence.Page, log *slog.Logger) (*confluence.Page, error) {
	parentID := parent.ID
	var lastErr error
	for attempt := 0; attempt < e.opts.RetryAttempts; attempt++ {
		page, err := e.gw.CreatePage(ctx, e.opts.SpaceKey, title, body, parentID)
		if err == nil {
			return page, nil
		}
		if !confluence.IsParentUnresolved(err) {
			return nil, fmt.Errorf("create page %q under %q: %w", title, parentTitle, err)
		}
		lastErr = err
		if attempt+1 == e.opts.RetryAttempts {
			break
		}
		log.Warn("parent not resolvable yet, retrying create",
			"page", title, "parent_id", parentID, "attempt", attempt+1, "max", e.opts.RetryAttempts, "error", err)
		createRetriesTotal.Inc()
		if err := sleepCtx(ctx, e.opts.Backoff(attempt)); err != nil {
			return nil, err
		}
		if p, err := e.lookup(ctx, parentTitle); err == nil && p != nil {
			parentID = p.ID
		}
	}
	return nil, fmt.Errorf("%w: create page %q under %q after %d attempts: %v",
		ErrRemoteWriteExhausted, title, parentTitle, e.opts.RetryAttempts, lastErr)
}

func (e *Engine) lookup(ctx context.Context, title string) (*confluence.Page, error) {
	p, err := e.gw.GetPageByTitle(ctx, e.opts.SpaceKey, title, false)
	if err != nil {
		return nil, fmt.Errorf("look up page %q: %w", title, err)
	}
	return p, nil
}

// PlaceholderBody is the body given to ancestor pages created only to hold
// children.
func PlaceholderBody(title string) string {
	return "<p> " + html.EscapeString(title) + " </p>"
}
