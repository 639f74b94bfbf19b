package syncer

import (
	"context"

	"github.com/dgallion1/wikisync/internal/confluence"
)

// Gateway is the remote wiki as the engine sees it. *confluence.Client
// implements it; DryRunGateway wraps one.
type Gateway interface {
	// GetPageByTitle returns nil, nil when no page has the title.
	GetPageByTitle(ctx context.Context, spaceKey, title string, expandAncestors bool) (*confluence.Page, error)
	CreatePage(ctx context.Context, spaceKey, title, body, parentID string) (*confluence.Page, error)
	UpdatePage(ctx context.Context, page *confluence.Page, body string) (*confluence.Page, error)
	UploadAttachment(ctx context.Context, pageID, filename string, data []byte, contentType string) error
	// GetAncestors returns the chain root first; the last element is the
	// immediate parent.
	GetAncestors(ctx context.Context, pageID string) ([]confluence.Ancestor, error)
}

var _ Gateway = (*confluence.Client)(nil)
