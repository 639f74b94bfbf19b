package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
)

const defaultContentType = "application/octet-stream"

// Attachments uploads the local assets a page references as attachments of
// that page. Everything here is best effort: failures are returned per asset
// and never block the page itself.
type Attachments struct {
	gw       Gateway
	spaceKey string
	log      *slog.Logger
	readFile func(string) ([]byte, error)
}

func NewAttachments(gw Gateway, spaceKey string, log *slog.Logger) *Attachments {
	return &Attachments{gw: gw, spaceKey: spaceKey, log: log, readFile: os.ReadFile}
}

// SyncAttachments uploads each path to the page titled pageTitle. It returns
// the number of uploads that succeeded and one error per failed asset. A page
// that cannot be found is skipped with a warning.
func (a *Attachments) SyncAttachments(ctx context.Context, pageTitle string, paths []string) (int, []error) {
	log := a.log.With("title", pageTitle)
	uploaded := 0
	var errs []error
	for _, path := range paths {
		page, err := a.gw.GetPageByTitle(ctx, a.spaceKey, pageTitle, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: look up page: %v", ErrAttachmentUploadFailed, filepath.Base(path), err))
			attachmentsTotal.WithLabelValues("failed").Inc()
			continue
		}
		if page == nil {
			log.Warn("page not found, skipping attachment", "file", path)
			attachmentsTotal.WithLabelValues("skipped").Inc()
			continue
		}

		data, err := a.readFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrAttachmentUploadFailed, filepath.Base(path), err))
			attachmentsTotal.WithLabelValues("failed").Inc()
			continue
		}
		if err := a.gw.UploadAttachment(ctx, page.ID, filepath.Base(path), data, ContentType(path)); err != nil {
			log.Error("attachment upload failed", "file", path, "error", err)
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrAttachmentUploadFailed, filepath.Base(path), err))
			attachmentsTotal.WithLabelValues("failed").Inc()
			continue
		}
		log.Debug("attachment uploaded", "file", path, "page_id", page.ID)
		attachmentsTotal.WithLabelValues("uploaded").Inc()
		uploaded++
	}
	return uploaded, errs
}

// ContentType infers an asset's MIME type from its extension.
func ContentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return defaultContentType
}
