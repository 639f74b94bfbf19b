package syncer

import "errors"

var (
	// ErrStructuralMismatch means the remote page exists under a different
	// parent than the local tree says. The page is left untouched.
	ErrStructuralMismatch = errors.New("remote parent does not match local parent")

	// ErrRootUnresolved means neither a main parent title nor a space key is
	// configured. It stops the whole pass.
	ErrRootUnresolved = errors.New("root ancestor unresolved")

	// ErrMainParentMissing means the unit needed the main parent page and it
	// does not exist remotely. Only that unit is aborted; units whose parent
	// already exists still sync.
	ErrMainParentMissing = errors.New("main parent page not found")

	// ErrRemoteWriteExhausted means a create kept failing because its parent
	// was not yet resolvable and the retry bound ran out.
	ErrRemoteWriteExhausted = errors.New("remote write retries exhausted")

	// ErrAttachmentUploadFailed wraps per-asset failures. Never fatal.
	ErrAttachmentUploadFailed = errors.New("attachment upload failed")
)

// IsPassFatal reports whether err must stop the pass instead of only the
// current unit.
func IsPassFatal(err error) bool {
	return errors.Is(err, ErrRootUnresolved)
}

// errorKind is a short label for metrics and run reports.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrStructuralMismatch):
		return "structural_mismatch"
	case errors.Is(err, ErrRootUnresolved):
		return "root_unresolved"
	case errors.Is(err, ErrMainParentMissing):
		return "main_parent_missing"
	case errors.Is(err, ErrRemoteWriteExhausted):
		return "remote_write_exhausted"
	case errors.Is(err, ErrAttachmentUploadFailed):
		return "attachment_upload_failed"
	default:
		return "transport"
	}
}
