package importing

import (
	"context"
	"errors"
)

// ErrHashMismatch is returned by a CopyEngine when the copied bytes do not
// hash to the expected digest. The engine removes the bad copy before
// returning it.
var ErrHashMismatch = errors.New("copied file does not match expected hash")

// CopyOutcome reports what a CopyEngine call actually did.
type CopyOutcome string

const (
	// CopyDone means bytes were copied and the copy verified.
	CopyDone CopyOutcome = "copied"
	// CopySkipped means the destination already existed with the expected
	// hash, so no bytes moved. This is what makes the copy phase safely
	// re-runnable after a crash.
	CopySkipped CopyOutcome = "skipped"
)

// CopyEngine moves bytes from source to destination and verifies the copy by
// re-hashing it. All byte movement in the pipeline goes through here; phases
// only orchestrate.
type CopyEngine interface {
	Copy(ctx context.Context, src, dst, wantHash string) (CopyOutcome, error)
	Delete(path string) error
}

// Thumbnailer renders a preview for an archived image. Best-effort: a
// failure is advisory and never fails the entry.
type Thumbnailer interface {
	Generate(ctx context.Context, archivedPath string) (string, error)
}
