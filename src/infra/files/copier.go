package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nvall/sitevault/src/features/importing"
)

// VerifyingCopier moves bytes into the archive and proves every copy by
// re-hashing the destination. It never trusts a previous run: an existing
// destination is only skipped when its bytes still hash to the expected
// digest.
type VerifyingCopier struct {
	hasher importing.Hasher
}

// NewVerifyingCopier creates a copy engine that verifies with the given hasher.
func NewVerifyingCopier(hasher importing.Hasher) *VerifyingCopier {
	return &VerifyingCopier{hasher: hasher}
}

// Copy copies src to dst and verifies the result against wantHash. If dst
// already exists with the expected hash the copy is skipped. A verification
// mismatch removes the bad copy and returns ErrHashMismatch.
func (c *VerifyingCopier) Copy(ctx context.Context, src, dst, wantHash string) (importing.CopyOutcome, error) {
	if _, err := os.Stat(dst); err == nil {
		existing, err := c.hasher.Hash(ctx, dst)
		if err == nil && existing == wantHash {
			return importing.CopySkipped, nil
		}
		// Stale or partial file from an interrupted run; overwrite it.
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}

	gotHash, err := c.hasher.Hash(ctx, dst)
	if err != nil {
		return "", fmt.Errorf("failed to verify copy: %w", err)
	}
	if gotHash != wantHash {
		os.Remove(dst)
		return "", fmt.Errorf("%w: %s", importing.ErrHashMismatch, filepath.Base(src))
	}
	return importing.CopyDone, nil
}

// Delete removes a file, tolerating files already gone.
func (c *VerifyingCopier) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	sourceFileStat, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !sourceFileStat.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destination.Close()
	if _, err := io.Copy(destination, source); err != nil {
		return err
	}
	return destination.Sync()
}
