package importing

import (
	"context"
)

// Hasher computes a content hash of a file, used for identity and
// deduplication across the whole archive.
type Hasher interface {
	Hash(ctx context.Context, filePath string) (string, error)
}
