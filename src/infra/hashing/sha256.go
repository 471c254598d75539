package hashing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// SHA256Hasher computes streaming SHA-256 digests of files. It is the
// archive's identity function: the same bytes always produce the same hex
// digest, which the pipeline uses for dedup and copy verification.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a new SHA-256 file hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// Hash returns the lowercase hex SHA-256 digest of the file contents.
func (h *SHA256Hasher) Hash(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	digest := sha256.New()
	buf := make([]byte, 256*1024)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file for hashing: %w", err)
		}
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
