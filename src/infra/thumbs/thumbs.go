package thumbs

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/nvall/sitevault/src/features/config"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/png"
)

// Service renders JPEG previews for archived images into a ".thumbs"
// directory next to the archived file. Thumbnails are derived data: they are
// regenerated on demand and never tracked in the catalog.
type Service struct {
	config *config.Manager
}

// NewService creates a thumbnail generator.
func NewService(cfg *config.Manager) *Service {
	return &Service{config: cfg}
}

// Generate renders a thumbnail for an archived image and returns its path.
// Formats the image decoder cannot handle (RAW files) are skipped without a
// thumbnail.
func (s *Service) Generate(ctx context.Context, archivedPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg := s.config.Get().Import.Thumbnails
	if !cfg.Enabled {
		return "", nil
	}

	f, err := os.Open(archivedPath)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	thumbDir := filepath.Join(filepath.Dir(archivedPath), ".thumbs")
	if err := os.MkdirAll(thumbDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create thumbs directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(archivedPath), filepath.Ext(archivedPath))
	thumbPath := filepath.Join(thumbDir, base+".jpg")

	// Width-bound resize, height follows the aspect ratio.
	resized := resize.Resize(uint(cfg.Width), 0, img, resize.Lanczos3)

	out, err := os.Create(thumbPath)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, resized, &jpeg.Options{Quality: cfg.Quality}); err != nil {
		os.Remove(thumbPath)
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return thumbPath, nil
}
