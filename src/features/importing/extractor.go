package importing

import (
	"context"

	"github.com/nvall/sitevault/src/places"
)

// Extractor reads technical metadata out of a media file. Implementations
// wrap external probing tools and must return within a bounded timeout; a
// hung tool is an extraction error, not a batch hang. Process lifecycle, if
// any, is hidden from callers.
type Extractor interface {
	Extract(ctx context.Context, filePath string) (*places.MediaMetadata, error)
}

// ExtractorSet maps media types to their extractor. Types without an entry
// (maps, documents) import with no metadata.
type ExtractorSet map[places.MediaType]Extractor
