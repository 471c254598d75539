package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/dhowden/tag"
	"github.com/nvall/sitevault/src/places"
)

// AudioExtractor reads embedded tags from audio recordings (interviews,
// ambient captures) using an in-process tag parser, so no external tool is
// needed for the audio path.
type AudioExtractor struct{}

// NewAudioExtractor creates an audio metadata extractor.
func NewAudioExtractor() *AudioExtractor {
	return &AudioExtractor{}
}

// Extract reads the audio file's tag block. A file with no recognizable tags
// still imports; only unreadable files error.
func (e *AudioExtractor) Extract(ctx context.Context, filePath string) (*places.MediaMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	meta := &places.AudioMeta{}
	m, err := tag.ReadFrom(f)
	if err != nil {
		if err == tag.ErrNoTagsFound {
			return &places.MediaMetadata{Audio: meta}, nil
		}
		return nil, fmt.Errorf("failed to read audio tags: %w", err)
	}

	meta.Artist = m.Artist()
	meta.Title = m.Title()
	meta.Year = m.Year()
	meta.Format = string(m.FileType())
	return &places.MediaMetadata{Audio: meta}, nil
}
