package importing

import (
	"path/filepath"
	"strings"

	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/places"
)

// Classifier maps a file name to a media type by extension. The rule is
// ordered: image first, then video, then audio, then map/geospatial; anything
// unrecognized classifies as a document, never rejected.
type Classifier struct {
	image map[string]bool
	video map[string]bool
	audio map[string]bool
	maps  map[string]bool
	docs  map[string]bool
}

// NewClassifier builds a classifier from the configured extension lists.
func NewClassifier(ext config.Extensions) *Classifier {
	return &Classifier{
		image: toSet(ext.Image),
		video: toSet(ext.Video),
		audio: toSet(ext.Audio),
		maps:  toSet(ext.Map),
		docs:  toSet(ext.Document),
	}
}

func toSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

// Classify returns the media type for a file path. The second return is
// false when the extension matched no list and the file fell back to
// document, which callers surface as an advisory.
func (c *Classifier) Classify(path string) (places.MediaType, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case c.image[ext]:
		return places.MediaImage, true
	case c.video[ext]:
		return places.MediaVideo, true
	case c.audio[ext]:
		return places.MediaAudio, true
	case c.maps[ext]:
		return places.MediaMap, true
	case c.docs[ext]:
		return places.MediaDocument, true
	default:
		return places.MediaDocument, false
	}
}
