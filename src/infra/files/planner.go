package files

import (
	"fmt"
	"path"
	"strings"

	"github.com/gosimple/unidecode"
	"github.com/nvall/sitevault/src/places"
)

// shortNameRunes caps the short-name segment so archive paths stay readable.
// Changing it would break path stability for already-archived files.
const shortNameRunes = 24

// ArchivePlanner maps media identity to a stable archive-relative path:
//
//	locations/{region}-{type}/{shortName}-{locationID}/{bucket}/{hash}{ext}
//
// The mapping is pure: the same inputs always produce the same path, across
// runs and across versions. That stability is what makes a pre-existing
// destination file with a matching hash safe to skip during resume.
type ArchivePlanner struct{}

// NewArchivePlanner creates a new archive path planner.
func NewArchivePlanner() *ArchivePlanner {
	return &ArchivePlanner{}
}

// PlanPath renders the archive-relative destination for a media file.
func (p *ArchivePlanner) PlanPath(snapshot places.LocationSnapshot, mediaType places.MediaType, hash, ext string) string {
	group := fmt.Sprintf("%s-%s", slug(snapshot.Region), slug(snapshot.Type))
	folder := fmt.Sprintf("%s-%s", shortName(snapshot), slug(snapshot.ID))
	return path.Join("locations", group, folder, bucket(mediaType), hash+strings.ToLower(ext))
}

func shortName(snapshot places.LocationSnapshot) string {
	name := snapshot.ShortName
	if name == "" {
		name = snapshot.Name
	}
	s := slug(name)
	runes := []rune(s)
	if len(runes) > shortNameRunes {
		s = strings.TrimRight(string(runes[:shortNameRunes]), "-")
	}
	if s == "" {
		s = "location"
	}
	return s
}

// slug transliterates to ASCII, lowercases, and collapses every run of
// non-alphanumerics into a single '-'.
func slug(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func bucket(mediaType places.MediaType) string {
	switch mediaType {
	case places.MediaImage:
		return "photos"
	case places.MediaVideo:
		return "videos"
	case places.MediaAudio:
		return "audio"
	case places.MediaMap:
		return "maps"
	default:
		return "documents"
	}
}
