package places

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MediaType classifies a file by what kind of evidence it is.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaMap      MediaType = "map"
	MediaDocument MediaType = "document"
)

// GPSPoint is a coordinate pair extracted from media metadata.
type GPSPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ImageMeta holds metadata extracted from a still image.
type ImageMeta struct {
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	CameraMake  string     `json:"cameraMake,omitempty"`
	CameraModel string     `json:"cameraModel,omitempty"`
	GPS         *GPSPoint  `json:"gps,omitempty"`
}

// VideoMeta holds metadata extracted from a video file.
type VideoMeta struct {
	Duration float64   `json:"duration"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Codec    string    `json:"codec,omitempty"`
	FPS      float64   `json:"fps,omitempty"`
	GPS      *GPSPoint `json:"gps,omitempty"`
}

// AudioMeta holds metadata extracted from an audio recording.
type AudioMeta struct {
	Artist string `json:"artist,omitempty"`
	Title  string `json:"title,omitempty"`
	Year   int    `json:"year,omitempty"`
	Format string `json:"format,omitempty"`
}

// MediaMetadata is a tagged variant: at most one of Image, Video or Audio is
// set, matching the media type. Raw keeps the extractor's payload for audit
// without core logic depending on its shape.
type MediaMetadata struct {
	Image *ImageMeta      `json:"image,omitempty"`
	Video *VideoMeta      `json:"video,omitempty"`
	Audio *AudioMeta      `json:"audio,omitempty"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

// GPS returns the coordinates carried by the metadata, if any.
func (m *MediaMetadata) GPS() *GPSPoint {
	if m == nil {
		return nil
	}
	switch {
	case m.Image != nil:
		return m.Image.GPS
	case m.Video != nil:
		return m.Video.GPS
	}
	return nil
}

// MediaItem is one archived piece of media evidence tied to a location.
type MediaItem struct {
	ID           string
	LocationID   string
	Hash         string
	Type         MediaType
	OriginalName string
	OriginalPath string
	ArchivePath  string
	SizeBytes    int64
	Metadata     *MediaMetadata
	ImportID     string
	AddedDate    time.Time
}

// Validate validates the media item fields.
func (m *MediaItem) Validate() error {
	if strings.TrimSpace(m.Hash) == "" {
		return fmt.Errorf("media hash cannot be empty")
	}
	if len(m.Hash) != 64 {
		return fmt.Errorf("media hash must be a sha256 hex digest, got %d characters", len(m.Hash))
	}
	if strings.TrimSpace(m.LocationID) == "" {
		return fmt.Errorf("media location id cannot be empty")
	}
	if strings.TrimSpace(m.ArchivePath) == "" {
		return fmt.Errorf("media archive path cannot be empty")
	}
	switch m.Type {
	case MediaImage, MediaVideo, MediaAudio, MediaMap, MediaDocument:
	default:
		return fmt.Errorf("unknown media type %q", m.Type)
	}
	return nil
}

// ImportSession is the per-batch record written alongside media rows in the
// commit transaction.
type ImportSession struct {
	ID         string
	LocationID string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Imported   int
	Duplicates int
	Errored    int
}
