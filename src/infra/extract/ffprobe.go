package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/places"
)

// FfprobeExtractor extracts video metadata by shelling out to ffprobe once
// per file. ffprobe starts fast enough that a stay-open worker is not worth
// the lifecycle complexity.
type FfprobeExtractor struct {
	config *config.Manager
}

// NewFfprobeExtractor creates a video metadata extractor.
func NewFfprobeExtractor(cfg *config.Manager) *FfprobeExtractor {
	return &FfprobeExtractor{config: cfg}
}

// Extract probes a video file for stream and container metadata.
func (e *FfprobeExtractor) Extract(ctx context.Context, filePath string) (*places.MediaMetadata, error) {
	extractors := e.config.Get().Import.Extractors
	if _, err := exec.LookPath(extractors.FfprobePath); err != nil {
		return nil, fmt.Errorf("ffprobe not found at %q: %w", extractors.FfprobePath, err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(extractors.TimeoutSeconds)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, extractors.FfprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe timed out on %s: %w", filePath, ctx.Err())
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseFfprobeOutput(output)
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
}

func parseFfprobeOutput(raw []byte) (*places.MediaMetadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	meta := &places.VideoMeta{}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			meta.Duration = d
		}
	}
	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		meta.Width = stream.Width
		meta.Height = stream.Height
		meta.Codec = stream.CodecName
		meta.FPS = parseFrameRate(stream.AvgFrameRate)
		break
	}
	if gps := parseLocationTag(probe.Format.Tags); gps != nil {
		meta.GPS = gps
	}

	rawCopy := make(json.RawMessage, len(raw))
	copy(rawCopy, raw)
	return &places.MediaMetadata{Video: meta, Raw: rawCopy}, nil
}

// parseFrameRate converts ffprobe's rational frame rate ("30000/1001") to a
// float.
func parseFrameRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		f, _ := strconv.ParseFloat(rate, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// parseLocationTag reads the ISO 6709 location tag phones write into MP4
// containers, e.g. "+40.7128-074.0060/".
func parseLocationTag(tags map[string]string) *places.GPSPoint {
	loc := tags["location"]
	if loc == "" {
		loc = tags["com.apple.quicktime.location.ISO6709"]
	}
	loc = strings.TrimSuffix(loc, "/")
	if loc == "" {
		return nil
	}

	// Find the sign that splits latitude from longitude.
	split := -1
	for i := 1; i < len(loc); i++ {
		if loc[i] == '+' || loc[i] == '-' {
			split = i
			break
		}
	}
	if split < 0 {
		return nil
	}
	// Altitude may follow as a third signed component; drop it.
	lonEnd := len(loc)
	for i := split + 1; i < len(loc); i++ {
		if loc[i] == '+' || loc[i] == '-' {
			lonEnd = i
			break
		}
	}

	lat, err1 := strconv.ParseFloat(loc[:split], 64)
	lon, err2 := strconv.ParseFloat(loc[split:lonEnd], 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &places.GPSPoint{Latitude: lat, Longitude: lon}
}
