package extract

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/places"
)

const readySentinel = "{ready}"

// ExiftoolExtractor extracts image metadata through a single long-lived
// exiftool process started with `-stay_open True`, which avoids paying perl
// startup cost per file. Calls are serialized through a mutex; each call has
// a hard timeout, and a timed-out or broken process is killed and restarted
// on the next call.
type ExiftoolExtractor struct {
	config *config.Manager

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// NewExiftoolExtractor creates an image metadata extractor. Call Start before
// use and Stop on shutdown.
func NewExiftoolExtractor(cfg *config.Manager) *ExiftoolExtractor {
	return &ExiftoolExtractor{config: cfg}
}

// Start launches the stay-open exiftool worker.
func (e *ExiftoolExtractor) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

func (e *ExiftoolExtractor) startLocked() error {
	toolPath := e.config.Get().Import.Extractors.ExiftoolPath
	if _, err := exec.LookPath(toolPath); err != nil {
		return fmt.Errorf("exiftool not found at %q: %w", toolPath, err)
	}

	cmd := exec.Command(toolPath, "-stay_open", "True", "-@", "-")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open exiftool stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open exiftool stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start exiftool: %w", err)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.stdout = bufio.NewReader(stdout)
	return nil
}

// Stop shuts the worker down cleanly.
func (e *ExiftoolExtractor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil {
		return
	}
	fmt.Fprintf(e.stdin, "-stay_open\nFalse\n")
	e.stdin.Close()
	e.cmd.Wait()
	e.cmd = nil
}

func (e *ExiftoolExtractor) killLocked() {
	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
		e.cmd.Wait()
	}
	e.cmd = nil
}

// Extract reads EXIF metadata for a still image.
func (e *ExiftoolExtractor) Extract(ctx context.Context, filePath string) (*places.MediaMetadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil {
		if err := e.startLocked(); err != nil {
			return nil, err
		}
	}

	timeout := time.Duration(e.config.Get().Import.Extractors.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := e.execute(ctx, filePath)
	if err != nil {
		// The worker state is unknown after a failure; restart it next call.
		e.killLocked()
		return nil, err
	}
	return parseExiftoolOutput(raw)
}

// execute sends one command batch to the worker and reads output up to the
// ready sentinel.
func (e *ExiftoolExtractor) execute(ctx context.Context, filePath string) ([]byte, error) {
	args := []string{"-json", "-n", "-fast2", filePath, "-execute"}
	if _, err := io.WriteString(e.stdin, strings.Join(args, "\n")+"\n"); err != nil {
		return nil, fmt.Errorf("failed to send command to exiftool: %w", err)
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var out strings.Builder
		for {
			line, err := e.stdout.ReadString('\n')
			if err != nil {
				done <- result{nil, fmt.Errorf("failed to read exiftool output: %w", err)}
				return
			}
			if strings.HasPrefix(strings.TrimSpace(line), readySentinel) {
				done <- result{[]byte(out.String()), nil}
				return
			}
			out.WriteString(line)
		}
	}()

	select {
	case r := <-done:
		return r.data, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("exiftool timed out on %s: %w", filePath, ctx.Err())
	}
}

// exiftoolRecord holds the tags we read out of exiftool's -json -n output.
type exiftoolRecord struct {
	ImageWidth       int      `json:"ImageWidth"`
	ImageHeight      int      `json:"ImageHeight"`
	DateTimeOriginal string   `json:"DateTimeOriginal"`
	CreateDate       string   `json:"CreateDate"`
	Make             string   `json:"Make"`
	Model            string   `json:"Model"`
	GPSLatitude      *float64 `json:"GPSLatitude"`
	GPSLongitude     *float64 `json:"GPSLongitude"`
	Error            string   `json:"Error"`
}

func parseExiftoolOutput(raw []byte) (*places.MediaMetadata, error) {
	var records []exiftoolRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse exiftool output: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("exiftool returned no records")
	}
	rec := records[0]
	if rec.Error != "" {
		return nil, fmt.Errorf("exiftool: %s", rec.Error)
	}

	meta := &places.ImageMeta{
		Width:       rec.ImageWidth,
		Height:      rec.ImageHeight,
		CameraMake:  rec.Make,
		CameraModel: rec.Model,
	}
	if ts := parseExifTime(rec.DateTimeOriginal); ts != nil {
		meta.Timestamp = ts
	} else if ts := parseExifTime(rec.CreateDate); ts != nil {
		meta.Timestamp = ts
	}
	if rec.GPSLatitude != nil && rec.GPSLongitude != nil {
		meta.GPS = &places.GPSPoint{Latitude: *rec.GPSLatitude, Longitude: *rec.GPSLongitude}
	}

	rawCopy := make(json.RawMessage, len(raw))
	copy(rawCopy, raw)
	return &places.MediaMetadata{Image: meta, Raw: rawCopy}, nil
}

// parseExifTime handles the EXIF "colon date" layouts, with and without a
// timezone offset.
func parseExifTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	layouts := []string{
		"2006:01:02 15:04:05-07:00",
		"2006:01:02 15:04:05Z07:00",
		"2006:01:02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
