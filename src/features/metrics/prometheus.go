package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the Prometheus-backed implementation of the import pipeline's
// outcome counters. All collectors are registered once at construction.
type Recorder struct {
	filesImported      *prometheus.CounterVec
	filesDuplicate     prometheus.Counter
	filesErrored       prometheus.Counter
	bytesCopied        prometheus.Counter
	extractionFailures *prometheus.CounterVec
	importDuration     prometheus.Histogram
}

// NewRecorder creates a recorder registering its collectors on the default
// registry.
func NewRecorder() *Recorder {
	return NewRecorderWith(prometheus.DefaultRegisterer)
}

// NewRecorderWith creates a recorder registering on the given registerer.
func NewRecorderWith(reg prometheus.Registerer) *Recorder {
	return &Recorder{
		filesImported: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitevault_files_imported_total",
				Help: "Total number of media files committed to the archive, by media type",
			},
			[]string{"type"},
		),
		filesDuplicate: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "sitevault_files_duplicate_total",
				Help: "Total number of files skipped because their content hash already exists",
			},
		),
		filesErrored: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "sitevault_files_errored_total",
				Help: "Total number of files that failed during an import phase",
			},
		),
		bytesCopied: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "sitevault_bytes_copied_total",
				Help: "Total bytes copied into the archive",
			},
		),
		extractionFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitevault_extraction_failures_total",
				Help: "Total number of metadata extraction failures, by media type",
			},
			[]string{"type"},
		),
		importDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sitevault_import_duration_seconds",
				Help:    "Wall-clock duration of completed import batches",
				Buckets: []float64{1, 10, 60, 300, 1800, 7200},
			},
		),
	}
}

func (r *Recorder) FileImported(mediaType string) {
	r.filesImported.WithLabelValues(mediaType).Inc()
}

func (r *Recorder) FileDuplicate() {
	r.filesDuplicate.Inc()
}

func (r *Recorder) FileErrored() {
	r.filesErrored.Inc()
}

func (r *Recorder) BytesCopied(n int64) {
	r.bytesCopied.Add(float64(n))
}

func (r *Recorder) ExtractionFailure(mediaType string) {
	r.extractionFailures.WithLabelValues(mediaType).Inc()
}

func (r *Recorder) ImportFinished(seconds float64) {
	r.importDuration.Observe(seconds)
}
