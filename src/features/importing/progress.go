package importing

// ProgressEvent is emitted once per file completion within a phase, in
// file-list order regardless of worker completion order.
type ProgressEvent struct {
	Phase       Phase  `json:"phase"`
	Processed   int    `json:"processed"`
	Total       int    `json:"total"`
	CurrentFile string `json:"currentFile"`
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) emit(ev ProgressEvent) {
	if f != nil {
		f(ev)
	}
}

// Recorder counts pipeline outcomes for observability. Implementations must
// be safe for concurrent use. May be nil on an orchestrator.
type Recorder interface {
	FileImported(mediaType string)
	FileDuplicate()
	FileErrored()
	BytesCopied(n int64)
	ExtractionFailure(mediaType string)
	ImportFinished(seconds float64)
}
