// Package scheduler is the job scheduling subsystem: a priority queue of
// render/IO/OCR work, cooperative cancellation, a worker pool that drains
// it, and a dedicated IO thread that skims off file-loading jobs so they
// never queue behind CPU-bound rendering.
package scheduler

// Priority is a job's scheduling class. Higher values run first; jobs of
// equal priority run in FIFO (insertion) order.
type Priority int

const (
	// PriorityOcr is the lowest priority: OCR runs only when the queue is
	// otherwise idle.
	PriorityOcr Priority = iota
	// PriorityThumbnails is for thumbnail strip generation.
	PriorityThumbnails
	// PriorityAdjacent is for prefetching tiles on neighboring pages.
	PriorityAdjacent
	// PriorityMargin is for prefetching the ring of tiles just outside
	// the viewport.
	PriorityMargin
	// PriorityVisible is the highest priority: tiles the user can see
	// right now.
	PriorityVisible
)

// String implements fmt.Stringer.
func (p Priority) String() string {
	switch p {
	case PriorityOcr:
		return "Ocr"
	case PriorityThumbnails:
		return "Thumbnails"
	case PriorityAdjacent:
		return "Adjacent"
	case PriorityMargin:
		return "Margin"
	case PriorityVisible:
		return "Visible"
	default:
		return "Unknown"
	}
}

// Kind identifies what a Job does; exactly one of the Type's fields is
// meaningful depending on Kind.
type Kind int

const (
	KindRenderTile Kind = iota
	KindLoadFile
	KindGenerateThumbnail
	KindRunOCR
	KindExtractText
)

// RenderTileParams carries the parameters for a KindRenderTile job.
type RenderTileParams struct {
	PageIndex uint16
	TileX     uint32
	TileY     uint32
	ZoomLevel uint32
	Rotation  uint16
	IsPreview bool
}

// LoadFileParams carries the parameters for a KindLoadFile job.
type LoadFileParams struct {
	Path string
}

// GenerateThumbnailParams carries the parameters for a
// KindGenerateThumbnail job.
type GenerateThumbnailParams struct {
	PageIndex uint16
	Width     uint32
	Height    uint32
}

// RunOCRParams carries the parameters for a KindRunOCR job.
type RunOCRParams struct {
	PageIndex uint16
}

// ExtractTextParams carries the parameters for a KindExtractText job.
type ExtractTextParams struct {
	PageIndex uint16
}

// Type is a job's kind plus its kind-specific parameters.
type Type struct {
	Kind          Kind
	RenderTile    RenderTileParams
	LoadFile      LoadFileParams
	GenerateThumb GenerateThumbnailParams
	RunOCR        RunOCRParams
	ExtractText   ExtractTextParams
}

// ID uniquely identifies a submitted job.
type ID uint64

// Job is a unit of scheduled work.
type Job struct {
	ID       ID
	Priority Priority
	Type     Type

	insertionOrder uint64
}
