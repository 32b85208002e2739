package scanreader

import "github.com/ecobost/scanreader/internal/utils"

// Errors returned by the reader. Detailed errors wrap one of these, so
// callers can test with errors.Is.
var (
	// ErrIndexType reports a key element of an unsupported type or syntax,
	// or a key with more than five elements.
	ErrIndexType = utils.ErrIndexType
	// ErrIndexBounds reports an index below 1 or above the axis extent.
	ErrIndexBounds = utils.ErrIndexBounds
	// ErrFieldDimensionMismatch reports selected fields whose y or x
	// selections differ.
	ErrFieldDimensionMismatch = utils.ErrFieldDimensionMismatch
	// ErrFieldLayoutOverflow reports ROI fields that do not fit in a page.
	ErrFieldLayoutOverflow = utils.ErrFieldLayoutOverflow
	// ErrInternalAddressing reports a page beyond the last file.
	ErrInternalAddressing = utils.ErrInternalAddressing
	ErrUnsupported        = utils.ErrUnsupported
	ErrClosed             = utils.ErrClosed
	ErrNotScanImage       = utils.ErrNotScanImage
)
