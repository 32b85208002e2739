// Package scanreader provides lazy random access to ScanImage recordings
// stored as one or more multi-page TIFF files.
//
// A recording is presented as a 5-D array indexed as
// [field, y, x, channel, frame]. Uniform scans have one full-page field per
// scanning depth. Multi-ROI scans rebuild their fields from the ROI metadata,
// so several fields may share a page. Indices are 1-based. Pixels are only
// read when the scan is indexed with Read.
package scanreader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/ecobost/scanreader/internal/fields"
	"github.com/ecobost/scanreader/internal/header"
	"github.com/ecobost/scanreader/internal/logger"
	"github.com/ecobost/scanreader/internal/ndarray"
	"github.com/ecobost/scanreader/internal/pages"
	"github.com/ecobost/scanreader/internal/roi"
	"github.com/ecobost/scanreader/internal/tiffio"
	"github.com/ecobost/scanreader/internal/utils"
)

// Array is the dense row-major result of a read.
type Array = ndarray.Array

// Facts are the ScanImage header values a scan depends on.
type Facts = header.Facts

// ROI is one imaging region of a multi-ROI scan.
type ROI = roi.ROI

// Scanfield is the geometry of an ROI at one depth.
type Scanfield = roi.Scanfield

// PageFile is a source of consecutive pages. Files that also implement
// io.Closer are closed by Scan.Close.
type PageFile = pages.File

// ParseHeader parses the flat "SI.key = value" ScanImage header.
func ParseHeader(text string) *Facts {
	return header.Parse(text)
}

// ParseRoiGroups parses the ROI group JSON stored by multi-ROI scans.
func ParseRoiGroups(data []byte) ([]*ROI, error) {
	return roi.ParseRoiGroups(data)
}

// NewROI creates an ROI from its scanfields.
func NewROI(id int, name string, scanfields []Scanfield, discretePlaneMode bool) *ROI {
	return roi.New(id, name, scanfields, discretePlaneMode)
}

// Scan is an opened recording. Its field table is fixed at construction;
// Read may be called concurrently.
type Scan struct {
	facts     *header.Facts
	rois      []*roi.ROI
	fields    []*fields.Field
	files     []pages.File
	filenames []string
	reader    *pages.Reader

	multiROI    bool
	numChannels int
	depths      []float64
	pageHeight  int
	pageWidth   int

	joinContiguous bool
	log            Logger
	countOnce      sync.Once

	mu     sync.RWMutex
	closed bool
}

// Open opens the recording stored in paths, in recording order. Only the
// metadata of the first file is read; pages are read on demand.
func Open(paths []string, opts ...Option) (*Scan, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files to open")
	}

	tiffs := make([]*tiffio.File, len(paths))
	files := make([]pages.File, len(paths))
	for i, p := range paths {
		tiffs[i] = tiffio.New(p)
		files[i] = tiffs[i]
	}

	md, err := tiffs[0].ReadMetadata()
	if err != nil {
		_ = tiffs[0].Close()
		return nil, utils.WrapError("metadata read failed", err)
	}

	facts := header.Parse(md.Header)
	var rois []*roi.ROI
	if len(md.RoiGroups) > 0 {
		if rois, err = roi.ParseRoiGroups(md.RoiGroups); err != nil {
			_ = tiffs[0].Close()
			return nil, utils.WrapError(paths[0], err)
		}
	}

	s, err := New(facts, rois, files, opts...)
	if err != nil {
		_ = tiffs[0].Close()
		return nil, err
	}
	s.filenames = slices.Clone(paths)
	return s, nil
}

// Glob expands every pattern and returns the matches sorted within each
// pattern. A pattern without matches is an error.
func Glob(patterns ...string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, utils.WrapError("bad pattern "+pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}

// New builds a scan from parsed metadata and page sources. rois are only
// used when the header enables multi-ROI scanning.
func New(facts *Facts, rois []*ROI, files []PageFile, opts ...Option) (*Scan, error) {
	if facts == nil {
		return nil, errors.New("nil header facts")
	}
	s := &Scan{
		facts: facts,
		rois:  rois,
		files: files,
		log:   logger.NullLogger{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, utils.WrapError("invalid option", err)
		}
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

type pageSizer interface {
	PageSize(page int) (height, width int, err error)
}

func (s *Scan) build() error {
	s.numChannels = s.facts.NumChannels.Or(1)
	s.depths = s.facts.ScanningDepths.Or([]float64{0})
	s.multiROI = s.facts.MultiROI.Or(false)
	s.pageHeight = s.facts.PageHeight.Or(0)
	s.pageWidth = s.facts.PageWidth.Or(0)

	if (s.pageHeight <= 0 || s.pageWidth <= 0) && len(s.files) > 0 {
		if ps, ok := s.files[0].(pageSizer); ok {
			h, w, err := ps.PageSize(0)
			if err != nil {
				return utils.WrapError("page size unknown", err)
			}
			s.pageHeight, s.pageWidth = h, w
		}
	}
	if s.pageHeight <= 0 || s.pageWidth <= 0 {
		return fmt.Errorf("page size unknown: header has %dx%d", s.pageHeight, s.pageWidth)
	}

	if s.multiROI {
		if len(s.rois) == 0 {
			return fmt.Errorf("multi-ROI scan without ROI metadata: %w", ErrNotScanImage)
		}
		flyTo := fields.FlyToLines(s.facts.FlyToSeconds.Or(0), s.facts.ScannerFrequency.Or(0), s.IsBidirectional())
		fs, err := fields.BuildMultiROI(s.depths, roi.AsFieldROIs(s.rois), s.pageHeight, flyTo)
		if err != nil {
			return err
		}
		if s.joinContiguous {
			var merges []fields.Merge
			fs, merges = fields.JoinContiguous(fs)
			for _, m := range merges {
				s.log.Debugf("joined roi %d into roi %d at slice %d", m.Absorbed, m.Into, m.Slice)
			}
		}
		s.fields = fs
	} else {
		s.fields = fields.BuildUniform(s.depths, s.pageHeight, s.pageWidth)
	}

	perSlice := make([]int, len(s.depths))
	for _, f := range s.fields {
		if err := f.Validate(); err != nil {
			return utils.WrapError(fmt.Sprintf("field of roi %d at slice %d", f.RoiID, f.Slice), err)
		}
		perSlice[f.Slice]++
	}
	s.log.Debugf("built %d fields over %d depths (per depth: %v)", len(s.fields), len(s.depths), perSlice)

	s.reader = pages.NewReader(s.files, pages.Layout{NumChannels: s.numChannels, NumDepths: len(s.depths)})
	return nil
}

// Close releases every opened file. It is safe to call more than once.
func (s *Scan) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var result *multierror.Error
	for i, f := range s.files {
		c, ok := f.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			result = multierror.Append(result, utils.WrapError(s.fileName(i), err))
		}
	}
	return result.ErrorOrNil()
}

func (s *Scan) fileName(i int) string {
	if i < len(s.filenames) {
		return s.filenames[i]
	}
	return fmt.Sprintf("file %d", i)
}

// NumFrames returns the number of complete volumes across all files.
func (s *Scan) NumFrames() (int, error) {
	n, err := s.reader.NumFrames()
	if err != nil {
		return 0, err
	}
	s.countOnce.Do(func() {
		counts, _ := s.reader.FilePages()
		s.log.Debugf("counted pages per file %v: %d frames of %d pages", counts, n, s.reader.Layout().PagesPerFrame())
	})
	return n, nil
}

// Shape returns the extent of every axis. It fails with
// ErrFieldDimensionMismatch when fields differ in size.
func (s *Scan) Shape() ([]int, error) {
	frames, err := s.NumFrames()
	if err != nil {
		return nil, err
	}
	var h, w int
	for i, f := range s.fields {
		if i > 0 && (f.Height != h || f.Width != w) {
			return nil, fmt.Errorf("field %d is %dx%d, field 1 is %dx%d: %w", i+1, f.Height, f.Width, h, w, ErrFieldDimensionMismatch)
		}
		h, w = f.Height, f.Width
	}
	return []int{len(s.fields), h, w, s.numChannels, frames}, nil
}

// NumFields returns the number of fields after any merging.
func (s *Scan) NumFields() int {
	return len(s.fields)
}

// NumChannels returns the number of saved channels.
func (s *Scan) NumChannels() int {
	return s.numChannels
}

// NumScanningDepths returns the number of depths per volume.
func (s *Scan) NumScanningDepths() int {
	return len(s.depths)
}

// ScanningDepths returns the depth of every slice of a volume.
func (s *Scan) ScanningDepths() []float64 {
	return slices.Clone(s.depths)
}

// NumRois returns the number of enabled ROIs; 0 for uniform scans.
func (s *Scan) NumRois() int {
	if !s.multiROI {
		return 0
	}
	return len(s.rois)
}

func (s *Scan) IsMultiROI() bool {
	return s.multiROI
}

func (s *Scan) PageHeight() int {
	return s.pageHeight
}

func (s *Scan) PageWidth() int {
	return s.pageWidth
}

// Header returns the raw ScanImage header text.
func (s *Scan) Header() string {
	return s.facts.Text()
}

// Filenames returns the files of the recording, in order. Scans built with
// New have no names.
func (s *Scan) Filenames() []string {
	return slices.Clone(s.filenames)
}

// Version returns the ScanImage major version, or 0 when unknown.
func (s *Scan) Version() int {
	return s.facts.Version.Or(0)
}

func (s *Scan) IsBidirectional() bool {
	return s.facts.Bidirectional.Or(false)
}

// ScannerFrequency returns the resonant scanner frequency in Hz, or NaN.
func (s *Scan) ScannerFrequency() float64 {
	return s.facts.ScannerFrequency.Or(math.NaN())
}

// SecondsPerLine returns the time spent on one page line, or NaN when the
// scanner frequency is unknown.
func (s *Scan) SecondsPerLine() float64 {
	return fields.SecondsPerLine(s.facts.ScannerFrequency.Or(0), s.IsBidirectional())
}

// secondsPerPage is the time between the starts of consecutive depths.
func (s *Scan) secondsPerPage() float64 {
	if rate := s.facts.ScanFrameRate.Or(0); rate > 0 {
		return 1 / rate
	}
	return float64(s.pageHeight)*s.SecondsPerLine() + s.facts.FlybackSeconds.Or(0)
}

// FPS returns the volume rate: frames of the scan per second.
func (s *Scan) FPS() float64 {
	if v, ok := s.facts.Lookup("hRoiManager.scanVolumeRate"); ok {
		if rate, ok := v.Float(); ok && rate > 0 {
			return rate
		}
	}
	pagesPerVolume := len(s.depths)
	if pagesPerVolume > 1 && s.facts.FastZ.Or(false) {
		pagesPerVolume += s.facts.NumDiscardFlybackFrames.Or(0)
	}
	return 1 / (s.secondsPerPage() * float64(pagesPerVolume))
}

// FieldDepths returns the scanning depth of every field.
func (s *Scan) FieldDepths() []float64 {
	out := make([]float64, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Depth
	}
	return out
}

// FieldSlices returns the 0-based scanning depth index of every field.
func (s *Scan) FieldSlices() []int {
	out := make([]int, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Slice
	}
	return out
}

func (s *Scan) FieldHeights() []int {
	out := make([]int, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Height
	}
	return out
}

func (s *Scan) FieldWidths() []int {
	out := make([]int, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Width
	}
	return out
}

// FieldRois returns, for every field, the ids of the ROIs its subfields were
// cut from. Uniform fields report ROI 0.
func (s *Scan) FieldRois() [][]int {
	out := make([][]int, len(s.fields))
	for i, f := range s.fields {
		out[i] = slices.Clone(f.SubfieldRois)
	}
	return out
}

// FieldMasks returns a height x width array per field holding the ROI id of
// every pixel.
func (s *Scan) FieldMasks() ([]*Array, error) {
	out := make([]*Array, len(s.fields))
	for i, f := range s.fields {
		a, err := ndarray.New(f.Height, f.Width)
		if err != nil {
			return nil, err
		}
		for k, id := range f.Mask() {
			a.Data[k] = int16(id) //nolint:gosec // ROI ids are small
		}
		out[i] = a
	}
	return out, nil
}

// FieldHeightsInMicrons converts field heights from scan angle to microns.
// It needs a multi-ROI scan and the objective resolution.
func (s *Scan) FieldHeightsInMicrons() ([]float64, error) {
	return s.inMicrons(func(f *fields.Field) float64 { return f.HeightInDegrees })
}

// FieldWidthsInMicrons converts field widths from scan angle to microns.
func (s *Scan) FieldWidthsInMicrons() ([]float64, error) {
	return s.inMicrons(func(f *fields.Field) float64 { return f.WidthInDegrees })
}

func (s *Scan) inMicrons(degrees func(*fields.Field) float64) ([]float64, error) {
	if !s.multiROI {
		return nil, fmt.Errorf("field size in microns of a uniform scan: %w", ErrUnsupported)
	}
	res, ok := s.facts.ObjectiveResolution.Get()
	if !ok {
		return nil, fmt.Errorf("objective resolution missing from header: %w", ErrUnsupported)
	}
	out := make([]float64, len(s.fields))
	for i, f := range s.fields {
		out[i] = degrees(f) * res
	}
	return out, nil
}
