package evt0

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/astrogo/fitsio"
	"golang.org/x/exp/maps"
)

const EventsExtension = "EVENTS"

// Rows that fit in forty 2880-byte I/O buffers
const ioBufferBytes = 40 * blockSize

type StoreOptions struct {
	StampChecksum bool
	Verbosity     int
	// clock used for the DATE keyword, time.Now when nil
	Now func() time.Time
}

// FitsStore serves the EVENTS table of a FITS event file. The output file
// starts as a verbatim copy of the input; only cells of written columns in
// the EVENTS data unit change, plus the EVENTS DATE and checksum cards when
// Finish is called.
type FitsStore struct {
	inName   string
	outName  string
	in       *os.File
	out      *os.File
	fits     *fitsio.File
	layouts  []hduLayout
	events   int
	rowWidth int64
	nrows    int64
	columns  map[string]columnLayout
	opts     StoreOptions
}

// OpenFitsStore opens inName, locates its EVENTS table and creates outName
// as a copy of it.
func OpenFitsStore(inName string, outName string, opts StoreOptions) (*FitsStore, error) {
	s := &FitsStore{inName: inName, outName: outName, opts: opts, events: -1}

	in, err := os.Open(inName)
	if err != nil {
		return nil, &ErrOpenFile{Filename: inName, Err: err}
	}
	s.in = in

	if err := s.inspect(); err != nil {
		s.closeInput()
		return nil, err
	}

	out, err := os.Create(outName)
	if err != nil {
		s.closeInput()
		return nil, &ErrOpenFile{Filename: outName, Err: err}
	}
	s.out = out
	if err := s.copyInput(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *FitsStore) inspect() error {
	info, err := s.in.Stat()
	if err != nil {
		return &ErrOpenFile{Filename: s.inName, Err: err}
	}

	s.fits, err = fitsio.Open(s.in)
	if err != nil {
		return &ErrFormat{Filename: s.inName, Reason: "decoding HDUs", Err: err}
	}
	s.layouts, err = scanLayout(s.in, info.Size())
	if err != nil {
		return &ErrFormat{Filename: s.inName, Reason: "scanning blocks", Err: err}
	}
	hdus := s.fits.HDUs()
	if len(hdus) != len(s.layouts) {
		reason := fmt.Sprintf("%d HDUs decoded but %d found in blocks", len(hdus), len(s.layouts))
		return &ErrFormat{Filename: s.inName, Reason: reason}
	}

	var table *fitsio.Table
	for i, hdu := range hdus {
		if hdu.Type() != fitsio.BINARY_TBL {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(hdu.Name()), EventsExtension) {
			continue
		}
		table = hdu.(*fitsio.Table)
		s.events = i
		break
	}
	if table == nil {
		return &ErrNoEventsExtension{Filename: s.inName}
	}

	layout := s.layouts[s.events]
	if len(layout.Axes) != 2 {
		return &ErrFormat{Filename: s.inName, Reason: "EVENTS table is not two-dimensional"}
	}
	s.rowWidth = layout.Axes[0]
	s.nrows = layout.Axes[1]
	if table.NumRows() != s.nrows {
		reason := fmt.Sprintf("EVENTS has %d rows decoded but NAXIS2 = %d", table.NumRows(), s.nrows)
		return &ErrFormat{Filename: s.inName, Reason: reason}
	}

	s.columns, err = resolveColumns(table.Cols(), s.rowWidth)
	if err != nil {
		return &ErrFormat{Filename: s.inName, Reason: "EVENTS columns", Err: err}
	}

	if s.opts.Verbosity > 0 {
		message := fmt.Sprintf("Input file has %d Header-Data units, EVENTS is extension %d", len(hdus), s.events)
		logger.Info(message, "fits")
		message = fmt.Sprintf("EVENTS has %d columns and %d rows of %d bytes", len(s.columns), s.nrows, s.rowWidth)
		logger.Info(message, "fits")
	}
	if s.opts.Verbosity > 2 {
		for _, col := range s.sortedColumns() {
			message := fmt.Sprintf("Column %s: %d%c at byte %d", col.Name, col.Repeat, col.Code, col.Offset)
			logger.Info(message, "fits")
		}
	}
	return nil
}

func resolveColumns(cols []fitsio.Column, rowWidth int64) (map[string]columnLayout, error) {
	columns := make(map[string]columnLayout, len(cols))
	offset := 0
	for _, col := range cols {
		repeat, code, err := parseTForm(col.Format)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		layout := columnLayout{
			Name:   col.Name,
			Offset: offset,
			Width:  columnWidth(repeat, code),
			Code:   code,
			Repeat: repeat,
			Scale:  col.Bscale,
			Zero:   col.Bzero,
		}
		if layout.Scale == 0 {
			layout.Scale = 1
		}
		offset += layout.Width
		columns[strings.ToUpper(strings.TrimSpace(col.Name))] = layout
	}
	if int64(offset) != rowWidth {
		return nil, fmt.Errorf("columns span %d bytes but rows are %d bytes", offset, rowWidth)
	}
	return columns, nil
}

func (s *FitsStore) sortedColumns() []columnLayout {
	cols := maps.Values(s.columns)
	sort.Slice(cols, func(i, j int) bool {
		return cols[i].Offset < cols[j].Offset
	})
	return cols
}

// copyInput writes every HDU of the input, byte for byte, to the output.
func (s *FitsStore) copyInput() error {
	end := s.layouts[len(s.layouts)-1].End()
	info, err := s.in.Stat()
	if err != nil {
		return &ErrOpenFile{Filename: s.inName, Err: err}
	}
	if info.Size() > end {
		end = info.Size()
	}
	n, err := io.Copy(s.out, io.NewSectionReader(s.in, 0, end))
	if err != nil {
		return fmt.Errorf("error copying %s to %s: %w", s.inName, s.outName, err)
	}
	if s.opts.Verbosity > 0 {
		message := fmt.Sprintf("Copied %d bytes to %s", n, s.outName)
		logger.Info(message, "fits")
	}
	return nil
}

func (s *FitsStore) RowCount() int64 {
	return s.nrows
}

func (s *FitsStore) PreferredWindowSize() int64 {
	if s.rowWidth <= 0 {
		return 1
	}
	return max(1, ioBufferBytes/s.rowWidth)
}

// Keyword returns a header value of the EVENTS extension, falling back to
// the primary header.
func (s *FitsStore) Keyword(name string) (interface{}, bool) {
	hdus := s.fits.HDUs()
	for _, hdu := range []fitsio.HDU{hdus[s.events], hdus[0]} {
		if card := hdu.Header().Get(name); card != nil {
			return card.Value, true
		}
	}
	return nil, false
}

func (s *FitsStore) column(name string) (columnLayout, error) {
	col, ok := s.columns[strings.ToUpper(name)]
	if !ok {
		available := maps.Keys(s.columns)
		sort.Strings(available)
		return col, &ErrColumnNotFound{Column: name, Available: available}
	}
	return col, nil
}

func (s *FitsStore) checkWindow(window RowWindow, cols *ColumnSet) error {
	if window.Start < 1 || window.Length < 0 || window.End()-1 > s.nrows {
		return fmt.Errorf("%v outside table of %d rows", window, s.nrows)
	}
	if int64(cols.Len()) != window.Length {
		return fmt.Errorf("%v does not match buffers of %d rows", window, cols.Len())
	}
	return nil
}

func (s *FitsStore) windowBytes(window RowWindow) (int64, []byte) {
	offset := s.layouts[s.events].DataOffset + (window.Start-1)*s.rowWidth
	return offset, make([]byte, window.Length*s.rowWidth)
}

// ReadColumns decodes the named columns of the window rows from the input.
func (s *FitsStore) ReadColumns(names []string, window RowWindow, cols *ColumnSet) error {
	if err := s.checkWindow(window, cols); err != nil {
		return err
	}
	layouts := make([]columnLayout, len(names))
	for i, name := range names {
		col, err := s.column(name)
		if err != nil {
			return err
		}
		layouts[i] = col
	}

	offset, buf := s.windowBytes(window)
	if _, err := s.in.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("error reading %s: %w", s.inName, err)
	}
	for i := 0; i < cols.Len(); i++ {
		row := buf[int64(i)*s.rowWidth : int64(i+1)*s.rowWidth]
		for j, col := range layouts {
			v, err := col.decode(row)
			if err != nil {
				return fmt.Errorf("row %d: %w", window.Start+int64(i), err)
			}
			low, high := valueRange(names[j])
			if err := cols.Set(names[j], i, max(low, min(high, v))); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteColumns encodes the named columns of the window rows into the output.
func (s *FitsStore) WriteColumns(names []string, window RowWindow, cols *ColumnSet) error {
	if err := s.checkWindow(window, cols); err != nil {
		return err
	}
	layouts := make([]columnLayout, len(names))
	for i, name := range names {
		col, err := s.column(name)
		if err != nil {
			return err
		}
		layouts[i] = col
	}

	offset, buf := s.windowBytes(window)
	if _, err := s.out.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("error reading %s: %w", s.outName, err)
	}
	for i := 0; i < cols.Len(); i++ {
		row := buf[int64(i)*s.rowWidth : int64(i+1)*s.rowWidth]
		for j, col := range layouts {
			v, err := cols.Get(names[j], i)
			if err != nil {
				return err
			}
			if err := col.encode(row, v); err != nil {
				return fmt.Errorf("row %d: %w", window.Start+int64(i), err)
			}
		}
	}
	if _, err := s.out.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("error writing %s: %w", s.outName, err)
	}
	return nil
}

// Finish stamps the EVENTS header of the output with DATE, DATASUM and
// CHECKSUM when enabled. Call it only after every window has been written.
func (s *FitsStore) Finish() error {
	if !s.opts.StampChecksum {
		return nil
	}
	now := time.Now
	if s.opts.Now != nil {
		now = s.opts.Now
	}
	skipped, err := stampHDU(s.out, s.layouts[s.events], now())
	if err != nil {
		return fmt.Errorf("error stamping %s: %w", s.outName, err)
	}
	for _, key := range skipped {
		logger.Error(fmt.Sprintf("no room in EVENTS header of %s for %s, keyword not written", s.outName, key))
	}
	if s.opts.Verbosity > 0 {
		logger.Info("Updated DATE and checksums of EVENTS", "fits")
	}
	if s.opts.Verbosity > 1 {
		ok, err := verifyHDU(s.out, s.layouts[s.events])
		if err != nil {
			return fmt.Errorf("error verifying %s: %w", s.outName, err)
		}
		logger.Info(fmt.Sprintf("EVENTS checksum verified: %v", ok), "fits")
	}
	return nil
}

func (s *FitsStore) closeInput() error {
	var errs []error
	if s.fits != nil {
		if err := s.fits.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing FITS decoder: %w", err))
		}
	}
	if err := s.in.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing %s: %w", s.inName, err))
	}
	return errors.Join(errs...)
}

func (s *FitsStore) Close() error {
	var errs []error
	if err := s.closeInput(); err != nil {
		errs = append(errs, err)
	}
	if s.out != nil {
		if err := s.out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", s.outName, err))
		}
	}
	return errors.Join(errs...)
}

// ObsID reads the OBS_ID keyword as an integer.
func (s *FitsStore) ObsID() (int, error) {
	value, ok := s.Keyword("OBS_ID")
	if !ok {
		return 0, fmt.Errorf("no OBS_ID keyword in %s", s.inName)
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("invalid OBS_ID %q: %w", v, err)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("invalid OBS_ID %v", v)
	}
}
