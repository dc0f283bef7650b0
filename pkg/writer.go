package evt0

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jmbenlloch/go-hdf5"
	"golang.org/x/exp/maps"
)

// ReportWriter records a correction run in an HDF5 file with the tables
// run, windows and parameters under /Correction.
type ReportWriter struct {
	File            *hdf5.File
	Filename        string
	CorrectionGroup *hdf5.Group
	RunTable        *hdf5.Dataset
	WindowsTable    *hdf5.Dataset
	ParametersTable *hdf5.Dataset
	WindowCounter   int
	verbosity       int
}

func NewReportWriter(filename string, compression int, verbosity int) (*ReportWriter, error) {
	writer := &ReportWriter{Filename: filename, verbosity: verbosity}
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating report file %s", filename), "report")
	}

	var err error
	writer.File, err = openFile(filename)
	if err != nil {
		return nil, err
	}
	if err := writer.createTables(compression); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	return writer, nil
}

func (w *ReportWriter) createTables(compression int) error {
	var err error
	w.CorrectionGroup, err = createGroup(w.File, "Correction")
	if err != nil {
		return err
	}
	w.RunTable, err = createTable(w.CorrectionGroup, "run", RunInfoHDF5{}, compression)
	if err != nil {
		return err
	}
	w.WindowsTable, err = createTable(w.CorrectionGroup, "windows", WindowHDF5{}, compression)
	if err != nil {
		return err
	}
	w.ParametersTable, err = createTable(w.CorrectionGroup, "parameters", ParameterHDF5{}, compression)
	return err
}

// ObserveWindow appends one row to the windows table.
func (w *ReportWriter) ObserveWindow(summary WindowSummary) error {
	entry := WindowHDF5{
		index:    int32(summary.Window.Index),
		firstRow: summary.Window.Start,
		length:   summary.Window.Length,
		changed:  int32(summary.Changed),
	}
	if err := writeEntryToTable(w.WindowsTable, entry, w.WindowCounter); err != nil {
		return fmt.Errorf("error writing window to %s: %w", w.Filename, err)
	}
	w.WindowCounter++
	return nil
}

func sortParameters(params map[string]float64) []ParameterHDF5 {
	names := maps.Keys(params)
	sort.Strings(names)
	// The array MUST be allocated at creation, HDF5 reads it in place
	sorted := make([]ParameterHDF5, len(names))
	for i, name := range names {
		sorted[i] = ParameterHDF5{
			name:  convertToHdf5String(name),
			value: params[name],
		}
	}
	return sorted
}

// WriteParameters stores the effective numeric parameters sorted by name.
func (w *ReportWriter) WriteParameters(params map[string]float64) error {
	sorted := sortParameters(params)
	if err := writeArrayToTable(w.ParametersTable, &sorted, 0); err != nil {
		return fmt.Errorf("error writing parameters to %s: %w", w.Filename, err)
	}
	return nil
}

// WriteRun stores the run summary row.
func (w *ReportWriter) WriteRun(summary Summary, fileIn string, fileOut string) error {
	entry := RunInfoHDF5{
		tool:    convertToHdf5String(summary.Tool),
		runID:   convertToHdf5String(summary.RunID.String()),
		fileIn:  convertToHdf5Path(fileIn),
		fileOut: convertToHdf5Path(fileOut),
		rows:    summary.Rows,
		windows: int32(summary.Windows),
		changed: summary.Changed,
	}
	if err := writeEntryToTable(w.RunTable, entry, 0); err != nil {
		return fmt.Errorf("error writing run to %s: %w", w.Filename, err)
	}
	return nil
}

func (w *ReportWriter) Close() error {
	if w.verbosity > 0 {
		logger.Info(fmt.Sprintf("Closing report file %s", w.Filename), "report")
	}
	var errs []error

	if w.RunTable != nil {
		if err := w.RunTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing run table: %w", err))
		}
	}
	if w.WindowsTable != nil {
		if err := w.WindowsTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing windows table: %w", err))
		}
	}
	if w.ParametersTable != nil {
		if err := w.ParametersTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing parameters table: %w", err))
		}
	}
	if w.CorrectionGroup != nil {
		if err := w.CorrectionGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing correction group: %w", err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
