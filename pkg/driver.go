package evt0

import (
	"fmt"

	"github.com/google/uuid"
)

// TableStore gives windowed column access to the EVENTS table.
type TableStore interface {
	RowCount() int64
	PreferredWindowSize() int64
	ReadColumns(names []string, window RowWindow, cols *ColumnSet) error
	WriteColumns(names []string, window RowWindow, cols *ColumnSet) error
}

// Corrector transforms the buffers of one window in place.
type Corrector interface {
	Name() string
	// Columns read for every window
	Inputs() []string
	// Columns written back after Apply
	Outputs() []string
	// Apply returns the number of rows changed
	Apply(cols *ColumnSet) int
	Parameters() map[string]float64
}

// WindowSummary describes one processed window.
type WindowSummary struct {
	Window  RowWindow
	Changed int
}

// WindowObserver is notified after each window has been written.
type WindowObserver interface {
	ObserveWindow(summary WindowSummary) error
}

type Summary struct {
	RunID   uuid.UUID
	Tool    string
	Rows    int64
	Windows int
	Changed int64
}

type RunOptions struct {
	// Rows per window, 0 uses the store preference
	WindowRows int64
	Verbosity  int
	Observers  []WindowObserver
}

// Run applies the corrector to every row of the store, one window at a
// time. Any read, write or observer failure aborts the run.
func Run(store TableStore, corrector Corrector, opts RunOptions) (Summary, error) {
	summary := Summary{
		RunID: uuid.New(),
		Tool:  corrector.Name(),
		Rows:  store.RowCount(),
	}

	windowRows := opts.WindowRows
	if windowRows == 0 {
		windowRows = store.PreferredWindowSize()
	}
	windows, err := NewRowWindows(summary.Rows, windowRows)
	if err != nil {
		return summary, err
	}

	if opts.Verbosity > 0 {
		message := fmt.Sprintf("Run %s: %d rows in %d windows of %d rows",
			summary.RunID, summary.Rows, windows.Count(), windowRows)
		logger.Info(message, corrector.Name())
	}

	for {
		window, ok := windows.Next()
		if !ok {
			break
		}
		changed, err := processWindow(store, corrector, window)
		if err != nil {
			return summary, err
		}
		summary.Windows++
		summary.Changed += int64(changed)

		if opts.Verbosity > 1 {
			message := fmt.Sprintf("%v: %d rows changed", window, changed)
			logger.Info(message, corrector.Name())
		}
		for _, observer := range opts.Observers {
			err := observer.ObserveWindow(WindowSummary{Window: window, Changed: changed})
			if err != nil {
				return summary, fmt.Errorf("error reporting %v: %w", window, err)
			}
		}
	}

	if opts.Verbosity > 0 {
		message := fmt.Sprintf("Run %s: %d of %d rows changed", summary.RunID, summary.Changed, summary.Rows)
		logger.Info(message, corrector.Name())
	}
	return summary, nil
}

func processWindow(store TableStore, corrector Corrector, window RowWindow) (int, error) {
	cols, err := NewColumnSet(int(window.Length), corrector.Inputs())
	if err != nil {
		return 0, err
	}
	if err := store.ReadColumns(corrector.Inputs(), window, cols); err != nil {
		return 0, &ErrReadWindow{Window: window, Err: err}
	}
	changed := corrector.Apply(cols)
	if err := store.WriteColumns(corrector.Outputs(), window, cols); err != nil {
		return 0, &ErrWriteWindow{Window: window, Err: err}
	}
	return changed, nil
}
