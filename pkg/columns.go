package evt0

import (
	"fmt"
	"math"
	"strings"
)

// ColumnSet holds the buffers of one row window. Only the requested
// columns are allocated; every allocated buffer has exactly Len() entries.
type ColumnSet struct {
	length  int
	PHA     []uint8
	AmpSF   []uint8
	Amps    [2][3][]int16
	VetoStt []uint8
}

// NewColumnSet allocates zeroed buffers of the given length for the named columns.
func NewColumnSet(length int, names []string) (*ColumnSet, error) {
	if length < 0 {
		return nil, fmt.Errorf("negative column length %d", length)
	}
	cols := &ColumnSet{length: length}
	for _, name := range names {
		switch strings.ToUpper(name) {
		case ColPHA:
			cols.PHA = make([]uint8, length)
		case ColAmpSF:
			cols.AmpSF = make([]uint8, length)
		case ColVetoStt:
			cols.VetoStt = make([]uint8, length)
		default:
			axis, tap, ok := ampColumnIndex(name)
			if !ok {
				return nil, fmt.Errorf("unsupported column %q", name)
			}
			cols.Amps[axis][tap] = make([]int16, length)
		}
	}
	return cols, nil
}

func (c *ColumnSet) Len() int {
	return c.length
}

func ampColumnIndex(name string) (Axis, int, bool) {
	upper := strings.ToUpper(name)
	for axis, taps := range ampColumns {
		for tap, col := range taps {
			if col == upper {
				return Axis(axis), tap, true
			}
		}
	}
	return 0, 0, false
}

// valueRange is the range a column buffer can hold.
func valueRange(name string) (int64, int64) {
	if _, _, ok := ampColumnIndex(name); ok {
		return math.MinInt16, math.MaxInt16
	}
	return 0, math.MaxUint8
}

// Has reports whether the named column has a buffer in the set.
func (c *ColumnSet) Has(name string) bool {
	switch strings.ToUpper(name) {
	case ColPHA:
		return c.PHA != nil
	case ColAmpSF:
		return c.AmpSF != nil
	case ColVetoStt:
		return c.VetoStt != nil
	}
	axis, tap, ok := ampColumnIndex(name)
	return ok && c.Amps[axis][tap] != nil
}

// Get returns the value of a column at row i as int64.
func (c *ColumnSet) Get(name string, i int) (int64, error) {
	if i < 0 || i >= c.length {
		return 0, fmt.Errorf("row %d out of window of %d rows", i, c.length)
	}
	if !c.Has(name) {
		return 0, fmt.Errorf("column %q not loaded", name)
	}
	switch strings.ToUpper(name) {
	case ColPHA:
		return int64(c.PHA[i]), nil
	case ColAmpSF:
		return int64(c.AmpSF[i]), nil
	case ColVetoStt:
		return int64(c.VetoStt[i]), nil
	}
	axis, tap, _ := ampColumnIndex(name)
	return int64(c.Amps[axis][tap][i]), nil
}

// Set stores v at row i of a column. The value is truncated to the buffer type;
// callers decoding from storage clamp beforehand.
func (c *ColumnSet) Set(name string, i int, v int64) error {
	if i < 0 || i >= c.length {
		return fmt.Errorf("row %d out of window of %d rows", i, c.length)
	}
	if !c.Has(name) {
		return fmt.Errorf("column %q not loaded", name)
	}
	switch strings.ToUpper(name) {
	case ColPHA:
		c.PHA[i] = uint8(v)
	case ColAmpSF:
		c.AmpSF[i] = uint8(v)
	case ColVetoStt:
		c.VetoStt[i] = uint8(v)
	default:
		axis, tap, _ := ampColumnIndex(name)
		c.Amps[axis][tap][i] = int16(v)
	}
	return nil
}

// Event assembles row i from the loaded buffers; columns not loaded read as zero.
func (c *ColumnSet) Event(i int) Event {
	var ev Event
	if c.PHA != nil {
		ev.PHA = c.PHA[i]
	}
	if c.AmpSF != nil {
		ev.AmpSF = c.AmpSF[i]
	}
	if c.VetoStt != nil {
		ev.VetoStt = c.VetoStt[i]
	}
	for axis := range c.Amps {
		for tap, buf := range c.Amps[axis] {
			if buf != nil {
				ev.Amps[axis][tap] = buf[i]
			}
		}
	}
	return ev
}
