package evt0

import "fmt"

// RowWindow is a half-open range of table rows [Start, Start+Length).
// Rows are numbered from 1.
type RowWindow struct {
	Index  int
	Start  int64
	Length int64
}

// End is the first row after the window.
func (w RowWindow) End() int64 {
	return w.Start + w.Length
}

func (w RowWindow) String() string {
	return fmt.Sprintf("window %d rows [%d, %d)", w.Index, w.Start, w.End())
}

// RowWindows walks a table of total rows in windows of size rows. The final
// window is truncated to the rows left. Once exhausted it stays exhausted;
// build a new one to scan the table again.
type RowWindows struct {
	total int64
	size  int64
	next  int64
	index int
}

func NewRowWindows(total int64, size int64) (*RowWindows, error) {
	if size < 1 {
		return nil, &ErrInvalidWindowSize{Size: size}
	}
	if total < 0 {
		total = 0
	}
	return &RowWindows{total: total, size: size, next: 1}, nil
}

// Next returns the following window, or false when every row has been covered.
func (r *RowWindows) Next() (RowWindow, bool) {
	if r.next > r.total {
		return RowWindow{}, false
	}
	length := r.size
	if remaining := r.total - r.next + 1; remaining < length {
		length = remaining
	}
	w := RowWindow{Index: r.index, Start: r.next, Length: length}
	r.next += length
	r.index++
	return w, true
}

// Count is the number of windows the table splits into.
func (r *RowWindows) Count() int {
	if r.total == 0 {
		return 0
	}
	return int((r.total + r.size - 1) / r.size)
}
