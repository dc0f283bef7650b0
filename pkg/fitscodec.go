package evt0

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// columnLayout locates one binary table column inside a row.
type columnLayout struct {
	Name   string
	Offset int
	Width  int
	Code   byte
	Repeat int
	Scale  float64
	Zero   float64
}

var elementSizes = map[byte]int{
	'L': 1, 'B': 1, 'A': 1,
	'I': 2,
	'J': 4, 'E': 4,
	'K': 8, 'D': 8, 'C': 8, 'P': 8,
	'M': 16, 'Q': 16,
}

// parseTForm splits a binary table TFORM such as "1I", "8X" or "16A" into
// its repeat count and type code. Descriptors keep only the leading code.
func parseTForm(format string) (int, byte, error) {
	format = strings.TrimSpace(strings.ToUpper(format))
	i := 0
	for i < len(format) && format[i] >= '0' && format[i] <= '9' {
		i++
	}
	if i == len(format) {
		return 0, 0, fmt.Errorf("invalid TFORM %q", format)
	}
	repeat := 1
	if i > 0 {
		n, err := strconv.Atoi(format[:i])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid TFORM %q: %w", format, err)
		}
		repeat = n
	}
	code := format[i]
	if _, ok := elementSizes[code]; !ok && code != 'X' {
		return 0, 0, fmt.Errorf("unsupported TFORM %q", format)
	}
	return repeat, code, nil
}

func columnWidth(repeat int, code byte) int {
	if code == 'X' {
		return (repeat + 7) / 8
	}
	return repeat * elementSizes[code]
}

// storageRange is the raw integer range of a column type.
func storageRange(code byte) (float64, float64) {
	switch code {
	case 'B', 'X':
		return 0, math.MaxUint8
	case 'I':
		return math.MinInt16, math.MaxInt16
	case 'J':
		return math.MinInt32, math.MaxInt32
	case 'K':
		return math.MinInt64, math.MaxInt64
	case 'L':
		return 0, 1
	default:
		return math.Inf(-1), math.Inf(1)
	}
}

func (c columnLayout) readable() error {
	switch c.Code {
	case 'B', 'X', 'I', 'J', 'K', 'E', 'D', 'L':
	default:
		return fmt.Errorf("column %s of type %c is not numeric", c.Name, c.Code)
	}
	if c.Width == 0 {
		return fmt.Errorf("column %s is empty", c.Name)
	}
	return nil
}

// decode returns the physical value of the first element of the cell,
// truncated toward zero for non-integer results.
func (c columnLayout) decode(row []byte) (int64, error) {
	if err := c.readable(); err != nil {
		return 0, err
	}
	cell := row[c.Offset : c.Offset+c.Width]

	var raw float64
	switch c.Code {
	case 'B', 'X':
		raw = float64(cell[0])
	case 'L':
		if cell[0] == 'T' {
			raw = 1
		}
	case 'I':
		raw = float64(int16(binary.BigEndian.Uint16(cell)))
	case 'J':
		raw = float64(int32(binary.BigEndian.Uint32(cell)))
	case 'K':
		v := int64(binary.BigEndian.Uint64(cell))
		if c.Scale == 1 && c.Zero == 0 {
			return v, nil
		}
		raw = float64(v)
	case 'E':
		raw = float64(math.Float32frombits(binary.BigEndian.Uint32(cell)))
	case 'D':
		raw = math.Float64frombits(binary.BigEndian.Uint64(cell))
	}
	physical := raw*c.Scale + c.Zero
	if math.IsNaN(physical) {
		return 0, fmt.Errorf("column %s holds NaN", c.Name)
	}
	return int64(math.Trunc(physical)), nil
}

// encode stores the physical value v into the first element of the cell,
// rounded and clamped to the column type.
func (c columnLayout) encode(row []byte, v int64) error {
	if err := c.readable(); err != nil {
		return err
	}
	cell := row[c.Offset : c.Offset+c.Width]

	raw := (float64(v) - c.Zero) / c.Scale
	if c.Code != 'E' && c.Code != 'D' {
		low, high := storageRange(c.Code)
		raw = math.Max(low, math.Min(high, math.Round(raw)))
	}
	switch c.Code {
	case 'B', 'X':
		cell[0] = uint8(raw)
	case 'L':
		cell[0] = 'F'
		if raw != 0 {
			cell[0] = 'T'
		}
	case 'I':
		binary.BigEndian.PutUint16(cell, uint16(int16(raw)))
	case 'J':
		binary.BigEndian.PutUint32(cell, uint32(int32(raw)))
	case 'K':
		if c.Scale == 1 && c.Zero == 0 {
			binary.BigEndian.PutUint64(cell, uint64(v))
			return nil
		}
		binary.BigEndian.PutUint64(cell, uint64(int64(raw)))
	case 'E':
		binary.BigEndian.PutUint32(cell, math.Float32bits(float32(raw)))
	case 'D':
		binary.BigEndian.PutUint64(cell, math.Float64bits(raw))
	}
	return nil
}
