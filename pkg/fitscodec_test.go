package evt0

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTForm(t *testing.T) {
	tests := []struct {
		format string
		repeat int
		code   byte
		width  int
	}{
		{"1I", 1, 'I', 2},
		{"I", 1, 'I', 2},
		{"3B", 3, 'B', 3},
		{"16A", 16, 'A', 16},
		{"8X", 8, 'X', 1},
		{"9X", 9, 'X', 2},
		{"1D", 1, 'D', 8},
		{" 2j ", 2, 'J', 8},
		{"1PE(12)", 1, 'P', 8},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			repeat, code, err := parseTForm(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.repeat, repeat)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.width, columnWidth(repeat, code))
		})
	}

	for _, format := range []string{"", "12", "1Z"} {
		_, _, err := parseTForm(format)
		assert.Error(t, err, format)
	}
}

func TestColumnCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		col   columnLayout
		value int64
	}{
		{"unsigned byte", columnLayout{Code: 'B', Width: 1, Scale: 1}, 200},
		{"short", columnLayout{Code: 'I', Width: 2, Scale: 1}, -1234},
		{"unsigned short via TZERO", columnLayout{Code: 'I', Width: 2, Scale: 1, Zero: 32768}, 4095},
		{"int", columnLayout{Code: 'J', Width: 4, Scale: 1}, 70000},
		{"long", columnLayout{Code: 'K', Width: 8, Scale: 1}, -5},
		{"float", columnLayout{Code: 'E', Width: 4, Scale: 1}, 3000},
		{"double", columnLayout{Code: 'D', Width: 8, Scale: 1}, 42},
		{"scaled short", columnLayout{Code: 'I', Width: 2, Scale: 2, Zero: 10}, 110},
		{"bits", columnLayout{Code: 'X', Width: 1, Scale: 1}, 0x30},
		{"logical", columnLayout{Code: 'L', Width: 1, Scale: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := make([]byte, 2+tt.col.Width)
			tt.col.Offset = 2
			require.NoError(t, tt.col.encode(row, tt.value))
			assert.Equal(t, []byte{0, 0}, row[:2])

			got, err := tt.col.decode(row)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestColumnEncodeClamps(t *testing.T) {
	col := columnLayout{Code: 'B', Width: 1, Scale: 1}
	row := make([]byte, 1)
	require.NoError(t, col.encode(row, 300))
	assert.Equal(t, byte(255), row[0])
	require.NoError(t, col.encode(row, -3))
	assert.Equal(t, byte(0), row[0])

	col = columnLayout{Code: 'I', Width: 2, Scale: 1}
	row = make([]byte, 2)
	require.NoError(t, col.encode(row, 40000))
	assert.Equal(t, []byte{0x7f, 0xff}, row)
}

func TestColumnDecodeTruncates(t *testing.T) {
	col := columnLayout{Code: 'E', Width: 4, Scale: 1}
	row := make([]byte, 4)
	// 99.75 as a big-endian float32
	copy(row, []byte{0x42, 0xc7, 0x80, 0x00})
	v, err := col.decode(row)
	require.NoError(t, err)
	assert.Equal(t, int64(99), v)
}

func TestColumnNotNumeric(t *testing.T) {
	col := columnLayout{Name: "OBJECT", Code: 'A', Width: 8, Scale: 1}
	_, err := col.decode(make([]byte, 8))
	assert.Error(t, err)
	assert.Error(t, col.encode(make([]byte, 8), 1))
}
