package evt0

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnesComplementAdd(t *testing.T) {
	assert.Equal(t, uint32(3), onesComplementAdd(1, 2))
	// the carry wraps around
	assert.Equal(t, uint32(2), onesComplementAdd(0xffffffff, 2))
	assert.Equal(t, uint32(3), checksumBytes([]byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 3}))
}

func TestEncodeChecksum(t *testing.T) {
	assert.Equal(t, "0000000000000000", encodeChecksum(0xffffffff))
	for _, sum := range []uint32{0, 1, 0x12345678, 0xdeadbeef} {
		encoded := encodeChecksum(sum)
		require.Len(t, encoded, 16)
		for _, c := range []byte(encoded) {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z'), "%q", encoded)
		}
	}
}

func TestEncodeChecksumCancelsSum(t *testing.T) {
	// a card slot holding the encoded value adds up to the complement of sum
	for _, sum := range []uint32{0, 0x12345678, 0xdeadbeef, 0x7fffffff} {
		card := stringCard("CHECKSUM", zeroChecksum, "")
		zeros := checksumBytes(card)
		copy(card, stringCard("CHECKSUM", encodeChecksum(onesComplementAdd(sum, zeros)), ""))
		total := onesComplementAdd(sum, checksumBytes(card))
		assert.Equal(t, uint32(0xffffffff), total, "sum %#x", sum)
	}
}

func TestStringCard(t *testing.T) {
	card := stringCard("DATE", "2024-01-02T03:04:05", "file creation date")
	require.Len(t, card, cardSize)
	assert.Equal(t, "DATE    = '2024-01-02T03:04:05' / file creation date", string(card[:52]))
	value, ok := cardValue(card)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-02T03:04:05", value)

	card = stringCard("CHECKSUM", zeroChecksum, "")
	assert.Equal(t, byte('\''), card[10])
	assert.Equal(t, zeroChecksum, string(card[11:27]))
}

func TestRawHeaderSet(t *testing.T) {
	header := rawHeader(rawHeaderBlocks(intCard("NAXIS", 0), "DATE    = 'old'"))

	require.NoError(t, header.set("DATE", stringCard("DATE", "new", "")))
	assert.Equal(t, 1, header.find("DATE"))
	require.NoError(t, header.set("DATASUM", stringCard("DATASUM", "0", "")))
	assert.Equal(t, 2, header.find("DATASUM"))
	assert.Equal(t, 3, header.find("END"))

	full := make([]string, 35)
	for i := range full {
		full[i] = "COMMENT full"
	}
	header = rawHeader(rawHeaderBlocks(full...))
	assert.ErrorIs(t, header.set("DATE", stringCard("DATE", "new", "")), errNoCardRoom)
}

func TestStampHDU(t *testing.T) {
	header := rawHeaderBlocks(
		"XTENSION= 'BINTABLE'",
		intCard("BITPIX", 8),
		intCard("NAXIS", 2),
		intCard("NAXIS1", 4),
		intCard("NAXIS2", 3),
		intCard("PCOUNT", 0),
		intCard("GCOUNT", 1),
	)
	data := make([]byte, blockSize)
	copy(data, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	path := filepath.Join(t.TempDir(), "hdu.fits")
	require.NoError(t, os.WriteFile(path, append(header, data...), 0o644))

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	layouts, err := scanLayout(f, int64(len(header)+len(data)))
	require.NoError(t, err)
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	skipped, err := stampHDU(f, layouts[0], now)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	ok, err := verifyHDU(f, layouts[0])
	require.NoError(t, err)
	assert.True(t, ok)

	stamped := make(rawHeader, layouts[0].HeaderSize)
	_, err = f.ReadAt(stamped, 0)
	require.NoError(t, err)
	date, _ := cardValue(stamped.card(stamped.find("DATE")))
	assert.Equal(t, "2024-05-06T07:08:09", date)
	datasum, _ := cardValue(stamped.card(stamped.find("DATASUM")))
	assert.Equal(t, "252843288", datasum)

	// stamping again replaces the cards in place
	_, err = stampHDU(f, layouts[0], now.Add(time.Hour))
	require.NoError(t, err)
	ok, err = verifyHDU(f, layouts[0])
	require.NoError(t, err)
	assert.True(t, ok)
}
