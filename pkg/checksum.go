package evt0

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

const zeroChecksum = "0000000000000000"

var errNoCardRoom = errors.New("no free card slot before the end of the header")

// onesComplementAdd adds two 32-bit ones' complement sums.
func onesComplementAdd(a, b uint32) uint32 {
	return foldCarry(uint64(a) + uint64(b))
}

func foldCarry(sum uint64) uint32 {
	for sum>>32 != 0 {
		sum = (sum & 0xffffffff) + (sum >> 32)
	}
	return uint32(sum)
}

// checksumBytes is the ones' complement sum of b as big-endian 32-bit words.
// len(b) must be a multiple of four, which FITS blocks always are.
func checksumBytes(b []byte) uint32 {
	var sum uint64
	for i := 0; i+4 <= len(b); i += 4 {
		sum += uint64(binary.BigEndian.Uint32(b[i:]))
	}
	return foldCarry(sum)
}

// checksumReader sums r block by block. A short final block is zero padded.
func checksumReader(r io.Reader) (uint32, error) {
	var sum uint32
	buf := make([]byte, 64*blockSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := buf[:n]
			if rem := n % 4; rem != 0 {
				chunk = append(chunk, make([]byte, 4-rem)...)
			}
			sum = onesComplementAdd(sum, checksumBytes(chunk))
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return sum, nil
		}
		if err != nil {
			return 0, err
		}
	}
}

var checksumExclude = []int{0x3a, 0x3b, 0x3c, 0x3d, 0x3e, 0x3f, 0x40, 0x5b, 0x5c, 0x5d, 0x5e, 0x5f, 0x60}

// encodeChecksum writes the complement of sum as the 16 printable
// characters of a CHECKSUM keyword.
func encodeChecksum(sum uint32) string {
	value := ^sum
	var asc [16]byte
	for i := 0; i < 4; i++ {
		b := int(value>>(24-8*uint(i))) & 0xff
		quotient := b/4 + '0'
		ch := [4]int{quotient + b%4, quotient, quotient, quotient}
		for check := true; check; {
			check = false
			for _, excluded := range checksumExclude {
				for j := 0; j < 4; j += 2 {
					if ch[j] == excluded || ch[j+1] == excluded {
						ch[j]++
						ch[j+1]--
						check = true
					}
				}
			}
		}
		for j := 0; j < 4; j++ {
			asc[4*j+i] = byte(ch[j])
		}
	}
	// the value starts one byte before a word boundary in the card
	var out [16]byte
	for i := range out {
		out[i] = asc[(i+15)%16]
	}
	return string(out[:])
}

// stringCard formats an 80-column card holding a quoted string value.
func stringCard(key, value, comment string) []byte {
	quoted := "'" + fmt.Sprintf("%-8s", value) + "'"
	card := fmt.Sprintf("%-8s= %-20s / %s", key, quoted, comment)
	if len(card) > cardSize {
		card = card[:cardSize]
	}
	return []byte(fmt.Sprintf("%-80s", card))
}

type rawHeader []byte

func (h rawHeader) cards() int {
	return len(h) / cardSize
}

func (h rawHeader) card(i int) []byte {
	return h[i*cardSize : (i+1)*cardSize]
}

func (h rawHeader) find(key string) int {
	for i := 0; i < h.cards(); i++ {
		if cardKey(h.card(i)) == key {
			return i
		}
	}
	return -1
}

// set replaces the card of key, or inserts it before END if the last
// header block has a blank slot left.
func (h rawHeader) set(key string, card []byte) error {
	if i := h.find(key); i >= 0 {
		copy(h.card(i), card)
		return nil
	}
	end := h.find("END")
	if end < 0 {
		return errors.New("header has no END card")
	}
	if end+1 >= h.cards() {
		return errNoCardRoom
	}
	copy(h.card(end+1), h.card(end))
	copy(h.card(end), card)
	return nil
}

// stampHDU updates DATE, DATASUM and CHECKSUM of one HDU in f. It returns
// the keywords that could not be inserted for lack of header space.
func stampHDU(f interface {
	io.ReaderAt
	io.WriterAt
}, layout hduLayout, now time.Time) ([]string, error) {
	header := make(rawHeader, layout.HeaderSize)
	if _, err := f.ReadAt(header, layout.HeaderOffset); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}
	datasum, err := checksumReader(io.NewSectionReader(f, layout.DataOffset, layout.PaddedDataSize()))
	if err != nil {
		return nil, fmt.Errorf("error reading data unit: %w", err)
	}

	date := now.UTC().Format("2006-01-02T15:04:05")
	var skipped []string
	stamp := func(key, value, comment string) error {
		err := header.set(key, stringCard(key, value, comment))
		if errors.Is(err, errNoCardRoom) {
			skipped = append(skipped, key)
			return nil
		}
		return err
	}
	if err := stamp("DATE", date, "file creation date (YYYY-MM-DDThh:mm:ss UT)"); err != nil {
		return nil, err
	}
	if err := stamp("DATASUM", strconv.FormatUint(uint64(datasum), 10), "data unit checksum updated "+date); err != nil {
		return nil, err
	}
	checksumComment := "HDU checksum updated " + date
	if err := stamp("CHECKSUM", zeroChecksum, checksumComment); err != nil {
		return nil, err
	}
	if i := header.find("CHECKSUM"); i >= 0 {
		sum := onesComplementAdd(checksumBytes(header), datasum)
		copy(header.card(i), stringCard("CHECKSUM", encodeChecksum(sum), checksumComment))
	}

	if _, err := f.WriteAt(header, layout.HeaderOffset); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}
	return skipped, nil
}

// verifyHDU reports whether the HDU sums to negative zero, as it does when
// its CHECKSUM card is current.
func verifyHDU(r io.ReaderAt, layout hduLayout) (bool, error) {
	sum, err := checksumReader(io.NewSectionReader(r, layout.HeaderOffset, layout.End()-layout.HeaderOffset))
	if err != nil {
		return false, err
	}
	return sum == 0xffffffff, nil
}
