package evt0

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	blockSize = 2880
	cardSize  = 80
)

// hduLayout locates one header-data unit inside a FITS file.
type hduLayout struct {
	HeaderOffset int64
	HeaderSize   int64
	DataOffset   int64
	// unpadded size of the data unit
	DataSize int64
	Bitpix   int64
	Axes     []int64
}

func padToBlock(n int64) int64 {
	return (n + blockSize - 1) / blockSize * blockSize
}

func (h hduLayout) PaddedDataSize() int64 {
	return padToBlock(h.DataSize)
}

// End is the offset of the next HDU.
func (h hduLayout) End() int64 {
	return h.DataOffset + h.PaddedDataSize()
}

// scanLayout walks the header blocks of every HDU and computes where each
// header and data unit start.
func scanLayout(r io.ReaderAt, size int64) ([]hduLayout, error) {
	var layouts []hduLayout
	offset := int64(0)
	block := make([]byte, blockSize)
	for offset < size {
		if size-offset < blockSize {
			if len(layouts) == 0 {
				return nil, fmt.Errorf("file shorter than one FITS block")
			}
			// trailing bytes after the last HDU are ignored
			break
		}
		layout := hduLayout{HeaderOffset: offset}
		keys := make(map[string]string)
		ended := false
		for !ended {
			if offset+blockSize > size {
				return nil, fmt.Errorf("header at offset %d has no END card", layout.HeaderOffset)
			}
			if _, err := r.ReadAt(block, offset); err != nil {
				return nil, fmt.Errorf("error reading header block at %d: %w", offset, err)
			}
			offset += blockSize
			for i := 0; i < blockSize; i += cardSize {
				card := block[i : i+cardSize]
				key := cardKey(card)
				if key == "END" {
					ended = true
					break
				}
				if value, ok := cardValue(card); ok {
					if _, seen := keys[key]; !seen {
						keys[key] = value
					}
				}
			}
		}
		layout.HeaderSize = offset - layout.HeaderOffset
		layout.DataOffset = offset

		if err := layout.parseDataSize(keys); err != nil {
			return nil, fmt.Errorf("HDU %d: %w", len(layouts), err)
		}
		layouts = append(layouts, layout)
		offset = layout.End()
	}
	if len(layouts) == 0 {
		return nil, errors.New("no HDU found")
	}
	return layouts, nil
}

func (h *hduLayout) parseDataSize(keys map[string]string) error {
	bitpix, err := intKeyword(keys, "BITPIX", nil)
	if err != nil {
		return err
	}
	naxis, err := intKeyword(keys, "NAXIS", nil)
	if err != nil {
		return err
	}
	zero, one := int64(0), int64(1)
	pcount, err := intKeyword(keys, "PCOUNT", &zero)
	if err != nil {
		return err
	}
	gcount, err := intKeyword(keys, "GCOUNT", &one)
	if err != nil {
		return err
	}

	h.Bitpix = bitpix
	h.Axes = make([]int64, naxis)
	if naxis == 0 {
		return nil
	}
	elements := int64(1)
	for i := range h.Axes {
		n, err := intKeyword(keys, "NAXIS"+strconv.Itoa(i+1), nil)
		if err != nil {
			return err
		}
		h.Axes[i] = n
		elements *= n
	}
	if bitpix < 0 {
		bitpix = -bitpix
	}
	h.DataSize = bitpix / 8 * gcount * (pcount + elements)
	return nil
}

func intKeyword(keys map[string]string, name string, def *int64) (int64, error) {
	value, ok := keys[name]
	if !ok {
		if def != nil {
			return *def, nil
		}
		return 0, fmt.Errorf("missing keyword %s", name)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("keyword %s: %w", name, err)
	}
	return n, nil
}

func cardKey(card []byte) string {
	return strings.TrimSpace(string(card[:8]))
}

// cardValue returns the raw value of a "KEY     = value / comment" card,
// without quotes for strings.
func cardValue(card []byte) (string, bool) {
	if !bytes.Equal(card[8:10], []byte("= ")) {
		return "", false
	}
	field := strings.TrimSpace(string(card[10:]))
	if strings.HasPrefix(field, "'") {
		end := strings.Index(field[1:], "'")
		if end < 0 {
			return "", false
		}
		return strings.TrimRight(field[1:end+1], " "), true
	}
	if slash := strings.Index(field, "/"); slash >= 0 {
		field = field[:slash]
	}
	return strings.TrimSpace(field), true
}
