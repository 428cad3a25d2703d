// Package recordblock implements the on-disk position table (C4):
// {id}.index.bin is a sequence of LZ4-compressed blocks, each holding a run
// of 6-byte little-endian byte offsets (one per record), followed by a JSON
// footer describing each block's (first_row_index, compressed_offset,
// compressed_length, record_count). This is the teacher's `.cidx`
// block/footer split (see cidx.go's BlockWriter/BlockReader/SparseIndex)
// carried over from its 80-byte keyed IndexRecord entries down to this
// engine's bare 6-byte position entries, since the secondary index now
// lives in SQLite and the position table only needs to answer "where does
// record i start".
package recordblock

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Magic identifies the file format.
const Magic = "PIDX"

// EntrySize is the byte width of one position-table entry.
const EntrySize = 6

// BlockTargetSize is the target uncompressed size of one block, matching
// the teacher's 64KiB block granularity.
const BlockTargetSize = 64 * 1024

// BlockMeta describes one compressed block in the footer.
type BlockMeta struct {
	FirstRow int64 `json:"firstRow"`
	Offset   int64 `json:"offset"`
	Length   int64 `json:"length"`
	Count    int64 `json:"count"`
}

// Footer is the trailing index of block locations.
type Footer struct {
	Blocks []BlockMeta `json:"blocks"`
}

func putUint48LE(b []byte, v int64) {
	u := uint64(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
	b[4] = byte(u >> 32)
	b[5] = byte(u >> 40)
}

func getUint48LE(b []byte) int64 {
	u := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 |
		uint64(b[3])<<24 | uint64(b[4])<<32 | uint64(b[5])<<40
	return int64(u)
}

// Writer appends record byte-offsets in order and flushes them into
// LZ4-compressed blocks.
type Writer struct {
	w        io.Writer
	buf      []byte
	firstRow int64
	nextRow  int64
	offset   int64
	footer   Footer
	lw       *lz4.Writer
	compBuf  bytes.Buffer
}

// NewWriter writes the magic header and prepares a block writer.
func NewWriter(w io.Writer) (*Writer, error) {
	n, err := w.Write([]byte(Magic))
	if err != nil {
		return nil, fmt.Errorf("recordblock: write magic: %w", err)
	}
	lw := lz4.NewWriter(io.Discard)
	_ = lw.Apply(lz4.BlockSizeOption(lz4.Block64Kb))
	return &Writer{w: w, offset: int64(n), lw: lw}, nil
}

// Append records the byte offset of the next record in row order.
func (bw *Writer) Append(byteOffset int64) error {
	if len(bw.buf) == 0 {
		bw.firstRow = bw.nextRow
	}
	var entry [EntrySize]byte
	putUint48LE(entry[:], byteOffset)
	bw.buf = append(bw.buf, entry[:]...)
	bw.nextRow++
	if len(bw.buf) >= BlockTargetSize {
		return bw.flush()
	}
	return nil
}

func (bw *Writer) flush() error {
	if len(bw.buf) == 0 {
		return nil
	}
	bw.compBuf.Reset()
	bw.lw.Reset(&bw.compBuf)
	if _, err := bw.lw.Write(bw.buf); err != nil {
		return fmt.Errorf("recordblock: compress block: %w", err)
	}
	if err := bw.lw.Close(); err != nil {
		return fmt.Errorf("recordblock: close block: %w", err)
	}
	compressed := bw.compBuf.Bytes()

	meta := BlockMeta{
		FirstRow: bw.firstRow,
		Offset:   bw.offset,
		Length:   int64(len(compressed)),
		Count:    int64(len(bw.buf) / EntrySize),
	}
	bw.footer.Blocks = append(bw.footer.Blocks, meta)

	n, err := bw.w.Write(compressed)
	if err != nil {
		return fmt.Errorf("recordblock: write block: %w", err)
	}
	bw.offset += int64(n)
	bw.buf = bw.buf[:0]
	return nil
}

// Close flushes any buffered entries and writes the footer.
func (bw *Writer) Close() error {
	if err := bw.flush(); err != nil {
		return err
	}
	footerBytes, err := json.Marshal(bw.footer)
	if err != nil {
		return fmt.Errorf("recordblock: marshal footer: %w", err)
	}
	if _, err := bw.w.Write(footerBytes); err != nil {
		return fmt.Errorf("recordblock: write footer: %w", err)
	}
	return binary.Write(bw.w, binary.BigEndian, int64(len(footerBytes)))
}

// Reader resolves a row index to its byte offset, decompressing at most one
// block per lookup and caching the most recently decompressed block for
// sequential access patterns (pagination reads rows in order).
type Reader struct {
	r         io.ReadSeeker
	Footer    Footer
	total     int64
	cachedIdx int
	cachedBuf []byte
}

// NewReader loads the footer from r (which must support seeking to the end).
func NewReader(r io.ReadSeeker) (*Reader, error) {
	if _, err := r.Seek(-8, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("recordblock: seek footer length: %w", err)
	}
	var footerLen int64
	if err := binary.Read(r, binary.BigEndian, &footerLen); err != nil {
		return nil, fmt.Errorf("recordblock: read footer length: %w", err)
	}
	if _, err := r.Seek(-(8 + footerLen), io.SeekEnd); err != nil {
		return nil, fmt.Errorf("recordblock: seek footer: %w", err)
	}
	footerBytes := make([]byte, footerLen)
	if _, err := io.ReadFull(r, footerBytes); err != nil {
		return nil, fmt.Errorf("recordblock: read footer: %w", err)
	}
	var footer Footer
	if err := json.Unmarshal(footerBytes, &footer); err != nil {
		return nil, fmt.Errorf("recordblock: unmarshal footer: %w", err)
	}
	total := int64(0)
	for _, b := range footer.Blocks {
		total += b.Count
	}
	return &Reader{r: r, Footer: footer, total: total, cachedIdx: -1}, nil
}

// Len returns the total number of position entries across all blocks.
func (br *Reader) Len() int64 { return br.total }

// EntryAt returns the byte offset stored for the given 0-based row index.
func (br *Reader) EntryAt(row int64) (int64, error) {
	if row < 0 || row >= br.total {
		return 0, fmt.Errorf("recordblock: row %d out of range [0,%d)", row, br.total)
	}
	blockIdx := br.findBlock(row)
	if blockIdx != br.cachedIdx {
		data, err := br.decompressBlock(br.Footer.Blocks[blockIdx])
		if err != nil {
			return 0, err
		}
		br.cachedBuf = data
		br.cachedIdx = blockIdx
	}
	meta := br.Footer.Blocks[blockIdx]
	local := row - meta.FirstRow
	off := local * EntrySize
	return getUint48LE(br.cachedBuf[off : off+EntrySize]), nil
}

func (br *Reader) findBlock(row int64) int {
	blocks := br.Footer.Blocks
	lo, hi := 0, len(blocks)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if blocks[mid].FirstRow <= row {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func (br *Reader) decompressBlock(meta BlockMeta) ([]byte, error) {
	if _, err := br.r.Seek(meta.Offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("recordblock: seek block: %w", err)
	}
	compBuf := make([]byte, meta.Length)
	if _, err := io.ReadFull(br.r, compBuf); err != nil {
		return nil, fmt.Errorf("recordblock: read block: %w", err)
	}
	lr := lz4.NewReader(bytes.NewReader(compBuf))
	out := make([]byte, 0, meta.Count*EntrySize)
	var tmp [8192]byte
	for {
		n, err := lr.Read(tmp[:])
		if n > 0 {
			out = append(out, tmp[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("recordblock: decompress block: %w", err)
		}
	}
	return out, nil
}
