package catalog

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring"
	"github.com/klauspost/compress/zstd"
)

// Snapshot layout shared by both index kinds:
//  1. Magic number (4 bytes) identifying the index kind
//  2. Version (4 bytes)
//  3. Flags (4 bytes); bit 0 marks a zstd-compressed payload
//  4. Payload, written by the index (little-endian, length-prefixed strings
//     and roaring bitmaps)
const (
	snapshotVersion uint32 = 1

	flagCompressed uint32 = 1 << 0

	// maxChunkSize bounds a single length-prefixed chunk while reading
	maxChunkSize = 1 << 30
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// snapshotWriter writes payload fields, remembering the first error so that
// callers can write a whole section and check once.
type snapshotWriter struct {
	w   io.Writer
	err error
}

func (sw *snapshotWriter) u8(v uint8) {
	if sw.err == nil {
		sw.err = binary.Write(sw.w, binary.LittleEndian, v)
	}
}

func (sw *snapshotWriter) u32(v uint32) {
	if sw.err == nil {
		sw.err = binary.Write(sw.w, binary.LittleEndian, v)
	}
}

func (sw *snapshotWriter) u64(v uint64) {
	if sw.err == nil {
		sw.err = binary.Write(sw.w, binary.LittleEndian, v)
	}
}

func (sw *snapshotWriter) chunk(b []byte) {
	sw.u32(uint32(len(b)))
	if sw.err == nil {
		_, sw.err = sw.w.Write(b)
	}
}

func (sw *snapshotWriter) str(s string) {
	sw.chunk([]byte(s))
}

func (sw *snapshotWriter) bitmap(bm *roaring.Bitmap) {
	if sw.err != nil {
		return
	}
	b, err := bm.ToBytes()
	if err != nil {
		sw.err = fmt.Errorf("failed to serialize bitmap: %w", err)
		return
	}
	sw.chunk(b)
}

func (sw *snapshotWriter) docSet(s *DocSet) {
	sw.bitmap(s.asBitmap())
}

// snapshotReader mirrors snapshotWriter.
type snapshotReader struct {
	r   io.Reader
	err error
}

func (sr *snapshotReader) u8() uint8 {
	var v uint8
	if sr.err == nil {
		sr.err = binary.Read(sr.r, binary.LittleEndian, &v)
	}
	return v
}

func (sr *snapshotReader) u32() uint32 {
	var v uint32
	if sr.err == nil {
		sr.err = binary.Read(sr.r, binary.LittleEndian, &v)
	}
	return v
}

func (sr *snapshotReader) u64() uint64 {
	var v uint64
	if sr.err == nil {
		sr.err = binary.Read(sr.r, binary.LittleEndian, &v)
	}
	return v
}

func (sr *snapshotReader) chunk() []byte {
	n := sr.u32()
	if sr.err != nil {
		return nil
	}
	if n > maxChunkSize {
		sr.err = fmt.Errorf("%w: chunk of %d bytes exceeds limit", ErrInvalidSnapshot, n)
		return nil
	}
	b := make([]byte, n)
	_, sr.err = io.ReadFull(sr.r, b)
	return b
}

func (sr *snapshotReader) str() string {
	return string(sr.chunk())
}

func (sr *snapshotReader) bitmap() *roaring.Bitmap {
	b := sr.chunk()
	if sr.err != nil {
		return nil
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(b); err != nil {
		sr.err = fmt.Errorf("%w: failed to deserialize bitmap: %v", ErrInvalidSnapshot, err)
		return nil
	}
	return bm
}

// writeSnapshot writes the header and lets body fill the payload.
// It returns the number of bytes written to w.
func writeSnapshot(w io.Writer, magic [4]byte, compress bool, body func(*snapshotWriter)) (int64, error) {
	cw := &countingWriter{w: w}

	var flags uint32
	if compress {
		flags |= flagCompressed
	}
	header := &snapshotWriter{w: cw}
	if _, err := cw.Write(magic[:]); err != nil {
		return cw.n, fmt.Errorf("failed to write magic number: %w", err)
	}
	header.u32(snapshotVersion)
	header.u32(flags)
	if header.err != nil {
		return cw.n, fmt.Errorf("failed to write snapshot header: %w", header.err)
	}

	payload := &snapshotWriter{w: cw}
	var enc *zstd.Encoder
	if compress {
		var err error
		enc, err = zstd.NewWriter(cw)
		if err != nil {
			return cw.n, fmt.Errorf("failed to create compressor: %w", err)
		}
		payload.w = enc
	}

	body(payload)

	if enc != nil {
		if err := enc.Close(); err != nil && payload.err == nil {
			payload.err = fmt.Errorf("failed to flush compressor: %w", err)
		}
	}
	if payload.err != nil {
		return cw.n, fmt.Errorf("failed to write snapshot: %w", payload.err)
	}
	return cw.n, nil
}

// readSnapshot validates the header and lets body decode the payload.
// It returns the number of bytes consumed from r. A compressed payload may
// be read ahead of its end, so r should hold nothing after the snapshot.
func readSnapshot(r io.Reader, magic [4]byte, body func(*snapshotReader) error) (int64, error) {
	cr := &countingReader{r: r}

	got := make([]byte, 4)
	if _, err := io.ReadFull(cr, got); err != nil {
		return cr.n, fmt.Errorf("failed to read magic number: %w", err)
	}
	if string(got) != string(magic[:]) {
		return cr.n, fmt.Errorf("%w: expected magic %q, got %q", ErrInvalidSnapshot, string(magic[:]), string(got))
	}

	header := &snapshotReader{r: cr}
	version := header.u32()
	flags := header.u32()
	if header.err != nil {
		return cr.n, fmt.Errorf("failed to read snapshot header: %w", header.err)
	}
	if version != snapshotVersion {
		return cr.n, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, version)
	}

	payload := &snapshotReader{r: cr}
	if flags&flagCompressed != 0 {
		dec, err := zstd.NewReader(cr)
		if err != nil {
			return cr.n, fmt.Errorf("failed to create decompressor: %w", err)
		}
		defer dec.Close()
		payload.r = dec
	}

	if err := body(payload); err != nil {
		return cr.n, err
	}
	if payload.err != nil {
		return cr.n, fmt.Errorf("failed to read snapshot: %w", payload.err)
	}
	return cr.n, nil
}
