package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// DefaultLevel is the compression level used when the caller does not pick
// one.
const DefaultLevel = 9

var (
	// ErrStreamEnded indicates the decompressor was fed data after the
	// logical end of the compressed stream.
	ErrStreamEnded = errors.New("end of stream already reached")

	// ErrFlushed indicates a compressor used after its terminal flush.
	ErrFlushed = errors.New("compressor has been flushed")

	// ErrCorrupt indicates undecodable compressed input.
	ErrCorrupt = errors.New("invalid compressed data")
)

// Compressor is a stateful streaming compressor. Feed chunks with Compress;
// finish with Flush, after which the compressor is unusable.
type Compressor struct {
	buf     bytes.Buffer
	w       *flate.Writer
	flushed bool
}

// NewCompressor creates a compressor with the given level (1-9).
func NewCompressor(level int) (*Compressor, error) {
	if level < 1 || level > 9 {
		return nil, fmt.Errorf("compression level must be between 1 and 9, got %d", level)
	}
	c := &Compressor{}
	w, err := flate.NewWriter(&c.buf, level)
	if err != nil {
		return nil, err
	}
	c.w = w
	return c, nil
}

// Compress feeds one chunk and returns whatever compressed bytes are ready,
// possibly none: the compressor may buffer input across feeds.
func (c *Compressor) Compress(p []byte) ([]byte, error) {
	if c.flushed {
		return nil, ErrFlushed
	}
	if _, err := c.w.Write(p); err != nil {
		return nil, err
	}
	return c.drain(), nil
}

// Flush terminates the stream and returns the remaining compressed bytes.
// The compressor is unusable afterwards.
func (c *Compressor) Flush() ([]byte, error) {
	if c.flushed {
		return nil, ErrFlushed
	}
	c.flushed = true
	if err := c.w.Close(); err != nil {
		return nil, err
	}
	return c.drain(), nil
}

func (c *Compressor) drain() []byte {
	if c.buf.Len() == 0 {
		return nil
	}
	out := append([]byte(nil), c.buf.Bytes()...)
	c.buf.Reset()
	return out
}

// Decompressor is a stateful streaming decompressor for one logical stream.
//
// The deflate decoder lives on its own goroutine so its mid-stream state
// persists across feeds; the stream end comes from the decoder itself, never
// inferred from how a partial input happens to parse. The feed handshake
// leaves the decoder parked between calls, so every field is touched by one
// goroutine at a time.
type Decompressor struct {
	src  *feed
	errc chan error

	started   bool
	waiting   bool
	ended     bool
	closed    bool
	failed    error
	decoded   []byte
	delivered int
	unused    []byte
}

// NewDecompressor creates a decompressor positioned at the start of a
// stream.
func NewDecompressor() *Decompressor {
	return &Decompressor{
		src: &feed{
			in:   make(chan []byte),
			need: make(chan struct{}),
			quit: make(chan struct{}),
		},
		errc: make(chan error, 1),
	}
}

// Decompress feeds one compressed chunk and returns decompressed bytes.
// maxLength caps the output when non-negative; the remainder stays buffered
// and comes out of later calls (an empty feed drains it). Feeding data
// after the logical stream end fails with ErrStreamEnded; bytes trailing
// the stream end are retained in UnusedData, never consumed.
func (d *Decompressor) Decompress(data []byte, maxLength int) ([]byte, error) {
	if d.failed != nil {
		return nil, d.failed
	}
	if d.ended && len(data) > 0 {
		return nil, ErrStreamEnded
	}

	if !d.ended && len(data) > 0 {
		if !d.started {
			d.started = true
			go d.run()
		}
		if !d.waiting {
			<-d.src.need
			d.waiting = true
		}
		d.src.in <- append([]byte(nil), data...)
		d.waiting = false

		select {
		case <-d.src.need:
			// The decoder consumed the whole chunk mid-stream and is
			// parked waiting for the next feed.
			d.waiting = true
		case err := <-d.errc:
			if err != io.EOF {
				d.failed = fmt.Errorf("%w: %v", ErrCorrupt, err)
				return nil, d.failed
			}
			d.ended = true
			d.unused = d.src.rest()
		}
	}

	fresh := d.decoded[d.delivered:]
	if maxLength >= 0 && len(fresh) > maxLength {
		fresh = fresh[:maxLength]
	}
	d.delivered += len(fresh)

	return append([]byte(nil), fresh...), nil
}

// run decodes until the stream ends or fails. Appends to d.decoded only
// between a feed and the following need or errc signal, so the feeding side
// never reads d.decoded concurrently.
func (d *Decompressor) run() {
	fr := flate.NewReader(d.src)
	buf := make([]byte, 32*1024)
	for {
		n, err := fr.Read(buf)
		if n > 0 {
			d.decoded = append(d.decoded, buf[:n]...)
		}
		if err != nil {
			d.errc <- err
			return
		}
	}
}

// Close releases the decoder goroutine of a stream abandoned before its
// logical end. A stream decoded to its end releases itself; closing is then
// a no-op, and buffered output stays drainable.
func (d *Decompressor) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.started && !d.ended && d.failed == nil {
		close(d.src.quit)
		<-d.errc
	}
	if !d.ended && d.failed == nil {
		d.failed = errClosed
	}
	return nil
}

var errClosed = errors.New("decompressor is closed")

// feed hands chunks to the decoder goroutine. The decoder announces on need
// before blocking on in, so the feeding side always knows when the decoder
// is parked waiting for data. It implements both io.Reader and
// io.ByteReader, which keeps the flate reader from buffering ahead and
// makes the leftover in cur the exact trailing data.
type feed struct {
	in   chan []byte
	need chan struct{}
	quit chan struct{}
	cur  []byte
}

func (f *feed) ensure() error {
	for len(f.cur) == 0 {
		select {
		case f.need <- struct{}{}:
		case <-f.quit:
			return io.ErrClosedPipe
		}
		select {
		case f.cur = <-f.in:
		case <-f.quit:
			return io.ErrClosedPipe
		}
	}
	return nil
}

func (f *feed) Read(p []byte) (int, error) {
	if err := f.ensure(); err != nil {
		return 0, err
	}
	n := copy(p, f.cur)
	f.cur = f.cur[n:]
	return n, nil
}

func (f *feed) ReadByte() (byte, error) {
	if err := f.ensure(); err != nil {
		return 0, err
	}
	b := f.cur[0]
	f.cur = f.cur[1:]
	return b, nil
}

// rest returns what the decoder left unconsumed. Only valid once the
// decoder has stopped.
func (f *feed) rest() []byte {
	if len(f.cur) == 0 {
		return nil
	}
	return append([]byte(nil), f.cur...)
}

// NeedsInput reports whether the decompressor can produce no more output
// until it is fed more compressed data.
func (d *Decompressor) NeedsInput() bool {
	return !d.ended && d.delivered == len(d.decoded)
}

// Eof reports whether the logical end of the stream has been reached.
func (d *Decompressor) Eof() bool {
	return d.ended
}

// UnusedData returns the bytes that trailed the logical stream end.
func (d *Decompressor) UnusedData() []byte {
	return d.unused
}
