// Package codec provides little-endian binary stream helpers with sticky
// errors, used by brain serialization and world save files.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrTooLarge is returned when a length prefix exceeds the caller's bound.
var ErrTooLarge = errors.New("codec: length exceeds bound")

// Writer writes primitive values. The first error stops all further writes.
type Writer struct {
	w   io.Writer
	n   int64
	err error
	buf [8]byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first write error.
func (w *Writer) Err() error { return w.err }

// N returns the number of bytes written.
func (w *Writer) N() int64 { return w.n }

// Raw writes b without a length prefix.
func (w *Writer) Raw(b []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(b)
	w.n += int64(n)
	w.err = err
}

func (w *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.Raw(w.buf[:4])
}

func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

func (w *Writer) Float32(v float32) { w.Uint32(math.Float32bits(v)) }

func (w *Writer) Uint8(v uint8) {
	w.buf[0] = v
	w.Raw(w.buf[:1])
}

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

// Float32s writes a length-prefixed float slice.
func (w *Writer) Float32s(v []float32) {
	w.Uint32(uint32(len(v)))
	for _, f := range v {
		w.Float32(f)
	}
}

// Bytes writes a length-prefixed byte slice.
func (w *Writer) Bytes(b []byte) {
	w.Uint32(uint32(len(b)))
	w.Raw(b)
}

// String writes a length-prefixed string.
func (w *Writer) String(s string) {
	w.Bytes([]byte(s))
}

// Reader reads primitive values. After the first error every read returns
// the zero value.
type Reader struct {
	r   io.Reader
	n   int64
	err error
	buf [8]byte
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first read error.
func (r *Reader) Err() error { return r.err }

// N returns the number of bytes consumed.
func (r *Reader) N() int64 { return r.n }

// Raw reads exactly n bytes.
func (r *Reader) Raw(n int) []byte {
	if r.err != nil {
		return nil
	}
	b := make([]byte, n)
	m, err := io.ReadFull(r.r, b)
	r.n += int64(m)
	if err != nil {
		r.err = err
		return nil
	}
	return b
}

func (r *Reader) fill(n int) bool {
	if r.err != nil {
		return false
	}
	m, err := io.ReadFull(r.r, r.buf[:n])
	r.n += int64(m)
	if err != nil {
		r.err = err
		return false
	}
	return true
}

func (r *Reader) Uint32() uint32 {
	if !r.fill(4) {
		return 0
	}
	return binary.LittleEndian.Uint32(r.buf[:4])
}

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

func (r *Reader) Float32() float32 { return math.Float32frombits(r.Uint32()) }

func (r *Reader) Uint8() uint8 {
	if !r.fill(1) {
		return 0
	}
	return r.buf[0]
}

func (r *Reader) Bool() bool { return r.Uint8() != 0 }

// Len reads a length prefix and checks it against max.
func (r *Reader) Len(max int) int {
	n := r.Uint32()
	if r.err != nil {
		return 0
	}
	if uint64(n) > uint64(max) {
		r.err = fmt.Errorf("%w: %d > %d", ErrTooLarge, n, max)
		return 0
	}
	return int(n)
}

// Float32s reads a length-prefixed float slice of at most max elements.
func (r *Reader) Float32s(max int) []float32 {
	n := r.Len(max)
	if r.err != nil {
		return nil
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = r.Float32()
	}
	if r.err != nil {
		return nil
	}
	return v
}

// Bytes reads a length-prefixed byte slice of at most max bytes.
func (r *Reader) Bytes(max int) []byte {
	n := r.Len(max)
	if r.err != nil {
		return nil
	}
	return r.Raw(n)
}

// String reads a length-prefixed string of at most max bytes.
func (r *Reader) String(max int) string {
	return string(r.Bytes(max))
}

// Fail records err if no earlier error occurred.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
