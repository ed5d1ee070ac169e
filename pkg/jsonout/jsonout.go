// Package jsonout is a streaming JSON tree builder. Objects and arrays are
// explicit scopes that must be closed by the caller; members are emitted in
// call order. Absence of a member is how "no data" is expressed, there is
// no placeholder value.
package jsonout

import (
	"encoding/hex"
	"io"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

const defaultBufSize = 512

// Writer owns the underlying stream. It is not safe for concurrent use.
type Writer struct {
	stream  *jsoniter.Stream
	scratch []byte
}

// NewWriter returns a Writer that flushes to out. A nil out keeps all
// output in the buffer, see Buffered.
func NewWriter(out io.Writer) *Writer {
	return &Writer{stream: jsoniter.NewStream(jsoniter.ConfigCompatibleWithStandardLibrary, out, defaultBufSize)}
}

// Object opens a top-level object.
func (w *Writer) Object() *Object {
	w.stream.WriteObjectStart()
	return &Object{scope{w: w}}
}

// Buffered returns the bytes written since the last flush or reset.
func (w *Writer) Buffered() []byte {
	return w.stream.Buffer()
}

// Flush writes buffered output to the destination and reports the first
// error seen by the stream.
func (w *Writer) Flush() error {
	if err := w.stream.Flush(); err != nil {
		return err
	}
	return w.stream.Error
}

// Reset discards buffered output and retargets the writer.
func (w *Writer) Reset(out io.Writer) {
	w.stream.Reset(out)
	w.stream.Error = nil
}

// Newline ends a record when writing JSON lines.
func (w *Writer) Newline() {
	w.stream.WriteRaw("\n")
}

func (w *Writer) text(b []byte) {
	if !utf8.Valid(b) {
		w.hex(b)
		return
	}
	w.stream.WriteString(string(b))
}

func (w *Writer) hex(b []byte) {
	w.scratch = append(w.scratch[:0], '"')
	w.scratch = hex.AppendEncode(w.scratch, b)
	w.scratch = append(w.scratch, '"')
	w.stream.Write(w.scratch)
}

type scope struct {
	w      *Writer
	n      int
	closed bool
}

func (s *scope) next() {
	if s.n > 0 {
		s.w.stream.WriteMore()
	}
	s.n++
}

// Len returns the number of members emitted so far.
func (s *scope) Len() int { return s.n }

// Object is an open JSON object scope.
type Object struct{ scope }

func (o *Object) key(k string) {
	o.next()
	o.w.stream.WriteObjectField(k)
}

// Object opens a nested object under name.
func (o *Object) Object(name string) *Object {
	o.key(name)
	o.w.stream.WriteObjectStart()
	return &Object{scope{w: o.w}}
}

// Array opens a nested array under name.
func (o *Object) Array(name string) *Array {
	o.key(name)
	o.w.stream.WriteArrayStart()
	return &Array{scope{w: o.w}}
}

func (o *Object) String(k, v string) {
	o.key(k)
	o.w.stream.WriteString(v)
}

// Text writes b as a JSON string, or as hex when b is not valid UTF-8.
func (o *Object) Text(k string, b []byte) {
	o.key(k)
	o.w.text(b)
}

// Hex writes b as a lowercase hex string.
func (o *Object) Hex(k string, b []byte) {
	o.key(k)
	o.w.hex(b)
}

func (o *Object) Uint(k string, v uint64) {
	o.key(k)
	o.w.stream.WriteUint64(v)
}

func (o *Object) Int(k string, v int64) {
	o.key(k)
	o.w.stream.WriteInt64(v)
}

func (o *Object) Bool(k string, v bool) {
	o.key(k)
	o.w.stream.WriteBool(v)
}

// Close ends the object. Closing twice is a no-op.
func (o *Object) Close() {
	if o.closed {
		return
	}
	o.closed = true
	o.w.stream.WriteObjectEnd()
}

// Array is an open JSON array scope.
type Array struct{ scope }

// Object opens an object element.
func (a *Array) Object() *Object {
	a.next()
	a.w.stream.WriteObjectStart()
	return &Object{scope{w: a.w}}
}

// Array opens an array element.
func (a *Array) Array() *Array {
	a.next()
	a.w.stream.WriteArrayStart()
	return &Array{scope{w: a.w}}
}

func (a *Array) String(v string) {
	a.next()
	a.w.stream.WriteString(v)
}

func (a *Array) Text(b []byte) {
	a.next()
	a.w.text(b)
}

func (a *Array) Hex(b []byte) {
	a.next()
	a.w.hex(b)
}

func (a *Array) Uint(v uint64) {
	a.next()
	a.w.stream.WriteUint64(v)
}

func (a *Array) Int(v int64) {
	a.next()
	a.w.stream.WriteInt64(v)
}

// Close ends the array. Closing twice is a no-op.
func (a *Array) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.w.stream.WriteArrayEnd()
}
