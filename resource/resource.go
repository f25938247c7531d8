/*
Package resource implements retrieval of named resources from a base
directory.

A resource can be fetched either as a Static value, read completely into
memory when it is requested, or as a Stream which defers opening the
underlying file until a reader is asked for.
*/
package resource

import (
	"bytes"
	"io"
)

// Reader is the capability returned when a resource is opened. Size reports
// the number of bytes the reader will supply.
type Reader interface {
	io.ReadCloser
	Size() int64
}

// Data is the retrieved data for one resource.
type Data interface {
	// Path returns the resolved physical path of the resource
	Path() string
}

// Static is a resource fully read into memory.
type Static struct {
	path string
	data []byte
}

// NewStatic wraps b as the contents of the resource at path.
func NewStatic(path string, b []byte) *Static {
	return &Static{
		path: path,
		data: b,
	}
}

// Path returns the resolved path of the resource
func (s *Static) Path() string {
	return s.path
}

// Bytes returns the contents of the resource. The slice must not be modified.
func (s *Static) Bytes() []byte {
	return s.data
}

// Size returns the length of the resource in bytes
func (s *Static) Size() int64 {
	return int64(len(s.data))
}

// Reader returns a new reader positioned at the start of the resource
func (s *Static) Reader() *bytes.Reader {
	return bytes.NewReader(s.data)
}

// Stream is a resource that is opened on demand.
type Stream struct {
	path   string
	opener Opener
}

// NewStream returns a Stream that opens path with o when asked.
func NewStream(path string, o Opener) *Stream {
	return &Stream{
		path:   path,
		opener: o,
	}
}

// Path returns the resolved path of the resource
func (s *Stream) Path() string {
	return s.path
}

// Open opens the resource. Each call returns a new independent reader
// starting at the first byte; the caller must close it.
func (s *Stream) Open() (Reader, error) {
	return s.opener.Open(s.path)
}
