// Package cache persists a dataset.Index to a single self-describing file
// and reads it back.
//
// Every cache file starts with an 8 byte header:
//
//	[0:4] magic "VIDX"
//	[4]   header version
//	[5]   payload Format
//	[6]   payload Compression
//	[7]   reserved, zero
//
// followed by the (possibly compressed) payload.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tsawler/vision-index/vision/dataset"
)

const (
	headerSize    = 8
	headerVersion = 1
)

var magic = [4]byte{'V', 'I', 'D', 'X'}

var (
	// ErrPersist is returned when a cache file cannot be written
	ErrPersist = errors.New("cannot persist cache")

	// ErrCorrupt is returned when a cache file cannot be decoded
	ErrCorrupt = errors.New("corrupt cache file")
)

// PersistError names the destination and step of a failed write
type PersistError struct {
	Path  string
	Op    string
	cause error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", ErrPersist, e.Path, e.Op, e.cause)
}

func (e *PersistError) Unwrap() []error { return []error{ErrPersist, e.cause} }

// Format defines the payload serialization
type Format uint8

const (
	FormatProto Format = iota + 1
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatProto:
		return "proto"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat maps a format name to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "proto", "protobuf":
		return FormatProto, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unsupported cache format: %q", s)
	}
}

// Saver writes dataset indexes in one format and compression
type Saver struct {
	format      Format
	compression Compression
}

// NewSaver creates a saver for the given format and compression
func NewSaver(format Format, compression Compression) *Saver {
	return &Saver{
		format:      format,
		compression: compression,
	}
}

// Save writes idx to path, replacing any existing file. The destination is
// either left untouched or fully replaced; partial files are never visible.
func (s *Saver) Save(idx *dataset.Index, path string) error {
	if err := idx.Validate(); err != nil {
		return &PersistError{Path: path, Op: "validate", cause: err}
	}

	payload, err := s.marshal(idx)
	if err != nil {
		return &PersistError{Path: path, Op: "encode", cause: err}
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(payload))
	buf.Write(magic[:])
	buf.Write([]byte{headerVersion, byte(s.format), byte(s.compression), 0})
	if err := compress(&buf, payload, s.compression); err != nil {
		return &PersistError{Path: path, Op: "compress", cause: err}
	}

	if err := writeAtomic(path, &buf, 0o644); err != nil {
		return &PersistError{Path: path, Op: "write", cause: err}
	}
	return nil
}

func (s *Saver) marshal(idx *dataset.Index) ([]byte, error) {
	switch s.format {
	case FormatProto:
		return marshalProto(idx), nil
	case FormatJSON:
		return marshalJSON(idx)
	default:
		return nil, fmt.Errorf("unsupported cache format: %s", s.format)
	}
}

// Load reads a cache file written by any Saver
func Load(path string) (*dataset.Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	return Read(file)
}

// Read decodes a cache file from r
func Read(r io.Reader) (*dataset.Index, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrCorrupt, err)
	}
	if !bytes.Equal(header[:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, header[:4])
	}
	if header[4] != headerVersion {
		return nil, fmt.Errorf("%w: unsupported header version %d", ErrCorrupt, header[4])
	}
	format, compression := Format(header[5]), Compression(header[6])

	payload, err := decompress(r, compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var idx *dataset.Index
	switch format {
	case FormatProto:
		idx, err = unmarshalProto(payload)
	case FormatJSON:
		idx, err = unmarshalJSON(payload)
	default:
		err = fmt.Errorf("unsupported cache format %d", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := idx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return idx, nil
}
