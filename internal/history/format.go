package history

// Log file layout, little-endian throughout:
//
//	Header (32 bytes):
//	  Magic    [8]byte "THIST001"
//	  Version  uint32
//	  Created  uint64 unix ms
//	  Flags    uint32 (zero)
//	  Reserved uint64 (zero)
//
//	Record (17 bytes + payload, repeated):
//	  Kind      uint8
//	  Position  uint32
//	  Length    uint32
//	  Timestamp uint64 unix ms
//	  Payload   [Length]byte

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

const (
	Magic            = "THIST001"
	Version          = uint32(1)
	HeaderSize       = 32
	RecordHeaderSize = 1 + 4 + 4 + 8
)

// Header is the fixed prefix of every log file.
type Header struct {
	Version uint32
	Created time.Time
	Flags   uint32
}

func encodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], Magic)
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	binary.LittleEndian.PutUint64(buf[12:20], uint64(h.Created.UnixMilli()))
	binary.LittleEndian.PutUint32(buf[20:24], h.Flags)
	// buf[24:32] reserved
	return buf
}

func readHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: short header", ErrInvalidFormat)
		}
		return Header{}, err
	}
	if string(buf[0:8]) != Magic {
		return Header{}, fmt.Errorf("%w: magic %q", ErrInvalidFormat, buf[0:8])
	}
	version := binary.LittleEndian.Uint32(buf[8:12])
	if version > Version {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, version)
	}
	return Header{
		Version: version,
		Created: time.UnixMilli(int64(binary.LittleEndian.Uint64(buf[12:20]))),
		Flags:   binary.LittleEndian.Uint32(buf[20:24]),
	}, nil
}

func recordSize(op Operation) int64 {
	return int64(RecordHeaderSize + op.Len())
}

// checkRecord reports whether op fits the uint32 position and length fields.
func checkRecord(op Operation) error {
	if op.Pos() < 0 || uint64(op.Pos()) > math.MaxUint32 || uint64(op.Len()) > math.MaxUint32 {
		return fmt.Errorf("%w: pos %d len %d", ErrOutOfRange, op.Pos(), op.Len())
	}
	return nil
}

func encodeRecord(op Operation) ([]byte, error) {
	if err := checkRecord(op); err != nil {
		return nil, err
	}
	buf := make([]byte, RecordHeaderSize+op.Len())
	buf[0] = byte(op.Kind())
	binary.LittleEndian.PutUint32(buf[1:5], uint32(op.Pos()))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(op.Len()))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(op.Timestamp().UnixMilli()))
	copy(buf[RecordHeaderSize:], op.Payload())
	return buf, nil
}

// errTruncated marks a record cut short by the end of the file.
var errTruncated = errors.New("truncated record")

// readRecord decodes the next record. It returns io.EOF at a clean record
// boundary and errTruncated when the file ends inside a record. remaining is
// the number of unread bytes, used to reject impossible payload lengths.
func readRecord(r io.Reader, remaining int64) (Operation, error) {
	var hdr [RecordHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errTruncated
		}
		return nil, err
	}
	kind := Kind(hdr[0])
	pos := binary.LittleEndian.Uint32(hdr[1:5])
	length := binary.LittleEndian.Uint32(hdr[5:9])
	ts := time.UnixMilli(int64(binary.LittleEndian.Uint64(hdr[9:17])))

	if int64(length) > remaining-RecordHeaderSize {
		return nil, errTruncated
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errTruncated
		}
		return nil, err
	}
	op, err := NewOperation(kind, int(pos), payload, ts)
	if err != nil {
		return nil, fmt.Errorf("%w: record kind %d", err, kind)
	}
	return op, nil
}
