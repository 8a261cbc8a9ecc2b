package gapbuffer

import (
	"errors"
	"math"
)

// DefaultSlack is the extra room added whenever the gap has to grow.
const DefaultSlack = 1024

// MaxLen is the largest content length a buffer accepts by default.
// History records store positions in four bytes.
const MaxLen = min(math.MaxUint32, math.MaxInt)

// ErrTooLarge is returned when an insert would grow the buffer past its limit.
var ErrTooLarge = errors.New("gapbuffer: content too large")

// Buffer is a byte gap buffer. Content is data[:gapStart] followed by
// data[gapEnd:].
type Buffer struct {
	data     []byte
	gapStart int
	gapEnd   int
	slack    int
	maxLen   int
}

// New creates an empty buffer. capacity is raised to slack when smaller.
func New(capacity, slack int) *Buffer {
	if slack < 1 {
		slack = DefaultSlack
	}
	if capacity < slack {
		capacity = slack
	}
	return &Buffer{
		data:   make([]byte, capacity),
		gapEnd: capacity,
		slack:  slack,
		maxLen: MaxLen,
	}
}

// SetMaxLen changes the content limit enforced by Insert.
func (b *Buffer) SetMaxLen(n int) {
	if n > 0 {
		b.maxLen = n
	}
}

// Len returns the logical content length.
func (b *Buffer) Len() int {
	return len(b.data) - (b.gapEnd - b.gapStart)
}

// Room returns how many more bytes Insert accepts.
func (b *Buffer) Room() int {
	return b.maxLen - b.Len()
}

// Cap returns the size of the backing storage.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Gap returns the current gap bounds.
func (b *Buffer) Gap() (start, end int) {
	return b.gapStart, b.gapEnd
}

// moveGap shifts the region between pos and the gap across it.
func (b *Buffer) moveGap(pos int) {
	if pos == b.gapStart {
		return
	}
	gap := b.gapEnd - b.gapStart
	if pos < b.gapStart {
		n := b.gapStart - pos
		copy(b.data[b.gapEnd-n:b.gapEnd], b.data[pos:b.gapStart])
	} else {
		n := pos - b.gapStart
		copy(b.data[b.gapStart:b.gapStart+n], b.data[b.gapEnd:b.gapEnd+n])
	}
	b.gapStart = pos
	b.gapEnd = pos + gap
}

func (b *Buffer) grow(needed int) {
	gap := b.gapEnd - b.gapStart
	if gap >= needed {
		return
	}
	newCap := len(b.data) + needed + b.slack
	data := make([]byte, newCap)
	copy(data, b.data[:b.gapStart])
	after := len(b.data) - b.gapEnd
	copy(data[newCap-after:], b.data[b.gapEnd:])
	b.data = data
	b.gapEnd = newCap - after
}

// Insert writes text at pos, clamped to [0, Len].
func (b *Buffer) Insert(pos int, text []byte) error {
	if len(text) == 0 {
		return nil
	}
	length := b.Len()
	if len(text) > b.maxLen-length {
		return ErrTooLarge
	}
	pos = clamp(pos, 0, length)
	b.grow(len(text))
	b.moveGap(pos)
	copy(b.data[b.gapStart:], text)
	b.gapStart += len(text)
	return nil
}

// Delete removes up to n bytes starting at pos and returns how many were
// removed. Positions at or past the end are a no-op.
func (b *Buffer) Delete(pos, n int) int {
	length := b.Len()
	if pos < 0 {
		pos = 0
	}
	if pos >= length || n <= 0 {
		return 0
	}
	if n > length-pos {
		n = length - pos
	}
	b.moveGap(pos)
	b.gapEnd += n
	return n
}

// Read copies at most len(dst)-1 bytes of content into dst followed by a
// zero terminator and returns the number of content bytes copied.
func (b *Buffer) Read(dst []byte) int {
	if len(dst) == 0 {
		return 0
	}
	n := b.Len()
	if n > len(dst)-1 {
		n = len(dst) - 1
	}
	before := b.gapStart
	if before > n {
		before = n
	}
	copy(dst, b.data[:before])
	if before < n {
		copy(dst[before:n], b.data[b.gapEnd:])
	}
	dst[n] = 0
	return n
}

// Bytes returns a copy of the whole content.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, 0, b.Len())
	out = append(out, b.data[:b.gapStart]...)
	return append(out, b.data[b.gapEnd:]...)
}

func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Slice returns a copy of up to n bytes starting at pos.
func (b *Buffer) Slice(pos, n int) []byte {
	length := b.Len()
	pos = clamp(pos, 0, length)
	if n > length-pos {
		n = length - pos
	}
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = b.At(pos + i)
	}
	return out
}

// At returns the byte at pos, or 0 when pos is out of range.
func (b *Buffer) At(pos int) byte {
	if pos < 0 || pos >= b.Len() {
		return 0
	}
	if pos < b.gapStart {
		return b.data[pos]
	}
	return b.data[b.gapEnd+(pos-b.gapStart)]
}

// Clear empties the buffer without releasing storage.
func (b *Buffer) Clear() {
	b.gapStart = 0
	b.gapEnd = len(b.data)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
