package history

import "time"

// Kind identifies an operation on disk.
type Kind uint8

const (
	KindInsert Kind = 1
	KindDelete Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "INSERT"
	case KindDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Operation is a single recorded edit. It is either an Insert or a Delete.
type Operation interface {
	Kind() Kind
	Pos() int
	// Payload is the inserted text for Insert and the removed text for Delete.
	Payload() []byte
	Len() int
	Timestamp() time.Time
	// Inverse returns the operation that undoes this one.
	Inverse() Operation

	isOperation()
}

// Insert places Text at Position.
type Insert struct {
	Position int
	Text     []byte
	Time     time.Time
}

func (o Insert) Kind() Kind           { return KindInsert }
func (o Insert) Pos() int             { return o.Position }
func (o Insert) Payload() []byte      { return o.Text }
func (o Insert) Len() int             { return len(o.Text) }
func (o Insert) Timestamp() time.Time { return o.Time }
func (o Insert) Inverse() Operation   { return Delete(o) }
func (Insert) isOperation()           {}

// Delete removes len(Text) bytes at Position. Text holds the removed bytes.
type Delete struct {
	Position int
	Text     []byte
	Time     time.Time
}

func (o Delete) Kind() Kind           { return KindDelete }
func (o Delete) Pos() int             { return o.Position }
func (o Delete) Payload() []byte      { return o.Text }
func (o Delete) Len() int             { return len(o.Text) }
func (o Delete) Timestamp() time.Time { return o.Time }
func (o Delete) Inverse() Operation   { return Insert(o) }
func (Delete) isOperation()           {}

// NewOperation builds an operation of the given kind. The payload is copied.
func NewOperation(kind Kind, pos int, payload []byte, ts time.Time) (Operation, error) {
	text := append([]byte(nil), payload...)
	switch kind {
	case KindInsert:
		return Insert{Position: pos, Text: text, Time: ts}, nil
	case KindDelete:
		return Delete{Position: pos, Text: text, Time: ts}, nil
	default:
		return nil, ErrInvalidFormat
	}
}
