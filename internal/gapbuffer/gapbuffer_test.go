package gapbuffer

import (
	"errors"
	"math/rand"
	"testing"
)

func TestInsertAndRead(t *testing.T) {
	b := New(0, 16)
	if err := b.Insert(0, []byte("hello")); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if err := b.Insert(99, []byte(" world")); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if got := b.String(); got != "hello world" {
		t.Fatalf("content = %q, want %q", got, "hello world")
	}
	if b.Len() != 11 {
		t.Fatalf("Len = %d, want 11", b.Len())
	}
}

func TestInsertGrows(t *testing.T) {
	b := New(4, 4)
	text := []byte("0123456789")
	if err := b.Insert(0, text); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if b.Cap() != 4+len(text)+4 {
		t.Fatalf("Cap = %d, want %d", b.Cap(), 4+len(text)+4)
	}
	if got := b.String(); got != "0123456789" {
		t.Fatalf("content = %q", got)
	}
	start, end := b.Gap()
	if start != 10 || end != b.Cap() {
		t.Fatalf("gap = %d..%d, want 10..%d", start, end, b.Cap())
	}
}

func TestDelete(t *testing.T) {
	b := New(0, 8)
	_ = b.Insert(0, []byte("abcde"))
	if n := b.Delete(1, 2); n != 2 {
		t.Fatalf("Delete = %d, want 2", n)
	}
	if got := b.String(); got != "ade" {
		t.Fatalf("content = %q, want %q", got, "ade")
	}
	if n := b.Delete(2, 10); n != 1 {
		t.Fatalf("clamped Delete = %d, want 1", n)
	}
	if got := b.String(); got != "ad" {
		t.Fatalf("content = %q, want %q", got, "ad")
	}
	if n := b.Delete(5, 1); n != 0 {
		t.Fatalf("Delete past end = %d, want 0", n)
	}
}

func TestReadTerminates(t *testing.T) {
	b := New(0, 8)
	_ = b.Insert(0, []byte("abcdef"))
	b.Delete(2, 1) // gap now sits in the middle

	dst := make([]byte, 4)
	n := b.Read(dst)
	if n != 3 {
		t.Fatalf("Read = %d, want 3", n)
	}
	if string(dst[:n]) != "abd" || dst[n] != 0 {
		t.Fatalf("dst = %q", dst)
	}

	full := make([]byte, 16)
	n = b.Read(full)
	if string(full[:n]) != "abdef" {
		t.Fatalf("full read = %q, want %q", full[:n], "abdef")
	}
	if b.Read(nil) != 0 {
		t.Fatalf("Read(nil) != 0")
	}
}

func TestAtAcrossGap(t *testing.T) {
	b := New(0, 8)
	_ = b.Insert(0, []byte("xyz"))
	_ = b.Insert(1, []byte("-"))
	want := "x-yz"
	for i := 0; i < len(want); i++ {
		if got := b.At(i); got != want[i] {
			t.Fatalf("At(%d) = %q, want %q", i, got, want[i])
		}
	}
	if b.At(-1) != 0 || b.At(4) != 0 {
		t.Fatalf("out of range At != 0")
	}
}

func TestSlice(t *testing.T) {
	b := New(0, 8)
	_ = b.Insert(0, []byte("abcde"))
	_ = b.Insert(2, []byte("_"))
	if got := string(b.Slice(1, 3)); got != "b_c" {
		t.Fatalf("Slice = %q, want %q", got, "b_c")
	}
	if got := b.Slice(6, 3); got != nil {
		t.Fatalf("Slice past end = %q, want nil", got)
	}
}

func TestClear(t *testing.T) {
	b := New(0, 8)
	_ = b.Insert(0, []byte("some text"))
	capBefore := b.Cap()
	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("Len = %d, want 0", b.Len())
	}
	if b.Cap() != capBefore {
		t.Fatalf("Cap = %d, want %d", b.Cap(), capBefore)
	}
}

func TestTooLarge(t *testing.T) {
	b := New(0, 8)
	b.SetMaxLen(4)
	if err := b.Insert(0, []byte("abcd")); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if b.Room() != 0 {
		t.Fatalf("Room = %d, want 0", b.Room())
	}
	if err := b.Insert(0, []byte("e")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Insert err = %v, want ErrTooLarge", err)
	}
	if got := b.String(); got != "abcd" {
		t.Fatalf("content = %q after failed insert", got)
	}
}

func TestMatchesReferenceModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := New(0, 8)
	var model []byte
	alphabet := []byte("abcdefghij\n")

	for i := 0; i < 2000; i++ {
		pos := rng.Intn(len(model) + 3)
		if rng.Intn(3) > 0 {
			text := make([]byte, rng.Intn(12)+1)
			for j := range text {
				text[j] = alphabet[rng.Intn(len(alphabet))]
			}
			if err := b.Insert(pos, text); err != nil {
				t.Fatalf("step %d: Insert error: %v", i, err)
			}
			if pos > len(model) {
				pos = len(model)
			}
			model = append(model[:pos], append(append([]byte(nil), text...), model[pos:]...)...)
		} else {
			n := rng.Intn(10)
			b.Delete(pos, n)
			if pos < len(model) {
				if pos+n > len(model) {
					n = len(model) - pos
				}
				model = append(model[:pos], model[pos+n:]...)
			}
		}
		if got := b.String(); got != string(model) {
			t.Fatalf("step %d: content = %q, want %q", i, got, model)
		}
	}
}
