package buffer

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestBlockBuffer(t *testing.T) {
	t.Run("size=1", func(t *testing.T) {
		bb := BlockN[int](1)
		producerErr := make(chan error, 1)
		go func() {
			n, err := bb.Write([]int{1, 2, 3})
			if err != nil {
				producerErr <- fmt.Errorf("write [1,2,3] with error: %w", err)
				return
			}
			if n != 3 {
				producerErr <- fmt.Errorf("write [1,2,3] with n=%d", n)
				return
			}
			producerErr <- bb.CloseWrite()
		}()

		var got []int
		var one [1]int
		for {
			n, err := bb.Read(one[:])
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("read with error: %v", err)
			}
			got = append(got, one[:n]...)
		}
		if err := <-producerErr; err != nil {
			t.Fatal(err)
		}
		if fmt.Sprint(got) != "[1 2 3]" {
			t.Errorf("got=%v", got)
		}
	})

	t.Run("wrap", func(t *testing.T) {
		bb := BlockN[byte](4)
		if _, err := bb.Write([]byte("abc")); err != nil {
			t.Fatal(err)
		}
		p := make([]byte, 2)
		if n, _ := bb.Read(p); n != 2 || string(p) != "ab" {
			t.Fatalf("read %q", p[:n])
		}
		if _, err := bb.Write([]byte("def")); err != nil {
			t.Fatal(err)
		}
		if bb.Len() != 4 {
			t.Fatalf("Len() = %d, want 4", bb.Len())
		}
		p = make([]byte, 8)
		n, err := bb.Read(p)
		if err != nil {
			t.Fatal(err)
		}
		if string(p[:n]) != "cdef" {
			t.Errorf("read %q, want %q", p[:n], "cdef")
		}
	})

	t.Run("close write then drain", func(t *testing.T) {
		bb := BlockN[byte](8)
		_, _ = bb.Write([]byte("hi"))
		_ = bb.CloseWrite()
		if _, err := bb.Write([]byte("x")); !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("write after CloseWrite err = %v", err)
		}
		p := make([]byte, 8)
		n, err := bb.Read(p)
		if err != nil || string(p[:n]) != "hi" {
			t.Fatalf("read = %q, %v", p[:n], err)
		}
		if _, err := bb.Read(p); err != io.EOF {
			t.Errorf("read after drain err = %v, want EOF", err)
		}
	})

	t.Run("close with error unblocks writer", func(t *testing.T) {
		bb := BlockN[byte](1)
		_, _ = bb.Write([]byte{1})
		sentinel := errors.New("released")
		done := make(chan error, 1)
		go func() {
			_, err := bb.Write([]byte{2})
			done <- err
		}()
		time.Sleep(10 * time.Millisecond)
		_ = bb.CloseWithError(sentinel)
		select {
		case err := <-done:
			if !errors.Is(err, sentinel) {
				t.Errorf("blocked write err = %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("writer still blocked after CloseWithError")
		}
		if !errors.Is(bb.Error(), sentinel) {
			t.Errorf("Error() = %v", bb.Error())
		}
		if _, err := bb.Read(make([]byte, 1)); !errors.Is(err, sentinel) {
			t.Errorf("read err = %v", err)
		}
	})

	t.Run("close with error unblocks reader", func(t *testing.T) {
		bb := BlockN[byte](4)
		done := make(chan error, 1)
		go func() {
			_, err := bb.Read(make([]byte, 1))
			done <- err
		}()
		time.Sleep(10 * time.Millisecond)
		_ = bb.Close()
		select {
		case err := <-done:
			if !errors.Is(err, io.ErrClosedPipe) {
				t.Errorf("blocked read err = %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("reader still blocked after Close")
		}
	})

	t.Run("flush", func(t *testing.T) {
		bb := BlockN[byte](4)
		_, _ = bb.Write([]byte("abcd"))
		if n := bb.Flush(); n != 4 {
			t.Errorf("Flush() = %d, want 4", n)
		}
		if bb.Len() != 0 {
			t.Errorf("Len() = %d after flush", bb.Len())
		}
		if bb.Cap() != 4 {
			t.Errorf("Cap() = %d", bb.Cap())
		}
	})
}
