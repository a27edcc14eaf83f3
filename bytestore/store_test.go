package bytestore

import (
	"bytes"
	"io"
	"os"
	"sync"
	"testing"
)

func TestStore_WriteRead(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	if _, err := s.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := s.Write([]byte("world")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if s.Size() != 11 {
		t.Fatalf("Size() = %d, want 11", s.Size())
	}

	buf := make([]byte, 5)
	n, err := s.ReadAt(buf, 6)
	if err != nil && err != io.EOF {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if string(buf[:n]) != "world" {
		t.Fatalf("ReadAt = %q, want world", buf[:n])
	}

	n, err = s.ReadAt(buf, 11)
	if n != 0 || err != io.EOF {
		t.Fatalf("ReadAt at end = %d, %v; want 0, EOF", n, err)
	}
}

func TestStore_Anonymous(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("store left %d visible files in %s", len(entries), dir)
	}
}

func TestStore_Fallback(t *testing.T) {
	dir := t.TempDir()
	f, err := openUnlinked(dir)
	if err != nil {
		t.Fatalf("openUnlinked failed: %v", err)
	}
	defer f.Close()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatal("fallback left a named file")
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, err := s.Write([]byte("x")); err == nil {
		t.Fatal("Write after Close should fail")
	}
	if _, err := s.ReadAt(make([]byte, 1), 0); err == nil {
		t.Fatal("ReadAt after Close should fail")
	}
}

func TestStore_BadDir(t *testing.T) {
	if _, err := New("/nonexistent/plugin-runtime"); err == nil {
		t.Fatal("New in missing dir should fail")
	}
}

func TestStore_ConcurrentWriters(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	chunk := bytes.Repeat([]byte{'x'}, 128)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				s.Write(chunk)
			}
		}()
	}
	wg.Wait()

	if s.Size() != 16*10*128 {
		t.Fatalf("Size() = %d, want %d", s.Size(), 16*10*128)
	}
}
