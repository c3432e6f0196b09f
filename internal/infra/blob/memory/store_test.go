package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"labsynth/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	info, err := s.Put(context.Background(), "fam/data/fam.t.csv", strings.NewReader("a,b\n"), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"seed": "42"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 4 || info.ETag == "" {
		t.Fatalf("put info: %+v", info)
	}

	got, rc, err := s.Get(context.Background(), "fam/data/fam.t.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "a,b\n" {
		t.Fatalf("body = %q", body)
	}
	if got.Metadata["seed"] != "42" || got.ContentType != "text/csv" {
		t.Fatalf("get info: %+v", got)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := New()
	first, _ := s.Put(context.Background(), "k", strings.NewReader("one"), core.PutOptions{})
	second, err := s.Put(context.Background(), "k", strings.NewReader("two!"), core.PutOptions{})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if first.ETag == second.ETag {
		t.Fatal("overwrite did not change the checksum")
	}
	head, err := s.Head(context.Background(), "k")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Size != 4 {
		t.Fatalf("size after overwrite = %d, want 4", head.Size)
	}
}

func TestMissingKey(t *testing.T) {
	s := New()
	if _, _, err := s.Get(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	if _, err := s.Head(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head missing: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	_, _ = s.Put(context.Background(), "k", strings.NewReader("x"), core.PutOptions{})
	removed, err := s.Delete(context.Background(), "k")
	if err != nil || !removed {
		t.Fatalf("delete = %v, %v", removed, err)
	}
	removed, err = s.Delete(context.Background(), "k")
	if err != nil || removed {
		t.Fatalf("second delete = %v, %v, want false, nil", removed, err)
	}
}

func TestListByPrefix(t *testing.T) {
	s := New()
	for _, key := range []string{"b/t2", "a/t1", "a/t2"} {
		_, _ = s.Put(context.Background(), key, strings.NewReader(key), core.PutOptions{})
	}
	infos, err := s.List(context.Background(), "a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "a/t1" || infos[1].Key != "a/t2" {
		t.Fatalf("list a/: %+v", infos)
	}
}

func TestGetIsolatesCallers(t *testing.T) {
	s := New()
	_, _ = s.Put(context.Background(), "k", strings.NewReader("abc"), core.PutOptions{})
	_, rc, err := s.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	buf, _ := io.ReadAll(rc)
	rc.Close()
	buf[0] = 'z' // mutating the returned copy must not corrupt the store

	_, rc, err = s.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	defer rc.Close()
	again, _ := io.ReadAll(rc)
	if string(again) != "abc" {
		t.Fatalf("stored data mutated: %q", again)
	}
}

func TestDriver(t *testing.T) {
	if got := New().Driver(); got != core.DriverMemory {
		t.Fatalf("driver = %s", got)
	}
}
