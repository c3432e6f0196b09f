package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"labsynth/internal/blob/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func put(t *testing.T, s *Store, key, body string, opts core.PutOptions) core.Info {
	t.Helper()
	info, err := s.Put(context.Background(), key, strings.NewReader(body), opts)
	if err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
	return info
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newStore(t)
	meta := map[string]string{"run_id": "r1", "family": "incidents"}
	info := put(t, s, "incidents/data/incidents.incidents.csv", "a,b\n1,2\n", core.PutOptions{ContentType: "text/csv", Metadata: meta})

	if info.Size != 8 || info.ContentType != "text/csv" || info.ETag == "" {
		t.Fatalf("put info: %+v", info)
	}

	got, rc, err := s.Get(context.Background(), "incidents/data/incidents.incidents.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "a,b\n1,2\n" {
		t.Fatalf("body = %q", body)
	}
	if got.ETag != info.ETag || got.Metadata["family"] != "incidents" {
		t.Fatalf("get info: %+v", got)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := newStore(t)
	first := put(t, s, "qc/data/qc.results.json", "[]", core.PutOptions{})
	second := put(t, s, "qc/data/qc.results.json", `[{"n":1}]`, core.PutOptions{})
	if first.ETag == second.ETag {
		t.Fatal("overwrite did not change the checksum")
	}
	head, err := s.Head(context.Background(), "qc/data/qc.results.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ETag != second.ETag || head.Size != second.Size {
		t.Fatalf("head after overwrite = %+v, want %+v", head, second)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := newStore(t)
	if _, _, err := s.Get(context.Background(), "nope/missing.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get missing: %v, want ErrNotFound", err)
	}
	if _, err := s.Head(context.Background(), "nope/missing.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head missing: %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	put(t, s, "x/y.csv", "data", core.PutOptions{})

	removed, err := s.Delete(context.Background(), "x/y.csv")
	if err != nil || !removed {
		t.Fatalf("delete = %v, %v", removed, err)
	}
	if _, err := s.Head(context.Background(), "x/y.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head after delete: %v", err)
	}
	removed, err = s.Delete(context.Background(), "x/y.csv")
	if err != nil || removed {
		t.Fatalf("second delete = %v, %v, want false, nil", removed, err)
	}
}

func TestListByPrefix(t *testing.T) {
	s := newStore(t)
	put(t, s, "a/data/a.t1.csv", "1", core.PutOptions{})
	put(t, s, "a/data/a.t2.csv", "2", core.PutOptions{})
	put(t, s, "b/data/b.t1.csv", "3", core.PutOptions{})

	infos, err := s.List(context.Background(), "a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("list a/ = %d entries, want 2", len(infos))
	}
	if infos[0].Key != "a/data/a.t1.csv" || infos[1].Key != "a/data/a.t2.csv" {
		t.Fatalf("list order: %q, %q", infos[0].Key, infos[1].Key)
	}

	all, err := s.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("list all = %d entries, want 3", len(all))
	}
}

func TestKeySanitisation(t *testing.T) {
	s := newStore(t)
	for _, key := range []string{"", "  ", "/etc/passwd", "../escape", "a/../../escape"} {
		if _, err := s.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Errorf("put accepted unsafe key %q", key)
		}
	}
	// Nothing may appear outside the root.
	parent := filepath.Dir(s.Root())
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("read parent: %v", err)
	}
	for _, e := range entries {
		if e.Name() == "escape" {
			t.Fatal("unsafe key escaped the output root")
		}
	}
}

func TestPutCleansUpTempFiles(t *testing.T) {
	s := newStore(t)
	put(t, s, "fam/data/fam.t.csv", "body", core.PutOptions{})
	err := filepath.WalkDir(s.Root(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), ".labsynth-") {
			t.Errorf("temp file left behind: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
}

func TestDriver(t *testing.T) {
	if got := newStore(t).Driver(); got != core.DriverFilesystem {
		t.Fatalf("driver = %s", got)
	}
}
