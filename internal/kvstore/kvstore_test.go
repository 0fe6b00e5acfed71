package kvstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/unkn0wn-root/reqbox/internal/errdef"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	fileStore, err := NewFileStore(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	sqliteStore, err := OpenSQLite(filepath.Join(dir, "db", "reqbox.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestRecordRoundTripAcrossBackends(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec := NewRecord[[]sample](store, "sandbox.test")
			_, ok, err := rec.Read()
			if err != nil {
				t.Fatalf("read empty: %v", err)
			}
			if ok {
				t.Fatalf("expected missing record")
			}

			want := []sample{{Name: "a", Count: 1}, {Name: "b", Count: 2}}
			if err := rec.Write(want); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := rec.Write(want[:1]); err != nil {
				t.Fatalf("rewrite: %v", err)
			}
			got, ok, err := rec.Read()
			if err != nil || !ok {
				t.Fatalf("read: ok=%v err=%v", ok, err)
			}
			if len(got) != 1 || got[0] != want[0] {
				t.Fatalf("expected whole-record replace, got %#v", got)
			}

			if err := store.Delete("sandbox.test"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, _ := rec.Read(); ok {
				t.Fatalf("expected record to be gone after delete")
			}
		})
	}
}

func TestRecordEmptySliceIsPresent(t *testing.T) {
	rec := NewRecord[[]sample](NewMemoryStore(), "sandbox.empty")
	if err := rec.Write([]sample{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, ok, err := rec.Read()
	if err != nil || !ok {
		t.Fatalf("expected present record, ok=%v err=%v", ok, err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}

func TestRecordReadCorruptData(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Put("sandbox.bad", []byte("{not json")); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, _, err := NewRecord[[]sample](store, "sandbox.bad").Read()
	if !errdef.Is(err, errdef.CodePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestRecordWriteFailureIsPersistenceError(t *testing.T) {
	store := NewMemoryStore()
	store.FailPut = errors.New("disk full")
	err := NewRecord[int](store, "sandbox.n").Write(1)
	if !errdef.Is(err, errdef.CodePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestFileStoreRejectsTraversalKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	for _, key := range []string{"", "../escape", "a/b", "x..y"} {
		if err := store.Put(key, []byte("1")); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	if err := store.Put("sandbox.saved", []byte("[]")); err != nil {
		t.Fatalf("put: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "sandbox.saved.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("unexpected files %v", names)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("redis", t.TempDir()); !errdef.Is(err, errdef.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	store, err := Open(BackendMemory, "")
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	_ = store.Close()
}
