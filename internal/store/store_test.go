package store

import (
	"errors"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string `msgpack:"name"`
	Count int    `msgpack:"count"`
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Error("Open without Dir should fail in on-disk mode")
	}
}

func TestOpenOnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Put(Key("a", "1"), record{Name: "one"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	db.Close()

	db, err = Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var got record
	if err := db.Get(Key("a", "1"), &got); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Name != "one" {
		t.Errorf("Get = %+v, want Name=one", got)
	}
}

func TestPutGetDelete(t *testing.T) {
	db := newTestDB(t)
	key := Key("item", "x")

	var got record
	if err := db.Get(key, &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}

	if err := db.Put(key, record{Name: "x", Count: 2}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Get(key, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "x" || got.Count != 2 {
		t.Errorf("Get = %+v", got)
	}

	if err := db.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := db.Get(key, &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
	if err := db.Delete(key); err != nil {
		t.Errorf("Delete of missing key should succeed: %v", err)
	}
}

func TestScanPrefix(t *testing.T) {
	db := newTestDB(t)

	err := db.PutAll(map[string]any{
		"lang:en":      record{Name: "en"},
		"lang:es":      record{Name: "es"},
		"language:zz":  record{Name: "zz"},
		"history:1:aa": record{Name: "h"},
	})
	if err != nil {
		t.Fatalf("PutAll: %v", err)
	}

	var names []string
	err = db.Scan(Key("lang"), func(_ []byte, decode func(any) error) error {
		var r record
		if err := decode(&r); err != nil {
			return err
		}
		names = append(names, r.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(names) != 2 || names[0] != "en" || names[1] != "es" {
		t.Errorf("Scan(lang) = %v, want [en es]", names)
	}
}

func TestDeletePrefix(t *testing.T) {
	db := newTestDB(t)
	for _, k := range []string{"history:1:a", "history:2:b", "lang:en"} {
		if err := db.Put([]byte(k), record{Name: k}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	n, err := db.DeletePrefix(Key("history"))
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if n != 2 {
		t.Errorf("DeletePrefix removed %d, want 2", n)
	}

	var r record
	if err := db.Get(Key("lang", "en"), &r); err != nil {
		t.Errorf("unrelated key should survive: %v", err)
	}
}
