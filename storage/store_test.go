package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	stores := map[string]Store{}
	for _, tc := range []struct{ kind, path string }{
		{"memory", ""},
		{"file", filepath.Join(dir, "saves")},
		{"sqlite", filepath.Join(dir, "saves.db")},
	} {
		s, err := Open(ctx, tc.kind, tc.path)
		if err != nil {
			t.Fatalf("open %s: %v", tc.kind, err)
		}
		t.Cleanup(func() { _ = s.Close() })
		stores[tc.kind] = s
	}
	return stores
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			if _, _, err := s.Latest(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Latest on empty store: %v", err)
			}
			if _, err := s.Get(ctx, "missing.sav"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get missing: %v", err)
			}

			a := []byte("SCRIPTBOTS_SAVE a")
			b := []byte("SCRIPTBOTS_SAVE bb")
			if err := s.Put(ctx, "autosave_epoch_1.sav", a); err != nil {
				t.Fatal(err)
			}
			if err := s.Put(ctx, "autosave_epoch_2.sav", b); err != nil {
				t.Fatal(err)
			}

			got, err := s.Get(ctx, "autosave_epoch_1.sav")
			if err != nil || !bytes.Equal(got, a) {
				t.Fatalf("Get = %q, %v", got, err)
			}
			name, data, err := s.Latest(ctx)
			if err != nil || name != "autosave_epoch_2.sav" || !bytes.Equal(data, b) {
				t.Fatalf("Latest = %q %q %v", name, data, err)
			}

			list, err := s.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 || list[0].Name != "autosave_epoch_1.sav" || list[1].Size != len(b) {
				t.Fatalf("List = %+v", list)
			}

			// Overwrite keeps one entry per name
			if err := s.Put(ctx, "autosave_epoch_1.sav", b); err != nil {
				t.Fatal(err)
			}
			list, _ = s.List(ctx)
			if len(list) != 2 {
				t.Fatalf("List after overwrite = %+v", list)
			}
			got, _ = s.Get(ctx, "autosave_epoch_1.sav")
			if !bytes.Equal(got, b) {
				t.Errorf("overwritten payload = %q", got)
			}
		})
	}
}

func TestMemoryStoreCopiesPayload(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	data := []byte{1, 2, 3}
	if err := s.Put(ctx, "x", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 9
	got, _ := s.Get(ctx, "x")
	if got[0] != 1 {
		t.Error("store aliases caller buffer")
	}
}

func TestFileStoreRejectsPathNames(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "..", "../escape.sav", `a\b`} {
		if err := s.Put(context.Background(), name, []byte("x")); err == nil {
			t.Errorf("Put(%q) succeeded", name)
		}
	}
}

func TestOpenUnknownKind(t *testing.T) {
	if _, err := Open(context.Background(), "redis", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}
