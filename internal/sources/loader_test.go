package sources

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"chess-etl/internal/config"
)

func TestResolveOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pgn", "a.PGN", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.pgn"), 0o700); err != nil {
		t.Fatal(err)
	}

	doc := config.Sources{
		URLs:  []string{"https://example.com/1.pgn"},
		Files: []string{"listed.pgn"},
	}
	got := Resolve(doc, dir)
	want := []Source{
		{KindURL, "https://example.com/1.pgn"},
		{KindFile, "listed.pgn"},
		{KindFile, filepath.Join(dir, "a.PGN")},
		{KindFile, filepath.Join(dir, "b.pgn")},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("want %v\n got %v", want, got)
	}
}

func TestResolveMissingDir(t *testing.T) {
	got := Resolve(config.Sources{}, filepath.Join(t.TempDir(), "absent"))
	if len(got) != 0 {
		t.Errorf("expected no sources, got %v", got)
	}
}

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.pgn")
	if err := os.WriteFile(path, []byte("[Event \"X\"]\xff\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	text, err := NewLoader(0).Fetch(context.Background(), Source{KindFile, path})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if text != "[Event \"X\"]\n" {
		t.Errorf("invalid bytes should be dropped, got %q", text)
	}
}

func TestFetchMissingFile(t *testing.T) {
	src := Source{KindFile, filepath.Join(t.TempDir(), "absent.pgn")}
	_, err := NewLoader(0).Fetch(context.Background(), src)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fe.Source != src {
		t.Errorf("source: want %v got %v", src, fe.Source)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
}

func TestFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pgn" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("[Event \"Remote\"]\n"))
	}))
	defer srv.Close()

	l := NewLoader(0)
	text, err := l.Fetch(context.Background(), Source{KindURL, srv.URL + "/ok.pgn"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if text != "[Event \"Remote\"]\n" {
		t.Errorf("unexpected body %q", text)
	}

	if _, err := l.Fetch(context.Background(), Source{KindURL, srv.URL + "/missing.pgn"}); err == nil {
		t.Error("expected error for 404")
	}
}
