// Package sources resolves and fetches raw PGN text from files and URLs.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"chess-etl/internal/config"
)

// Kind tells how a source is fetched.
type Kind string

const (
	KindURL  Kind = "url"
	KindFile Kind = "file"
)

// Source is one PGN location.
type Source struct {
	Kind    Kind
	Locator string
}

func (s Source) String() string {
	return string(s.Kind) + ":" + s.Locator
}

// FetchError wraps the failure of a single source.
type FetchError struct {
	Source Source
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Resolve builds the ordered source list: URLs, then listed files, then every
// .pgn file found in pgnDir (sorted by name). Duplicates are kept.
func Resolve(doc config.Sources, pgnDir string) []Source {
	out := make([]Source, 0, len(doc.URLs)+len(doc.Files))
	for _, u := range doc.URLs {
		out = append(out, Source{Kind: KindURL, Locator: u})
	}
	for _, f := range doc.Files {
		out = append(out, Source{Kind: KindFile, Locator: f})
	}
	return append(out, discover(pgnDir)...)
}

func discover(dir string) []Source {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".pgn") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]Source, 0, len(names))
	for _, n := range names {
		out = append(out, Source{Kind: KindFile, Locator: filepath.Join(dir, n)})
	}
	return out
}

// Loader fetches source text. One attempt per call, no retries.
type Loader struct {
	client *http.Client
}

// NewLoader creates a loader. A zero timeout leaves HTTP fetches unbounded.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{client: &http.Client{Timeout: timeout}}
}

// Fetch returns the text of a source. Invalid UTF-8 sequences are dropped.
// Every failure is a *FetchError.
func (l *Loader) Fetch(ctx context.Context, src Source) (string, error) {
	var data []byte
	var err error
	switch src.Kind {
	case KindURL:
		data, err = l.get(ctx, src.Locator)
	case KindFile:
		data, err = os.ReadFile(src.Locator)
	default:
		err = fmt.Errorf("unknown source kind %q", src.Kind)
	}
	if err != nil {
		return "", &FetchError{Source: src, Err: err}
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

func (l *Loader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
