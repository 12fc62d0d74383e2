package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/wyun/codeshare/internal/model"
)

func buildArchive(t *testing.T, share *model.Share) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, share); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("produced archive is not a valid zip: %v", err)
	}
	return zr
}

func readEntry(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		return string(data)
	}
	t.Fatalf("entry %s not found, archive has %v", name, entryNames(zr))
	return ""
}

func entryNames(zr *zip.Reader) []string {
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestWriteNamesAndContents(t *testing.T) {
	share := &model.Share{
		Title: "example",
		Snippets: []model.Snippet{
			{Key: "1", Title: "main", Language: "go", Code: "package main"},
			{Key: "2", Title: "", Language: "python", Code: "print(1)"},
			{Key: "3", Title: "notes", Language: "weird-lang", Code: "???"},
		},
	}

	zr := buildArchive(t, share)

	if len(zr.File) != 3 {
		t.Fatalf("archive has %d entries, want 3: %v", len(zr.File), entryNames(zr))
	}
	if got := readEntry(t, zr, "main.go"); got != "package main" {
		t.Errorf("main.go = %q", got)
	}
	// Untitled snippet falls back to its 1-based position.
	if got := readEntry(t, zr, "snippet_2.py"); got != "print(1)" {
		t.Errorf("snippet_2.py = %q", got)
	}
	// Unknown language gets the .txt fallback.
	if got := readEntry(t, zr, "notes.txt"); got != "???" {
		t.Errorf("notes.txt = %q", got)
	}
}

func TestWriteSanitizesTitles(t *testing.T) {
	share := &model.Share{
		Snippets: []model.Snippet{
			{Key: "1", Title: `my: "query"?`, Language: "sql", Code: "SELECT 1"},
			{Key: "2", Title: "hello   world\tagain", Language: "javascript", Code: "x"},
			{Key: "3", Title: "a/b\\c", Language: "go", Code: "y"},
		},
	}

	zr := buildArchive(t, share)

	want := []string{"my___query__.sql", "hello_world_again.js", "a_b_c.go"}
	got := entryNames(zr)
	for i, name := range want {
		if got[i] != name {
			t.Errorf("entry %d = %q, want %q", i, got[i], name)
		}
	}
}

func TestWriteDeduplicatesNames(t *testing.T) {
	share := &model.Share{
		Snippets: []model.Snippet{
			{Key: "1", Title: "util", Language: "go", Code: "a"},
			{Key: "2", Title: "util", Language: "go", Code: "b"},
			{Key: "3", Title: "util", Language: "go", Code: "c"},
		},
	}

	zr := buildArchive(t, share)

	want := []string{"util.go", "util_2.go", "util_3.go"}
	got := entryNames(zr)
	for i, name := range want {
		if got[i] != name {
			t.Errorf("entry %d = %q, want %q", i, got[i], name)
		}
	}
	if readEntry(t, zr, "util_2.go") != "b" {
		t.Error("util_2.go does not carry the second snippet's code")
	}
}

func TestWriteEmptyShare(t *testing.T) {
	zr := buildArchive(t, &model.Share{Title: "empty"})
	if len(zr.File) != 0 {
		t.Errorf("archive has %d entries, want 0", len(zr.File))
	}
}
