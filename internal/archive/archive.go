// Package archive turns a share into a downloadable ZIP, one file per
// snippet. It streams straight into the caller's writer so the handler
// can hand it http.ResponseWriter without any temp files.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"

	"github.com/wyun/codeshare/internal/model"
)

var (
	// Characters that are unsafe or reserved in filenames on at least
	// one platform the archive may be unpacked on.
	unsafeChars = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Write streams the share's snippets as a ZIP archive into w. Entry
// names come from the snippet titles, sanitized for the filesystem;
// untitled snippets fall back to snippet_N by position (1-based). The
// extension follows the snippet's language, .txt when unknown.
func Write(w io.Writer, share *model.Share) error {
	zw := zip.NewWriter(w)

	used := make(map[string]int)
	for i, sn := range share.Snippets {
		name := entryName(sn, i, used)
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("creating archive entry %s: %w", name, err)
		}
		if _, err := f.Write([]byte(sn.Code)); err != nil {
			return fmt.Errorf("writing archive entry %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// entryName builds a unique archive entry name for the snippet at
// position i. Name collisions after sanitizing get _2, _3, … suffixes
// before the extension, so "a?" and "a*" become a_.ext and a__2.ext.
func entryName(sn model.Snippet, i int, used map[string]int) string {
	base := sanitizeName(sn.Title)
	if base == "" {
		base = fmt.Sprintf("snippet_%d", i+1)
	}

	used[base]++
	if n := used[base]; n > 1 {
		base = fmt.Sprintf("%s_%d", base, n)
	}
	return base + model.ExtensionFor(sn.Language)
}

// sanitizeName replaces filesystem-reserved characters and collapses
// whitespace runs, both to underscores.
func sanitizeName(title string) string {
	s := unsafeChars.ReplaceAllString(title, "_")
	return whitespace.ReplaceAllString(s, "_")
}
