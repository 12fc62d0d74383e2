// Package model defines the data structures used throughout the application.
package model

import "time"

// Default values seeded when a caller omits the corresponding field.
// A share is never persisted with an empty title or an empty snippet list.
const (
	DefaultTitle          = "Untitled share"
	DefaultSnippetTitle   = "snippet"
	DefaultSnippetCode    = "// your code here"
	DefaultLanguage       = "javascript"
	MaxTitleLength        = 40
	MaxSnippetTitleLength = 100
)

// Snippet is one labeled code block inside a share.
//
// Key is generated once at creation (a UUID) and stays stable across
// renames and language changes — the editor uses it to address tabs, so
// it must never be reused after a deletion.
type Snippet struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Share is the unit of sharing: an identifiable bundle of snippets,
// Markdown notes, tags, and access rules.
//
// ACCESS-STATE INVARIANT:
// Exactly one of these holds for every persisted share:
//
//	IsPublic == true  && Password == nil
//	IsPublic == false && Password != nil
//
// Password holds a bcrypt hash of the shared secret, never the plaintext.
// It serializes into the storage document (the store round-trips the full
// struct through encoding/json) but handlers must strip it before writing
// a response — see Sanitized.
//
// WHY int64 MILLISECONDS INSTEAD OF time.Time?
// ExpireAt and CreateAt are compared and stored as epoch milliseconds —
// the unit JavaScript clients produce with Date.now(). Keeping the struct
// in the wire unit avoids a lossy convert-on-every-boundary dance;
// ExpiredAt wraps the one comparison that needs a clock.
type Share struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Snippets []Snippet `json:"snippets"`
	Tags     []string  `json:"tags"`
	Markdown string    `json:"markdown"`
	IsPublic bool      `json:"isPublic"`
	Password *string   `json:"password,omitempty"`
	ExpireAt *int64    `json:"expire_at"`
	CreateAt int64     `json:"create_at"`
}

// ExpiredAt reports whether the share is expired at the given instant.
// A nil ExpireAt means the share never expires.
func (s *Share) ExpiredAt(now time.Time) bool {
	return s.ExpireAt != nil && *s.ExpireAt <= now.UnixMilli()
}

// Clone returns a deep copy. Stores hand out clones so callers can't
// mutate cached state behind the store's back.
func (s *Share) Clone() *Share {
	c := *s
	c.Snippets = append([]Snippet(nil), s.Snippets...)
	c.Tags = append([]string(nil), s.Tags...)
	if s.Password != nil {
		pw := *s.Password
		c.Password = &pw
	}
	if s.ExpireAt != nil {
		exp := *s.ExpireAt
		c.ExpireAt = &exp
	}
	return &c
}

// Sanitized returns a copy safe to serialize in API responses: the stored
// credential hash is dropped. The omitempty tag then keeps the password
// field out of the JSON entirely.
func (s *Share) Sanitized() *Share {
	c := s.Clone()
	c.Password = nil
	return c
}

// ShareSummary is the listing view of a share: enough for an index page,
// no code bodies and no credential material.
type ShareSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Tags         []string `json:"tags"`
	IsPublic     bool     `json:"isPublic"`
	SnippetCount int      `json:"snippetCount"`
	Languages    []string `json:"languages"`
	ExpireAt     *int64   `json:"expire_at"`
	CreateAt     int64    `json:"create_at"`
}

// Summary projects the share onto its listing view. Languages are
// reported unique, in first-appearance order.
func (s *Share) Summary() ShareSummary {
	seen := make(map[string]bool, len(s.Snippets))
	languages := make([]string, 0, len(s.Snippets))
	for _, sn := range s.Snippets {
		if !seen[sn.Language] {
			seen[sn.Language] = true
			languages = append(languages, sn.Language)
		}
	}

	sum := ShareSummary{
		ID:           s.ID,
		Title:        s.Title,
		Tags:         append([]string(nil), s.Tags...),
		IsPublic:     s.IsPublic,
		SnippetCount: len(s.Snippets),
		Languages:    languages,
		CreateAt:     s.CreateAt,
	}
	if s.ExpireAt != nil {
		exp := *s.ExpireAt
		sum.ExpireAt = &exp
	}
	return sum
}

// NormalizeTags drops empty and duplicate tags while preserving the
// insertion order of the first occurrence (the display order).
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
