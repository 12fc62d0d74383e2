package model

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/wyun/codeshare/internal/apperror"
)

// Snippet-collection editing rules.
//
// Two invariants hold for every persisted share, and every mutation below
// preserves them:
//
//  1. The collection is never empty — removing the last snippet
//     synthesizes a fresh placeholder instead of leaving zero.
//  2. Keys are unique within the share and never reused — keys are
//     random UUIDs, so a deleted key cannot come back.

// NewSnippet returns a placeholder snippet with a fresh key and the
// default language. Used both for seeding a brand-new share and for
// repairing a collection that editing has emptied.
func NewSnippet() Snippet {
	return Snippet{
		Key:      uuid.NewString(),
		Title:    DefaultSnippetTitle,
		Language: DefaultLanguage,
		Code:     DefaultSnippetCode,
	}
}

// AddSnippet appends a fresh placeholder snippet and returns it.
// The new snippet is the one the editor should focus (it becomes active).
func (s *Share) AddSnippet() Snippet {
	sn := NewSnippet()
	s.Snippets = append(s.Snippets, sn)
	return sn
}

// RemoveSnippet deletes the snippet with the given key and returns the key
// of the snippet that should become active afterwards.
//
// ACTIVE-SNIPPET RULE:
// The editor calls this for the tab currently in front, so the removed
// snippet is treated as the active one. The replacement is the snippet at
// the previous index, clamped to the new bounds: removing the first tab
// selects the new first, removing any other selects its left neighbour.
//
// Removing the only snippet does not leave the share empty: a placeholder
// is synthesized and becomes active.
func (s *Share) RemoveSnippet(key string) (activeKey string, err error) {
	idx := s.snippetIndex(key)
	if idx < 0 {
		return "", apperror.NotFound("snippet", key)
	}

	s.Snippets = append(s.Snippets[:idx], s.Snippets[idx+1:]...)

	if len(s.Snippets) == 0 {
		repaired := s.AddSnippet()
		return repaired.Key, nil
	}

	next := idx - 1
	if next < 0 {
		next = 0
	}
	return s.Snippets[next].Key, nil
}

// SnippetPatch carries the editable fields of a snippet. Nil means
// "leave unchanged" — title, language, and code are independently
// editable (a rename is a patch with only Title set).
type SnippetPatch struct {
	Title    *string
	Language *string
	Code     *string
}

// UpdateSnippet applies a patch to the snippet with the given key.
// Unknown keys are an error, not a silent no-op.
func (s *Share) UpdateSnippet(key string, patch SnippetPatch) error {
	idx := s.snippetIndex(key)
	if idx < 0 {
		return apperror.NotFound("snippet", key)
	}

	sn := &s.Snippets[idx]
	if patch.Title != nil {
		if utf8.RuneCountInString(*patch.Title) > MaxSnippetTitleLength {
			return apperror.ValidationFailed("title",
				fmt.Sprintf("snippet title must be %d characters or less", MaxSnippetTitleLength))
		}
		sn.Title = *patch.Title
	}
	if patch.Language != nil {
		if !KnownLanguage(*patch.Language) {
			return apperror.ValidationFailed("language",
				fmt.Sprintf("unsupported language %q", *patch.Language))
		}
		sn.Language = *patch.Language
	}
	if patch.Code != nil {
		sn.Code = *patch.Code
	}
	return nil
}

// ValidateSnippets checks a caller-supplied snippet collection: keys must
// be unique (missing keys are assigned), languages must be supported, and
// an empty collection is repaired with one placeholder.
func ValidateSnippets(snippets []Snippet) ([]Snippet, error) {
	if len(snippets) == 0 {
		return []Snippet{NewSnippet()}, nil
	}

	keys := make(map[string]bool, len(snippets))
	out := make([]Snippet, 0, len(snippets))
	for i, sn := range snippets {
		if sn.Key == "" {
			sn.Key = uuid.NewString()
		}
		if keys[sn.Key] {
			return nil, apperror.ValidationFailed("snippets",
				fmt.Sprintf("duplicate snippet key %q", sn.Key))
		}
		keys[sn.Key] = true

		if sn.Language == "" {
			sn.Language = DefaultLanguage
		}
		if !KnownLanguage(sn.Language) {
			return nil, apperror.ValidationFailed("snippets",
				fmt.Sprintf("snippet %d: unsupported language %q", i, sn.Language))
		}
		if utf8.RuneCountInString(sn.Title) > MaxSnippetTitleLength {
			return nil, apperror.ValidationFailed("snippets",
				fmt.Sprintf("snippet %d: title must be %d characters or less", i, MaxSnippetTitleLength))
		}
		out = append(out, sn)
	}
	return out, nil
}

func (s *Share) snippetIndex(key string) int {
	for i := range s.Snippets {
		if s.Snippets[i].Key == key {
			return i
		}
	}
	return -1
}
