// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-tier split:
//
//	Handler (HTTP)      → parses requests, writes responses
//	Service (business)  → validates, applies the access guard, orchestrates
//	Repository (data)   → reads/writes the share collection
//
// Every entry point that touches a share follows the same control flow:
// resolve the share through the repository, pass it and the caller's
// credential through the guard, and only then return a field or persist a
// mutation. No handler reaches around this sequence.
//
// The service receives repository.ShareRepository (an interface), never a
// concrete store — tests inject an in-memory mock, production injects
// jsondoc or sqlite, and nothing here changes either way.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/wyun/codeshare/internal/apperror"
	"github.com/wyun/codeshare/internal/guard"
	"github.com/wyun/codeshare/internal/model"
	"github.com/wyun/codeshare/internal/repository"
)

const (
	MaxTagCount      = 20
	MaxTagLength     = 32
	MaxMarkdownBytes = 200_000
	MaxCodeBytes     = 100_000
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ShareService handles business logic for shares.
type ShareService struct {
	repo   repository.ShareRepository
	guard  *guard.Guard
	logger *slog.Logger
}

func NewShareService(repo repository.ShareRepository, g *guard.Guard, logger *slog.Logger) *ShareService {
	return &ShareService{
		repo:   repo,
		guard:  g,
		logger: logger,
	}
}

// CreateShare is the validated input for Create. Handlers construct it
// from a decoded payload; nothing here is trusted until validation runs.
type CreateShare struct {
	Title    string
	Snippets []model.Snippet
	Tags     []string
	Markdown string
	IsPublic bool
	Password string // plaintext, required iff IsPublic is false
	ExpireAt *int64 // epoch millis, nil = never expires
}

// UpdateShare carries a partial update: nil means "leave unchanged".
// Visibility and expiration have their own operations and are
// deliberately absent here.
type UpdateShare struct {
	Title    *string
	Snippets []model.Snippet
	Tags     []string
	Markdown *string
}

// Create validates and stores a new share.
//
// Defaults: an empty title becomes the placeholder, a missing snippet
// collection is seeded with one default snippet, tags are de-duplicated
// in order. The visibility invariant is
// established here: private shares get their password hashed through the
// guard, public shares are stored with no password whatsoever.
func (s *ShareService) Create(ctx context.Context, in CreateShare) (*model.Share, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = model.DefaultTitle
	}
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", model.MaxTitleLength))
	}

	snippets, err := model.ValidateSnippets(in.Snippets)
	if err != nil {
		return nil, err
	}
	if err := validateSnippetSizes(snippets); err != nil {
		return nil, err
	}

	tags, err := validateTags(in.Tags)
	if err != nil {
		return nil, err
	}
	if len(in.Markdown) > MaxMarkdownBytes {
		return nil, apperror.ValidationFailed("markdown",
			fmt.Sprintf("markdown must be %d bytes or less", MaxMarkdownBytes))
	}
	if err := validateExpireAt(in.ExpireAt); err != nil {
		return nil, err
	}

	share := &model.Share{
		Title:    title,
		Snippets: snippets,
		Tags:     tags,
		Markdown: in.Markdown,
		IsPublic: true,
		ExpireAt: in.ExpireAt,
	}
	if !in.IsPublic {
		if err := s.guard.MakePrivate(share, "", in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, share); err != nil {
		s.logger.Error("failed to create share",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating share: %w", err)
	}

	s.logger.Info("share created",
		slog.String("id", share.ID),
		slog.String("title", share.Title),
		slog.Bool("public", share.IsPublic),
	)
	return share, nil
}

// Get resolves a share and authorizes the read (expiry before
// credential). The returned share still carries its stored hash; the
// handler serializes through Sanitized.
func (s *ShareService) Get(ctx context.Context, id, credential string) (*model.Share, error) {
	share, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeRead(share, credential); err != nil {
		return nil, err
	}
	return share, nil
}

// List returns share summaries, newest first. Listing is ungated: the
// summary exposes no code bodies and no credential material, so an index
// page can show private shares without leaking anything.
func (s *ShareService) List(ctx context.Context, limit, offset int) ([]model.ShareSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	shares, err := s.repo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list shares", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing shares: %w", err)
	}

	summaries := make([]model.ShareSummary, 0, len(shares))
	for i := range shares {
		summaries = append(summaries, shares[i].Summary())
	}
	return summaries, nil
}

// Update applies a partial update: fetch, authorize, merge only the
// supplied fields, re-validate, persist. The fetch-then-update shape
// gives shallow-merge semantics on top of a full-record repository
// write.
func (s *ShareService) Update(ctx context.Context, id, credential string, in UpdateShare) (*model.Share, error) {
	share, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeChange(share, credential); err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			title = model.DefaultTitle
		}
		if utf8.RuneCountInString(title) > model.MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("title must be %d characters or less", model.MaxTitleLength))
		}
		share.Title = title
	}
	if in.Snippets != nil {
		snippets, err := model.ValidateSnippets(in.Snippets)
		if err != nil {
			return nil, err
		}
		if err := validateSnippetSizes(snippets); err != nil {
			return nil, err
		}
		share.Snippets = snippets
	}
	if in.Tags != nil {
		tags, err := validateTags(in.Tags)
		if err != nil {
			return nil, err
		}
		share.Tags = tags
	}
	if in.Markdown != nil {
		if len(*in.Markdown) > MaxMarkdownBytes {
			return nil, apperror.ValidationFailed("markdown",
				fmt.Sprintf("markdown must be %d bytes or less", MaxMarkdownBytes))
		}
		share.Markdown = *in.Markdown
	}

	if err := s.persist(ctx, share, "update share"); err != nil {
		return nil, err
	}
	return share, nil
}

// Delete removes a share. Expired shares remain deletable — cleanup is
// the one operation expiry never blocks.
func (s *ShareService) Delete(ctx context.Context, id, credential string) error {
	share, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.AuthorizeDelete(share, credential); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("share deleted", slog.String("id", id))
	return nil
}

// SetVisibility flips a share between public and private.
//
// credential is proof of current ownership: going public it must match
// the stored password (which is cleared in the same step), and rotating
// the password of an already-private share demands it too. newPassword
// is the password to store when the target is private, 4–8 chars,
// hashed before storage. A public share going private needs no
// credential — there is none to check.
func (s *ShareService) SetVisibility(ctx context.Context, id string, public bool, credential, newPassword string) (*model.Share, error) {
	share, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CheckNotExpired(share); err != nil {
		return nil, err
	}

	if public {
		err = s.guard.MakePublic(share, credential)
	} else {
		err = s.guard.MakePrivate(share, credential, newPassword)
	}
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, share, "set visibility"); err != nil {
		return nil, err
	}
	s.logger.Info("share visibility changed",
		slog.String("id", id),
		slog.Bool("public", share.IsPublic),
	)
	return share, nil
}

// SetExpiration changes or clears the expiration instant. A nil expireAt
// means "never expires". Gated like any other change: expired shares
// refuse (no silent re-arming), private shares need the credential.
func (s *ShareService) SetExpiration(ctx context.Context, id, credential string, expireAt *int64) (*model.Share, error) {
	if err := validateExpireAt(expireAt); err != nil {
		return nil, err
	}

	share, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeChange(share, credential); err != nil {
		return nil, err
	}

	share.ExpireAt = expireAt
	if err := s.persist(ctx, share, "set expiration"); err != nil {
		return nil, err
	}
	return share, nil
}

// AddSnippet appends a placeholder snippet and returns it (its key is the
// new active tab).
func (s *ShareService) AddSnippet(ctx context.Context, id, credential string) (*model.Snippet, error) {
	share, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeChange(share, credential); err != nil {
		return nil, err
	}

	sn := share.AddSnippet()
	if err := s.persist(ctx, share, "add snippet"); err != nil {
		return nil, err
	}
	return &sn, nil
}

// UpdateSnippet patches one snippet (code, language, and/or title) by key.
func (s *ShareService) UpdateSnippet(ctx context.Context, id, credential, key string, patch model.SnippetPatch) (*model.Share, error) {
	share, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeChange(share, credential); err != nil {
		return nil, err
	}

	if patch.Code != nil && len(*patch.Code) > MaxCodeBytes {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d bytes or less", MaxCodeBytes))
	}
	if err := share.UpdateSnippet(key, patch); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, share, "update snippet"); err != nil {
		return nil, err
	}
	return share, nil
}

// RemoveSnippet deletes one snippet by key and returns the key of the
// snippet that becomes active (the model's previous-index-clamped rule;
// removing the last snippet yields a synthesized placeholder).
func (s *ShareService) RemoveSnippet(ctx context.Context, id, credential, key string) (activeKey string, err error) {
	share, err := s.resolve(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.guard.AuthorizeChange(share, credential); err != nil {
		return "", err
	}

	activeKey, err = share.RemoveSnippet(key)
	if err != nil {
		return "", err
	}

	if err := s.persist(ctx, share, "remove snippet"); err != nil {
		return "", err
	}
	return activeKey, nil
}

// Export authorizes a read and returns the share for the boundary to
// stream as an archive. Same gate as Get: expiry first, then credential.
func (s *ShareService) Export(ctx context.Context, id, credential string) (*model.Share, error) {
	return s.Get(ctx, id, credential)
}

func (s *ShareService) resolve(ctx context.Context, id string) (*model.Share, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "share ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ShareService) persist(ctx context.Context, share *model.Share, op string) error {
	if err := s.repo.Update(ctx, share); err != nil {
		s.logger.Error("failed to "+op,
			slog.String("id", share.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func validateTags(tags []string) ([]string, error) {
	normalized := model.NormalizeTags(tags)
	if len(normalized) > MaxTagCount {
		return nil, apperror.ValidationFailed("tags",
			fmt.Sprintf("at most %d tags allowed", MaxTagCount))
	}
	for _, tag := range normalized {
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, apperror.ValidationFailed("tags",
				fmt.Sprintf("tag %q exceeds %d characters", tag, MaxTagLength))
		}
	}
	return normalized, nil
}

func validateSnippetSizes(snippets []model.Snippet) error {
	for i, sn := range snippets {
		if len(sn.Code) > MaxCodeBytes {
			return apperror.ValidationFailed("snippets",
				fmt.Sprintf("snippet %d: code must be %d bytes or less", i, MaxCodeBytes))
		}
	}
	return nil
}

// validateExpireAt accepts nil ("never expires") and any positive epoch
// millisecond value. Zero and negative timestamps are malformed, not
// "already expired".
func validateExpireAt(expireAt *int64) error {
	if expireAt != nil && *expireAt <= 0 {
		return apperror.ValidationFailed("expire_at", "invalid expiration timestamp")
	}
	return nil
}
