package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/wyun/codeshare/internal/apperror"
	"github.com/wyun/codeshare/internal/model"
	"github.com/wyun/codeshare/internal/repository"
)

// Compile-time check that *DB satisfies the repository interface.
var _ repository.ShareRepository = (*DB)(nil)

const shareColumns = `id, title, snippets, tags, markdown, is_public, password, expire_at, create_at`

// Create inserts a new share, assigning its ID (an xid: 20 chars,
// URL-safe, sortable by creation time) and CreateAt when unset.
// A caller-supplied ID that already exists fails with Conflict —
// enforced here at the store layer, not left to callers.
func (db *DB) Create(ctx context.Context, share *model.Share) error {
	if share.ID == "" {
		share.ID = xid.New().String()
	}
	if share.CreateAt == 0 {
		share.CreateAt = time.Now().UnixMilli()
	}

	snippets, tags, err := encodeCollections(share)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO shares (`+shareColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		share.ID,
		share.Title,
		snippets,
		tags,
		share.Markdown,
		share.IsPublic,
		nullableString(share.Password),
		nullableInt64(share.ExpireAt),
		share.CreateAt,
	)
	if err != nil {
		// modernc.org/sqlite reports constraint violations in the error
		// text; there is no typed error to match against.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("share", share.ID)
		}
		return fmt.Errorf("sqlite: creating share: %w", err)
	}
	return nil
}

// GetByID retrieves a single share. sql.ErrNoRows translates to the
// domain's NotFound, the same pattern every store method follows.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Share, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM shares WHERE id = ?`, id)

	share, err := scanShare(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("share", id)
		}
		return nil, fmt.Errorf("sqlite: getting share %s: %w", id, err)
	}
	return share, nil
}

// List retrieves shares newest-first with LIMIT/OFFSET pagination,
// clamped to the same bounds as the document store.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Share, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+shareColumns+`
		 FROM shares
		 ORDER BY create_at DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing shares: %w", err)
	}
	defer rows.Close()

	shares := make([]model.Share, 0, limit)
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning share row: %w", err)
		}
		shares = append(shares, *share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating shares: %w", err)
	}
	return shares, nil
}

// Update replaces the mutable fields of an existing share. RowsAffected
// of zero means the WHERE clause matched nothing — not found.
// id and create_at are immutable and never written here.
func (db *DB) Update(ctx context.Context, share *model.Share) error {
	snippets, tags, err := encodeCollections(share)
	if err != nil {
		return err
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE shares
		 SET title = ?, snippets = ?, tags = ?, markdown = ?,
		     is_public = ?, password = ?, expire_at = ?
		 WHERE id = ?`,
		share.Title,
		snippets,
		tags,
		share.Markdown,
		share.IsPublic,
		nullableString(share.Password),
		nullableInt64(share.ExpireAt),
		share.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating share %s: %w", share.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("share", share.ID)
	}
	return nil
}

// Delete removes a share by ID. Same RowsAffected pattern as Update.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM shares WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting share %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("share", id)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanShare(row scanner) (*model.Share, error) {
	var (
		share       model.Share
		snippetsRaw string
		tagsRaw     string
		password    sql.NullString
		expireAt    sql.NullInt64
	)
	err := row.Scan(
		&share.ID,
		&share.Title,
		&snippetsRaw,
		&tagsRaw,
		&share.Markdown,
		&share.IsPublic,
		&password,
		&expireAt,
		&share.CreateAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(snippetsRaw), &share.Snippets); err != nil {
		return nil, fmt.Errorf("decoding snippets column: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsRaw), &share.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags column: %w", err)
	}
	if password.Valid {
		share.Password = &password.String
	}
	if expireAt.Valid {
		share.ExpireAt = &expireAt.Int64
	}
	return &share, nil
}

func encodeCollections(share *model.Share) (snippets, tags string, err error) {
	if share.Snippets == nil {
		share.Snippets = []model.Snippet{}
	}
	if share.Tags == nil {
		share.Tags = []string{}
	}
	snippetsData, err := json.Marshal(share.Snippets)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encoding snippets: %w", err)
	}
	tagsData, err := json.Marshal(share.Tags)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	return string(snippetsData), string(tagsData), nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt64(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}
