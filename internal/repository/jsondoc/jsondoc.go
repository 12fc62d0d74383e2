// Package jsondoc implements the share repository over a single JSON
// document on disk.
//
// The whole collection is loaded into memory per operation, mutated, and
// rewritten as one document — no partial or streaming writes. That keeps
// the storage format trivially inspectable (one file, one array) at the
// cost of scalability, which is an accepted non-goal for this service.
//
// DURABILITY:
// Every mutation writes a temporary file in the same directory and then
// renames it over the document. Rename is atomic on POSIX filesystems, so
// a crash mid-write leaves either the old document or the new one, never
// a torn half of each. A failed write surfaces as a plain wrapped error
// (not an apperror kind) and is never retried — retrying a partial
// document write is how documents get corrupted.
//
// CONCURRENCY:
// One mutex serializes every operation, reads included. Two concurrent
// mutations therefore apply in sequence and the later one wins, which is
// exactly the last-writer-wins contract the service documents. A
// single-writer queue was chosen over optimistic versioning because
// nothing in the product needs edits to merge.
package jsondoc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/wyun/codeshare/internal/apperror"
	"github.com/wyun/codeshare/internal/model"
	"github.com/wyun/codeshare/internal/repository"
)

// schemaVersion is stamped into every document written. Readers refuse
// documents from a future version instead of guessing at their layout.
const schemaVersion = 1

// document is the on-disk envelope. Version 0 (a file written before the
// envelope existed, i.e. a bare array) is migrated on first load.
type document struct {
	Version int           `json:"version"`
	Shares  []model.Share `json:"shares"`
}

var _ repository.ShareRepository = (*Store)(nil)

type Store struct {
	path string
	mu   sync.Mutex

	// now is stubbed in tests so CreateAt is deterministic.
	now func() time.Time
}

// New opens (or creates) the document at path. The parent directory is
// created if needed, and an existing document is parsed once up front so
// a corrupt file fails the boot instead of the first request.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsondoc: creating data directory: %w", err)
	}

	s := &Store{path: path, now: time.Now}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.persist(&document{Version: schemaVersion}); err != nil {
			return nil, err
		}
		return s, nil
	}

	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close satisfies the repository interface. The store holds no open
// handles between operations, so there is nothing to release.
func (s *Store) Close() error { return nil }

func (s *Store) Create(ctx context.Context, share *model.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	if share.ID == "" {
		share.ID = xid.New().String()
	} else {
		for i := range doc.Shares {
			if doc.Shares[i].ID == share.ID {
				return apperror.Conflict("share", share.ID)
			}
		}
	}
	if share.CreateAt == 0 {
		share.CreateAt = s.now().UnixMilli()
	}

	doc.Shares = append(doc.Shares, *share.Clone())
	return s.persist(doc)
}

func (s *Store) GetByID(ctx context.Context, id string) (*model.Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range doc.Shares {
		if doc.Shares[i].ID == id {
			return doc.Shares[i].Clone(), nil
		}
	}
	return nil, apperror.NotFound("share", id)
}

func (s *Store) List(ctx context.Context, opts repository.ListOptions) ([]model.Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

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

	// Newest first. The document keeps insertion order, so this is a
	// stable sort over a copy — the document itself is never reordered.
	shares := make([]model.Share, len(doc.Shares))
	copy(shares, doc.Shares)
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].CreateAt > shares[j].CreateAt
	})

	if offset >= len(shares) {
		return []model.Share{}, nil
	}
	shares = shares[offset:]
	if limit < len(shares) {
		shares = shares[:limit]
	}

	out := make([]model.Share, 0, len(shares))
	for i := range shares {
		out = append(out, *shares[i].Clone())
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, share *model.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i := range doc.Shares {
		if doc.Shares[i].ID == share.ID {
			doc.Shares[i] = *share.Clone()
			return s.persist(doc)
		}
	}
	return apperror.NotFound("share", share.ID)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i := range doc.Shares {
		if doc.Shares[i].ID == id {
			doc.Shares = append(doc.Shares[:i], doc.Shares[i+1:]...)
			return s.persist(doc)
		}
	}
	return apperror.NotFound("share", id)
}

// load reads and parses the whole document. Callers must hold s.mu.
func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("jsondoc: reading %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		// Pre-envelope layout: a bare array of shares. Accept it once;
		// the next persist rewrites it under the current envelope.
		var bare []model.Share
		if bareErr := json.Unmarshal(data, &bare); bareErr == nil {
			return &document{Version: schemaVersion, Shares: bare}, nil
		}
		return nil, fmt.Errorf("jsondoc: parsing %s: %w", s.path, err)
	}

	if doc.Version > schemaVersion {
		return nil, fmt.Errorf("jsondoc: document version %d is newer than supported version %d",
			doc.Version, schemaVersion)
	}
	doc.Version = schemaVersion
	return &doc, nil
}

// persist writes the whole document atomically. Callers must hold s.mu.
func (s *Store) persist(doc *document) error {
	if doc.Shares == nil {
		doc.Shares = []model.Share{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("jsondoc: encoding document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".shares-*.json")
	if err != nil {
		return fmt.Errorf("jsondoc: creating temp file: %w", err)
	}
	// The temp file is removed on every failure path below; after a
	// successful rename it no longer exists and Remove is a no-op.
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("jsondoc: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("jsondoc: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsondoc: closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("jsondoc: replacing document: %w", err)
	}
	return nil
}
