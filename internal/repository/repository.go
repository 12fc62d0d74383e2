// Package repository declares the storage interface the service layer
// programs against. Two implementations exist: jsondoc (a single JSON
// document, the default) and sqlite (embedded database). The access
// guard and service never learn which one they are talking to.
package repository

import (
	"context"

	"github.com/wyun/codeshare/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ShareRepository is the durable id → Share mapping.
//
// Mutating operations persist before returning success and are atomic
// with respect to each other on the same store instance. Create assigns
// the ID and CreateAt when the share has none, and fails with Conflict
// when a caller-supplied ID already exists.
type ShareRepository interface {
	Create(ctx context.Context, share *model.Share) error
	GetByID(ctx context.Context, id string) (*model.Share, error)
	List(ctx context.Context, opts ListOptions) ([]model.Share, error)
	Update(ctx context.Context, share *model.Share) error
	Delete(ctx context.Context, id string) error
	Close() error
}
