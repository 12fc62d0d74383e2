// Package guard enforces the credential and expiration rules for every
// operation that touches a share's content.
//
// The guard is a pure decision layer: it inspects a resolved share plus
// the caller-supplied credential and either permits the operation or
// returns the apperror kind the boundary should surface. The only state
// it ever mutates is the share's visibility pair (IsPublic/Password) and
// only through the two explicit transitions below.
//
// PER-SHARE STATE MACHINE (derived, not stored):
//
//	Public   IsPublic=true,  Password=nil  — reads and changes need no
//	                                         credential
//	Private  IsPublic=false, Password=hash — every gated operation needs
//	                                         the matching credential
//	Expired  ExpireAt non-nil and <= now   — reads/exports refused before
//	                                         any credential check
//
// Exactly one of {public, password nil} / {private, password non-nil}
// holds for every persisted share; MakePublic and MakePrivate are the
// only two transitions and each maintains the pair atomically.
package guard

import (
	"time"

	"github.com/wyun/codeshare/internal/apperror"
	"github.com/wyun/codeshare/internal/model"
)

// Guard evaluates access decisions for shares.
type Guard struct {
	hasher hasher
	now    func() time.Time
}

// New returns a production guard: default bcrypt cost, wall clock.
func New() *Guard {
	return &Guard{hasher: hasher{cost: defaultCost}, now: time.Now}
}

// NewWithOptions returns a guard with an explicit bcrypt cost and clock.
// Tests use it for a fixed "now" and a cheap cost; zero values fall back
// to the production defaults.
func NewWithOptions(cost int, now func() time.Time) *Guard {
	if cost == 0 {
		cost = defaultCost
	}
	if now == nil {
		now = time.Now
	}
	return &Guard{hasher: hasher{cost: cost}, now: now}
}

// AuthorizeRead gates read and export access.
//
// ORDER MATTERS: expiration is checked before the credential, so an
// expired share answers Expired even to the correct password — the
// share's content is gone for readers, full stop.
func (g *Guard) AuthorizeRead(share *model.Share, credential string) error {
	if share.ExpiredAt(g.now()) {
		return apperror.Expired(share.ID)
	}
	return g.checkCredential(share, credential)
}

// AuthorizeChange gates updates, snippet edits, visibility flips, and
// expiration changes. Expired shares refuse changes too: quietly editing
// or re-arming a share that readers are told is gone would be a
// surprising back door. Deletion is the one exception — see
// AuthorizeDelete.
func (g *Guard) AuthorizeChange(share *model.Share, credential string) error {
	if share.ExpiredAt(g.now()) {
		return apperror.Expired(share.ID)
	}
	return g.checkCredential(share, credential)
}

// CheckNotExpired returns Expired when the share's instant has passed.
// Used by callers that gate on expiry alone — the visibility transitions
// carry their own credential rules, but an expired share refuses them
// like any other change.
func (g *Guard) CheckNotExpired(share *model.Share) error {
	if share.ExpiredAt(g.now()) {
		return apperror.Expired(share.ID)
	}
	return nil
}

// AuthorizeDelete gates deletion. Expiration never blocks it — owners
// must always be able to clean up a dead share — but a private share
// still demands its credential.
func (g *Guard) AuthorizeDelete(share *model.Share, credential string) error {
	return g.checkCredential(share, credential)
}

// MakePublic transitions Private → Public. The caller must present the
// current password; on success the stored hash is cleared in the same
// step that flips the flag, keeping the visibility pair consistent.
// Calling it on an already-public share is a no-op.
func (g *Guard) MakePublic(share *model.Share, credential string) error {
	if share.IsPublic {
		return nil
	}
	if err := g.checkCredential(share, credential); err != nil {
		return err
	}
	share.IsPublic = true
	share.Password = nil
	return nil
}

// MakePrivate transitions Public → Private, or rotates the password of a
// share that is already private. A public share has no credential to
// check, so only the new password matters; rotating an existing password
// demands the current credential first — otherwise anyone holding the
// link could replace the password and lock the owner out.
func (g *Guard) MakePrivate(share *model.Share, credential, newPassword string) error {
	if !share.IsPublic {
		if err := g.checkCredential(share, credential); err != nil {
			return err
		}
	}
	hash, err := g.hasher.hashPassword(newPassword)
	if err != nil {
		return err
	}
	share.IsPublic = false
	share.Password = &hash
	return nil
}

// checkCredential is the single credential rule: public shares pass,
// private shares need a bcrypt match. A private share with no stored
// hash violates the visibility invariant; the guard fails closed rather
// than treating the broken record as open.
func (g *Guard) checkCredential(share *model.Share, credential string) error {
	if share.IsPublic {
		return nil
	}
	if share.Password == nil {
		return apperror.Forbidden("this share requires a password")
	}
	if !g.hasher.verifyPassword(*share.Password, credential) {
		return apperror.Forbidden("incorrect password")
	}
	return nil
}
