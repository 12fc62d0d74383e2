package guard

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wyun/codeshare/internal/apperror"
	"github.com/wyun/codeshare/internal/model"
)

// A fixed clock and the minimum bcrypt cost keep these tests fast and
// deterministic.
var testNow = time.Unix(1_700_000_000, 0)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	return NewWithOptions(bcrypt.MinCost, func() time.Time { return testNow })
}

func publicShare() *model.Share {
	return &model.Share{ID: "pub1", Title: "public", IsPublic: true}
}

func privateShare(t *testing.T, g *Guard, password string) *model.Share {
	t.Helper()
	s := &model.Share{ID: "prv1", Title: "private", IsPublic: true}
	if err := g.MakePrivate(s, "", password); err != nil {
		t.Fatalf("MakePrivate() error = %v", err)
	}
	return s
}

func expireInPast(s *model.Share) {
	past := testNow.Add(-time.Hour).UnixMilli()
	s.ExpireAt = &past
}

func TestAuthorizeReadPublic(t *testing.T) {
	g := newTestGuard(t)

	if err := g.AuthorizeRead(publicShare(), ""); err != nil {
		t.Errorf("public read without credential: %v", err)
	}
	if err := g.AuthorizeRead(publicShare(), "whatever"); err != nil {
		t.Errorf("public read with junk credential: %v", err)
	}
}

func TestAuthorizeReadPrivate(t *testing.T) {
	g := newTestGuard(t)
	s := privateShare(t, g, "ab12")

	if err := g.AuthorizeRead(s, "ab12"); err != nil {
		t.Errorf("read with correct password: %v", err)
	}

	err := g.AuthorizeRead(s, "wrong")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("read with wrong password: error = %v, want ErrForbidden", err)
	}

	err = g.AuthorizeRead(s, "")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("read with no credential: error = %v, want ErrForbidden", err)
	}
}

// Expiration beats the credential: the correct password on an expired
// share still reads as Expired, never Forbidden and never success.
func TestAuthorizeReadExpiredBeatsCredential(t *testing.T) {
	g := newTestGuard(t)

	s := privateShare(t, g, "ab12")
	expireInPast(s)

	err := g.AuthorizeRead(s, "ab12")
	if !errors.Is(err, apperror.ErrExpired) {
		t.Errorf("expired read with correct password: error = %v, want ErrExpired", err)
	}

	pub := publicShare()
	expireInPast(pub)
	err = g.AuthorizeRead(pub, "")
	if !errors.Is(err, apperror.ErrExpired) {
		t.Errorf("expired public read: error = %v, want ErrExpired", err)
	}
}

func TestAuthorizeReadExpireBoundary(t *testing.T) {
	g := newTestGuard(t)

	s := publicShare()
	future := testNow.Add(time.Millisecond).UnixMilli()
	s.ExpireAt = &future
	if err := g.AuthorizeRead(s, ""); err != nil {
		t.Errorf("share expiring in the future must be readable: %v", err)
	}

	exact := testNow.UnixMilli()
	s.ExpireAt = &exact
	if err := g.AuthorizeRead(s, ""); !errors.Is(err, apperror.ErrExpired) {
		t.Errorf("expire_at == now: error = %v, want ErrExpired", err)
	}
}

func TestAuthorizeChange(t *testing.T) {
	g := newTestGuard(t)

	if err := g.AuthorizeChange(publicShare(), ""); err != nil {
		t.Errorf("public change without credential: %v", err)
	}

	s := privateShare(t, g, "xy12")
	if err := g.AuthorizeChange(s, "xy12"); err != nil {
		t.Errorf("private change with correct password: %v", err)
	}
	if err := g.AuthorizeChange(s, "nope"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("private change with wrong password: error = %v, want ErrForbidden", err)
	}

	expireInPast(s)
	if err := g.AuthorizeChange(s, "xy12"); !errors.Is(err, apperror.ErrExpired) {
		t.Errorf("change on expired share: error = %v, want ErrExpired", err)
	}
}

// Deletion is exempt from the expiry check: an expired share can always
// be cleaned up, credential rules still applying.
func TestAuthorizeDeleteIgnoresExpiry(t *testing.T) {
	g := newTestGuard(t)

	s := privateShare(t, g, "ab12")
	expireInPast(s)

	if err := g.AuthorizeDelete(s, "ab12"); err != nil {
		t.Errorf("delete expired private share with correct password: %v", err)
	}
	if err := g.AuthorizeDelete(s, "wrong"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("delete with wrong password: error = %v, want ErrForbidden", err)
	}

	pub := publicShare()
	expireInPast(pub)
	if err := g.AuthorizeDelete(pub, ""); err != nil {
		t.Errorf("delete expired public share: %v", err)
	}
}

func TestMakePrivate(t *testing.T) {
	g := newTestGuard(t)

	s := publicShare()
	if err := g.MakePrivate(s, "", "ab12"); err != nil {
		t.Fatalf("MakePrivate() error = %v", err)
	}

	if s.IsPublic {
		t.Error("IsPublic = true after MakePrivate")
	}
	if s.Password == nil {
		t.Fatal("Password = nil after MakePrivate")
	}
	if *s.Password == "ab12" {
		t.Error("password stored in plaintext — must be a bcrypt hash")
	}
	if err := g.AuthorizeRead(s, "ab12"); err != nil {
		t.Errorf("stored hash does not verify the original password: %v", err)
	}
}

func TestMakePrivatePasswordLength(t *testing.T) {
	g := newTestGuard(t)

	for _, pw := range []string{"", "abc", "123456789"} {
		s := publicShare()
		err := g.MakePrivate(s, "", pw)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("MakePrivate(%q) error = %v, want ErrValidation", pw, err)
		}
		if !s.IsPublic || s.Password != nil {
			t.Errorf("MakePrivate(%q) mutated the share despite failing", pw)
		}
	}

	// Boundary lengths are accepted.
	for _, pw := range []string{"abcd", "abcd1234"} {
		s := publicShare()
		if err := g.MakePrivate(s, "", pw); err != nil {
			t.Errorf("MakePrivate(%q) error = %v, want nil", pw, err)
		}
	}
}

// Length is counted in characters, not bytes: two CJK runes are six
// bytes but still too short, four are twelve bytes but valid.
func TestMakePrivatePasswordLengthMultibyte(t *testing.T) {
	g := newTestGuard(t)

	s := publicShare()
	if err := g.MakePrivate(s, "", "你好"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("two-rune password: error = %v, want ErrValidation", err)
	}

	s = publicShare()
	if err := g.MakePrivate(s, "", "你好世界"); err != nil {
		t.Errorf("four-rune password: error = %v, want nil", err)
	}
	if err := g.AuthorizeRead(s, "你好世界"); err != nil {
		t.Errorf("four-rune password does not verify: %v", err)
	}
}

func TestMakePublic(t *testing.T) {
	g := newTestGuard(t)
	s := privateShare(t, g, "ab12")

	if err := g.MakePublic(s, "ab12"); err != nil {
		t.Fatalf("MakePublic() error = %v", err)
	}
	if !s.IsPublic {
		t.Error("IsPublic = false after MakePublic")
	}
	if s.Password != nil {
		t.Error("Password must be cleared exactly when the share goes public")
	}
	// No credential needed anymore.
	if err := g.AuthorizeRead(s, ""); err != nil {
		t.Errorf("read after going public: %v", err)
	}
}

func TestMakePublicWrongPassword(t *testing.T) {
	g := newTestGuard(t)
	s := privateShare(t, g, "ab12")

	err := g.MakePublic(s, "wrong")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("MakePublic(wrong) error = %v, want ErrForbidden", err)
	}
	if s.IsPublic || s.Password == nil {
		t.Error("failed MakePublic mutated the share")
	}
}

func TestMakePublicAlreadyPublic(t *testing.T) {
	g := newTestGuard(t)

	s := publicShare()
	if err := g.MakePublic(s, ""); err != nil {
		t.Errorf("MakePublic on public share: %v", err)
	}
}

func TestPasswordRotation(t *testing.T) {
	g := newTestGuard(t)
	s := privateShare(t, g, "old1")

	// Rotation needs the current credential: knowing the link is not
	// enough to replace the password and lock the owner out.
	if err := g.MakePrivate(s, "", "new2pass"); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("rotation without credential: error = %v, want ErrForbidden", err)
	}
	if err := g.MakePrivate(s, "new2pass", "new2pass"); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("rotation with wrong credential: error = %v, want ErrForbidden", err)
	}
	if err := g.AuthorizeRead(s, "old1"); err != nil {
		t.Fatalf("owner locked out after refused rotation: %v", err)
	}

	// With the current credential the new password takes over.
	if err := g.MakePrivate(s, "old1", "new2pass"); err != nil {
		t.Fatalf("MakePrivate(rotate) error = %v", err)
	}
	if err := g.AuthorizeRead(s, "new2pass"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if err := g.AuthorizeRead(s, "old1"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("old password still accepted after rotation: %v", err)
	}
}

// The isPublic ⟺ password-is-nil invariant holds through the round trip
// create → private → public.
func TestVisibilityInvariantRoundTrip(t *testing.T) {
	g := newTestGuard(t)

	s := publicShare()
	checkInvariant := func(step string) {
		t.Helper()
		if s.IsPublic != (s.Password == nil) {
			t.Fatalf("%s: invariant violated: isPublic=%v password-nil=%v",
				step, s.IsPublic, s.Password == nil)
		}
	}

	checkInvariant("created public")
	if err := g.MakePrivate(s, "", "ab12"); err != nil {
		t.Fatal(err)
	}
	checkInvariant("after MakePrivate")
	if err := g.MakePublic(s, "ab12"); err != nil {
		t.Fatal(err)
	}
	checkInvariant("after MakePublic")
}

// A private record missing its hash is a broken invariant; the guard
// fails closed instead of letting everyone in.
func TestBrokenInvariantFailsClosed(t *testing.T) {
	g := newTestGuard(t)

	s := &model.Share{ID: "broken", IsPublic: false, Password: nil}
	if err := g.AuthorizeRead(s, "anything"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("broken private share: error = %v, want ErrForbidden", err)
	}
}
