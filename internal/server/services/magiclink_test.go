package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/promptsalchemy/tokenbank/internal/common"
	"github.com/promptsalchemy/tokenbank/internal/server/auth"
)

func newMagicLinkSvc(t *testing.T, rm *fakeRepoManager, codec auth.TokenCodec) (*MagicLinkService, func()) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	_ = mock
	return NewMagicLinkService(db, rm, codec, testLogger()), func() { db.Close() }
}

func TestIssue_StoresUnusedToken(t *testing.T) {
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	s, cleanup := newMagicLinkSvc(t, rm, auth.NewOpaqueCodec())
	defer cleanup()

	token, err := s.Issue(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	link, ok := rm.ml.links[token]
	if !ok {
		t.Fatalf("token %q not persisted", token)
	}
	if link.Used {
		t.Fatalf("fresh token must be unused")
	}
	if link.Identity != "a@x.com" {
		t.Fatalf("identity: got %q", link.Identity)
	}
}

func TestIssue_TokensAreUnique(t *testing.T) {
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	s, cleanup := newMagicLinkSvc(t, rm, auth.NewOpaqueCodec())
	defer cleanup()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		token, err := s.Issue(context.Background(), "a@x.com")
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token issued: %q", token)
		}
		seen[token] = true
	}
}

func TestVerify_NonConsumingIsRepeatable(t *testing.T) {
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	s, cleanup := newMagicLinkSvc(t, rm, auth.NewOpaqueCodec())
	defer cleanup()

	ctx := context.Background()
	token, err := s.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	for i := 0; i < 3; i++ {
		identity, err := s.Verify(ctx, token, 15*time.Minute, false)
		if err != nil {
			t.Fatalf("Verify #%d error: %v", i+1, err)
		}
		if identity != "a@x.com" {
			t.Fatalf("identity: got %q", identity)
		}
	}
	if rm.ml.links[token].Used {
		t.Fatalf("non-consuming verification must not burn the token")
	}
}

func TestVerify_ConsumeSucceedsExactlyOnce(t *testing.T) {
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()
	s := NewMagicLinkService(db, rm, auth.NewOpaqueCodec(), testLogger())

	ctx := context.Background()
	token, err := s.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	identity, err := s.Verify(ctx, token, 15*time.Minute, true)
	if err != nil {
		t.Fatalf("first consuming Verify error: %v", err)
	}
	if identity != "a@x.com" {
		t.Fatalf("identity: got %q", identity)
	}
	if !rm.ml.links[token].Used {
		t.Fatalf("consuming verification must mark the token used")
	}

	if _, err := s.Verify(ctx, token, 15*time.Minute, true); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("second consume: expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_UsedTokenFailsNonConsumingToo(t *testing.T) {
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()
	s := NewMagicLinkService(db, rm, auth.NewOpaqueCodec(), testLogger())

	ctx := context.Background()
	token, err := s.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := s.Verify(ctx, token, 15*time.Minute, true); err != nil {
		t.Fatalf("consuming Verify error: %v", err)
	}

	if _, err := s.Verify(ctx, token, 15*time.Minute, false); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for a burnt token, got %v", err)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()
	s := NewMagicLinkService(db, rm, auth.NewOpaqueCodec(), testLogger())

	ctx := context.Background()
	token, err := s.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	rm.ml.links[token].CreatedAt = time.Now().Add(-time.Hour)

	if _, err := s.Verify(ctx, token, 15*time.Minute, false); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("non-consuming: expected ErrInvalidToken, got %v", err)
	}
	if _, err := s.Verify(ctx, token, 15*time.Minute, true); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("consuming: expected ErrInvalidToken, got %v", err)
	}
	if rm.ml.links[token].Used {
		t.Fatalf("rejected token must stay unused")
	}
}

func TestVerify_UnknownToken(t *testing.T) {
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	s, cleanup := newMagicLinkSvc(t, rm, auth.NewOpaqueCodec())
	defer cleanup()

	codec := auth.NewOpaqueCodec()
	stranger, err := codec.Encode("whoever")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	if _, err := s.Verify(context.Background(), stranger, 15*time.Minute, false); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_MalformedToken(t *testing.T) {
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	s, cleanup := newMagicLinkSvc(t, rm, auth.NewOpaqueCodec())
	defer cleanup()

	for _, token := range []string{"", "nope", "xyz!!not-hex"} {
		if _, err := s.Verify(context.Background(), token, 15*time.Minute, false); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestVerify_SignedTokenIdentityMismatch(t *testing.T) {
	secret := []byte("test-secret")
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	s, cleanup := newMagicLinkSvc(t, rm, auth.NewSignedCodec(secret))
	defer cleanup()

	ctx := context.Background()
	token, err := s.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	// The stored row no longer matches the identity signed into the token.
	rm.ml.links[token].Identity = "b@x.com"

	if _, err := s.Verify(ctx, token, 15*time.Minute, false); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_SignedTokenHappyPath(t *testing.T) {
	secret := []byte("test-secret")
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()
	s := NewMagicLinkService(db, rm, auth.NewSignedCodec(secret), testLogger())

	ctx := context.Background()
	token, err := s.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	identity, err := s.Verify(ctx, token, 15*time.Minute, true)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if identity != "a@x.com" {
		t.Fatalf("identity: got %q", identity)
	}
}

func TestPurgeExpired(t *testing.T) {
	rm := &fakeRepoManager{ml: newFakeMagicLinksRepo()}
	s, cleanup := newMagicLinkSvc(t, rm, auth.NewOpaqueCodec())
	defer cleanup()

	ctx := context.Background()
	old, err := s.Issue(ctx, "old@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	rm.ml.links[old].CreatedAt = time.Now().Add(-48 * time.Hour)
	fresh, err := s.Issue(ctx, "fresh@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	n, err := s.PurgeExpired(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeExpired error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if _, ok := rm.ml.links[old]; ok {
		t.Fatalf("old token must be gone")
	}
	if _, ok := rm.ml.links[fresh]; !ok {
		t.Fatalf("fresh token must survive")
	}
}
