package session

import (
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/kaimanfr/checkin/internal/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.bin")
	store, err := NewFileStore(path, "test-secret")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	// empty store yields an empty session, not an error
	sess, err := store.Session()
	if err != nil {
		t.Fatalf("Session on empty store: %v", err)
	}
	if sess.LoggedIn() {
		t.Fatalf("empty session reports logged in")
	}

	want := models.Session{Email: "user@example.com", AccessToken: "tok", RefreshToken: "ref", Firstname: "Ada"}
	if err := store.SaveSession(want); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	reopened, err := NewFileStore(path, "test-secret")
	if err != nil {
		t.Fatalf("NewFileStore reopen: %v", err)
	}
	got, err := reopened.Session()
	if err != nil {
		t.Fatalf("Session after reopen: %v", err)
	}
	if got != want {
		t.Fatalf("session = %+v, want %+v", got, want)
	}
}

func TestFileStoreWrongKeyFailsClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.bin")
	store, err := NewFileStore(path, "right-secret")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.SaveSession(models.Session{AccessToken: "tok"}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	wrong, err := NewFileStore(path, "wrong-secret")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := wrong.Session(); err == nil {
		t.Fatalf("Session with wrong key should fail")
	}
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.bin")
	store, err := NewFileStore(path, "secret")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.SaveSession(models.Session{AccessToken: "tok"}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	sess, err := store.Session()
	if err != nil {
		t.Fatalf("Session after clear: %v", err)
	}
	if sess.LoggedIn() {
		t.Fatalf("session survived Clear")
	}
	// clearing again is fine
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func signTestToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	got, ok := TokenExpiry(signTestToken(t, exp))
	if !ok {
		t.Fatalf("TokenExpiry did not find exp claim")
	}
	if !got.Equal(exp) {
		t.Fatalf("expiry = %v, want %v", got, exp)
	}

	if _, ok := TokenExpiry("opaque-token"); ok {
		t.Fatalf("opaque token should not yield an expiry")
	}
}

func TestExpiresWithin(t *testing.T) {
	soon := signTestToken(t, time.Now().Add(time.Minute))
	if !ExpiresWithin(soon, time.Hour) {
		t.Fatalf("token expiring in 1m should report expiring within 1h")
	}
	if ExpiresWithin(soon, time.Second) {
		t.Fatalf("token expiring in 1m should not report expiring within 1s")
	}
	if ExpiresWithin("opaque-token", time.Hour) {
		t.Fatalf("opaque token should report false")
	}
}
