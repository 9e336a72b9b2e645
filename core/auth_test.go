package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestGate(dir Directory) (*Gate, *countingSource) {
	src := &countingSource{dir: dir}
	return NewGate(NewDirectoryCache(src)), src
}

func TestAuthenticate(t *testing.T) {
	gate, _ := newTestGate(testDirectory())
	ctx := context.Background()

	cases := []struct {
		name     string
		user     string
		password string
		ok       bool
	}{
		{"correct password", "Alice", "abc123", true},
		{"wrong password", "Alice", "abc124", false},
		{"case sensitive", "Alice", "ABC123", false},
		{"empty password", "Alice", "", false},
		{"unknown user", "Mallory", "abc123", false},
		{"other user password", "Bob", "abc123", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start := Session{SelectedUser: tc.user}
			sess, err := gate.Authenticate(ctx, start, tc.user, tc.password)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				assert.Equal(t, start, sess)
				return
			}
			require.NoError(t, err)
			assert.True(t, sess.Authenticated)
			assert.Equal(t, "Alice", sess.CurrentUser)
			assert.Equal(t, "alice@example.com", sess.Email)
			assert.Equal(t, "Alice", sess.SelectedUser)
		})
	}
}

func TestAuthenticateFailureSignsOut(t *testing.T) {
	gate, _ := newTestGate(testDirectory())
	signedIn := Session{Authenticated: true, CurrentUser: "Bob", Email: "bob@example.com", SelectedUser: "Bob"}

	sess, err := gate.Authenticate(context.Background(), signedIn, "Alice", "nope")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, sess.Authenticated)
	assert.Empty(t, sess.CurrentUser)
	assert.Empty(t, sess.Email)
	assert.Equal(t, "Bob", sess.SelectedUser)
}

func TestAuthenticateDirectoryFailureKeepsSession(t *testing.T) {
	src := &countingSource{err: errors.New("sheet offline")}
	gate := NewGate(NewDirectoryCache(src))
	signedIn := Session{Authenticated: true, CurrentUser: "Bob", Email: "bob@example.com", SelectedUser: "Bob"}

	sess, err := gate.Authenticate(context.Background(), signedIn, "Bob", "hunter2")

	require.Error(t, err)
	assert.Equal(t, signedIn, sess)
}

func TestAuthenticateUsesSessionSelection(t *testing.T) {
	gate, _ := newTestGate(testDirectory())
	ctx := context.Background()

	sess, err := gate.Authenticate(ctx, Session{SelectedUser: "Bob"}, "", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "Bob", sess.CurrentUser)

	// a selection that no longer exists falls back to the first name
	sess, err = gate.Authenticate(ctx, Session{SelectedUser: "Gone"}, "", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Alice", sess.CurrentUser)
}

func TestAuthenticateAcceptsBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	dir := Directory{"Carol": {Name: "Carol", Email: "carol@example.com", Password: string(hash)}}
	gate, _ := newTestGate(dir)

	_, err = gate.Authenticate(context.Background(), Session{}, "Carol", "s3cret")
	require.NoError(t, err)

	_, err = gate.Authenticate(context.Background(), Session{}, "Carol", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// the stored hash itself is also an exact match
	_, err = gate.Authenticate(context.Background(), Session{}, "Carol", string(hash))
	require.NoError(t, err)
}

func TestAuthenticateEmptyDirectoryFailsClosed(t *testing.T) {
	gate, _ := newTestGate(Directory{})

	sess, err := gate.Authenticate(context.Background(), Session{}, "Alice", "abc123")

	assert.ErrorIs(t, err, ErrDirectoryEmpty)
	assert.False(t, sess.Authenticated)
}

func TestAuthenticateDirectoryFailure(t *testing.T) {
	src := &countingSource{err: &DirectoryError{Kind: DirectoryAuthFailed, Err: errors.New("bad key")}}
	gate := NewGate(NewDirectoryCache(src))

	_, err := gate.Authenticate(context.Background(), Session{}, "Alice", "abc123")

	var derr *DirectoryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, DirectoryAuthFailed, derr.Kind)
}

func TestLogoutKeepsSelection(t *testing.T) {
	gate, _ := newTestGate(testDirectory())
	sess := gate.Logout(Session{Authenticated: true, CurrentUser: "Alice", Email: "alice@example.com", AvatarURL: "x", SelectedUser: "Alice"})

	assert.Equal(t, Session{SelectedUser: "Alice"}, sess)
}

func TestLoginScreen(t *testing.T) {
	gate, _ := newTestGate(testDirectory())
	ctx := context.Background()

	names, selected, sess, err := gate.LoginScreen(ctx, Session{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, names)
	assert.Equal(t, "Alice", selected.Name)
	assert.Equal(t, "https://drive.google.com/uc?export=view&id=alice-id", selected.AvatarURL)
	assert.Equal(t, "Alice", sess.SelectedUser)

	_, selected, _, err = gate.LoginScreen(ctx, Session{SelectedUser: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Bob", selected.Name)
	assert.Equal(t, "B", selected.Initials)
}

func TestSelect(t *testing.T) {
	gate, _ := newTestGate(testDirectory())
	ctx := context.Background()

	sess, profile, err := gate.Select(ctx, Session{SelectedUser: "Alice"}, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", sess.SelectedUser)
	assert.Equal(t, "bob@example.com", profile.Email)

	sess, _, err = gate.Select(ctx, Session{SelectedUser: "Alice"}, "Mallory")
	assert.ErrorIs(t, err, ErrUnknownUser)
	assert.Equal(t, "Alice", sess.SelectedUser)
}

func TestIsBcryptHash(t *testing.T) {
	assert.False(t, isBcryptHash("abc123"))
	assert.False(t, isBcryptHash("$2a$short"))
	assert.True(t, isBcryptHash("$2b$10$"+"abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0"))
}
