package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when the name/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownUser is returned when selecting a name absent from the directory.
	ErrUnknownUser = errors.New("unknown user")
)

// Session is the per-client login state. Gate operations never modify a
// Session in place; they return the next value.
type Session struct {
	Authenticated bool
	CurrentUser   string
	Email         string
	AvatarURL     string
	SelectedUser  string
}

// Profile returns the public profile of the signed-in user.
func (s Session) Profile() UserProfile {
	return newProfile(s.CurrentUser, s.Email, s.AvatarURL)
}

// Gate checks credentials against the cached user directory.
type Gate struct {
	cache *DirectoryCache
}

func NewGate(cache *DirectoryCache) *Gate {
	return &Gate{cache: cache}
}

// directory loads the directory and fails closed when it is empty.
func (g *Gate) directory(ctx context.Context) (Directory, error) {
	dir, err := g.cache.Load(ctx)
	if err != nil {
		return dir, err
	}
	if len(dir) == 0 {
		return dir, ErrDirectoryEmpty
	}
	return dir, nil
}

// resolveSelected returns the remembered selection when it still exists,
// otherwise the lexicographically first user.
func resolveSelected(dir Directory, selected string) (UserRecord, bool) {
	if rec, ok := dir[selected]; ok && selected != "" {
		return rec, true
	}
	return dir.First()
}

// LoginScreen returns every name plus the profile of the currently selected user.
// The returned session carries the resolved selection.
func (g *Gate) LoginScreen(ctx context.Context, sess Session) ([]string, UserProfile, Session, error) {
	dir, err := g.directory(ctx)
	if err != nil {
		return nil, UserProfile{}, sess, err
	}
	rec, _ := resolveSelected(dir, sess.SelectedUser)
	sess.SelectedUser = rec.Name
	return dir.Names(), rec.Profile(), sess, nil
}

// Select remembers name as the login-screen choice.
func (g *Gate) Select(ctx context.Context, sess Session, name string) (Session, UserProfile, error) {
	dir, err := g.directory(ctx)
	if err != nil {
		return sess, UserProfile{}, err
	}
	rec, ok := dir[name]
	if !ok {
		return sess, UserProfile{}, ErrUnknownUser
	}
	sess.SelectedUser = rec.Name
	return sess, rec.Profile(), nil
}

// Authenticate signs the session in when password matches the stored value for
// selectedName. An empty selectedName falls back to the session's selection.
// A failed attempt signs the session out, keeping only the selection. When the
// directory cannot be loaded the input session is returned unchanged.
func (g *Gate) Authenticate(ctx context.Context, sess Session, selectedName, password string) (Session, error) {
	dir, err := g.directory(ctx)
	if err != nil {
		return sess, err
	}

	var rec UserRecord
	var ok bool
	if strings.TrimSpace(selectedName) == "" {
		rec, ok = resolveSelected(dir, sess.SelectedUser)
	} else {
		rec, ok = dir[selectedName]
	}
	if !ok || !passwordMatches(rec.Password, password) {
		return g.Logout(sess), ErrInvalidCredentials
	}

	return Session{
		Authenticated: true,
		CurrentUser:   rec.Name,
		Email:         rec.Email,
		AvatarURL:     rec.ImageURL,
		SelectedUser:  rec.Name,
	}, nil
}

// Logout returns the signed-out default. The login-screen selection is kept.
func (g *Gate) Logout(sess Session) Session {
	return Session{SelectedUser: sess.SelectedUser}
}

// passwordMatches compares in constant time; bcrypt-hashed stored values are
// additionally accepted when the submitted password hashes to them.
func passwordMatches(stored, submitted string) bool {
	if stored == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1 {
		return true
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted)) == nil
	}
	return false
}

func isBcryptHash(v string) bool {
	if len(v) != 60 {
		return false
	}
	return strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") || strings.HasPrefix(v, "$2y$")
}
