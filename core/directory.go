package core

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// UserRecord is one row of the user directory. Password holds the stored
// value as-is (plaintext or a bcrypt hash).
type UserRecord struct {
	Name     string `validate:"required"`
	Email    string `validate:"required"`
	Password string `validate:"required"`
	ImageURL string
}

// Directory maps display name to record. A loaded Directory is never mutated.
type Directory map[string]UserRecord

// Names returns all display names in lexicographic order.
func (d Directory) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// First returns the lexicographically first record.
func (d Directory) First() (UserRecord, bool) {
	names := d.Names()
	if len(names) == 0 {
		return UserRecord{}, false
	}
	return d[names[0]], true
}

// DirectorySource fetches the full user directory from an external store.
type DirectorySource interface {
	Fetch(ctx context.Context) (Directory, error)
}

// DirectorySourceFunc adapts a function to DirectorySource.
type DirectorySourceFunc func(ctx context.Context) (Directory, error)

func (f DirectorySourceFunc) Fetch(ctx context.Context) (Directory, error) { return f(ctx) }

// DirectoryErrorKind classifies directory retrieval failures.
type DirectoryErrorKind int

const (
	DirectoryUnavailable DirectoryErrorKind = iota
	DirectoryAuthFailed
	DirectoryNotFound
)

// DirectoryError is returned when the directory cannot be retrieved.
type DirectoryError struct {
	Kind DirectoryErrorKind
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("load user directory: %v", e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the person trying to sign in.
func (e *DirectoryError) UserMessage() string {
	switch e.Kind {
	case DirectoryAuthFailed:
		return "Authentication failed. Please check your Google Service Account credentials."
	case DirectoryNotFound:
		return "User database not found. Please check the Google Sheet name."
	default:
		return fmt.Sprintf("Error loading user data: %v", e.Err)
	}
}

var (
	// ErrDirectoryEmpty is returned when the directory loaded but holds no usable rows.
	ErrDirectoryEmpty = errors.New("no users found in the system")
)

// directoryMessage maps a directory load failure to its user-facing text.
func directoryMessage(err error) string {
	var derr *DirectoryError
	if errors.As(err, &derr) {
		return derr.UserMessage()
	}
	return "Unable to load user data. Please contact support."
}

var rowValidator = validator.New(validator.WithRequiredStructEnabled())

// Column headers expected in tabular sources.
const (
	colName     = "Name"
	colEmail    = "Email"
	colPassword = "Password"
	colImageURL = "Image_URL"
)

// directoryFromTable converts a header row plus data rows into a Directory.
// Rows lacking a name, email or password are dropped; duplicate names keep the last row.
func directoryFromTable(header []string, rows [][]string) Directory {
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	records := make([]UserRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, UserRecord{
			Name:     cell(row, colName),
			Email:    cell(row, colEmail),
			Password: cell(row, colPassword),
			ImageURL: cell(row, colImageURL),
		})
	}
	return directoryFromRecords(records)
}

// directoryFromRecords trims and validates records and indexes them by name.
func directoryFromRecords(records []UserRecord) Directory {
	dir := make(Directory, len(records))
	for _, r := range records {
		r.Name = strings.TrimSpace(r.Name)
		r.Email = strings.TrimSpace(r.Email)
		r.Password = strings.TrimSpace(r.Password)
		r.ImageURL = strings.TrimSpace(r.ImageURL)
		if err := rowValidator.Struct(r); err != nil {
			continue
		}
		dir[r.Name] = r
	}
	return dir
}

// UserProfile is the public view of a record (no password).
type UserProfile struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Initials  string `json:"initials"`
	Gradient  string `json:"gradient"`
}

// Profile builds the public profile for a record.
func (r UserRecord) Profile() UserProfile {
	return newProfile(r.Name, r.Email, r.ImageURL)
}

func newProfile(name, email, imageURL string) UserProfile {
	return UserProfile{
		Name:      name,
		Email:     email,
		AvatarURL: DirectImageURL(imageURL),
		Initials:  Initials(name),
		Gradient:  AvatarGradient(name),
	}
}

// DirectImageURL rewrites Google Drive share links into directly viewable image URLs.
// Other URLs are returned unchanged.
func DirectImageURL(raw string) string {
	if raw == "" || !strings.Contains(raw, "drive.google.com") {
		return raw
	}
	var id string
	switch {
	case strings.Contains(raw, "/file/d/"):
		id = strings.SplitN(strings.SplitN(raw, "/file/d/", 2)[1], "/", 2)[0]
	case strings.Contains(raw, "id="):
		id = strings.SplitN(strings.SplitN(raw, "id=", 2)[1], "&", 2)[0]
	}
	if id == "" {
		return raw
	}
	return "https://drive.google.com/uc?export=view&id=" + id
}

// Initials returns the upper-cased first letters of up to two words of name.
func Initials(name string) string {
	var b strings.Builder
	for i, w := range strings.Fields(name) {
		if i == 2 {
			break
		}
		b.WriteString(strings.ToUpper(string([]rune(w)[0])))
	}
	return b.String()
}

var avatarGradients = []string{
	"#667eea, #764ba2",
	"#f093fb, #f5576c",
	"#4facfe, #00f2fe",
	"#43e97b, #38f9d7",
	"#fa709a, #fee140",
	"#a8edea, #fed6e3",
	"#ffecd2, #fcb69f",
	"#ff9a9e, #fecfef",
}

// AvatarGradient picks a stable gradient for name (case-insensitive).
func AvatarGradient(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	return avatarGradients[h.Sum32()%uint32(len(avatarGradients))]
}
