package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func sheetsServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/v4/spreadsheets/sheet-123/values/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSheetsSource(srv *httptest.Server, id string) *SheetsDirectorySource {
	return NewSheetsDirectorySource(id, "Sheet1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
}

func TestSheetsDirectorySourceFetch(t *testing.T) {
	srv := sheetsServer(t, http.StatusOK, `{
		"range": "Sheet1!A1:D4",
		"majorDimension": "ROWS",
		"values": [
			["Name", "Email", "Password", "Image_URL"],
			["Alice", "alice@example.com", "abc123", "https://drive.google.com/file/d/a1/view"],
			["Numeric", "n@example.com", 123],
			["Incomplete", "i@example.com"]
		]
	}`)

	dir, err := testSheetsSource(srv, "sheet-123").Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Numeric"}, dir.Names())
	assert.Equal(t, "123", dir["Numeric"].Password)
	assert.Equal(t, "https://drive.google.com/file/d/a1/view", dir["Alice"].ImageURL)
}

func TestSheetsDirectorySourceEmptySheet(t *testing.T) {
	srv := sheetsServer(t, http.StatusOK, `{"range": "Sheet1!A1:Z1000", "majorDimension": "ROWS"}`)

	dir, err := testSheetsSource(srv, "sheet-123").Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, dir)
}

func TestSheetsDirectorySourceErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   DirectoryErrorKind
	}{
		{"not found", http.StatusNotFound, DirectoryNotFound},
		{"forbidden", http.StatusForbidden, DirectoryAuthFailed},
		{"unauthorized", http.StatusUnauthorized, DirectoryAuthFailed},
		{"bad request", http.StatusBadRequest, DirectoryUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := sheetsServer(t, tc.status, `{"error": {"code": 0, "message": "nope", "status": "FAILED"}}`)

			_, err := testSheetsSource(srv, "sheet-123").Fetch(context.Background())

			var derr *DirectoryError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tc.want, derr.Kind)
		})
	}
}

func TestSheetsDirectorySourceMissingID(t *testing.T) {
	_, err := NewSheetsDirectorySource("", "Sheet1").Fetch(context.Background())

	var derr *DirectoryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, DirectoryNotFound, derr.Kind)
}
