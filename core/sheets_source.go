package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsDirectorySource reads the user directory from a Google Sheet.
// The first row of the range must hold the column headers.
type SheetsDirectorySource struct {
	spreadsheetID string
	readRange     string
	opts          []option.ClientOption
}

// NewSheetsDirectorySource builds a source. The API client is created per fetch.
func NewSheetsDirectorySource(spreadsheetID, readRange string, opts ...option.ClientOption) *SheetsDirectorySource {
	return &SheetsDirectorySource{spreadsheetID: spreadsheetID, readRange: readRange, opts: opts}
}

// SheetsClientOptions derives service-account client options from cfg.
func SheetsClientOptions(cfg Config) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	switch {
	case cfg.ServiceAccountJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	case cfg.ServiceAccountFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ServiceAccountFile))
	}
	return opts
}

func (s *SheetsDirectorySource) Fetch(ctx context.Context) (Directory, error) {
	if s.spreadsheetID == "" {
		return nil, &DirectoryError{Kind: DirectoryNotFound, Err: errors.New("spreadsheet id is not configured")}
	}
	svc, err := sheets.NewService(ctx, s.opts...)
	if err != nil {
		return nil, &DirectoryError{Kind: DirectoryAuthFailed, Err: err}
	}
	resp, err := svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, classifySheetsError(err)
	}
	if len(resp.Values) == 0 {
		return Directory{}, nil
	}
	header := cellsToStrings(resp.Values[0])
	rows := make([][]string, 0, len(resp.Values)-1)
	for _, r := range resp.Values[1:] {
		rows = append(rows, cellsToStrings(r))
	}
	return directoryFromTable(header, rows), nil
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c != nil {
			out[i] = fmt.Sprint(c)
		}
	}
	return out
}

func classifySheetsError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &DirectoryError{Kind: DirectoryAuthFailed, Err: err}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &DirectoryError{Kind: DirectoryAuthFailed, Err: err}
		case http.StatusNotFound:
			return &DirectoryError{Kind: DirectoryNotFound, Err: err}
		}
	}
	return &DirectoryError{Kind: DirectoryUnavailable, Err: err}
}
