package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// FileDirectorySource reads the user directory from a YAML file:
//
//	users:
//	  - name: Alice
//	    email: alice@example.com
//	    password: abc123
//	    image_url: https://drive.google.com/file/d/<id>/view
type FileDirectorySource struct {
	path string
}

func NewFileDirectorySource(path string) *FileDirectorySource {
	return &FileDirectorySource{path: path}
}

type directoryDoc struct {
	Users []struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		ImageURL string `yaml:"image_url"`
	} `yaml:"users"`
}

func (s *FileDirectorySource) Fetch(_ context.Context) (Directory, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &DirectoryError{Kind: DirectoryNotFound, Err: err}
		}
		return nil, &DirectoryError{Kind: DirectoryUnavailable, Err: err}
	}
	var doc directoryDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, &DirectoryError{Kind: DirectoryUnavailable, Err: fmt.Errorf("parse %s: %w", s.path, err)}
	}
	records := make([]UserRecord, 0, len(doc.Users))
	for _, u := range doc.Users {
		records = append(records, UserRecord{Name: u.Name, Email: u.Email, Password: u.Password, ImageURL: u.ImageURL})
	}
	return directoryFromRecords(records), nil
}
