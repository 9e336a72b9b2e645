package core

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"sort"
	"strings"
	"unicode"
)

const (
	maxArchiveEntries   = 500
	maxArchiveTotalSize = 512 * 1024 * 1024
	maxArchiveFileSize  = 64 * 1024 * 1024
)

// ErrUnsupportedFile is returned for uploads that are neither images nor zip archives.
var ErrUnsupportedFile = errors.New("unsupported file type")

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

func isImageName(name string) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

func isArchiveName(name string) bool {
	return strings.EqualFold(path.Ext(name), ".zip")
}

// ReadUploads converts uploaded files into ordered image inputs.
// Images keep their upload order; a zip archive expands in place to its image
// entries in natural filename order.
func ReadUploads(files []*multipart.FileHeader) ([]ImageInput, error) {
	var out []ImageInput
	for _, fh := range files {
		name := path.Base(normalizeArchivePath(fh.Filename))
		switch {
		case isImageName(name):
			data, err := readFileHeader(fh)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", name, err)
			}
			out = append(out, ImageInput{Filename: name, Data: data})
		case isArchiveName(name):
			data, err := readFileHeader(fh)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", name, err)
			}
			images, err := ImagesFromZip(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out = append(out, images...)
		default:
			return nil, fmt.Errorf("%w: %s (jpg, jpeg, png or zip only)", ErrUnsupportedFile, name)
		}
	}
	return out, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ImagesFromZip reads the image entries of a zip archive with size/entry/path validation.
// Directories, hidden files (including __MACOSX metadata) and non-image entries are ignored.
func ImagesFromZip(data []byte) ([]ImageInput, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("cannot open zip: %w", err)
	}
	var total int64
	var out []ImageInput
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		norm := normalizeArchivePath(f.Name)
		if strings.HasPrefix(norm, "/") || strings.HasPrefix(norm, "../") || strings.Contains(norm, "/../") {
			return nil, fmt.Errorf("invalid path in archive: %s", f.Name)
		}
		if isHiddenPath(norm) || !isImageName(norm) {
			continue
		}
		if len(out)+1 > maxArchiveEntries {
			return nil, fmt.Errorf("too many images in archive (limit %d)", maxArchiveEntries)
		}
		if f.UncompressedSize64 > maxArchiveFileSize {
			return nil, fmt.Errorf("%s is too large (limit %d bytes)", f.Name, maxArchiveFileSize)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxArchiveFileSize+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", f.Name, err)
		}
		if int64(len(content)) > maxArchiveFileSize {
			return nil, fmt.Errorf("%s is too large (limit %d bytes)", f.Name, maxArchiveFileSize)
		}
		total += int64(len(content))
		if total > maxArchiveTotalSize {
			return nil, fmt.Errorf("archive expands beyond %d bytes", maxArchiveTotalSize)
		}
		out = append(out, ImageInput{Filename: norm, Data: content})
	}
	sort.SliceStable(out, func(i, j int) bool { return naturalLess(out[i].Filename, out[j].Filename) })
	return out, nil
}

func normalizeArchivePath(p string) string {
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "./")
	return cleaned
}

func isHiddenPath(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") || part == "__MACOSX" {
			return true
		}
	}
	return false
}

// naturalLess orders names so digit runs compare numerically and a name sorts
// before its extensions: "deck_" < "deck_1" < "deck_2" < "deck_10".
// The extension is ignored unless the stems are equal.
func naturalLess(a, b string) bool {
	sa, sb := stem(a), stem(b)
	if sa != sb {
		return naturalCompare(sa, sb) < 0
	}
	return naturalCompare(a, b) < 0
}

func stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

func naturalCompare(a, b string) int {
	ra, rb := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		if unicode.IsDigit(ra[i]) && unicode.IsDigit(rb[j]) {
			si := i
			for i < len(ra) && unicode.IsDigit(ra[i]) {
				i++
			}
			sj := j
			for j < len(rb) && unicode.IsDigit(rb[j]) {
				j++
			}
			na := strings.TrimLeft(string(ra[si:i]), "0")
			nb := strings.TrimLeft(string(rb[sj:j]), "0")
			if len(na) != len(nb) {
				return len(na) - len(nb)
			}
			if na != nb {
				return strings.Compare(na, nb)
			}
			continue
		}
		if ra[i] != rb[j] {
			return int(ra[i]) - int(rb[j])
		}
		i++
		j++
	}
	return (len(ra) - i) - (len(rb) - j)
}
