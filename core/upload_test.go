package core

import (
	"archive/zip"
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedFile struct {
	name string
	data []byte
}

func zipBytes(t *testing.T, files ...namedFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func multipartFiles(t *testing.T, files ...namedFile) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		w, err := mw.CreateFormFile("images", f.name)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["images"]
}

func filenames(images []ImageInput) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.Filename
	}
	return out
}

func TestNaturalOrder(t *testing.T) {
	data := zipBytes(t,
		namedFile{"file name_10.png", []byte("10")},
		namedFile{"file name_2.png", []byte("2")},
		namedFile{"file name_.png", []byte("_")},
		namedFile{"file name_1.png", []byte("1")},
		namedFile{"File name_3.jpg", []byte("3")},
	)

	got, err := ImagesFromZip(data)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"file name_.png",
		"file name_1.png",
		"file name_2.png",
		"File name_3.jpg",
		"file name_10.png",
	}, filenames(got))
	assert.Equal(t, []byte("10"), got[4].Data)
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("slide2.png", "slide10.png"))
	assert.True(t, naturalLess("slide002.png", "slide3.png"))
	assert.True(t, naturalLess("a.png", "a_1.png"))
	assert.False(t, naturalLess("b.png", "a.png"))
	assert.False(t, naturalLess("x.png", "x.png"))
}

func TestImagesFromZipSkipsNonImagesAndHidden(t *testing.T) {
	data := zipBytes(t,
		namedFile{"slides/", nil},
		namedFile{"slides/b.png", []byte("b")},
		namedFile{"slides/a.jpeg", []byte("a")},
		namedFile{"slides/readme.txt", []byte("text")},
		namedFile{"__MACOSX/slides/._a.jpeg", []byte("meta")},
		namedFile{".hidden.png", []byte("h")},
	)

	got, err := ImagesFromZip(data)

	require.NoError(t, err)
	assert.Equal(t, []string{"slides/a.jpeg", "slides/b.png"}, filenames(got))
}

func TestImagesFromZipRejectsTraversal(t *testing.T) {
	for _, name := range []string{"../evil.png", "ok/../../evil.png", "/abs.png"} {
		_, err := ImagesFromZip(zipBytes(t, namedFile{name, []byte("x")}))
		assert.Error(t, err, name)
	}
}

func TestImagesFromZipInvalidArchive(t *testing.T) {
	_, err := ImagesFromZip([]byte("not a zip"))
	assert.Error(t, err)
}

func TestReadUploadsKeepsUploadOrder(t *testing.T) {
	archive := zipBytes(t,
		namedFile{"p_10.png", []byte("z10")},
		namedFile{"p_9.png", []byte("z9")},
	)
	files := multipartFiles(t,
		namedFile{"zeta.png", []byte("first")},
		namedFile{"bundle.zip", archive},
		namedFile{"ALPHA.PNG", []byte("last")},
	)

	got, err := ReadUploads(files)

	require.NoError(t, err)
	assert.Equal(t, []string{"zeta.png", "p_9.png", "p_10.png", "ALPHA.PNG"}, filenames(got))
	assert.Equal(t, []byte("first"), got[0].Data)
}

func TestReadUploadsRejectsUnsupportedType(t *testing.T) {
	files := multipartFiles(t,
		namedFile{"ok.png", []byte("x")},
		namedFile{"anim.gif", []byte("GIF89a")},
	)

	_, err := ReadUploads(files)

	assert.ErrorIs(t, err, ErrUnsupportedFile)
	assert.Contains(t, err.Error(), "anim.gif")
}
