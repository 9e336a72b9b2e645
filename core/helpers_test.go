package core

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

// countingSource serves a fixed directory (or error) and counts fetches.
type countingSource struct {
	dir   Directory
	err   error
	calls atomic.Int32
}

func (s *countingSource) Fetch(_ context.Context) (Directory, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make(Directory, len(s.dir))
	for k, v := range s.dir {
		out[k] = v
	}
	return out, nil
}

func testDirectory() Directory {
	return Directory{
		"Alice": {Name: "Alice", Email: "alice@example.com", Password: "abc123", ImageURL: "https://drive.google.com/file/d/alice-id/view"},
		"Bob":   {Name: "Bob", Email: "bob@example.com", Password: "hunter2"},
	}
}
