package core

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietAssembler() *DeckAssembler {
	return NewDeckAssembler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAssembleSkipsCorruptImagesKeepingOrder(t *testing.T) {
	images := []ImageInput{
		{Filename: "valid.png", Data: pngBytes(t, 4, 3)},
		{Filename: "corrupt.jpg", Data: []byte("definitely not a jpeg")},
		{Filename: "valid2.png", Data: pngBytes(t, 2, 2)},
	}

	deck, report := quietAssembler().Assemble(images, true)

	require.Len(t, deck.Slides, 2)
	assert.Equal(t, "valid.png", deck.Slides[0].Picture.Filename)
	assert.Equal(t, "valid2.png", deck.Slides[1].Picture.Filename)
	assert.Equal(t, 3, report.Submitted)
	assert.Equal(t, 2, report.Slides)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "corrupt.jpg", report.Skipped[0].Filename)
	assert.NotEmpty(t, report.Skipped[0].Reason)
}

func TestAssembleCountsOnlyValidImages(t *testing.T) {
	valid := pngBytes(t, 3, 3)
	truncated := valid[:len(valid)/2]
	images := []ImageInput{
		{Filename: "a.png", Data: valid},
		{Filename: "empty.png", Data: nil},
		{Filename: "b.jpg", Data: jpegBytes(t, 8, 8)},
		{Filename: "truncated.png", Data: truncated},
		{Filename: "c.png", Data: valid},
	}

	deck, report := quietAssembler().Assemble(images, false)

	require.Len(t, deck.Slides, 3)
	assert.Equal(t, []string{"a.png", "b.jpg", "c.png"}, []string{
		deck.Slides[0].Picture.Filename,
		deck.Slides[1].Picture.Filename,
		deck.Slides[2].Picture.Filename,
	})
	assert.Equal(t, "jpeg", deck.Slides[1].Picture.Format)
	assert.Len(t, report.Skipped, 2)
}

func TestAssembleEmptyInput(t *testing.T) {
	deck, report := quietAssembler().Assemble(nil, true)

	assert.Empty(t, deck.Slides)
	assert.Equal(t, 0, report.Slides)
	assert.Equal(t, CanvasWidth, deck.Width)
	assert.Equal(t, CanvasHeight, deck.Height)

	data, err := deck.Bytes()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestAssembleAutoResizeStretchesToCanvas(t *testing.T) {
	images := []ImageInput{
		{Filename: "wide.png", Data: pngBytes(t, 40, 2)},
		{Filename: "tall.png", Data: pngBytes(t, 2, 40)},
		{Filename: "square.jpg", Data: jpegBytes(t, 16, 16)},
	}

	deck, _ := quietAssembler().Assemble(images, true)

	require.Len(t, deck.Slides, 3)
	for _, s := range deck.Slides {
		assert.Equal(t, deck.Width, s.Picture.Width, s.Picture.Filename)
		assert.Equal(t, deck.Height, s.Picture.Height, s.Picture.Filename)
		assert.Zero(t, s.Picture.OffsetX)
		assert.Zero(t, s.Picture.OffsetY)
	}
}

func TestAssembleNativeSize(t *testing.T) {
	images := []ImageInput{
		{Filename: "small.png", Data: pngBytes(t, 7, 5)},
		{Filename: "photo.jpg", Data: jpegBytes(t, 32, 24)},
	}

	deck, _ := quietAssembler().Assemble(images, false)

	require.Len(t, deck.Slides, 2)
	for i, want := range [][2]int{{7, 5}, {32, 24}} {
		pic := deck.Slides[i].Picture
		assert.Equal(t, want[0], pic.PixelWidth)
		assert.Equal(t, want[1], pic.PixelHeight)
		assert.Equal(t, int64(want[0])*EMUPerPixel, pic.Width)
		assert.Equal(t, int64(want[1])*EMUPerPixel, pic.Height)
	}
}

func TestCanvasIsSixteenByNine(t *testing.T) {
	assert.Equal(t, int64(12188952), CanvasWidth)
	assert.Equal(t, int64(6858000), CanvasHeight)
	assert.InDelta(t, 16.0/9.0, float64(CanvasWidth)/float64(CanvasHeight), 0.001)
}
