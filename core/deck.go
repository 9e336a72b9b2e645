package core

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"time"
)

// EMU (English Metric Units) used by OOXML drawing coordinates.
const (
	EMUPerInch = 914400
	// EMUPerPixel applies to images without a recorded density (DefaultDPI).
	EMUPerPixel = EMUPerInch / DefaultDPI
)

// 16:9 canvas, 13.33in x 7.5in (1920x1080 at 144 DPI).
const (
	CanvasWidth  int64 = 13.33 * EMUPerInch
	CanvasHeight int64 = 7.5 * EMUPerInch
)

// ImageInput is one uploaded image as received.
type ImageInput struct {
	Filename string
	Data     []byte
}

// Picture is the single image element of a slide. Geometry is in EMU.
type Picture struct {
	Filename    string
	Format      string // "png" or "jpeg"
	Data        []byte
	PixelWidth  int
	PixelHeight int
	DPIX        int
	DPIY        int
	OffsetX     int64
	OffsetY     int64
	Width       int64
	Height      int64
}

// Slide holds exactly one picture.
type Slide struct {
	Picture Picture
}

// DeckMeta is written to the package's document properties.
type DeckMeta struct {
	Title   string
	Author  string
	Created time.Time
}

// Deck is a complete presentation ready to be serialized.
type Deck struct {
	Width  int64
	Height int64
	Slides []Slide
	Meta   DeckMeta
}

// SkippedImage records an input that produced no slide.
type SkippedImage struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// AssemblyReport summarises one Assemble call.
type AssemblyReport struct {
	Submitted int            `json:"submitted"`
	Slides    int            `json:"slides"`
	Skipped   []SkippedImage `json:"skipped"`
}

// DeckAssembler turns ordered images into a Deck.
type DeckAssembler struct {
	log *slog.Logger
}

func NewDeckAssembler(logger *slog.Logger) *DeckAssembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckAssembler{log: logger}
}

// Assemble creates one slide per decodable image, in input order.
// With autoResize every picture is stretched to the canvas, ignoring aspect
// ratio; otherwise it keeps its native size at the image's recorded DPI.
// Undecodable images are logged and skipped. An empty input yields an empty Deck.
func (a *DeckAssembler) Assemble(images []ImageInput, autoResize bool) (*Deck, AssemblyReport) {
	deck := &Deck{
		Width:  CanvasWidth,
		Height: CanvasHeight,
		Slides: make([]Slide, 0, len(images)),
	}
	report := AssemblyReport{Submitted: len(images), Skipped: []SkippedImage{}}

	for _, img := range images {
		cfg, format, err := decodeImage(img.Data)
		if err != nil {
			a.log.Warn("invalid or corrupted image skipped", "file", img.Filename, "error", err)
			report.Skipped = append(report.Skipped, SkippedImage{Filename: img.Filename, Reason: err.Error()})
			continue
		}

		pic := Picture{
			Filename:    img.Filename,
			Format:      format,
			Data:        img.Data,
			PixelWidth:  cfg.Width,
			PixelHeight: cfg.Height,
		}
		pic.DPIX, pic.DPIY = imageDensity(img.Data, format)
		if autoResize {
			pic.Width, pic.Height = deck.Width, deck.Height
		} else {
			pic.Width = int64(cfg.Width) * EMUPerInch / int64(pic.DPIX)
			pic.Height = int64(cfg.Height) * EMUPerInch / int64(pic.DPIY)
		}
		deck.Slides = append(deck.Slides, Slide{Picture: pic})
	}

	report.Slides = len(deck.Slides)
	return deck, report
}

// decodeImage fully decodes data to verify it, returning its size and format.
func decodeImage(data []byte) (image.Config, string, error) {
	if len(data) == 0 {
		return image.Config{}, "", fmt.Errorf("empty file")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", err
	}
	if format != "png" && format != "jpeg" {
		return image.Config{}, "", fmt.Errorf("unsupported image format %q", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, "", fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return image.Config{}, "", err
	}
	return cfg, format, nil
}
