package core

import (
	"bytes"
	"encoding/binary"
	"math"
)

// DefaultDPI is assumed when an image carries no usable density.
const DefaultDPI = 72

// Densities outside this range are treated as missing.
const (
	minDPI = 1
	maxDPI = 2048
)

// imageDensity returns the horizontal and vertical DPI recorded in a PNG pHYs
// chunk, a JPEG JFIF header or JPEG EXIF resolution tags.
func imageDensity(data []byte, format string) (int, int) {
	var x, y float64
	switch format {
	case "png":
		x, y = pngDensity(data)
	case "jpeg":
		x, y = jpegDensity(data)
	}
	return normalizeDPI(x), normalizeDPI(y)
}

func normalizeDPI(v float64) int {
	dpi := int(math.Round(v))
	if dpi < minDPI || dpi > maxDPI {
		return DefaultDPI
	}
	return dpi
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func pngDensity(data []byte) (float64, float64) {
	if !bytes.HasPrefix(data, pngSignature) {
		return 0, 0
	}
	for i := len(pngSignature); i+8 <= len(data); {
		n := int(binary.BigEndian.Uint32(data[i:]))
		typ := string(data[i+4 : i+8])
		body := i + 8
		if n < 0 || body+n > len(data) {
			return 0, 0
		}
		switch typ {
		case "pHYs":
			if n < 9 || data[body+8] != 1 { // unit 1 = metre
				return 0, 0
			}
			x := float64(binary.BigEndian.Uint32(data[body:]))
			y := float64(binary.BigEndian.Uint32(data[body+4:]))
			return x * 0.0254, y * 0.0254
		case "IDAT", "IEND":
			return 0, 0
		}
		i = body + n + 4 // skip crc
	}
	return 0, 0
}

func jpegDensity(data []byte) (float64, float64) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0
	}
	var exif []byte
	for i := 2; i+4 <= len(data); {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		if marker == 0xFF {
			i++
			continue
		}
		if marker == 0xDA || marker == 0xD9 { // start of scan, end of image
			break
		}
		n := int(binary.BigEndian.Uint16(data[i+2:]))
		if n < 2 || i+2+n > len(data) {
			break
		}
		seg := data[i+4 : i+2+n]
		switch {
		case marker == 0xE0 && len(seg) >= 12 && bytes.HasPrefix(seg, []byte("JFIF\x00")):
			x := float64(binary.BigEndian.Uint16(seg[8:]))
			y := float64(binary.BigEndian.Uint16(seg[10:]))
			switch seg[7] {
			case 1: // dots per inch
				return x, y
			case 2: // dots per cm
				return x * 2.54, y * 2.54
			}
			return 0, 0
		case marker == 0xE1 && exif == nil && bytes.HasPrefix(seg, []byte("Exif\x00\x00")):
			exif = seg[6:]
		}
		i += 2 + n
	}
	if exif != nil {
		return tiffDensity(exif)
	}
	return 0, 0
}

const (
	tiffXResolution    = 0x011A
	tiffYResolution    = 0x011B
	tiffResolutionUnit = 0x0128
)

// tiffDensity reads XResolution/YResolution/ResolutionUnit from IFD0.
func tiffDensity(tiff []byte) (float64, float64) {
	if len(tiff) < 8 {
		return 0, 0
	}
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, 0
	}
	ifd := int(order.Uint32(tiff[4:]))
	if ifd < 8 || ifd+2 > len(tiff) {
		return 0, 0
	}
	rational := func(entry []byte) float64 {
		off := int(order.Uint32(entry[8:]))
		if off < 0 || off+8 > len(tiff) {
			return 0
		}
		num, den := order.Uint32(tiff[off:]), order.Uint32(tiff[off+4:])
		if den == 0 {
			return 0
		}
		return float64(num) / float64(den)
	}

	var x, y float64
	unit := uint16(2) // inches unless stated
	count := int(order.Uint16(tiff[ifd:]))
	for k := 0; k < count; k++ {
		start := ifd + 2 + k*12
		if start+12 > len(tiff) {
			break
		}
		entry := tiff[start : start+12]
		switch order.Uint16(entry) {
		case tiffXResolution:
			x = rational(entry)
		case tiffYResolution:
			y = rational(entry)
		case tiffResolutionUnit:
			unit = order.Uint16(entry[8:])
		}
	}
	switch unit {
	case 2:
		return x, y
	case 3:
		return x * 2.54, y * 2.54
	}
	return 0, 0
}
