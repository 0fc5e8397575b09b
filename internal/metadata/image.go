package metadata

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// exifAllowList is the fixed set of EXIF tags surfaced in audit
// metadata. Everything else in the EXIF block is deliberately ignored to
// bound record size and avoid leaking unrelated tags.
var exifAllowList = []exif.FieldName{
	exif.DateTimeOriginal,
	exif.Make,
	exif.Model,
	exif.GPSLatitude,
	exif.GPSLongitude,
}

// Image returns the extractor for image/* files. It reports pixel
// dimensions and format for every decodable image, EXIF highlights for
// formats that carry EXIF (JPEG, TIFF), and decoder-reported auxiliary
// info for the rest.
func Image() Extractor {
	return extractImage
}

func extractImage(path string) map[string]any {
	f, err := os.Open(path)
	if err != nil {
		return ErrorValue(err)
	}
	cfg, format, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return ErrorValue(fmt.Errorf("decode %s: %w", filepath.Base(path), err))
	}

	format = strings.ToUpper(format)
	out := map[string]any{
		"width":      cfg.Width,
		"height":     cfg.Height,
		"format":     format,
		"exif":       map[string]any{},
		"extra_info": map[string]any{},
	}
	if format == "JPEG" || format == "TIFF" {
		out["exif"] = exifHighlights(path)
	} else {
		out["extra_info"] = map[string]any{"color_model": colorModelName(cfg.ColorModel)}
	}
	return out
}

// exifHighlights returns the allow-listed EXIF tags present in the file.
// Missing EXIF is the common case, not an error: the result is simply
// empty and nothing is logged.
func exifHighlights(path string) map[string]any {
	out := map[string]any{}
	f, err := os.Open(path)
	if err != nil {
		return out
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return out
	}
	for _, name := range exifAllowList {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		if s, err := tag.StringVal(); err == nil {
			out[string(name)] = s
		} else {
			out[string(name)] = tag.String()
		}
	}
	return out
}

// colorModelName coerces the decoder's color model to a stable string.
func colorModelName(m color.Model) string {
	switch m {
	case color.RGBAModel:
		return "RGBA"
	case color.RGBA64Model:
		return "RGBA64"
	case color.NRGBAModel:
		return "NRGBA"
	case color.NRGBA64Model:
		return "NRGBA64"
	case color.GrayModel:
		return "Gray"
	case color.Gray16Model:
		return "Gray16"
	case color.AlphaModel:
		return "Alpha"
	case color.YCbCrModel:
		return "YCbCr"
	case color.CMYKModel:
		return "CMYK"
	default:
		if _, ok := m.(color.Palette); ok {
			return "Paletted"
		}
		return fmt.Sprintf("%T", m)
	}
}
