package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/extract/geocode"
	"github.com/rememex/rememex-cli/internal/logger"
)

var imageExts = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "bmp": true,
	"tiff": true, "tif": true, "gif": true, "webp": true,
}

// IsImageExtension reports whether ext is a supported image format.
func IsImageExtension(ext string) bool {
	return imageExts[ext]
}

// extractImage produces OCR and EXIF sections for an image.
// Either source may be empty; a file with neither is unsupported.
func (e *Extractor) extractImage(ctx context.Context, path string) ([]Section, error) {
	var sections []Section

	if e.ocrBin != "" {
		text, err := e.runOCR(ctx, path)
		if err != nil {
			logger.Debug("OCR failed for %s: %v", path, err)
		} else if strings.TrimSpace(text) != "" {
			sections = append(sections, Section{
				Text: strings.TrimSpace(text),
				Kind: domain.ChunkKindOCR,
			})
		}
	}

	if meta := extractEXIF(path); meta != "" {
		sections = append(sections, Section{Text: meta, Kind: domain.ChunkKindEXIF})
	}

	if len(sections) == 0 {
		return nil, ErrUnsupported
	}
	return sections, nil
}

// runOCR recognises text in an image with the configured tesseract binary.
func (e *Extractor) runOCR(ctx context.Context, path string) (string, error) {
	// "-" writes the recognised text to stdout.
	cmd := exec.CommandContext(ctx, e.ocrBin, path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run %s: %w", e.ocrBin, err)
	}
	return string(out), nil
}

// extractEXIF expands image metadata into searchable text: human-readable
// date, camera, lens, exposure settings, location and authorship, joined
// with " | ". Returns empty when the image carries no usable EXIF.
func extractEXIF(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return ""
	}

	var parts []string

	if raw := exifString(x, exif.DateTimeOriginal); raw != "" {
		parts = append(parts, formatDateHuman(raw))
	} else if raw := exifString(x, exif.DateTime); raw != "" {
		parts = append(parts, formatDateHuman(raw))
	}

	if maker := exifString(x, exif.Make); maker != "" {
		if model := exifString(x, exif.Model); model != "" {
			parts = append(parts, fmt.Sprintf("Camera: %s %s", maker, model))
		} else {
			parts = append(parts, fmt.Sprintf("Camera: %s", maker))
		}
	}
	if lens := exifString(x, exif.LensModel); lens != "" {
		parts = append(parts, fmt.Sprintf("Lens: %s", lens))
	}

	if f := exifRational(x, exif.FNumber); f > 0 {
		parts = append(parts, fmt.Sprintf("f/%.1f", f))
	}
	if t := exifRationalString(x, exif.ExposureTime); t != "" {
		parts = append(parts, t+"s")
	}
	if iso := exifInt(x, exif.ISOSpeedRatings); iso > 0 {
		parts = append(parts, fmt.Sprintf("ISO %d", iso))
	}
	if fl := exifRational(x, exif.FocalLength); fl > 0 {
		parts = append(parts, fmt.Sprintf("%.0fmm", fl))
	}

	if lat, lon, err := x.LatLong(); err == nil {
		parts = append(parts, "Location: "+geocode.Reverse(lat, lon))
	}

	if artist := exifString(x, exif.Artist); artist != "" {
		parts = append(parts, "Artist: "+artist)
	}
	if c := exifString(x, exif.Copyright); c != "" {
		parts = append(parts, "Copyright: "+c)
	}
	if desc := exifString(x, exif.ImageDescription); desc != "" {
		parts = append(parts, desc)
	}

	return strings.Join(parts, " | ")
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func exifRational(x *exif.Exif, name exif.FieldName) float64 {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// exifRationalString formats exposure times, keeping the 1/250 form
// photographers search for.
func exifRationalString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return ""
	}
	if num == 1 {
		return fmt.Sprintf("1/%d", den)
	}
	return fmt.Sprintf("%g", float64(num)/float64(den))
}

func exifInt(x *exif.Exif, name exif.FieldName) int {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}
