// Package pdfbuild assembles captured page images into a single PDF, one
// page per capture, each PDF page sized to its image.
package pdfbuild

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/use-agent/deckfetch/models"
)

// Options controls PDF assembly.
type Options struct {
	// Optimize re-encodes captures as JPEG, typically shrinking the output
	// by 5-10x with no visible loss on slide content.
	Optimize bool

	// JPEGQuality is the re-encode quality (1-100). Zero means 85.
	JPEGQuality int
}

const defaultJPEGQuality = 85

// Build renders the captures into PDF bytes. Captures must be non-empty
// and are laid out in slice order, one per page. Image pixels map 1:1 to
// PDF points, so page proportions match the captured viewport exactly.
func Build(captures []models.PageCapture, opts Options) ([]byte, error) {
	if len(captures) == 0 {
		return nil, models.NewRetrievalError(models.ErrCodePDFBuild,
			"no captures to assemble", nil)
	}
	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = defaultJPEGQuality
	}

	var pdf *fpdf.Fpdf
	for i, capture := range captures {
		img, _, err := image.Decode(bytes.NewReader(capture.PNG))
		if err != nil {
			return nil, models.NewPageError(models.ErrCodePDFBuild,
				"captured image does not decode", capture.Index, err)
		}
		bounds := img.Bounds()
		w, h := float64(bounds.Dx()), float64(bounds.Dy())
		if w == 0 || h == 0 {
			return nil, models.NewPageError(models.ErrCodePDFBuild,
				"captured image has zero size", capture.Index, nil)
		}

		data := capture.PNG
		imageType := "PNG"
		if opts.Optimize {
			if jpg, err := encodeJPEG(img, quality); err == nil {
				data = jpg
				imageType = "JPG"
			} else {
				slog.Debug("jpeg re-encode failed, keeping png",
					"page", capture.Index, "error", err)
			}
		}

		size := fpdf.SizeType{Wd: w, Ht: h}
		if pdf == nil {
			pdf = fpdf.NewCustom(&fpdf.InitType{
				OrientationStr: "P",
				UnitStr:        "pt",
				Size:           size,
			})
			pdf.SetMargins(0, 0, 0)
			pdf.SetAutoPageBreak(false, 0)
		}
		pdf.AddPageFormat(orientationOf(w, h), size)

		name := fmt.Sprintf("page-%d", i+1)
		pdf.RegisterImageOptionsReader(name,
			fpdf.ImageOptions{ImageType: imageType},
			bytes.NewReader(data))
		pdf.ImageOptions(name, 0, 0, w, h, false, fpdf.ImageOptions{ImageType: imageType}, 0, "")

		if pdf.Err() {
			return nil, models.NewPageError(models.ErrCodePDFBuild,
				"failed to place page image", capture.Index, pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, models.NewRetrievalError(models.ErrCodePDFBuild,
			"failed to write PDF output", err)
	}
	slog.Info("pdf assembled", "pages", len(captures), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// WriteFile writes the PDF to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return models.NewRetrievalError(models.ErrCodePDFBuild,
			"failed to create output directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return models.NewRetrievalError(models.ErrCodePDFBuild,
			"failed to write PDF file", err)
	}
	return nil
}

func orientationOf(w, h float64) string {
	if w > h {
		return "L"
	}
	return "P"
}

// encodeJPEG flattens any alpha channel onto white and re-encodes. JPEG
// has no transparency, and screenshots of the viewer carry an alpha
// channel even though every pixel is opaque.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
