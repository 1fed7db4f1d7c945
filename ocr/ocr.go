// Package ocr extracts text from captured page images using the tesseract
// binary. OCR is an optional capability: callers check Available before
// use and degrade gracefully when it is missing.
package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/use-agent/deckfetch/models"
)

var (
	availableOnce sync.Once
	available     bool
)

// Available reports whether the tesseract binary is installed. Checked
// once per process.
func Available() bool {
	availableOnce.Do(func() {
		_, err := exec.LookPath("tesseract")
		available = err == nil
		if !available {
			slog.Debug("tesseract not found, OCR disabled")
		}
	})
	return available
}

// ImageToText runs tesseract on a PNG image and returns the recognized
// text. The image is fed over stdin so no temp files are needed.
func ImageToText(ctx context.Context, png []byte) (string, error) {
	if !Available() {
		return "", models.NewRetrievalError(models.ErrCodeOCR,
			"tesseract is not installed", nil)
	}

	cmd := exec.CommandContext(ctx, "tesseract", "stdin", "stdout")
	cmd.Stdin = bytes.NewReader(png)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "tesseract failed"
		}
		return "", models.NewRetrievalError(models.ErrCodeOCR, msg, err)
	}
	return stdout.String(), nil
}
