package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/devwebtn/facturation/internal/core"
)

// TextExtractor pulls raw text out of a scanned document. The extraction
// engine is an external collaborator; parsing its output is core logic
// (see Parse).
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// TesseractExtractor shells out to the tesseract binary. The context
// deadline bounds the call.
type TesseractExtractor struct {
	Binary string
}

func NewTesseract() *TesseractExtractor {
	return &TesseractExtractor{Binary: "tesseract"}
}

func (t *TesseractExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "scan-*")
	if err != nil {
		return "", core.External("ocr tempfile", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", core.External("ocr tempfile write", err)
	}
	tmp.Close()

	// "-" sends the recognized text to stdout.
	cmd := exec.CommandContext(ctx, t.Binary, filepath.Clean(tmp.Name()), "-")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", core.External("ocr extraction", err)
	}
	return out.String(), nil
}
