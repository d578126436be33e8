package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Extractor turns an uploaded file into plain text. PDF is the primary
// format; anything else is treated as UTF-8 plaintext.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, fileName string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return extractPDF(fileName, data)
	default:
		return extractPlaintext(fileName, data)
	}
}

func extractPDF(fileName string, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf %s: %w", fileName, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", fileName, err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", fileName, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func extractPlaintext(fileName string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("unsupported binary format: %s", fileName)
	}
	return strings.TrimSpace(string(data)), nil
}
