package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	docx "github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file types with no extractor.
var ErrUnsupportedFormat = errors.New("unsupported file type")

var textSuffixes = map[string]bool{
	".txt": true, ".md": true, ".py": true, ".js": true, ".java": true,
	".cpp": true, ".c": true, ".h": true, ".cs": true, ".go": true, ".rs": true,
}

// Text converts raw file bytes into plain text based on the filename suffix.
func Text(filename string, data []byte) (string, error) {
	suffix := strings.ToLower(filepath.Ext(filename))

	switch {
	case textSuffixes[suffix]:
		return string(data), nil
	case suffix == ".pdf":
		return pdfText(data)
	case suffix == ".docx":
		return docxText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, suffix)
	}
}

// Supported reports whether a filename has an extractable suffix. Used at
// the upload boundary to reject bad uploads before staging them.
func Supported(filename string) bool {
	suffix := strings.ToLower(filepath.Ext(filename))
	return textSuffixes[suffix] || suffix == ".pdf" || suffix == ".docx"
}

func pdfText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return string(out), nil
}

// docxText renders paragraphs and tables to plain text, one per line.
func docxText(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx failed: %w", err)
	}
	var b strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch item.(type) {
		case *docx.Paragraph, *docx.Table:
			fmt.Fprintln(&b, item)
		}
	}
	return b.String(), nil
}
