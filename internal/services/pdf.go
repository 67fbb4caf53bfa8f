package services

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"cardgen/internal/models"
)

type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// ExtractText returns the plain text of every page, whitespace-collapsed per
// line. A PDF without extractable text (e.g. a scan) is a validation error.
func (s *PDFService) ExtractText(r io.ReaderAt, size int64) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: unreadable pdf: %v", models.ErrValidation, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", models.ErrValidation, err)
	}
	if reader.NumPage() == 0 {
		return "", fmt.Errorf("%w: pdf has no pages", models.ErrValidation)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text = normalizeText(buf.String())
	if text == "" {
		return "", fmt.Errorf("%w: pdf contains no extractable text", models.ErrValidation)
	}
	return text, nil
}

func normalizeText(input string) string {
	lines := strings.Split(input, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		collapsed := strings.Join(strings.Fields(line), " ")
		if collapsed != "" {
			out = append(out, collapsed)
		}
	}
	return strings.Join(out, "\n")
}
