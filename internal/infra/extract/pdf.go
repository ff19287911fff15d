package extract

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/ports/adapter"
	"card-index-pipeline/internal/util"
)

// PDFExtractor fetches the document from object storage into the job's
// scratch directory and parses it to plain text.
type PDFExtractor struct {
	storage adapter.ObjectStorage
}

var _ adapter.Extractor = (*PDFExtractor)(nil)

func NewPDFExtractor(storage adapter.ObjectStorage) *PDFExtractor {
	return &PDFExtractor{storage: storage}
}

func (e *PDFExtractor) Extract(ctx context.Context, req adapter.Request) (string, error) {
	localPath := filepath.Join(req.ScratchDir, "source.pdf")
	if err := e.storage.FetchToFile(ctx, req.Card.Source, localPath); err != nil {
		return "", fmt.Errorf("fetch pdf %s: %w", req.Card.Source, err)
	}

	f, r, err := pdf.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}

	text := cleanupPDFText(util.SanitizeText(buf.String()))
	if text == "" {
		return "", domain.ErrNoExtractableContent
	}
	return text, nil
}

var (
	pageOfFooterRe = regexp.MustCompile(`--\s*\d+\s+of\s+\d+\s*--`)
	pageFooterRe   = regexp.MustCompile(`--\s*\d+\s*--`)
	blankRunsRe    = regexp.MustCompile(`\n{3,}`)
)

// cleanupPDFText strips repeated page-footer/pagination artifacts and
// collapses excess blank lines.
func cleanupPDFText(text string) string {
	cleaned := pageOfFooterRe.ReplaceAllString(text, "")
	cleaned = pageFooterRe.ReplaceAllString(cleaned, "")
	cleaned = blankRunsRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
