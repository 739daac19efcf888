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
	"github.com/xuri/excelize/v2"

	"github.com/mkuzmin/askdoc/internal/core/domain"
	"github.com/mkuzmin/askdoc/internal/core/ports"
)

// Extractor pulls plain text out of stored documents, dispatching on mime
// type and filename extension: PDF, XLSX, or UTF-8 plain text.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	switch format(doc) {
	case "pdf":
		return extractPDF(raw)
	case "xlsx":
		return extractXLSX(raw)
	default:
		return extractPlainText(raw, doc.Filename)
	}
}

func format(doc *domain.Document) string {
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	switch {
	case doc.MimeType == "application/pdf" || ext == ".pdf":
		return "pdf"
	case strings.Contains(doc.MimeType, "spreadsheet") || ext == ".xlsx":
		return "xlsx"
	default:
		return "text"
	}
}

func extractPDF(raw []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// extractXLSX flattens every sheet into tab-separated rows, one sheet per
// paragraph, so the chunker sees row-oriented text.
func extractXLSX(raw []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var out strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(sheet)
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			out.WriteString("\n")
			out.WriteString(line)
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func extractPlainText(raw []byte, filename string) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("unsupported binary format: %s", filename)
	}
	return strings.TrimSpace(string(raw)), nil
}
