// Package extractor converts uploaded or on-disk documents into raw text.
package extractor

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fumiama/go-docx"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfextractor "github.com/unidoc/unipdf/v3/extractor"
	pdfmodel "github.com/unidoc/unipdf/v3/model"
)

const (
	MimeText = "text/plain"
	MimePDF  = "application/pdf"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// Unsupported is returned for any mime type this loader does not handle.
	// It is a sentinel result, not an error.
	Unsupported = "Unsupported file type."
)

// Extract returns the text content of data according to its declared mime
// type. Unknown types yield the Unsupported sentinel with a nil error;
// errors are reserved for corrupt files of a supported type.
func Extract(data []byte, mimeType string) (string, error) {
	switch normalizeMime(mimeType) {
	case MimeText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("text file is not valid UTF-8")
		}
		return string(data), nil
	case MimePDF:
		return extractPDF(data)
	case MimeDocx:
		return extractDocx(data)
	}
	return Unsupported, nil
}

// MimeForPath maps a file extension to the mime types Extract understands.
func MimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return MimeText
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDocx
	}
	return ""
}

func normalizeMime(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// extractPDF validates the document with pdfcpu, then extracts text per page
// and concatenates in page order with no separator.
func extractPDF(data []byte) (string, error) {
	if err := api.Validate(bytes.NewReader(data), api.LoadConfiguration()); err != nil {
		return "", fmt.Errorf("invalid PDF: %w", err)
	}

	reader, err := pdfmodel.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to read page count: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		ex, err := pdfextractor.New(page)
		if err != nil {
			return "", fmt.Errorf("failed to create extractor for page %d: %w", i, err)
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}

// extractDocx returns paragraph text, each paragraph followed by a newline.
func extractDocx(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse DOCX: %w", err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		if para, ok := item.(*docx.Paragraph); ok {
			sb.WriteString(para.String())
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
