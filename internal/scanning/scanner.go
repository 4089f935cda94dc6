package scanning

import (
	"strings"

	"github.com/zombor/weighbridge/internal/extraction"
)

// Scanner reads ticket fields from a scanned fiscal document (a printed
// DACTE or DANFE photographed or saved as PDF)
type Scanner interface {
	// ScanDocument extracts raw field values from an image or PDF
	ScanDocument(data []byte, contentType string) (*extraction.Fields, error)
	// Close releases any resources held by the scanner
	Close() error
}

// Source names the scanner in extraction error messages
const Source = "vision scan of printed document"

// Supports reports whether a content type is something a Scanner can read
func Supports(contentType string) bool {
	mimeType := normalizeMimeType(contentType)
	return mimeType == "application/pdf" || strings.HasPrefix(mimeType, "image/")
}
