// Package document reads résumé files into per-page text and renders
// anonymized text back into PDF.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format identifies a supported input format
type Format string

const (
	// FormatPDF is a Portable Document Format file
	FormatPDF Format = "pdf"
	// FormatDOCX is an Office Open XML word processing file
	FormatDOCX Format = "docx"
)

var (
	// ErrInvalidDocument is returned when a file cannot be parsed as its format
	ErrInvalidDocument = errors.New("invalid document")
	// ErrUnsupportedFormat is returned for files that are neither PDF nor DOCX
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// Page is the plain text of one page. Number is 1-based.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is an ordered sequence of pages
type Document struct {
	Format Format `json:"format"`
	Pages  []Page `json:"pages"`
}

// Texts returns the page texts in order.
func (d *Document) Texts() []string {
	texts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		texts[i] = p.Text
	}
	return texts
}

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// DetectFormat picks a format from the leading bytes, falling back to the file extension.
func DetectFormat(name string, head []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(head, pdfMagic):
		return FormatPDF, nil
	case bytes.HasPrefix(head, zipMagic):
		// Non-docx zip containers are rejected by the docx reader.
		return FormatDOCX, nil
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Sniff detects the format of rs and rewinds it.
func Sniff(rs io.ReadSeeker, name string) (Format, error) {
	head := make([]byte, 8)
	n, err := io.ReadFull(rs, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading document header: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding document: %w", err)
	}
	return DetectFormat(name, head[:n])
}
