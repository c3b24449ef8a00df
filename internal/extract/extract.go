// Package extract turns uploaded requirement documents (PDF, DOCX, plain
// text, Markdown) into the plain text the analyzer reads.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"advisor-backend/internal/shared/storage/object"
)

// Kind is a supported requirement document format.
type Kind string

const (
	KindUnknown  Kind = ""
	KindPDF      Kind = "pdf"
	KindDOCX     Kind = "docx"
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
)

const (
	mimePDF   = "application/pdf"
	mimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText  = "text/plain"
	mimeMD    = "text/markdown"
	mimeOctet = "application/octet-stream"
	mimeZip   = "application/zip"

	extractedSuffix = ".extracted.txt"
)

var (
	// ErrUnsupported is returned for documents that are not PDF, DOCX or plain text.
	ErrUnsupported = errors.New("unsupported document type")
	// ErrNoText is returned when a document yields no readable text.
	ErrNoText = errors.New("document contains no text")
)

// ExtractText reads a stored document, extracts its text and stores the text
// next to it under <key>.extracted.txt.
func ExtractText(ctx context.Context, store object.ObjectStore, fileKey string, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", fileKey, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract %s: read: %w", fileKey, err)
	}
	text, err := ExtractTextFromBytes(ctx, raw, mimeType, fileName)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", fileKey, err)
	}
	if _, err := store.SaveWithKey(ctx, fileKey+extractedSuffix, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("extract %s: save text: %w", fileKey, err)
	}
	return text, nil
}

// ExtractTextFromBytes extracts normalised text from an in-memory document.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kind, detected := Detect(mimeType, fileName, data)

	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	case KindText:
		text, err = decodeUTF8(data)
	case KindMarkdown:
		text, err = decodeUTF8(data)
		text = stripMarkdown([]byte(text))
	default:
		return "", fmt.Errorf("%w: unsupported mime type: %s", ErrUnsupported, detected)
	}
	if err != nil {
		return "", err
	}
	text = normalizeText(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Detect resolves the document kind from the sniffed mime type, the file
// extension and, for zip payloads, the archive layout. The second result is
// the cleaned mime type used for error reporting.
func Detect(mimeType, fileName string, data []byte) (Kind, string) {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	ext := strings.ToLower(filepath.Ext(fileName))

	switch clean {
	case mimePDF:
		return KindPDF, clean
	case mimeDOCX:
		return KindDOCX, clean
	case mimeMD, "text/x-markdown":
		return KindMarkdown, clean
	case mimeText:
		// http.DetectContentType reports markdown as text/plain
		if ext == ".md" || ext == ".markdown" {
			return KindMarkdown, mimeMD
		}
		return KindText, clean
	case mimeZip:
		if isDOCX(data) {
			return KindDOCX, mimeDOCX
		}
		return KindUnknown, clean
	case "", mimeOctet:
		switch ext {
		case ".pdf":
			return KindPDF, mimePDF
		case ".docx":
			return KindDOCX, mimeDOCX
		case ".txt", ".text":
			return KindText, mimeText
		case ".md", ".markdown":
			return KindMarkdown, mimeMD
		}
	}
	return KindUnknown, clean
}

func decodeUTF8(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupported)
	}
	return string(data), nil
}

// normalizeText trims every line, drops control characters and collapses
// runs of blank lines into one.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(strings.Map(func(r rune) rune {
			if r == '\t' {
				return ' '
			}
			if r < 0x20 || r == 0x7f {
				return -1
			}
			return r
		}, line))
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
