// Package textextract turns an uploaded fine into prompt text, or flags it
// for the vision path.
package textextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNoTextLayer marks a PDF without embedded text, usually a scan.
	ErrNoTextLayer = errors.New("pdf has no text layer")

	// ErrUnreadable marks a corrupt or truncated document.
	ErrUnreadable = errors.New("document is unreadable")

	// ErrUnsupportedType marks a MIME type with no extraction path.
	ErrUnsupportedType = errors.New("unsupported document type")
)

// minTextChars is the shortest text layer treated as real content.
const minTextChars = 20

// Extraction is the outcome of reading one document.
type Extraction struct {
	Text    string
	IsImage bool // the bytes should go to vision-capable agents
	MIME    string
}

// Extract reads data according to mime. An empty mime is sniffed.
func Extract(data []byte, mime string) (Extraction, error) {
	if len(data) == 0 {
		return Extraction{}, fmt.Errorf("%w: empty file", ErrUnreadable)
	}
	mime = normalizeMIME(mime, data)

	switch {
	case strings.HasPrefix(mime, "image/"):
		return Extraction{IsImage: true, MIME: mime}, nil
	case mime == "application/pdf":
		text, err := pdfText(data)
		if err != nil {
			return Extraction{MIME: mime}, err
		}
		return Extraction{Text: text, MIME: mime}, nil
	case strings.HasPrefix(mime, "text/"):
		return Extraction{Text: strings.TrimSpace(string(data)), MIME: mime}, nil
	default:
		return Extraction{MIME: mime}, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}
}

func normalizeMIME(mime string, data []byte) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
		if i := strings.IndexByte(mime, ';'); i >= 0 {
			mime = mime[:i]
		}
	}
	if mime == "image/jpg" {
		mime = "image/jpeg"
	}
	return mime
}

// pdfText reads the text layer. The parser panics on some malformed input.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	text = strings.TrimSpace(buf.String())
	if len([]rune(text)) < minTextChars {
		return "", ErrNoTextLayer
	}
	return text, nil
}
