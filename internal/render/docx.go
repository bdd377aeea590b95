// Package render writes the appeal as a Word document.
package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// maxHeadingRunes bounds how long an all-caps line may be and still render
// as a heading.
const maxHeadingRunes = 80

// zipEpoch is stamped on every entry so equal input gives equal bytes.
var zipEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const (
	documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	documentTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1417" w:right="1701" w:bottom="1417" w:left="1701" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr></w:body></w:document>`
	pageBreak    = `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`
)

// MIMEType is the content type of the rendered document.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DOCX renders body, followed by instructions on a new page when given, as
// an A4 WordprocessingML package. Each input line becomes a paragraph.
// Short all-caps lines, markdown headings and lines wrapped in ** are bold.
func DOCX(body, instructions string) ([]byte, error) {
	var doc strings.Builder
	doc.WriteString(documentHead)
	writeParagraphs(&doc, body)
	if strings.TrimSpace(instructions) != "" {
		doc.WriteString(pageBreak)
		writeParagraphs(&doc, instructions)
	}
	doc.WriteString(documentTail)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range []struct{ name, data string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", doc.String()},
	} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: part.name, Method: zip.Deflate, Modified: zipEpoch})
		if err != nil {
			return nil, fmt.Errorf("render: create %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.data)); err != nil {
			return nil, fmt.Errorf("render: write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("render: close package: %w", err)
	}
	return buf.Bytes(), nil
}

func writeParagraphs(b *strings.Builder, text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "---" {
			trimmed = ""
		}
		content, bold := classify(trimmed)
		b.WriteString("<w:p>")
		if content != "" {
			b.WriteString("<w:r>")
			if bold {
				b.WriteString("<w:rPr><w:b/></w:rPr>")
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			_ = xml.EscapeText(b, []byte(content))
			b.WriteString("</w:t></w:r>")
		}
		b.WriteString("</w:p>")
	}
}

// classify strips markdown emphasis from line and reports whether it should
// be bold.
func classify(line string) (string, bool) {
	if strings.HasPrefix(line, "#") {
		return strings.TrimSpace(strings.TrimLeft(line, "#")), true
	}
	if len(line) > 4 && strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**") {
		return strings.TrimSpace(line[2 : len(line)-2]), true
	}
	return line, IsHeading(line)
}

// IsHeading reports whether line is short, has letters, and has no
// lower-case letters.
func IsHeading(line string) bool {
	if line == "" || utf8.RuneCountInString(line) > maxHeadingRunes {
		return false
	}
	letters := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters = true
		}
	}
	return letters
}
