package render

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func TestDOCX_Package(t *testing.T) {
	data, err := DOCX("A LA JEFATURA PROVINCIAL DE TRÁFICO\n\nExpone que la denuncia <77> & otros.", "")
	require.NoError(t, err)

	assert.Contains(t, readPart(t, data, "[Content_Types].xml"), "wordprocessingml.document.main+xml")
	assert.Contains(t, readPart(t, data, "_rels/.rels"), `Target="word/document.xml"`)

	doc := readPart(t, data, "word/document.xml")
	assert.Contains(t, doc, `<w:rPr><w:b/></w:rPr><w:t xml:space="preserve">A LA JEFATURA PROVINCIAL DE TRÁFICO</w:t>`)
	assert.Contains(t, doc, "la denuncia &lt;77&gt; &amp; otros.")
	assert.NotContains(t, doc, `w:type="page"`)
	assert.Equal(t, 3, strings.Count(doc, "<w:p>"))
}

func TestDOCX_InstructionsOnNewPage(t *testing.T) {
	data, err := DOCX("Cuerpo del recurso.", "INSTRUCCIONES DE PRESENTACIÓN\n1. PLAZO")
	require.NoError(t, err)

	doc := readPart(t, data, "word/document.xml")
	brk := strings.Index(doc, `<w:br w:type="page"/>`)
	require.Greater(t, brk, 0)
	assert.Less(t, strings.Index(doc, "Cuerpo del recurso."), brk)
	assert.Greater(t, strings.Index(doc, "INSTRUCCIONES DE PRESENTACIÓN"), brk)
}

func TestDOCX_Deterministic(t *testing.T) {
	a, err := DOCX("texto", "guía")
	require.NoError(t, err)
	b, err := DOCX("texto", "guía")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want string
		bold bool
	}{
		{"EXPONE", "EXPONE", true},
		{"PRIMERA.- DEFECTO DE NOTIFICACIÓN", "PRIMERA.- DEFECTO DE NOTIFICACIÓN", true},
		{"## Hechos", "Hechos", true},
		{"**SOLICITA**", "SOLICITA", true},
		{"Que se archive el expediente.", "Que se archive el expediente.", false},
		{"1. 2. 3.", "1. 2. 3.", false},
		{"", "", false},
		{strings.Repeat("A", maxHeadingRunes+1), strings.Repeat("A", maxHeadingRunes+1), false},
	}
	for _, tt := range tests {
		got, bold := classify(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.bold, bold, tt.in)
	}
}
