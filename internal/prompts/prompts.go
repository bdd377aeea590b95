// Package prompts renders the embedded prompt templates sent to agents.
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// SupportFile is an auxiliary document attached to the request.
type SupportFile struct {
	Name    string
	Context string
	Text    string
}

// Fine is the material every phase prompt is built from. FineText is empty
// when the fine travels as an image.
type Fine struct {
	FineText          string
	AdditionalContext string
	SupportFiles      []SupportFile
}

// DraftContext parameterizes the drafting system prompt.
type DraftContext struct {
	Role        string
	Organism    string
	Legislation []string
	Deadline    string
}

// Draft is one input to the fusion prompt.
type Draft struct {
	Label   string
	Content string
}

// ExtractionSystem returns the fixed metadata extraction instructions.
func ExtractionSystem() (string, error) {
	return render("extract_system.tmpl", nil)
}

// ExtractionUser returns the user turn for metadata extraction.
func ExtractionUser(f Fine) (string, error) {
	return render("extract_user.tmpl", f)
}

// DraftSystem returns the appeal-writing instructions.
func DraftSystem(dc DraftContext) (string, error) {
	return render("draft_system.tmpl", dc)
}

// DraftUser returns the user turn for draft generation.
func DraftUser(f Fine) (string, error) {
	return render("draft_user.tmpl", f)
}

// FusionSystem returns the master merge instructions.
func FusionSystem() (string, error) {
	return render("fusion_system.tmpl", nil)
}

// FusionUser concatenates drafts under numbered delimiters.
func FusionUser(drafts []Draft) (string, error) {
	return render("fusion_user.tmpl", drafts)
}

func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
