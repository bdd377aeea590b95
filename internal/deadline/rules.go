package deadline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules holds the jurisdiction-specific data behind procedure classification.
type Rules struct {
	// AllegationKeywords mark an allegation-stage notice. Matching is
	// case-insensitive substring search.
	AllegationKeywords []string `yaml:"allegationKeywords,omitempty"`

	// RepositionKeywords mark a sanction resolution. They win over
	// AllegationKeywords since a resolution quotes the earlier stage.
	RepositionKeywords []string `yaml:"repositionKeywords,omitempty"`

	AllegationDays     int      `yaml:"allegationDays,omitempty"`
	AllegationBasis    string   `yaml:"allegationBasis,omitempty"`

	RepositionMonths int    `yaml:"repositionMonths,omitempty"`
	RepositionBasis  string `yaml:"repositionBasis,omitempty"`

	// UnknownMarkers are date values meaning "no date given".
	UnknownMarkers []string `yaml:"unknownMarkers,omitempty"`
}

// DefaultRules returns the Spanish traffic-sanction rules.
func DefaultRules() Rules {
	return Rules{
		AllegationKeywords: []string{
			"plazo de alegaciones",
			"formular alegaciones",
			"acuerdo de incoación",
			"acuerdo de incoacion",
			"inicio del procedimiento sancionador",
			"20 días naturales",
			"20 dias naturales",
			"allegations period",
			"sanctioning procedure initiation",
			"20 natural days",
		},
		RepositionKeywords: []string{
			"resolución sancionadora",
			"resolucion sancionadora",
			"recurso de reposición",
			"recurso de reposicion",
			"sanction resolution",
		},
		AllegationDays:   20,
		AllegationBasis:  "Art. 95 del Real Decreto Legislativo 6/2015 (Ley sobre Tráfico y Seguridad Vial)",
		RepositionMonths: 1,
		RepositionBasis:  "Arts. 123 y 124 de la Ley 39/2015 (recurso potestativo de reposición)",
		UnknownMarkers:   []string{"no indicada", "no indicado", "not indicated", "no consta", "desconocida"},
	}
}

// withDefaults fills zero fields from DefaultRules.
func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if len(r.AllegationKeywords) == 0 {
		r.AllegationKeywords = d.AllegationKeywords
	}
	if len(r.RepositionKeywords) == 0 {
		r.RepositionKeywords = d.RepositionKeywords
	}
	if r.AllegationDays <= 0 {
		r.AllegationDays = d.AllegationDays
	}
	if r.AllegationBasis == "" {
		r.AllegationBasis = d.AllegationBasis
	}
	if r.RepositionMonths <= 0 {
		r.RepositionMonths = d.RepositionMonths
	}
	if r.RepositionBasis == "" {
		r.RepositionBasis = d.RepositionBasis
	}
	if len(r.UnknownMarkers) == 0 {
		r.UnknownMarkers = d.UnknownMarkers
	}
	return r
}

// LoadRules reads rules from a YAML file. Missing fields keep their defaults.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("deadline: read rules: %w", err)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("deadline: parse rules %s: %w", path, err)
	}
	return r.withDefaults(), nil
}
