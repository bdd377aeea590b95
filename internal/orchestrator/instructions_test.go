package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dusk-indust/appealdraft/internal/deadline"
)

func TestDefaultSubmissionOffice(t *testing.T) {
	assert.Equal(t, "https://sede.dgt.gob.es", DefaultSubmissionOffice("Jefatura Provincial de Tráfico de Madrid").URL)
	assert.Equal(t, "https://sede.dgt.gob.es", DefaultSubmissionOffice("DGT").URL)
	assert.Equal(t, "https://rec.redsara.es", DefaultSubmissionOffice("Ayuntamiento de Sevilla").URL)
}

func TestBuildInstructions_WithDeadline(t *testing.T) {
	info := &deadline.Info{
		NoticeDate:    "10/01/2025",
		DueDate:       "10/02/2025",
		DaysRemaining: 2,
		ProcedureType: deadline.ProcedureReposition,
		LegalBasis:    "Arts. 123 y 124 de la Ley 39/2015",
		Urgency:       deadline.UrgencyUrgent,
	}
	meta := FineMetadata{Organism: "DGT", OrganismAddress: "C/ Josefa Valcárcel 44", FineAmount: "200 €"}

	got := BuildInstructions(meta, info, nil)
	assert.Contains(t, got, "INSTRUCCIONES DE PRESENTACIÓN")
	assert.Contains(t, got, "recurso potestativo de reposición")
	assert.Contains(t, got, "Fecha límite: 10/02/2025 (Arts. 123 y 124 de la Ley 39/2015).")
	assert.Contains(t, got, "URGENTE: quedan 2 días.")
	assert.Contains(t, got, "Organismo: DGT.")
	assert.Contains(t, got, "https://sede.dgt.gob.es")
	assert.Contains(t, got, "(200 €)")
	assert.NotContains(t, got, "Verifique")
}

func TestBuildInstructions_NoDeadline(t *testing.T) {
	got := BuildInstructions(FineMetadata{Deadline: "un mes"}, nil, nil)
	assert.Contains(t, got, "No se ha podido determinar la fecha de notificación")
	assert.Contains(t, got, "(indica: un mes)")
	assert.Contains(t, got, "https://rec.redsara.es")
	assert.NotContains(t, got, "4) La presentación")
}

func TestBuildInstructions_ProposalConfidence(t *testing.T) {
	p := &SubmissionURLProposal{URL: "https://sede.sevilla.org", Name: "Sede de Sevilla", Confidence: ConfidenceLow}
	got := BuildInstructions(FineMetadata{Organism: "Ayuntamiento de Sevilla"}, nil, p)
	assert.Contains(t, got, "Sede de Sevilla, https://sede.sevilla.org.")
	assert.Contains(t, got, "Verifique la dirección")

	p.Confidence = ConfidenceHigh
	assert.NotContains(t, BuildInstructions(FineMetadata{}, nil, p), "Verifique")
}

func TestUrgencyLine(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{-3, "ATENCIÓN: el plazo venció hace 3 días."},
		{0, "URGENTE: el plazo vence hoy."},
		{5, "Quedan 5 días; no lo deje para el último momento."},
		{20, "Quedan 20 días."},
	}
	for _, tt := range tests {
		info := &deadline.Info{DaysRemaining: tt.days, Urgency: deadline.Urgency(tt.days)}
		assert.Equal(t, tt.want, urgencyLine(info))
	}
}
