package orchestrator

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/appealdraft/internal/deadline"
)

// Default electronic offices used when no draft proposes one.
var (
	dgtSede = SubmissionURLProposal{
		URL:        "https://sede.dgt.gob.es",
		Name:       "Sede electrónica de la DGT",
		Confidence: ConfidenceHigh,
	}
	generalSede = SubmissionURLProposal{
		URL:        "https://rec.redsara.es",
		Name:       "Registro Electrónico General de la AGE",
		Confidence: ConfidenceMedium,
	}
)

// DefaultSubmissionOffice returns the fallback office for an organism.
func DefaultSubmissionOffice(organism string) SubmissionURLProposal {
	o := strings.ToLower(organism)
	if strings.Contains(o, "dgt") || strings.Contains(o, "tráfico") || strings.Contains(o, "trafico") {
		return dgtSede
	}
	return generalSede
}

// BuildInstructions writes the plain-text submission guide that accompanies
// the appeal.
func BuildInstructions(meta FineMetadata, info *deadline.Info, proposal *SubmissionURLProposal) string {
	var b strings.Builder
	b.WriteString("INSTRUCCIONES DE PRESENTACIÓN\n\n")

	b.WriteString("1. PLAZO\n")
	if info != nil {
		kind := "recurso potestativo de reposición"
		if info.ProcedureType == deadline.ProcedureAllegations {
			kind = "escrito de alegaciones"
		}
		fmt.Fprintf(&b, "Tipo de escrito: %s.\n", kind)
		fmt.Fprintf(&b, "Fecha de notificación: %s.\n", info.NoticeDate)
		fmt.Fprintf(&b, "Fecha límite: %s (%s).\n", info.DueDate, info.LegalBasis)
		b.WriteString(urgencyLine(info))
		b.WriteString("\n")
	} else {
		b.WriteString("No se ha podido determinar la fecha de notificación. Compruebe el plazo en la propia notificación")
		if meta.Deadline != "" {
			fmt.Fprintf(&b, " (indica: %s)", meta.Deadline)
		}
		b.WriteString(".\n")
	}

	b.WriteString("\n2. DÓNDE PRESENTARLO\n")
	if meta.Organism != "" {
		fmt.Fprintf(&b, "Organismo: %s.\n", meta.Organism)
	}
	if meta.OrganismAddress != "" {
		fmt.Fprintf(&b, "Dirección: %s.\n", meta.OrganismAddress)
	}
	office := DefaultSubmissionOffice(meta.Organism)
	if proposal != nil {
		office = *proposal
	}
	name := office.Name
	if name == "" {
		name = "Sede electrónica"
	}
	fmt.Fprintf(&b, "Presentación electrónica: %s, %s.\n", name, office.URL)
	if proposal != nil && proposal.Confidence != ConfidenceHigh {
		b.WriteString("Verifique la dirección de la sede antes de presentar el escrito.\n")
	}
	b.WriteString("También puede presentarlo en cualquier registro público u oficina de Correos (art. 16.4 de la Ley 39/2015).\n")

	b.WriteString("\n3. DOCUMENTACIÓN\n")
	b.WriteString("- El escrito firmado, con los datos entre corchetes completados.\n")
	b.WriteString("- Copia de la notificación de la multa.\n")
	b.WriteString("- Copia del DNI o NIE del interesado.\n")
	b.WriteString("- Las pruebas que respalden las alegaciones (fotografías, tickets, certificados).\n")

	b.WriteString("\n4. PASOS\n")
	b.WriteString("1) Revise el escrito y complete sus datos personales.\n")
	b.WriteString("2) Fírmelo, de forma manuscrita o con certificado digital.\n")
	b.WriteString("3) Preséntelo dentro de plazo y conserve el justificante de registro.\n")
	if meta.FineAmount != "" {
		fmt.Fprintf(&b, "4) La presentación del recurso no suspende por sí sola el pago de la sanción (%s); consulte los efectos en la notificación.\n", meta.FineAmount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func urgencyLine(info *deadline.Info) string {
	switch info.Urgency {
	case deadline.UrgencyExpired:
		return fmt.Sprintf("ATENCIÓN: el plazo venció hace %d días.", -info.DaysRemaining)
	case deadline.UrgencyUrgent:
		if info.DaysRemaining == 0 {
			return "URGENTE: el plazo vence hoy."
		}
		return fmt.Sprintf("URGENTE: quedan %d días.", info.DaysRemaining)
	case deadline.UrgencyWarning:
		return fmt.Sprintf("Quedan %d días; no lo deje para el último momento.", info.DaysRemaining)
	default:
		return fmt.Sprintf("Quedan %d días.", info.DaysRemaining)
	}
}
