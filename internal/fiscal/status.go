package fiscal

import "github.com/nikhilbhutani/petdesk/internal/models"

var transitions = map[models.NotaStatus][]models.NotaStatus{
	models.NotaProcessando: {models.NotaAutorizada, models.NotaRejeitada},
	models.NotaAutorizada:  {models.NotaCancelada},
}

// CanTransition reports whether a note may move from one status to another.
// Rejected and cancelled notes are terminal.
func CanTransition(from, to models.NotaStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// statusFromProvider maps the provider's status vocabulary onto ours.
// A refused cancellation leaves the note authorized. Unknown values are
// treated as still processing.
func statusFromProvider(s string) models.NotaStatus {
	switch s {
	case "autorizado", "autorizada", "erro_cancelamento":
		return models.NotaAutorizada
	case "erro_autorizacao", "denegado", "rejeitado", "rejeitada":
		return models.NotaRejeitada
	case "cancelado", "cancelada":
		return models.NotaCancelada
	default:
		return models.NotaProcessando
	}
}
