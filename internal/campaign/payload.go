package campaign

import (
	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/pkg/phone"
)

// Payload is the body posted to the workflow engine.
type Payload struct {
	Campanha      string      `json:"campanha"`
	Mensagem      string      `json:"mensagem"`
	MediaType     *MediaType  `json:"mediaType"`
	MediaURL      *string     `json:"mediaUrl"`
	Filtros       Filtros     `json:"filtros"`
	Clientes      []Recipient `json:"clientes"`
	TotalClientes int         `json:"totalClientes"`
}

type Filtros struct {
	Criterios       []Criterion `json:"criterios"`
	DiasInatividade int         `json:"diasInatividade"`
}

type Recipient struct {
	ID       uuid.UUID `json:"id"`
	Nome     string    `json:"nome"`
	Telefone string    `json:"telefone"`
	Email    *string   `json:"email"`
}

func buildPayload(req *Request, clients []models.Client) Payload {
	recipients := make([]Recipient, 0, len(clients))
	for _, c := range clients {
		tel := phone.Normalize(c.WhatsApp)
		if tel == "" {
			tel = c.WhatsApp
		}
		recipients = append(recipients, Recipient{ID: c.ID, Nome: c.Nome, Telefone: tel, Email: c.Email})
	}
	return Payload{
		Campanha:  req.Campanha,
		Mensagem:  req.Mensagem,
		MediaType: req.MediaType,
		MediaURL:  req.MediaURL,
		Filtros: Filtros{
			Criterios:       req.Criterios,
			DiasInatividade: req.DiasInatividade,
		},
		Clientes:      recipients,
		TotalClientes: len(recipients),
	}
}
