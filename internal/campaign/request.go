package campaign

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nikhilbhutani/petdesk/internal/segmentation"
)

var (
	ErrNoCriteria       = errors.New("select at least one criterion")
	ErrUnknownCriterion = errors.New("unknown criterion")
	ErrMessageRequired  = errors.New("message is required")
	ErrNameRequired     = errors.New("campaign name is required")
	ErrInvalidMedia     = errors.New("media type and url must be provided together")
	ErrNoRecipients     = errors.New("no clients match the selected criteria")
	ErrWebhookRejected  = errors.New("workflow engine rejected the campaign")
	ErrNotConfigured    = errors.New("campaign webhook url is not configured")
)

// NoMatchHint is shown when the criteria select nobody.
const NoMatchHint = "Nenhum cliente corresponde aos critérios selecionados"

type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
)

func (m MediaType) Valid() bool {
	return m == MediaImage || m == MediaVideo || m == MediaDocument
}

type Request struct {
	Campanha        string      `json:"campanha" validate:"required,max=120"`
	Mensagem        string      `json:"mensagem" validate:"required,max=4096"`
	MediaType       *MediaType  `json:"mediaType,omitempty"`
	MediaURL        *string     `json:"mediaUrl,omitempty" validate:"omitempty,url"`
	Criterios       []Criterion `json:"criterios"`
	DiasInatividade int         `json:"diasInatividade"`
}

// Validate runs every check that does not need I/O. DiasInatividade is only
// bounded when the inativo criterion is selected.
func (r *Request) Validate() error {
	if len(r.Criterios) == 0 {
		return ErrNoCriteria
	}
	for _, c := range r.Criterios {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCriterion, c)
		}
	}
	if strings.TrimSpace(r.Campanha) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(r.Mensagem) == "" {
		return ErrMessageRequired
	}
	if hasCriterion(r.Criterios, CriterionInactive) {
		if err := segmentation.ValidateThreshold(r.DiasInatividade); err != nil {
			return err
		}
	}
	hasType := r.MediaType != nil && *r.MediaType != ""
	hasURL := r.MediaURL != nil && *r.MediaURL != ""
	if hasType != hasURL || (hasType && !r.MediaType.Valid()) {
		return ErrInvalidMedia
	}
	return nil
}
