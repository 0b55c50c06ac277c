package campaign

import (
	"fmt"
	"time"

	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/segmentation"
)

type Criterion string

const (
	CriterionInactive       Criterion = "inativo"
	CriterionActive         Criterion = "ativo"
	CriterionFirstPurchase  Criterion = "primeira_compra"
	CriterionNeverPurchased Criterion = "nunca_comprou"
)

func (c Criterion) Valid() bool {
	switch c {
	case CriterionInactive, CriterionActive, CriterionFirstPurchase, CriterionNeverPurchased:
		return true
	}
	return false
}

func ParseCriteria(raw []string) ([]Criterion, error) {
	out := make([]Criterion, 0, len(raw))
	seen := map[Criterion]bool{}
	for _, r := range raw {
		c := Criterion(r)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCriterion, r)
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

func hasCriterion(criteria []Criterion, want Criterion) bool {
	for _, c := range criteria {
		if c == want {
			return true
		}
	}
	return false
}

// matches reports whether a client falls in any of the criteria. Inactivity
// is measured against dias, not the stored bucket, so a campaign can target
// a window different from the tenant default.
func matches(c *models.Client, criteria []Criterion, dias int, now time.Time, loc *time.Location) bool {
	for _, crit := range criteria {
		switch crit {
		case CriterionInactive:
			if c.LastPurchase != nil && segmentation.DaysInactive(*c.LastPurchase, now, loc) >= dias {
				return true
			}
		case CriterionNeverPurchased:
			if c.LastPurchase == nil || stored(c) == models.CampaignNeverPurchased {
				return true
			}
		default:
			if stored(c) == models.CampaignType(crit) {
				return true
			}
		}
	}
	return false
}

func stored(c *models.Client) models.CampaignType {
	if c.TipoCampanha == nil {
		return ""
	}
	return *c.TipoCampanha
}

// Filter returns the clients matching at least one criterion, in input
// order.
func Filter(clients []models.Client, criteria []Criterion, dias int, now time.Time, loc *time.Location) []models.Client {
	var out []models.Client
	for i := range clients {
		if matches(&clients[i], criteria, dias, now, loc) {
			out = append(out, clients[i])
		}
	}
	return out
}
