package segmentation

import (
	"errors"
	"fmt"
	"time"

	"github.com/nikhilbhutani/petdesk/internal/models"
)

type Bucket = models.CampaignType

const (
	NeverPurchased = models.CampaignNeverPurchased
	FirstPurchase  = models.CampaignFirstPurchase
	Active         = models.CampaignActive
	Inactive       = models.CampaignInactive
)

const (
	MinThreshold     = 1
	MaxThreshold     = 365
	DefaultThreshold = 30
)

var ErrThresholdOutOfRange = errors.New("inactivity threshold must be between 1 and 365 days")

func ValidateThreshold(days int) error {
	if days < MinThreshold || days > MaxThreshold {
		return fmt.Errorf("%w: got %d", ErrThresholdOutOfRange, days)
	}
	return nil
}

// DaysInactive counts calendar days between the purchase and now as seen
// in loc. A purchase late yesterday is one day old this morning.
func DaysInactive(last, now time.Time, loc *time.Location) int {
	ly, lm, ld := last.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	from := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	to := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Classify buckets a client by its last purchase. Reaching the threshold
// exactly already counts as inactive.
func Classify(lastPurchase *time.Time, threshold int, now time.Time, loc *time.Location) Bucket {
	if lastPurchase == nil {
		return NeverPurchased
	}
	if DaysInactive(*lastPurchase, now, loc) >= threshold {
		return Inactive
	}
	return Active
}
