package normalize

import (
	"time"

	"github.com/user/grant-aggregator/internal/entity"
)

// ClosingSoonDays is the window, inclusive of today, in which an open grant is closing_soon.
const ClosingSoonDays = 14

// DeriveStatus maps a deadline to a lifecycle status relative to today.
// Both dates are civil dates; a nil deadline is open.
func DeriveStatus(deadline *time.Time, today time.Time) entity.GrantStatus {
	if deadline == nil {
		return entity.StatusOpen
	}
	d := civilDate(deadline.Year(), deadline.Month(), deadline.Day())
	t := civilDate(today.Year(), today.Month(), today.Day())
	if d.Before(t) {
		return entity.StatusClosed
	}
	if days := int(d.Sub(t).Hours() / 24); days <= ClosingSoonDays {
		return entity.StatusClosingSoon
	}
	return entity.StatusOpen
}
