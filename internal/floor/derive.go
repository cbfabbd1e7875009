package floor

import (
	"errors"
	"sort"
	"time"
)

// ErrDerivationInconsistency reports two physically-present bookings claiming
// one table. The caller surfaces it; derivation never picks one arbitrarily.
var ErrDerivationInconsistency = errors.New("derivation_inconsistency")

type Urgency string

const (
	UrgencyNormal  Urgency = "normal"
	UrgencyWarning Urgency = "warning"
	UrgencyOverdue Urgency = "overdue"
)

// DeriveConfig bounds the occupancy view. Zero values fall back to defaults so
// a zero DeriveConfig is usable.
type DeriveConfig struct {
	WarnThreshold float64 // fraction of turn time before warning, default 0.8
	UpcomingLimit int
	HistoryLimit  int
}

const (
	defaultWarnThreshold = 0.8
	defaultListLimit     = 3
)

func (c DeriveConfig) warnThreshold() float64 {
	if c.WarnThreshold <= 0 || c.WarnThreshold >= 1 {
		return defaultWarnThreshold
	}
	return c.WarnThreshold
}

func (c DeriveConfig) upcomingLimit() int {
	if c.UpcomingLimit <= 0 {
		return defaultListLimit
	}
	return c.UpcomingLimit
}

func (c DeriveConfig) historyLimit() int {
	if c.HistoryLimit <= 0 {
		return defaultListLimit
	}
	return c.HistoryLimit
}

// Occupancy is the recomputed-on-read view of one table at one instant.
// Nothing here is persisted.
type Occupancy struct {
	TableID       string        `json:"table_id"`
	Current       *Booking      `json:"current,omitempty"`
	Elapsed       time.Duration `json:"elapsed,omitempty"`
	Urgency       Urgency       `json:"urgency,omitempty"`
	Upcoming      []Booking     `json:"upcoming"`
	RecentHistory []Booking     `json:"recent_history"`
}

// Derive computes occupancy for one table from the booking set at instant now.
// Pure: no clocks, no stores, cheap enough for every render tick.
//
// A physically-present booking holds the table regardless of schedule; failing
// that, a confirmed booking inside its [scheduled, scheduled+turn] window
// claims it for display. Two present bookings on one table is a data fault and
// returns ErrDerivationInconsistency alongside the partial view.
func Derive(table Table, bookings []Booking, now time.Time, cfg DeriveConfig) (Occupancy, error) {
	occ := Occupancy{
		TableID:       table.ID,
		Upcoming:      []Booking{},
		RecentHistory: []Booking{},
	}

	var present []Booking
	var claimed *Booking
	for i := range bookings {
		b := bookings[i]
		if !b.AssignedTo(table.ID) {
			continue
		}
		switch {
		case b.Status.IsPresent():
			present = append(present, b)
		case b.Status == StatusConfirmed && !b.ScheduledAt.After(now) && !now.After(b.ScheduledAt.Add(b.turnTime())):
			if claimed == nil || b.ScheduledAt.Before(claimed.ScheduledAt) {
				c := b
				claimed = &c
			}
		}
		if (b.Status == StatusConfirmed || b.Status == StatusPending) && b.ScheduledAt.After(now) {
			occ.Upcoming = append(occ.Upcoming, b)
		}
		if (b.Status == StatusCompleted || b.Status == StatusNoShow) && sameDay(b.ScheduledAt, now) && b.ScheduledAt.Before(now) {
			occ.RecentHistory = append(occ.RecentHistory, b)
		}
	}

	sort.Slice(occ.Upcoming, func(i, j int) bool {
		return occ.Upcoming[i].ScheduledAt.Before(occ.Upcoming[j].ScheduledAt)
	})
	if len(occ.Upcoming) > cfg.upcomingLimit() {
		occ.Upcoming = occ.Upcoming[:cfg.upcomingLimit()]
	}
	sort.Slice(occ.RecentHistory, func(i, j int) bool {
		return occ.RecentHistory[i].ScheduledAt.After(occ.RecentHistory[j].ScheduledAt)
	})
	if len(occ.RecentHistory) > cfg.historyLimit() {
		occ.RecentHistory = occ.RecentHistory[:cfg.historyLimit()]
	}

	var err error
	switch {
	case len(present) > 1:
		err = ErrDerivationInconsistency
	case len(present) == 1:
		occ.Current = &present[0]
	case claimed != nil:
		occ.Current = claimed
	}
	if occ.Current != nil {
		occ.Elapsed = now.Sub(occ.Current.SeatedAt())
		occ.Urgency = urgency(occ.Elapsed, occ.Current.turnTime(), cfg.warnThreshold())
	}
	return occ, err
}

func urgency(elapsed, turn time.Duration, warnAt float64) Urgency {
	switch {
	case elapsed > turn:
		return UrgencyOverdue
	case float64(elapsed) >= warnAt*float64(turn):
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
