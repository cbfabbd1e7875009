package floor

import "time"

type DiningStatus string

const (
	StatusPending    DiningStatus = "pending"
	StatusConfirmed  DiningStatus = "confirmed"
	StatusArrived    DiningStatus = "arrived"
	StatusSeated     DiningStatus = "seated"
	StatusOrdered    DiningStatus = "ordered"
	StatusAppetizers DiningStatus = "appetizers"
	StatusMainCourse DiningStatus = "main_course"
	StatusDessert    DiningStatus = "dessert"
	StatusPayment    DiningStatus = "payment"
	StatusCompleted  DiningStatus = "completed"
	StatusNoShow     DiningStatus = "no_show"
	StatusCancelled  DiningStatus = "cancelled"
)

type TableType string

const (
	TableStandard TableType = "standard"
	TableBooth    TableType = "booth"
	TableWindow   TableType = "window"
	TablePatio    TableType = "patio"
	TableBar      TableType = "bar"
	TablePrivate  TableType = "private"
)

const DefaultTurnTime = 120 * time.Minute

type Table struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurant_id"`
	Label        int       `json:"label"`
	MinCovers    int       `json:"min_covers"`
	MaxCovers    int       `json:"max_covers"`
	Type         TableType `json:"type"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Active       bool      `json:"active"`
	Version      int64     `json:"version"`
}

type Booking struct {
	ID           string        `json:"id"`
	RestaurantID string        `json:"restaurant_id"`
	ScheduledAt  time.Time     `json:"scheduled_at"`
	TurnTime     time.Duration `json:"turn_time"`
	PartySize    int           `json:"party_size"`
	Status       DiningStatus  `json:"status"`
	TableIDs     []string      `json:"table_ids"`
	CheckInAt    *time.Time    `json:"check_in_at,omitempty"`
	Version      int64         `json:"version"`
}

// IsPresent reports whether the party is physically in the restaurant.
func (s DiningStatus) IsPresent() bool {
	switch s {
	case StatusArrived, StatusSeated, StatusOrdered, StatusAppetizers,
		StatusMainCourse, StatusDessert, StatusPayment:
		return true
	}
	return false
}

func (s DiningStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

func (s DiningStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusArrived, StatusSeated,
		StatusOrdered, StatusAppetizers, StatusMainCourse, StatusDessert,
		StatusPayment, StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

func (b Booking) turnTime() time.Duration {
	if b.TurnTime <= 0 {
		return DefaultTurnTime
	}
	return b.TurnTime
}

// SeatedAt is the authoritative start of elapsed-time tracking: the check-in
// timestamp when one exists, the scheduled start otherwise.
func (b Booking) SeatedAt() time.Time {
	if b.CheckInAt != nil {
		return *b.CheckInAt
	}
	return b.ScheduledAt
}

func (b Booking) AssignedTo(tableID string) bool {
	for _, id := range b.TableIDs {
		if id == tableID {
			return true
		}
	}
	return false
}
