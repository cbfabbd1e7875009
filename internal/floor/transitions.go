package floor

import "errors"

var ErrInvalidTransition = errors.New("invalid_transition")

// TransitionOption is one legal next step from a given status, with the label
// the dashboard renders. The rendering layer never hard-codes legality.
type TransitionOption struct {
	Status DiningStatus `json:"status"`
	Label  string       `json:"label"`
}

// legalNext maps each status to its legal successors in display order. Course
// states may be skipped: every in-service state can jump straight to payment,
// and cancelled stays legal until the booking completes.
var legalNext = map[DiningStatus][]DiningStatus{
	StatusPending:    {StatusConfirmed, StatusArrived, StatusNoShow, StatusCancelled},
	StatusConfirmed:  {StatusArrived, StatusNoShow, StatusCancelled},
	StatusArrived:    {StatusSeated, StatusCancelled},
	StatusSeated:     {StatusOrdered, StatusPayment, StatusCancelled},
	StatusOrdered:    {StatusAppetizers, StatusMainCourse, StatusPayment, StatusCancelled},
	StatusAppetizers: {StatusMainCourse, StatusPayment, StatusCancelled},
	StatusMainCourse: {StatusDessert, StatusPayment, StatusCancelled},
	StatusDessert:    {StatusPayment, StatusCancelled},
	StatusPayment:    {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusNoShow:     {},
	StatusCancelled:  {},
}

var statusLabels = map[DiningStatus]string{
	StatusPending:    "Pending",
	StatusConfirmed:  "Confirm",
	StatusArrived:    "Check In",
	StatusSeated:     "Seat Party",
	StatusOrdered:    "Order Taken",
	StatusAppetizers: "Starters Served",
	StatusMainCourse: "Mains Served",
	StatusDessert:    "Dessert Served",
	StatusPayment:    "Bill Requested",
	StatusCompleted:  "Complete",
	StatusNoShow:     "No Show",
	StatusCancelled:  "Cancel",
}

// LegalNext returns the authoritative action list for a status. Terminal
// statuses return an empty slice, never nil legality surprises.
func LegalNext(from DiningStatus) []TransitionOption {
	next := legalNext[from]
	out := make([]TransitionOption, 0, len(next))
	for _, s := range next {
		out = append(out, TransitionOption{Status: s, Label: statusLabels[s]})
	}
	return out
}

func CanTransition(from, to DiningStatus) bool {
	for _, s := range legalNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks legality of from -> to. Attempts out of a terminal
// status fail the same way any other illegal request does.
func ValidateTransition(from, to DiningStatus) error {
	if !from.Valid() || !to.Valid() {
		return ErrInvalidTransition
	}
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	return nil
}
