// Package gesture models a table-drag interaction as a single pointer
// session, the same whether it came from a mouse or a touch surface.
package gesture

import "errors"

var ErrNotActive = errors.New("pointer_session_not_active")

// Point is a fractional floor-plan coordinate in [0, 1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointerSession tracks one drag from press to release. It accumulates
// movement locally and produces a position only on commit; a cancelled
// session has no effect on anything.
type PointerSession struct {
	origin Point
	dx     float64
	dy     float64
	active bool
	moved  bool
}

// Begin starts a session at the table's current position.
func Begin(origin Point) *PointerSession {
	return &PointerSession{origin: origin, active: true}
}

// Move records pointer displacement since the press, in floor-plan
// fractions. Repeated calls replace the delta, they do not accumulate.
func (s *PointerSession) Move(dx, dy float64) {
	if !s.active {
		return
	}
	s.dx = dx
	s.dy = dy
	s.moved = true
}

// Moved reports whether the pointer travelled at all. A press-release with
// no movement is a tap, not a drag, and should not produce a position write.
func (s *PointerSession) Moved() bool {
	return s.moved
}

// Position is the would-be committed position, clamped to the floor plan.
func (s *PointerSession) Position() Point {
	return Point{
		X: clamp01(s.origin.X + s.dx),
		Y: clamp01(s.origin.Y + s.dy),
	}
}

// Commit ends the session and returns the final clamped position. Committing
// an inactive or cancelled session is an error.
func (s *PointerSession) Commit() (Point, error) {
	if !s.active {
		return Point{}, ErrNotActive
	}
	s.active = false
	return s.Position(), nil
}

// Cancel abandons the session. The table stays at its origin.
func (s *PointerSession) Cancel() {
	s.active = false
	s.dx = 0
	s.dy = 0
	s.moved = false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
