package billing

import "time"

// GraceGate decides which transitions a live booking offers.
type GraceGate struct {
	Period time.Duration
}

func NewGraceGate(minutes int) GraceGate {
	return GraceGate{Period: time.Duration(minutes) * time.Minute}
}

// Within is true while now <= start+Period, boundary included.
func (g GraceGate) Within(start, now time.Time) bool {
	return !now.After(start.Add(g.Period))
}

// Expiry is the instant the gate flips.
func (g GraceGate) Expiry(start time.Time) time.Time {
	return start.Add(g.Period)
}

type Actions struct {
	CheckOut bool `json:"check_out"`
	Cancel   bool `json:"cancel"`
	Transfer bool `json:"transfer"`
}

func (g GraceGate) Actions(start, now time.Time) Actions {
	if g.Within(start, now) {
		return Actions{Cancel: true, Transfer: true}
	}
	return Actions{CheckOut: true}
}
