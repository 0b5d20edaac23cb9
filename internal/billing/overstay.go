// Package billing holds the pure pricing rules of a stay: overstay rounding,
// price composition and the grace-period gate.
package billing

import "time"

// OverstayGraceMinutes is the remainder within an hour at which a started hour gets billed.
const OverstayGraceMinutes = 15

type Overstay struct {
	Minutes     int
	BilledHours int
}

func (o Overstay) Overdue() bool { return o.Minutes > 0 }

// OverstayAt measures how far now is past the scheduled end of a stay.
func OverstayAt(end, now time.Time) Overstay {
	m := OverstayMinutes(end, now)
	return Overstay{Minutes: m, BilledHours: BilledHours(m)}
}

// OverstayMinutes is max(0, floor((now-end)/1m)).
func OverstayMinutes(end, now time.Time) int {
	d := now.Sub(end)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// BilledHours counts whole hours plus one more when the remainder reaches the grace minutes.
// 74 -> 1, 75 -> 2, 14 -> 0, 15 -> 1.
func BilledHours(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	h := minutes / 60
	if minutes%60 >= OverstayGraceMinutes {
		h++
	}
	return h
}

// Remaining is the time left until end; negative once the stay is overdue.
func Remaining(end, now time.Time) time.Duration {
	return end.Sub(now)
}
