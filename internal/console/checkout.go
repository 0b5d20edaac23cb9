package console

import (
	"context"
	"sync"
	"time"

	"frontdesk/internal/billing"
	"frontdesk/internal/domain"
)

// CheckoutSession is an open check-out dialog. While open it keeps the grace
// gate, the billed overstay and the countdown current, each on its own ticker.
type CheckoutSession struct {
	booking domain.Booking
	gate    billing.GraceGate
	form    *PriceForm
	now     func() time.Time

	mu        sync.RWMutex
	actions   billing.Actions
	overstay  billing.Overstay
	remaining time.Duration

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// OpenCheckout evaluates the session once and starts its periodic tasks.
func OpenCheckout(parent context.Context, b domain.Booking, rate domain.RoomRate, gate billing.GraceGate, now func() time.Time, tick time.Duration) *CheckoutSession {
	if now == nil {
		now = time.Now
	}
	if tick <= 0 {
		tick = time.Second
	}
	ctx, cancel := context.WithCancel(parent)
	s := &CheckoutSession{
		booking: b,
		gate:    gate,
		form:    LoadPriceForm(b, rate),
		now:     now,
		cancel:  cancel,
	}
	s.recalculate()
	s.countdown()

	s.every(ctx, tick, s.recalculate)
	s.every(ctx, tick, s.countdown)
	return s
}

func (s *CheckoutSession) every(ctx context.Context, d time.Duration, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn()
			}
		}
	}()
}

// recalculate flips the gate and feeds billed overstay hours into the form.
func (s *CheckoutSession) recalculate() {
	now := s.now()
	actions := s.gate.Actions(s.booking.StartDatetime, now)
	ov := billing.OverstayAt(s.booking.EndDatetime, now)

	s.mu.Lock()
	s.actions = actions
	s.overstay = ov
	s.mu.Unlock()

	s.form.SetBilledHours(ov.BilledHours)
}

func (s *CheckoutSession) countdown() {
	rem := billing.Remaining(s.booking.EndDatetime, s.now())
	s.mu.Lock()
	s.remaining = rem
	s.mu.Unlock()
}

func (s *CheckoutSession) Booking() domain.Booking { return s.booking }

func (s *CheckoutSession) Form() *PriceForm { return s.form }

func (s *CheckoutSession) Actions() billing.Actions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actions
}

// CheckoutView is what the dialog renders.
type CheckoutView struct {
	BookingID        int64           `json:"booking_id"`
	RoomID           int64           `json:"room_id"`
	Actions          billing.Actions `json:"actions"`
	GraceExpiresAt   time.Time       `json:"grace_expires_at"`
	OverstayMinutes  int             `json:"overstay_minutes"`
	BilledHours      int             `json:"billed_hours"`
	Overdue          bool            `json:"overdue"`
	RemainingSeconds int64           `json:"remaining_seconds"`
	Price            FormState       `json:"price"`
}

func (s *CheckoutSession) View() CheckoutView {
	s.mu.RLock()
	v := CheckoutView{
		BookingID:        s.booking.ID,
		RoomID:           s.booking.RoomID,
		Actions:          s.actions,
		GraceExpiresAt:   s.gate.Expiry(s.booking.StartDatetime),
		OverstayMinutes:  s.overstay.Minutes,
		BilledHours:      s.overstay.BilledHours,
		Overdue:          s.overstay.Overdue(),
		RemainingSeconds: int64(s.remaining / time.Second),
	}
	s.mu.RUnlock()
	v.Price = s.form.State()
	return v
}

// Close stops both tasks and waits for them. Safe to call more than once.
func (s *CheckoutSession) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}
