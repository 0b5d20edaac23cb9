package console

import (
	"slices"
	"sync"

	"frontdesk/internal/billing"
	"frontdesk/internal/domain"
)

// PriceForm is the editable price state of one booking. The total follows the
// addends until the user overrides it; any later addend change recomputes it.
type PriceForm struct {
	mu         sync.Mutex
	in         billing.Inputs
	total      float64
	overridden bool
}

// NewPriceForm starts a fresh booking with a computed total.
func NewPriceForm(rate domain.RoomRate, extraPerson int) *PriceForm {
	f := &PriceForm{in: billing.Inputs{Rate: rate, ExtraPerson: extraPerson}}
	f.recompute()
	return f
}

// LoadPriceForm adopts an existing booking's stored total as is.
func LoadPriceForm(b domain.Booking, rate domain.RoomRate) *PriceForm {
	return &PriceForm{
		in: billing.Inputs{
			Rate:        rate,
			ExtraPerson: b.ExtraPerson,
			Addons:      slices.Clone(b.Addons),
			Orders:      slices.Clone(b.Orders),
			Charges:     slices.Clone(b.Charges),
		},
		total: b.TotalPrice,
	}
}

// FormState is a consistent read of the form.
type FormState struct {
	Breakdown   billing.Breakdown `json:"breakdown"`
	RoomRateID  int64             `json:"room_rate_id"`
	ExtraPerson int               `json:"extra_person"`
	BilledHours int               `json:"billed_hours"`
	Total       float64           `json:"total_price"`
	Overridden  bool              `json:"overridden"`
}

func (f *PriceForm) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FormState{
		Breakdown:   billing.Compose(f.in),
		RoomRateID:  f.in.Rate.ID,
		ExtraPerson: f.in.ExtraPerson,
		BilledHours: f.in.BilledHours,
		Total:       f.total,
		Overridden:  f.overridden,
	}
}

func (f *PriceForm) Total() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *PriceForm) Inputs() billing.Inputs {
	f.mu.Lock()
	defer f.mu.Unlock()
	in := f.in
	in.Addons = slices.Clone(f.in.Addons)
	in.Orders = slices.Clone(f.in.Orders)
	in.Charges = slices.Clone(f.in.Charges)
	return in
}

func (f *PriceForm) SetRate(r domain.RoomRate) {
	f.update(func(in *billing.Inputs) bool {
		if in.Rate == r {
			return false
		}
		in.Rate = r
		return true
	})
}

func (f *PriceForm) SetExtraPerson(n int) {
	f.update(func(in *billing.Inputs) bool {
		if in.ExtraPerson == n {
			return false
		}
		in.ExtraPerson = n
		return true
	})
}

func (f *PriceForm) SetBilledHours(h int) {
	f.update(func(in *billing.Inputs) bool {
		if in.BilledHours == h {
			return false
		}
		in.BilledHours = h
		return true
	})
}

func (f *PriceForm) SetAddons(items []domain.BookingAddon) {
	f.update(func(in *billing.Inputs) bool {
		if slices.Equal(in.Addons, items) {
			return false
		}
		in.Addons = slices.Clone(items)
		return true
	})
}

func (f *PriceForm) SetOrders(items []domain.OrderItem) {
	f.update(func(in *billing.Inputs) bool {
		if slices.Equal(in.Orders, items) {
			return false
		}
		in.Orders = slices.Clone(items)
		return true
	})
}

func (f *PriceForm) SetCharges(items []domain.BookingCharge) {
	f.update(func(in *billing.Inputs) bool {
		if slices.Equal(in.Charges, items) {
			return false
		}
		in.Charges = slices.Clone(items)
		return true
	})
}

// Override replaces the total with a user-entered amount.
func (f *PriceForm) Override(total float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if total < 0 {
		total = 0
	}
	f.total = billing.Round2(total)
	f.overridden = true
}

func (f *PriceForm) update(apply func(in *billing.Inputs) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if apply(&f.in) {
		f.recompute()
	}
}

// recompute expects f.mu held.
func (f *PriceForm) recompute() {
	f.total = billing.Compose(f.in).Total
	f.overridden = false
}
