// Package console is the front-desk side of the booking lifecycle: it validates
// and submits transitions, keeps the per-dialog price state and mirrors room
// occupancy for the UI.
package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"frontdesk/internal/billing"
	"frontdesk/internal/domain"
	"frontdesk/internal/shared"
)

// submitTimeout bounds a submission once it no longer follows the caller's context.
const submitTimeout = 30 * time.Second

type CheckInRequest struct {
	RoomID        int64      `json:"room_id"`
	RoomRateID    int64      `json:"room_rate_id"`
	StartDatetime *time.Time `json:"start_datetime,omitempty"`
	EndDatetime   *time.Time `json:"end_datetime,omitempty"`
	ExtraPerson   int        `json:"extra_person"`
	TotalPrice    *float64   `json:"total_price,omitempty"`
	Note          string     `json:"note,omitempty"`
}

// CheckOutRequest carries the payment and any edits made in the dialog. A zero
// RoomRateID or a nil ExtraPerson keeps the booking's value.
type CheckOutRequest struct {
	PaymentStatus string   `json:"payment_status"`
	PaymentType   string   `json:"payment_type"`
	RoomRateID    int64    `json:"room_rate_id,omitempty"`
	ExtraPerson   *int     `json:"extra_person,omitempty"`
	Note          string   `json:"note,omitempty"`
	TotalPrice    *float64 `json:"total_price,omitempty"`
}

type CancelRequest struct {
	Note string `json:"note,omitempty"`
}

type TransferRequest struct {
	RoomID      int64                  `json:"room_id"`
	RoomRateID  int64                  `json:"room_rate_id"`
	ExtraPerson *int                   `json:"extra_person,omitempty"`
	Note        string                 `json:"note,omitempty"`
	Charges     []domain.BookingCharge `json:"booking_charges,omitempty"`
	TotalPrice  *float64               `json:"total_price,omitempty"`
}

// Controller drives check-in, check-out, cancel and transfer from the desk.
type Controller struct {
	api   domain.HotelAPI
	sync  *Synchronizer
	rates *RateCatalog
	gate  billing.GraceGate
	now   func() time.Time
	tick  time.Duration

	mu       sync.Mutex
	sessions map[int64]*CheckoutSession
}

func NewController(api domain.HotelAPI, s *Synchronizer, rates *RateCatalog, gate billing.GraceGate) *Controller {
	return &Controller{
		api:      api,
		sync:     s,
		rates:    rates,
		gate:     gate,
		now:      time.Now,
		tick:     time.Second,
		sessions: make(map[int64]*CheckoutSession),
	}
}

// WithClock swaps the time source and the checkout tick (tests).
func (c *Controller) WithClock(now func() time.Time, tick time.Duration) *Controller {
	c.now, c.tick = now, tick
	return c
}

func (c *Controller) Rooms() []domain.Room { return c.sync.Snapshot() }

func (c *Controller) Rates(ctx context.Context, roomTypeID int64) ([]domain.RoomRate, error) {
	return c.rates.Rates(ctx, roomTypeID)
}

func (c *Controller) CheckIn(ctx context.Context, req CheckInRequest) (domain.Booking, error) {
	room, ok := c.sync.Room(req.RoomID)
	if !ok {
		return domain.Booking{}, domain.NewValidationError("room_id", "Unknown room")
	}
	rate, err := c.rates.Rate(ctx, room.RoomTypeID, req.RoomRateID)
	if err != nil {
		return domain.Booking{}, err
	}

	start := c.now()
	if req.StartDatetime != nil {
		start = *req.StartDatetime
	}
	var end time.Time
	switch {
	case rate.DurationBased():
		end = start.Add(time.Duration(rate.DurationMinutes) * time.Minute)
	case req.EndDatetime != nil:
		end = *req.EndDatetime
	default:
		return domain.Booking{}, domain.NewValidationError("end_datetime", "This field is required")
	}

	total := NewPriceForm(rate, req.ExtraPerson).Total()
	if req.TotalPrice != nil {
		total = billing.Round2(*req.TotalPrice)
	}
	in := domain.CheckIn{
		RoomID:        room.ID,
		RoomRateID:    rate.ID,
		StartDatetime: start,
		EndDatetime:   end,
		ExtraPerson:   req.ExtraPerson,
		TotalPrice:    total,
		Note:          req.Note,
	}
	if err := shared.Validate(in); err != nil {
		return domain.Booking{}, err
	}
	if start.After(end) {
		return domain.Booking{}, domain.NewValidationError("start_datetime", "Start must not be after end")
	}
	if room.Occupied() {
		return domain.Booking{}, &domain.ConflictError{RoomID: room.ID, Reason: "room already occupied"}
	}

	var b domain.Booking
	err = c.submit(ctx, func(ctx context.Context) error {
		var err error
		b, err = c.api.CreateBooking(ctx, in)
		return err
	})
	if err != nil {
		return domain.Booking{}, err
	}
	c.sync.Apply(domain.CheckInEvent(b))
	log.Info().Int64("booking_id", b.ID).Int64("room_id", b.RoomID).Msg("checked in")
	return b, nil
}

// Checkout returns the open checkout session of a booking, opening one if needed.
// A session whose booking left the room view is closed and reopened.
func (c *Controller) Checkout(ctx context.Context, bookingID int64) (*CheckoutSession, error) {
	c.mu.Lock()
	s, ok := c.sessions[bookingID]
	c.mu.Unlock()
	if ok {
		if c.holds(s.Booking().RoomID, bookingID) {
			return s, nil
		}
		c.CloseCheckout(bookingID)
	}
	return c.OpenCheckout(ctx, bookingID)
}

func (c *Controller) holds(roomID, bookingID int64) bool {
	room, ok := c.sync.Room(roomID)
	if !ok {
		return false
	}
	for _, b := range room.Bookings {
		if b.ID == bookingID && b.Live() {
			return true
		}
	}
	return false
}

// OpenCheckout loads the booking and starts a fresh session, replacing any open one.
func (c *Controller) OpenCheckout(ctx context.Context, bookingID int64) (*CheckoutSession, error) {
	b, err := c.api.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Live() {
		return nil, domain.ErrFinalized
	}
	room, ok := c.sync.Room(b.RoomID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	rate, err := c.rates.Rate(ctx, room.RoomTypeID, b.RoomRateID)
	if err != nil {
		return nil, err
	}

	s := OpenCheckout(context.Background(), b, rate, c.gate, c.now, c.tick)
	c.mu.Lock()
	old := c.sessions[bookingID]
	c.sessions[bookingID] = s
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return s, nil
}

// CloseCheckout stops the session's periodic tasks.
func (c *Controller) CloseCheckout(bookingID int64) {
	c.mu.Lock()
	s := c.sessions[bookingID]
	delete(c.sessions, bookingID)
	c.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

func (c *Controller) CheckOut(ctx context.Context, bookingID int64, req CheckOutRequest) (domain.Booking, error) {
	s, err := c.Checkout(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	s.recalculate()
	if !s.Actions().CheckOut {
		return domain.Booking{}, domain.ErrGracePeriod
	}
	if req.RoomRateID != 0 {
		room, ok := c.sync.Room(s.Booking().RoomID)
		if !ok {
			return domain.Booking{}, domain.ErrNotFound
		}
		rate, err := c.rates.Rate(ctx, room.RoomTypeID, req.RoomRateID)
		if err != nil {
			return domain.Booking{}, err
		}
		s.Form().SetRate(rate)
	}
	if req.ExtraPerson != nil {
		s.Form().SetExtraPerson(*req.ExtraPerson)
	}
	if req.TotalPrice != nil {
		s.Form().Override(*req.TotalPrice)
	}
	st := s.Form().State()
	u := domain.BookingUpdate{
		Status:        domain.StatusCheckedOut,
		RoomRateID:    st.RoomRateID,
		ExtraPerson:   st.ExtraPerson,
		TotalPrice:    st.Total,
		PaymentStatus: req.PaymentStatus,
		PaymentType:   req.PaymentType,
		Note:          req.Note,
	}
	return c.finish(ctx, s, u)
}

func (c *Controller) Cancel(ctx context.Context, bookingID int64, req CancelRequest) (domain.Booking, error) {
	s, err := c.Checkout(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	s.recalculate()
	if !s.Actions().Cancel {
		return domain.Booking{}, domain.ErrGracePeriod
	}
	b := s.Booking()
	u := domain.BookingUpdate{
		Status:        domain.StatusCancelled,
		RoomRateID:    b.RoomRateID,
		ExtraPerson:   b.ExtraPerson,
		TotalPrice:    0,
		PaymentStatus: domain.PaymentVoid,
		PaymentType:   domain.PaymentVoid,
		Note:          req.Note,
	}
	return c.finish(ctx, s, u)
}

// finish submits a terminal update and frees the room in the local view.
func (c *Controller) finish(ctx context.Context, s *CheckoutSession, u domain.BookingUpdate) (domain.Booking, error) {
	if err := shared.Validate(u); err != nil {
		return domain.Booking{}, err
	}
	b := s.Booking()
	var out domain.Booking
	err := c.submit(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.api.UpdateBooking(ctx, b.ID, u)
		return err
	})
	if err != nil {
		c.dropIfGone(b, err)
		return domain.Booking{}, err
	}
	c.sync.Apply(domain.CheckOutEvent(b.RoomID))
	c.CloseCheckout(b.ID)
	log.Info().Int64("booking_id", b.ID).Int64("room_id", b.RoomID).Str("status", string(u.Status)).Msg("booking finalized")
	return out, nil
}

// Transfer moves a live booking to a vacant room within the grace period and
// returns the new booking.
func (c *Controller) Transfer(ctx context.Context, bookingID int64, req TransferRequest) (domain.Booking, error) {
	s, err := c.Checkout(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	s.recalculate()
	if !s.Actions().Transfer {
		return domain.Booking{}, domain.ErrGracePeriod
	}
	b := s.Booking()

	if req.RoomID == 0 {
		return domain.Booking{}, domain.NewValidationError("room_id", "This field is required")
	}
	if req.RoomID == b.RoomID {
		return domain.Booking{}, domain.NewValidationError("room_id", "Destination must be a different room")
	}
	dest, ok := c.sync.Room(req.RoomID)
	if !ok {
		return domain.Booking{}, domain.NewValidationError("room_id", "Unknown room")
	}
	if dest.Occupied() {
		return domain.Booking{}, &domain.ConflictError{RoomID: dest.ID, Reason: "destination room already occupied"}
	}
	rate, err := c.rates.Rate(ctx, dest.RoomTypeID, req.RoomRateID)
	if err != nil {
		return domain.Booking{}, err
	}

	in := s.Form().Inputs()
	extra := in.ExtraPerson
	if req.ExtraPerson != nil {
		extra = *req.ExtraPerson
	}
	total := billing.Compose(billing.Inputs{
		Rate:        rate,
		ExtraPerson: extra,
		Addons:      in.Addons,
		Orders:      in.Orders,
		Charges:     append(in.Charges, req.Charges...),
	}).Total
	if req.TotalPrice != nil {
		total = billing.Round2(*req.TotalPrice)
	}
	note := b.Note
	if req.Note != "" {
		note = req.Note
	}

	u := domain.BookingUpdate{
		Status:      domain.StatusTransferred,
		RoomID:      dest.ID,
		RoomRateID:  rate.ID,
		ExtraPerson: extra,
		TotalPrice:  total,
		Note:        note,
		Charges:     req.Charges,
	}
	if err := shared.Validate(u); err != nil {
		return domain.Booking{}, err
	}

	var nb domain.Booking
	err = c.submit(ctx, func(ctx context.Context) error {
		var err error
		nb, err = c.api.UpdateBooking(ctx, b.ID, u)
		return err
	})
	if err != nil {
		c.dropIfGone(b, err)
		return domain.Booking{}, err
	}
	c.sync.Apply(domain.CheckOutEvent(b.RoomID))
	c.sync.Apply(domain.CheckInEvent(nb))
	c.CloseCheckout(b.ID)
	log.Info().Int64("booking_id", b.ID).Int64("new_booking_id", nb.ID).Int64("room_id", nb.RoomID).Msg("booking transferred")
	return nb, nil
}

// dropIfGone closes the session once the server reports its booking finalized,
// or a conflict refetch shows the booking left its room.
func (c *Controller) dropIfGone(b domain.Booking, err error) {
	switch {
	case errors.Is(err, domain.ErrFinalized):
		c.CloseCheckout(b.ID)
	case domain.IsConflict(err) && !c.holds(b.RoomID, b.ID):
		c.CloseCheckout(b.ID)
	}
}

// ---- line items ----

func (c *Controller) AddAddon(ctx context.Context, a domain.BookingAddon) (domain.BookingAddon, error) {
	if err := shared.Validate(a); err != nil {
		return domain.BookingAddon{}, err
	}
	var out domain.BookingAddon
	err := c.submit(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.api.AddAddon(ctx, a)
		return err
	})
	if err != nil {
		return domain.BookingAddon{}, err
	}
	c.reloadItems(ctx, a.BookingID)
	return out, nil
}

func (c *Controller) DeleteAddon(ctx context.Context, bookingID, id int64) error {
	if err := c.submit(ctx, func(ctx context.Context) error { return c.api.DeleteAddon(ctx, id) }); err != nil {
		return err
	}
	c.reloadItems(ctx, bookingID)
	return nil
}

func (c *Controller) AddOrderItem(ctx context.Context, o domain.OrderItem) (domain.OrderItem, error) {
	if err := shared.Validate(o); err != nil {
		return domain.OrderItem{}, err
	}
	var out domain.OrderItem
	err := c.submit(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.api.AddOrderItem(ctx, o)
		return err
	})
	if err != nil {
		return domain.OrderItem{}, err
	}
	c.reloadItems(ctx, o.BookingID)
	return out, nil
}

func (c *Controller) DeleteOrderItem(ctx context.Context, bookingID, id int64) error {
	if err := c.submit(ctx, func(ctx context.Context) error { return c.api.DeleteOrderItem(ctx, id) }); err != nil {
		return err
	}
	c.reloadItems(ctx, bookingID)
	return nil
}

// AddCharge posts a manual charge and folds it into the open dialog's total.
func (c *Controller) AddCharge(ctx context.Context, ch domain.BookingCharge) (domain.BookingCharge, error) {
	if err := shared.Validate(ch); err != nil {
		return domain.BookingCharge{}, err
	}
	var out domain.BookingCharge
	err := c.submit(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.api.AddCharge(ctx, ch)
		return err
	})
	if err != nil {
		return domain.BookingCharge{}, err
	}
	c.reloadItems(ctx, ch.BookingID)
	return out, nil
}

// reloadItems refreshes an open session's line items from the server.
func (c *Controller) reloadItems(ctx context.Context, bookingID int64) {
	c.mu.Lock()
	s, ok := c.sessions[bookingID]
	c.mu.Unlock()
	if !ok {
		return
	}
	b, err := c.api.GetBooking(context.WithoutCancel(ctx), bookingID)
	if err != nil {
		log.Warn().Err(err).Int64("booking_id", bookingID).Msg("reload line items failed")
		return
	}
	s.Form().SetAddons(b.Addons)
	s.Form().SetOrders(b.Orders)
	s.Form().SetCharges(b.Charges)
}

// submit runs fn detached from the caller's cancellation so a closed dialog
// still sees its result land. Conflicts mean the local view is stale.
func (c *Controller) submit(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), submitTimeout)
	defer cancel()

	err := fn(ctx)
	if domain.IsConflict(err) {
		log.Warn().Err(err).Msg("stale room state, re-fetching snapshot")
		if rerr := c.sync.Refresh(ctx); rerr != nil {
			log.Warn().Err(rerr).Msg("snapshot refresh failed")
		}
	}
	return err
}

// Close stops every open checkout session.
func (c *Controller) Close() {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = make(map[int64]*CheckoutSession)
	c.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
