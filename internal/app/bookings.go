package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"frontdesk/internal/adapters/observability"
	"frontdesk/internal/billing"
	"frontdesk/internal/domain"
	"frontdesk/internal/shared"
)

// BookingService commits lifecycle transitions for one hotel at a time and
// announces occupancy changes to the hotel's consoles.
type BookingService struct {
	repo domain.BookingRepository
	pub  domain.EventPublisher
	gate billing.GraceGate
	now  func() time.Time
}

func NewBookingService(r domain.BookingRepository, pub domain.EventPublisher, gate billing.GraceGate) *BookingService {
	return &BookingService{repo: r, pub: pub, gate: gate, now: time.Now}
}

// WithClock swaps the time source (tests).
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

func (s *BookingService) GetBooking(ctx context.Context, hotelID, id int64) (domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if _, err := s.ownRoom(ctx, hotelID, b.RoomID); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (s *BookingService) CheckIn(ctx context.Context, hotelID int64, in domain.CheckIn) (domain.Booking, error) {
	if err := shared.Validate(in); err != nil {
		return domain.Booking{}, err
	}
	room, err := s.ownRoom(ctx, hotelID, in.RoomID)
	if err != nil {
		return domain.Booking{}, err
	}
	rate, err := s.rateFor(ctx, room, in.RoomRateID)
	if err != nil {
		return domain.Booking{}, err
	}

	start := in.StartDatetime
	if start.IsZero() {
		start = s.now()
	}
	end, err := stayEnd(rate, start, in.EndDatetime)
	if err != nil {
		return domain.Booking{}, err
	}

	b, err := s.repo.CreateBooking(ctx, domain.Booking{
		RoomID:        room.ID,
		RoomRateID:    rate.ID,
		StartDatetime: start,
		EndDatetime:   end,
		ExtraPerson:   in.ExtraPerson,
		TotalPrice:    billing.Round2(in.TotalPrice),
		Status:        domain.StatusCheckIn,
		Note:          in.Note,
	})
	if err != nil {
		return domain.Booking{}, err
	}
	observability.ObserveTransition(string(domain.StatusCheckIn))
	log.Info().Int64("booking_id", b.ID).Int64("room_id", b.RoomID).Msg("checked in")
	s.publish(ctx, hotelID, domain.CheckInEvent(b))
	return b, nil
}

// Update applies the transition selected by u.Status to a live booking. For a
// transfer the returned booking is the new one on the destination room.
func (s *BookingService) Update(ctx context.Context, hotelID, id int64, u domain.BookingUpdate) (domain.Booking, error) {
	if err := shared.Validate(u); err != nil {
		return domain.Booking{}, err
	}
	b, err := s.GetBooking(ctx, hotelID, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if !b.Live() {
		return domain.Booking{}, domain.ErrFinalized
	}

	now := s.now()
	switch u.Status {
	case domain.StatusCheckedOut:
		if s.gate.Within(b.StartDatetime, now) {
			return domain.Booking{}, fmt.Errorf("check-out before %s: %w", s.gate.Expiry(b.StartDatetime).Format(time.RFC3339), domain.ErrGracePeriod)
		}
		return s.checkOut(ctx, hotelID, b, u)
	case domain.StatusCancelled:
		if !s.gate.Within(b.StartDatetime, now) {
			return domain.Booking{}, fmt.Errorf("cancel after %s: %w", s.gate.Expiry(b.StartDatetime).Format(time.RFC3339), domain.ErrGracePeriod)
		}
		return s.cancel(ctx, hotelID, b, u)
	case domain.StatusTransferred:
		if !s.gate.Within(b.StartDatetime, now) {
			return domain.Booking{}, fmt.Errorf("transfer after %s: %w", s.gate.Expiry(b.StartDatetime).Format(time.RFC3339), domain.ErrGracePeriod)
		}
		return s.transfer(ctx, hotelID, b, u)
	}
	return domain.Booking{}, domain.NewValidationError("status", "Unsupported status")
}

func (s *BookingService) checkOut(ctx context.Context, hotelID int64, b domain.Booking, u domain.BookingUpdate) (domain.Booking, error) {
	b.Status = domain.StatusCheckedOut
	b.RoomRateID = u.RoomRateID
	b.ExtraPerson = u.ExtraPerson
	b.TotalPrice = billing.Round2(u.TotalPrice)
	b.PaymentStatus = u.PaymentStatus
	b.PaymentType = u.PaymentType
	if u.Note != "" {
		b.Note = u.Note
	}
	return s.finalize(ctx, hotelID, b)
}

func (s *BookingService) cancel(ctx context.Context, hotelID int64, b domain.Booking, u domain.BookingUpdate) (domain.Booking, error) {
	b.Status = domain.StatusCancelled
	b.TotalPrice = 0
	b.PaymentStatus = domain.PaymentVoid
	b.PaymentType = domain.PaymentVoid
	if u.Note != "" {
		b.Note = u.Note
	}
	return s.finalize(ctx, hotelID, b)
}

func (s *BookingService) finalize(ctx context.Context, hotelID int64, b domain.Booking) (domain.Booking, error) {
	if err := s.repo.FinalizeBooking(ctx, b); err != nil {
		return domain.Booking{}, err
	}
	observability.ObserveTransition(string(b.Status))
	log.Info().Int64("booking_id", b.ID).Int64("room_id", b.RoomID).Str("status", string(b.Status)).Msg("booking finalized")
	s.publish(ctx, hotelID, domain.CheckOutEvent(b.RoomID))

	out, err := s.repo.GetBooking(ctx, b.ID)
	if err != nil {
		// committed; the caller still learns the outcome
		return b, nil
	}
	return out, nil
}

func (s *BookingService) transfer(ctx context.Context, hotelID int64, b domain.Booking, u domain.BookingUpdate) (domain.Booking, error) {
	if u.RoomID == b.RoomID {
		return domain.Booking{}, domain.NewValidationError("room_id", "Destination must be a different room")
	}
	dest, err := s.ownRoom(ctx, hotelID, u.RoomID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Booking{}, domain.NewValidationError("room_id", "Unknown room")
	}
	if err != nil {
		return domain.Booking{}, err
	}
	rate, err := s.rateFor(ctx, dest, u.RoomRateID)
	if err != nil {
		return domain.Booking{}, err
	}

	var requested time.Time
	if u.EndDatetime != nil {
		requested = *u.EndDatetime
	} else {
		requested = b.EndDatetime
	}
	end, err := stayEnd(rate, b.StartDatetime, requested)
	if err != nil {
		return domain.Booking{}, err
	}

	note := b.Note
	if u.Note != "" {
		note = u.Note
	}
	charges := make([]domain.BookingCharge, 0, len(u.Charges))
	for _, c := range u.Charges {
		if c.RoomID == 0 {
			c.RoomID = b.RoomID
		}
		charges = append(charges, c)
	}

	from := b
	from.Status = domain.StatusTransferred
	to := domain.Booking{
		RoomID:        dest.ID,
		RoomRateID:    rate.ID,
		StartDatetime: b.StartDatetime,
		EndDatetime:   end,
		ExtraPerson:   u.ExtraPerson,
		TotalPrice:    billing.Round2(u.TotalPrice),
		Status:        domain.StatusCheckIn,
		Note:          note,
		Charges:       charges,
	}
	nb, err := s.repo.TransferBooking(ctx, from, to)
	if err != nil {
		return domain.Booking{}, err
	}
	observability.ObserveTransition(string(domain.StatusTransferred))
	log.Info().
		Int64("booking_id", b.ID).
		Int64("new_booking_id", nb.ID).
		Int64("from_room_id", b.RoomID).
		Int64("room_id", nb.RoomID).
		Msg("booking transferred")

	s.publish(ctx, hotelID, domain.CheckOutEvent(b.RoomID))
	s.publish(ctx, hotelID, domain.CheckInEvent(nb))
	return nb, nil
}

// ---- line items ----

func (s *BookingService) AddAddon(ctx context.Context, hotelID int64, a domain.BookingAddon) (domain.BookingAddon, error) {
	if err := shared.Validate(a); err != nil {
		return domain.BookingAddon{}, err
	}
	price, err := s.lineItemPrice(ctx, hotelID, a.BookingID, a.ProductID, a.Price)
	if err != nil {
		return domain.BookingAddon{}, err
	}
	a.Price = price
	a.TotalPrice = billing.LineTotal(a.Quantity, price)
	return s.repo.AddAddon(ctx, a)
}

func (s *BookingService) DeleteAddon(ctx context.Context, hotelID, id int64) error {
	a, err := s.repo.GetAddon(ctx, id)
	if err != nil {
		return err
	}
	if err := s.editable(ctx, hotelID, a.BookingID); err != nil {
		return err
	}
	return s.repo.DeleteAddon(ctx, id)
}

func (s *BookingService) AddOrderItem(ctx context.Context, hotelID int64, o domain.OrderItem) (domain.OrderItem, error) {
	if err := shared.Validate(o); err != nil {
		return domain.OrderItem{}, err
	}
	price, err := s.lineItemPrice(ctx, hotelID, o.BookingID, o.ProductID, o.Price)
	if err != nil {
		return domain.OrderItem{}, err
	}
	o.Price = price
	o.TotalPrice = billing.LineTotal(o.Quantity, price)
	return s.repo.AddOrderItem(ctx, o)
}

func (s *BookingService) DeleteOrderItem(ctx context.Context, hotelID, id int64) error {
	o, err := s.repo.GetOrderItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.editable(ctx, hotelID, o.BookingID); err != nil {
		return err
	}
	return s.repo.DeleteOrderItem(ctx, id)
}

func (s *BookingService) AddCharge(ctx context.Context, hotelID int64, c domain.BookingCharge) (domain.BookingCharge, error) {
	if err := shared.Validate(c); err != nil {
		return domain.BookingCharge{}, err
	}
	b, err := s.liveBooking(ctx, hotelID, c.BookingID)
	if err != nil {
		return domain.BookingCharge{}, err
	}
	if c.RoomID == 0 {
		c.RoomID = b.RoomID
	}
	c.Price = billing.Round2(c.Price)
	return s.repo.AddCharge(ctx, c)
}

// lineItemPrice falls back to the catalog price when the request carries none.
func (s *BookingService) lineItemPrice(ctx context.Context, hotelID, bookingID, productID int64, price float64) (float64, error) {
	if _, err := s.liveBooking(ctx, hotelID, bookingID); err != nil {
		return 0, err
	}
	if price > 0 {
		return price, nil
	}
	p, err := s.repo.GetProduct(ctx, productID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, domain.NewValidationError("product_id", "Unknown product")
	}
	if err != nil {
		return 0, err
	}
	return p.Price, nil
}

func (s *BookingService) liveBooking(ctx context.Context, hotelID, id int64) (domain.Booking, error) {
	b, err := s.GetBooking(ctx, hotelID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Booking{}, domain.NewValidationError("booking_id", "Unknown booking")
	}
	if err != nil {
		return domain.Booking{}, err
	}
	if !b.Live() {
		return domain.Booking{}, domain.ErrFinalized
	}
	return b, nil
}

// editable lets line items change only on a live booking of the caller's hotel.
// Items of other hotels stay hidden behind ErrNotFound.
func (s *BookingService) editable(ctx context.Context, hotelID, bookingID int64) error {
	b, err := s.GetBooking(ctx, hotelID, bookingID)
	if err != nil {
		return err
	}
	if !b.Live() {
		return domain.ErrFinalized
	}
	return nil
}

// ---- helpers ----

// ownRoom hides rooms of other hotels behind ErrNotFound.
func (s *BookingService) ownRoom(ctx context.Context, hotelID, roomID int64) (domain.Room, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if room.HotelID != hotelID {
		return domain.Room{}, domain.ErrNotFound
	}
	return room, nil
}

func (s *BookingService) rateFor(ctx context.Context, room domain.Room, rateID int64) (domain.RoomRate, error) {
	rate, err := s.repo.GetRoomRate(ctx, rateID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.RoomRate{}, domain.NewValidationError("room_rate_id", "Unknown room rate")
	}
	if err != nil {
		return domain.RoomRate{}, err
	}
	if rate.RoomTypeID != room.RoomTypeID {
		return domain.RoomRate{}, domain.NewValidationError("room_rate_id", "Rate does not apply to this room type")
	}
	return rate, nil
}

// stayEnd fixes the end of duration-based stays and rejects inverted ranges.
func stayEnd(rate domain.RoomRate, start, requested time.Time) (time.Time, error) {
	if rate.DurationBased() {
		return start.Add(time.Duration(rate.DurationMinutes) * time.Minute), nil
	}
	if requested.IsZero() {
		return time.Time{}, domain.NewValidationError("end_datetime", "This field is required")
	}
	if start.After(requested) {
		return time.Time{}, domain.NewValidationError("start_datetime", "Start must not be after end")
	}
	return requested, nil
}

func (s *BookingService) publish(ctx context.Context, hotelID int64, ev domain.RoomEvent) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, hotelID, ev); err != nil {
		log.Warn().Err(err).Int64("room_id", ev.RoomID).Str("event", string(ev.Type)).Msg("publish room event failed")
	}
}
