package console_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"frontdesk/internal/domain"
)

// ---- fakes ----

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeAPI is an in-memory hotel API with call counters.
type fakeAPI struct {
	mu         sync.Mutex
	rooms      []domain.Room
	rates      map[int64][]domain.RoomRate
	bookings   map[int64]domain.Booking
	nextID     int64
	dashboards int
	rateCalls  int
	updates    []domain.BookingUpdate
	creates    []domain.CheckIn
	createErr  error
	updateErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		rooms: []domain.Room{
			{ID: 101, HotelID: 1, RoomTypeID: 10, Name: "101"},
			{ID: 102, HotelID: 1, RoomTypeID: 10, Name: "102"},
			{ID: 201, HotelID: 1, RoomTypeID: 20, Name: "201"},
		},
		rates: map[int64][]domain.RoomRate{
			10: {
				{ID: 1, RoomTypeID: 10, Name: "3 hours", DurationMinutes: 180, BasePrice: 500, ExtraPersonRate: 150, OverstayRate: 100},
				{ID: 2, RoomTypeID: 10, Name: "Overnight", BasePrice: 900, ExtraPersonRate: 200, OverstayRate: 120},
			},
			20: {
				{ID: 3, RoomTypeID: 20, Name: "Suite 3 hours", DurationMinutes: 180, BasePrice: 1200, ExtraPersonRate: 300, OverstayRate: 250},
			},
		},
		bookings: map[int64]domain.Booking{},
		nextID:   100,
	}
}

// seed stores a live booking and embeds it in the dashboard.
func (f *fakeAPI) seed(b domain.Booking) domain.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	b.Status = domain.StatusCheckIn
	f.bookings[b.ID] = b
	for i := range f.rooms {
		if f.rooms[i].ID == b.RoomID {
			f.rooms[i].Bookings = []domain.Booking{b}
		}
	}
	return b
}

// finalize checks a booking out behind the console's back, as another desk would.
func (f *fakeAPI) finalize(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[id]
	b.Status = domain.StatusCheckedOut
	f.bookings[id] = b
	for i := range f.rooms {
		if f.rooms[i].ID == b.RoomID {
			f.rooms[i].Bookings = nil
		}
	}
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) (domain.Tokens, error) {
	return domain.Tokens{AccessToken: "a", RefreshToken: "r", HotelID: 1}, nil
}

func (f *fakeAPI) Dashboard(ctx context.Context) ([]domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dashboards++
	out := make([]domain.Room, len(f.rooms))
	copy(out, f.rooms)
	return out, nil
}

func (f *fakeAPI) RoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	return []domain.RoomType{{ID: 10, HotelID: 1, Name: "Standard"}, {ID: 20, HotelID: 1, Name: "Suite"}}, nil
}

func (f *fakeAPI) RoomsByType(ctx context.Context, roomTypeID int64) ([]domain.Room, error) {
	return nil, nil
}

func (f *fakeAPI) RoomRates(ctx context.Context, roomTypeID int64) ([]domain.RoomRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateCalls++
	rs, ok := f.rates[roomTypeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rs, nil
}

func (f *fakeAPI) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeAPI) CreateBooking(ctx context.Context, in domain.CheckIn) (domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return domain.Booking{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, in)
	if f.createErr != nil {
		return domain.Booking{}, f.createErr
	}
	f.nextID++
	b := domain.Booking{
		ID:            f.nextID,
		RoomID:        in.RoomID,
		RoomRateID:    in.RoomRateID,
		StartDatetime: in.StartDatetime,
		EndDatetime:   in.EndDatetime,
		ExtraPerson:   in.ExtraPerson,
		TotalPrice:    in.TotalPrice,
		Status:        domain.StatusCheckIn,
		Note:          in.Note,
	}
	f.bookings[b.ID] = b
	return b, nil
}

func (f *fakeAPI) UpdateBooking(ctx context.Context, id int64, u domain.BookingUpdate) (domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return domain.Booking{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	if f.updateErr != nil {
		return domain.Booking{}, f.updateErr
	}
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	if !b.Live() {
		return domain.Booking{}, &domain.ConflictError{RoomID: b.RoomID, Reason: "booking already finalized"}
	}
	if u.Status == domain.StatusTransferred {
		b.Status = domain.StatusTransferred
		f.bookings[id] = b
		f.nextID++
		orig := id
		nb := b
		nb.ID = f.nextID
		nb.RoomID = u.RoomID
		nb.RoomRateID = u.RoomRateID
		nb.ExtraPerson = u.ExtraPerson
		nb.TotalPrice = u.TotalPrice
		nb.Note = u.Note
		nb.Status = domain.StatusCheckIn
		nb.OriginalBookingID = &orig
		nb.Charges = append(append([]domain.BookingCharge{}, b.Charges...), u.Charges...)
		f.bookings[nb.ID] = nb
		return nb, nil
	}
	b.Status = u.Status
	b.TotalPrice = u.TotalPrice
	b.PaymentStatus = u.PaymentStatus
	b.PaymentType = u.PaymentType
	f.bookings[id] = b
	return b, nil
}

func (f *fakeAPI) AddAddon(ctx context.Context, a domain.BookingAddon) (domain.BookingAddon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	a.TotalPrice = float64(a.Quantity) * a.Price
	b := f.bookings[a.BookingID]
	b.Addons = append(b.Addons, a)
	f.bookings[a.BookingID] = b
	return a, nil
}

func (f *fakeAPI) DeleteAddon(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for bid, b := range f.bookings {
		for i, a := range b.Addons {
			if a.ID == id {
				b.Addons = append(b.Addons[:i:i], b.Addons[i+1:]...)
				f.bookings[bid] = b
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

func (f *fakeAPI) AddOrderItem(ctx context.Context, o domain.OrderItem) (domain.OrderItem, error) {
	return o, nil
}

func (f *fakeAPI) DeleteOrderItem(ctx context.Context, id int64) error { return nil }

func (f *fakeAPI) AddCharge(ctx context.Context, c domain.BookingCharge) (domain.BookingCharge, error) {
	return c, nil
}

func (f *fakeAPI) lastUpdate() domain.BookingUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[len(f.updates)-1]
}

func (f *fakeAPI) dashboardCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dashboards
}

// fakeStream replays events, then fails like a dropped connection.
type fakeStream struct {
	events chan domain.RoomEvent
	closed chan struct{}
	once   sync.Once
}

func newFakeStream(evs ...domain.RoomEvent) *fakeStream {
	s := &fakeStream{events: make(chan domain.RoomEvent, len(evs)), closed: make(chan struct{})}
	for _, ev := range evs {
		s.events <- ev
	}
	return s
}

var errDropped = errors.New("connection dropped")

func (s *fakeStream) Next() (domain.RoomEvent, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.closed:
		return domain.RoomEvent{}, errDropped
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
