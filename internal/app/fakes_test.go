package app_test

import (
	"context"
	"encoding/json"
	"sync"

	"frontdesk/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	mu       sync.Mutex
	rooms    map[int64]domain.Room
	types    []domain.RoomType
	rates    map[int64]domain.RoomRate
	products map[int64]domain.Product
	users    map[string]domain.User
	bookings map[int64]domain.Booking
	nextID   int64
	rateHits int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rooms: map[int64]domain.Room{
			101: {ID: 101, HotelID: 1, RoomTypeID: 10, Name: "101"},
			102: {ID: 102, HotelID: 1, RoomTypeID: 10, Name: "102"},
			201: {ID: 201, HotelID: 1, RoomTypeID: 20, Name: "201"},
			901: {ID: 901, HotelID: 2, RoomTypeID: 10, Name: "other hotel"},
		},
		types: []domain.RoomType{{ID: 10, HotelID: 1, Name: "Standard"}, {ID: 20, HotelID: 1, Name: "Suite"}},
		rates: map[int64]domain.RoomRate{
			1: {ID: 1, RoomTypeID: 10, Name: "3 hours", DurationMinutes: 180, BasePrice: 500, ExtraPersonRate: 150, OverstayRate: 100},
			2: {ID: 2, RoomTypeID: 10, Name: "Overnight", BasePrice: 900, ExtraPersonRate: 200, OverstayRate: 120},
			3: {ID: 3, RoomTypeID: 20, Name: "Suite 3 hours", DurationMinutes: 180, BasePrice: 1200, ExtraPersonRate: 300, OverstayRate: 250},
		},
		products: map[int64]domain.Product{7: {ID: 7, Name: "Water", Price: 25}},
		users:    map[string]domain.User{},
		bookings: map[int64]domain.Booking{},
	}
}

func (f *fakeRepo) liveIn(roomID int64) bool {
	for _, b := range f.bookings {
		if b.RoomID == roomID && b.Live() {
			return true
		}
	}
	return false
}

func (f *fakeRepo) ListRooms(ctx context.Context, hotelID int64) ([]domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Room
	for _, r := range f.rooms {
		if r.HotelID != hotelID {
			continue
		}
		for _, b := range f.bookings {
			if b.RoomID == r.ID && b.Live() {
				r.Bookings = append(r.Bookings, b)
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) ListRoomTypes(ctx context.Context, hotelID int64) ([]domain.RoomType, error) {
	return f.types, nil
}

func (f *fakeRepo) ListRoomsByType(ctx context.Context, roomTypeID int64) ([]domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Room
	for _, r := range f.rooms {
		if r.RoomTypeID == roomTypeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListRoomRates(ctx context.Context, roomTypeID int64) ([]domain.RoomRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateHits++
	var out []domain.RoomRate
	for _, r := range f.rates {
		if r.RoomTypeID == roomTypeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetRoomRate(ctx context.Context, id int64) (domain.RoomRate, error) {
	r, ok := f.rates[id]
	if !ok {
		return domain.RoomRate{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, ok := f.users[username]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liveIn(b.RoomID) {
		return domain.Booking{}, &domain.ConflictError{RoomID: b.RoomID, Reason: "room already occupied"}
	}
	f.nextID++
	b.ID = f.nextID
	f.bookings[b.ID] = b
	return b, nil
}

func (f *fakeRepo) FinalizeBooking(ctx context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.bookings[b.ID]
	if !ok || !cur.Live() {
		return domain.ErrFinalized
	}
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeRepo) TransferBooking(ctx context.Context, from domain.Booking, to domain.Booking) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liveIn(to.RoomID) {
		return domain.Booking{}, &domain.ConflictError{RoomID: to.RoomID, Reason: "room already occupied"}
	}
	cur, ok := f.bookings[from.ID]
	if !ok || !cur.Live() {
		return domain.Booking{}, domain.ErrFinalized
	}
	f.bookings[from.ID] = from

	f.nextID++
	orig := from.ID
	to.ID = f.nextID
	to.OriginalBookingID = &orig
	for _, a := range cur.Addons {
		a.BookingID = to.ID
		to.Addons = append(to.Addons, a)
	}
	for _, o := range cur.Orders {
		o.BookingID = to.ID
		to.Orders = append(to.Orders, o)
	}
	charges := append([]domain.BookingCharge{}, cur.Charges...)
	to.Charges = append(charges, to.Charges...)
	f.bookings[to.ID] = to
	return to, nil
}

func (f *fakeRepo) AddAddon(ctx context.Context, a domain.BookingAddon) (domain.BookingAddon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	b := f.bookings[a.BookingID]
	b.Addons = append(b.Addons, a)
	f.bookings[a.BookingID] = b
	return a, nil
}

func (f *fakeRepo) GetAddon(ctx context.Context, id int64) (domain.BookingAddon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		for _, a := range b.Addons {
			if a.ID == id {
				return a, nil
			}
		}
	}
	return domain.BookingAddon{}, domain.ErrNotFound
}

func (f *fakeRepo) DeleteAddon(ctx context.Context, id int64) error {
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

func (f *fakeRepo) AddOrderItem(ctx context.Context, o domain.OrderItem) (domain.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o.ID = f.nextID
	b := f.bookings[o.BookingID]
	b.Orders = append(b.Orders, o)
	f.bookings[o.BookingID] = b
	return o, nil
}

func (f *fakeRepo) GetOrderItem(ctx context.Context, id int64) (domain.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		for _, o := range b.Orders {
			if o.ID == id {
				return o, nil
			}
		}
	}
	return domain.OrderItem{}, domain.ErrNotFound
}

func (f *fakeRepo) DeleteOrderItem(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for bid, b := range f.bookings {
		for i, o := range b.Orders {
			if o.ID == id {
				b.Orders = append(b.Orders[:i:i], b.Orders[i+1:]...)
				f.bookings[bid] = b
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

func (f *fakeRepo) AddCharge(ctx context.Context, c domain.BookingCharge) (domain.BookingCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	b := f.bookings[c.BookingID]
	b.Charges = append(b.Charges, c)
	f.bookings[c.BookingID] = b
	return c, nil
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.RoomEvent
}

func (p *fakePublisher) Publish(ctx context.Context, hotelID int64, ev domain.RoomEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) types() []domain.RoomEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.RoomEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
