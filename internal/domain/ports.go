package domain

import (
	"context"
	"time"
)

// BookingRepository is the API's authoritative store.
type BookingRepository interface {
	// Read paths
	ListRooms(ctx context.Context, hotelID int64) ([]Room, error)
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRoomTypes(ctx context.Context, hotelID int64) ([]RoomType, error)
	ListRoomsByType(ctx context.Context, roomTypeID int64) ([]Room, error)
	ListRoomRates(ctx context.Context, roomTypeID int64) ([]RoomRate, error)
	GetRoomRate(ctx context.Context, id int64) (RoomRate, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetAddon(ctx context.Context, id int64) (BookingAddon, error)
	GetOrderItem(ctx context.Context, id int64) (OrderItem, error)

	// Write paths. CreateBooking and TransferBooking fail with *ConflictError when the
	// target room already holds a live booking; FinalizeBooking and TransferBooking fail
	// with ErrFinalized when the booking is no longer live.
	CreateBooking(ctx context.Context, b Booking) (Booking, error)
	FinalizeBooking(ctx context.Context, b Booking) error
	TransferBooking(ctx context.Context, from Booking, to Booking) (Booking, error)
	AddAddon(ctx context.Context, a BookingAddon) (BookingAddon, error)
	DeleteAddon(ctx context.Context, id int64) error
	AddOrderItem(ctx context.Context, o OrderItem) (OrderItem, error)
	DeleteOrderItem(ctx context.Context, id int64) error
	AddCharge(ctx context.Context, c BookingCharge) (BookingCharge, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// EventPublisher fans room events out to every console joined to the hotel's channel.
type EventPublisher interface {
	Publish(ctx context.Context, hotelID int64, ev RoomEvent) error
}

// HotelAPI is the console's view of the backend REST surface.
type HotelAPI interface {
	Login(ctx context.Context, username, password string) (Tokens, error)
	Dashboard(ctx context.Context) ([]Room, error)
	RoomTypes(ctx context.Context) ([]RoomType, error)
	RoomsByType(ctx context.Context, roomTypeID int64) ([]Room, error)
	RoomRates(ctx context.Context, roomTypeID int64) ([]RoomRate, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	CreateBooking(ctx context.Context, in CheckIn) (Booking, error)
	UpdateBooking(ctx context.Context, id int64, u BookingUpdate) (Booking, error)
	AddAddon(ctx context.Context, a BookingAddon) (BookingAddon, error)
	DeleteAddon(ctx context.Context, id int64) error
	AddOrderItem(ctx context.Context, o OrderItem) (OrderItem, error)
	DeleteOrderItem(ctx context.Context, id int64) error
	AddCharge(ctx context.Context, c BookingCharge) (BookingCharge, error)
}

// TokenStore persists the console session between restarts.
type TokenStore interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	HotelID      int64  `json:"hotel_id"`
}

// CheckIn is the POST /bookings body.
type CheckIn struct {
	RoomID        int64     `json:"room_id" validate:"required"`
	RoomRateID    int64     `json:"room_rate_id" validate:"required"`
	StartDatetime time.Time `json:"start_datetime"`
	EndDatetime   time.Time `json:"end_datetime"`
	ExtraPerson   int       `json:"extra_person" validate:"gte=0"`
	TotalPrice    float64   `json:"total_price" validate:"gt=0"`
	Note          string    `json:"note,omitempty" validate:"max=500"`
}

// BookingUpdate is the PUT /bookings/{id} body; Status selects the transition.
// RoomID, EndDatetime and Charges are only read for transfers.
type BookingUpdate struct {
	Status        BookingStatus   `json:"status" validate:"required,oneof=checked_out cancelled transferred"`
	RoomRateID    int64           `json:"room_rate_id,omitempty" validate:"required_unless=Status cancelled"`
	ExtraPerson   int             `json:"extra_person" validate:"gte=0"`
	TotalPrice    float64         `json:"total_price" validate:"gte=0"`
	PaymentStatus string          `json:"payment_status,omitempty" validate:"required_if=Status checked_out"`
	PaymentType   string          `json:"payment_type,omitempty" validate:"required_if=Status checked_out"`
	Note          string          `json:"note,omitempty" validate:"max=500"`
	RoomID        int64           `json:"room_id,omitempty" validate:"required_if=Status transferred"`
	EndDatetime   *time.Time      `json:"end_datetime,omitempty"`
	Charges       []BookingCharge `json:"booking_charges,omitempty" validate:"dive"`
}
