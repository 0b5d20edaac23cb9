package domain

import "time"

type BookingStatus string

const (
	StatusCheckIn     BookingStatus = "check_in"
	StatusCheckedOut  BookingStatus = "checked_out"
	StatusCancelled   BookingStatus = "cancelled"
	StatusTransferred BookingStatus = "transferred"
)

// Terminal reports whether a booking in this status can no longer change.
func (s BookingStatus) Terminal() bool {
	switch s {
	case StatusCheckedOut, StatusCancelled, StatusTransferred:
		return true
	}
	return false
}

// Payment sentinels written on cancellation.
const (
	PaymentVoid = "void"
)

type Booking struct {
	ID                int64           `json:"id"`
	RoomID            int64           `json:"room_id"`
	RoomRateID        int64           `json:"room_rate_id"`
	OriginalBookingID *int64          `json:"original_booking_id,omitempty"`
	StartDatetime     time.Time       `json:"start_datetime"`
	EndDatetime       time.Time       `json:"end_datetime"`
	ExtraPerson       int             `json:"extra_person"`
	TotalPrice        float64         `json:"total_price"`
	Status            BookingStatus   `json:"status"`
	PaymentStatus     string          `json:"payment_status,omitempty"`
	PaymentType       string          `json:"payment_type,omitempty"`
	Note              string          `json:"note,omitempty"`
	Addons            []BookingAddon  `json:"booking_addons"`
	Charges           []BookingCharge `json:"booking_charges"`
	Orders            []OrderItem     `json:"orders"`
}

// Live reports whether the booking still occupies its room.
func (b Booking) Live() bool { return b.Status == StatusCheckIn }

type RoomRate struct {
	ID              int64   `json:"id"`
	RoomTypeID      int64   `json:"room_type_id"`
	Name            string  `json:"name"`
	RateType        string  `json:"rate_type"`
	DurationMinutes int     `json:"duration_minutes"`
	BasePrice       float64 `json:"base_price"`
	ExtraPersonRate float64 `json:"extra_person_rate"`
	OverstayRate    float64 `json:"overstay_rate"`
}

// DurationBased rates fix the end of a stay relative to its start.
func (r RoomRate) DurationBased() bool { return r.DurationMinutes > 0 }

// BookingAddon and OrderItem share the same line-item shape.
type BookingAddon struct {
	ID         int64   `json:"id,omitempty"`
	BookingID  int64   `json:"booking_id" validate:"required"`
	ProductID  int64   `json:"product_id" validate:"required"`
	Quantity   int     `json:"quantity" validate:"gt=0"`
	Price      float64 `json:"price" validate:"gte=0"`
	TotalPrice float64 `json:"total_price"`
}

type OrderItem struct {
	ID         int64   `json:"id,omitempty"`
	BookingID  int64   `json:"booking_id" validate:"required"`
	ProductID  int64   `json:"product_id" validate:"required"`
	Quantity   int     `json:"quantity" validate:"gt=0"`
	Price      float64 `json:"price" validate:"gte=0"`
	TotalPrice float64 `json:"total_price"`
}

// BookingCharge is an ad hoc charge carried over during a room transfer.
type BookingCharge struct {
	ID        int64   `json:"id,omitempty"`
	BookingID int64   `json:"booking_id,omitempty"`
	Name      string  `json:"name" validate:"required,max=100"`
	Price     float64 `json:"price" validate:"gte=0"`
	RoomID    int64   `json:"room_id"`
}

type Room struct {
	ID                int64     `json:"id"`
	HotelID           int64     `json:"hotel_id"`
	RoomTypeID        int64     `json:"room_type_id"`
	Name              string    `json:"name"`
	OperationalStatus string    `json:"operational_status"`
	Bookings          []Booking `json:"bookings"`
}

// Occupied is derived from the embedded live bookings.
func (r Room) Occupied() bool {
	for _, b := range r.Bookings {
		if b.Live() {
			return true
		}
	}
	return false
}

type RoomType struct {
	ID      int64  `json:"id"`
	HotelID int64  `json:"hotel_id"`
	Name    string `json:"name"`
}

type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type User struct {
	ID           int64
	HotelID      int64
	Username     string
	PasswordHash string
}
