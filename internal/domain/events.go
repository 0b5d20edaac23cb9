package domain

type RoomEventType string

const (
	EventCheckIn  RoomEventType = "check_in"
	EventCheckOut RoomEventType = "check_out"
)

// RoomEvent is a push notification about one room's occupancy.
// Booking is set for check_in and nil for check_out.
type RoomEvent struct {
	Type    RoomEventType
	RoomID  int64
	Booking *Booking
}

func CheckInEvent(b Booking) RoomEvent {
	return RoomEvent{Type: EventCheckIn, RoomID: b.RoomID, Booking: &b}
}

func CheckOutEvent(roomID int64) RoomEvent {
	return RoomEvent{Type: EventCheckOut, RoomID: roomID}
}
