// Package push carries room occupancy events over websockets: Hub on the API side,
// Subscriber on the console side.
package push

import (
	"encoding/json"
	"fmt"

	"frontdesk/internal/domain"
)

// Frame is the wire envelope: {"event":"check_in","data":{...}}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type checkOutData struct {
	RoomID int64 `json:"room_id"`
}

// Group names the logical channel of a hotel.
func Group(hotelID int64) string { return fmt.Sprintf("hotel_%d", hotelID) }

func Encode(ev domain.RoomEvent) ([]byte, error) {
	var data any
	switch ev.Type {
	case domain.EventCheckIn:
		if ev.Booking == nil {
			return nil, fmt.Errorf("push: check_in event for room %d has no booking", ev.RoomID)
		}
		b := *ev.Booking
		b.RoomID = ev.RoomID
		data = b
	case domain.EventCheckOut:
		data = checkOutData{RoomID: ev.RoomID}
	default:
		return nil, fmt.Errorf("push: unknown event %q", ev.Type)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: string(ev.Type), Data: raw})
}

func Decode(msg []byte) (domain.RoomEvent, error) {
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return domain.RoomEvent{}, fmt.Errorf("push: bad frame: %w", err)
	}
	switch domain.RoomEventType(f.Event) {
	case domain.EventCheckIn:
		var b domain.Booking
		if err := json.Unmarshal(f.Data, &b); err != nil {
			return domain.RoomEvent{}, fmt.Errorf("push: bad check_in payload: %w", err)
		}
		if b.RoomID == 0 {
			return domain.RoomEvent{}, fmt.Errorf("push: check_in without room_id")
		}
		return domain.CheckInEvent(b), nil
	case domain.EventCheckOut:
		var d checkOutData
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return domain.RoomEvent{}, fmt.Errorf("push: bad check_out payload: %w", err)
		}
		if d.RoomID == 0 {
			return domain.RoomEvent{}, fmt.Errorf("push: check_out without room_id")
		}
		return domain.CheckOutEvent(d.RoomID), nil
	default:
		return domain.RoomEvent{}, fmt.Errorf("push: unknown event %q", f.Event)
	}
}
