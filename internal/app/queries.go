package app

import (
	"context"
	"fmt"
	"time"

	"frontdesk/internal/domain"
)

// QueryService serves the read side. Reference data (room types, rates) goes
// through the cache; anything carrying occupancy is always read fresh.
type QueryService struct {
	repo     domain.BookingRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.BookingRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

// Dashboard lists every room of the hotel with its live booking embedded.
func (s *QueryService) Dashboard(ctx context.Context, hotelID int64) ([]domain.Room, error) {
	return s.repo.ListRooms(ctx, hotelID)
}

func (s *QueryService) RoomTypes(ctx context.Context, hotelID int64) ([]domain.RoomType, error) {
	key := fmt.Sprintf("room_types:%d", hotelID)
	var out []domain.RoomType
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	ts, err := s.repo.ListRoomTypes(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, ts, int(s.cacheTTL.Seconds()))
	return ts, nil
}

func (s *QueryService) RoomsByType(ctx context.Context, hotelID, roomTypeID int64) ([]domain.Room, error) {
	rooms, err := s.repo.ListRoomsByType(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}
	out := rooms[:0]
	for _, r := range rooms {
		if r.HotelID == hotelID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *QueryService) RoomRates(ctx context.Context, roomTypeID int64) ([]domain.RoomRate, error) {
	key := fmt.Sprintf("room_rates:%d", roomTypeID)
	var out []domain.RoomRate
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	rs, err := s.repo.ListRoomRates(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}

	// copy so callers mutating the result cannot alter what was cached
	cp := make([]domain.RoomRate, len(rs))
	copy(cp, rs)
	_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	return cp, nil
}
