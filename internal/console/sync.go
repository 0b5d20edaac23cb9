package console

import (
	"context"
	crand "crypto/rand"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"frontdesk/internal/domain"
)

// EventStream is one live push connection.
type EventStream interface {
	Next() (domain.RoomEvent, error)
	Close() error
}

// Connector opens a push connection for the current session.
type Connector func(ctx context.Context) (EventStream, error)

type dashboardSource interface {
	Dashboard(ctx context.Context) ([]domain.Room, error)
}

// Synchronizer keeps the console's room map: a REST snapshot overlaid with push
// events, last write wins per room in arrival order.
type Synchronizer struct {
	api     dashboardSource
	connect Connector

	mu    sync.RWMutex
	rooms map[int64]domain.Room

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewSynchronizer(api dashboardSource, connect Connector) *Synchronizer {
	return &Synchronizer{
		api:        api,
		connect:    connect,
		rooms:      make(map[int64]domain.Room),
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// WithBackoff bounds the reconnect delay (tests).
func (s *Synchronizer) WithBackoff(lo, hi time.Duration) *Synchronizer {
	s.minBackoff, s.maxBackoff = lo, hi
	return s
}

// Refresh replaces the whole map with a fresh dashboard snapshot.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	rooms, err := s.api.Dashboard(ctx)
	if err != nil {
		return err
	}
	next := make(map[int64]domain.Room, len(rooms))
	for _, r := range rooms {
		r.Bookings = liveOnly(r.Bookings)
		next[r.ID] = r
	}
	s.mu.Lock()
	s.rooms = next
	s.mu.Unlock()
	log.Debug().Int("rooms", len(next)).Msg("room snapshot loaded")
	return nil
}

// Apply merges one event. Local lifecycle results go through here too.
func (s *Synchronizer) Apply(ev domain.RoomEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, known := s.rooms[ev.RoomID]
	switch ev.Type {
	case domain.EventCheckIn:
		if ev.Booking == nil {
			return
		}
		if !known {
			r = domain.Room{ID: ev.RoomID}
		}
		r.Bookings = []domain.Booking{*ev.Booking}
	case domain.EventCheckOut:
		if !known {
			return
		}
		r.Bookings = nil
	default:
		return
	}
	s.rooms[ev.RoomID] = r
}

// Snapshot returns every room ordered by id.
func (s *Synchronizer) Snapshot() []domain.Room {
	s.mu.RLock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		r.Bookings = slices.Clone(r.Bookings)
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Synchronizer) Room(id int64) (domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if ok {
		r.Bookings = slices.Clone(r.Bookings)
	}
	return r, ok
}

func (s *Synchronizer) Occupied(id int64) bool {
	r, ok := s.Room(id)
	return ok && r.Occupied()
}

// Run keeps one push connection alive until ctx ends, re-fetching the snapshot
// on every (re)connect. It returns domain.ErrAuth when the session is lost.
func (s *Synchronizer) Run(ctx context.Context) error {
	attempt := 0
	for {
		stream, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, domain.ErrAuth) {
				return err
			}
			wait := s.backoff(attempt)
			attempt++
			log.Warn().Err(err).Dur("retry_in", wait).Msg("push connect failed")
			if !sleepCtx(ctx, wait) {
				return nil
			}
			continue
		}
		attempt = 0
		log.Info().Msg("push channel connected")

		if err := s.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("snapshot refresh after connect failed")
		}
		s.consume(ctx, stream)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Msg("push channel lost, reconnecting")
	}
}

func (s *Synchronizer) consume(ctx context.Context, stream EventStream) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = stream.Close()
		case <-done:
		}
	}()
	defer stream.Close()

	for {
		ev, err := stream.Next()
		if err != nil {
			return
		}
		s.Apply(ev)
	}
}

// backoff doubles from minBackoff up to maxBackoff with up to +50% jitter.
func (s *Synchronizer) backoff(i int) time.Duration {
	base := s.minBackoff
	for n := 0; n < i && base < s.maxBackoff; n++ {
		base *= 2
	}
	if base > s.maxBackoff {
		base = s.maxBackoff
	}
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func liveOnly(bs []domain.Booking) []domain.Booking {
	var out []domain.Booking
	for _, b := range bs {
		if b.Live() {
			out = append(out, b)
		}
	}
	return out
}
