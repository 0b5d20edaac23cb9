package console

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"frontdesk/internal/domain"
)

type rateSource interface {
	RoomRates(ctx context.Context, roomTypeID int64) ([]domain.RoomRate, error)
}

// RateCatalog memoizes room rates per room type for the life of the session.
type RateCatalog struct {
	api     rateSource
	workers int64
	sf      singleflight.Group

	mu   sync.RWMutex
	memo map[int64][]domain.RoomRate
}

func NewRateCatalog(api rateSource, workers int) *RateCatalog {
	if workers <= 0 {
		workers = 1
	}
	return &RateCatalog{api: api, workers: int64(workers), memo: make(map[int64][]domain.RoomRate)}
}

func (c *RateCatalog) Rates(ctx context.Context, roomTypeID int64) ([]domain.RoomRate, error) {
	c.mu.RLock()
	rs, ok := c.memo[roomTypeID]
	c.mu.RUnlock()
	if ok {
		return rs, nil
	}

	v, err, _ := c.sf.Do(strconv.FormatInt(roomTypeID, 10), func() (any, error) {
		rs, err := c.api.RoomRates(ctx, roomTypeID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.memo[roomTypeID] = rs
		c.mu.Unlock()
		return rs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.RoomRate), nil
}

// Rate resolves one rate of a room type; unknown ids are a field error.
func (c *RateCatalog) Rate(ctx context.Context, roomTypeID, rateID int64) (domain.RoomRate, error) {
	if rateID == 0 {
		return domain.RoomRate{}, domain.NewValidationError("room_rate_id", "This field is required")
	}
	rs, err := c.Rates(ctx, roomTypeID)
	if err != nil {
		return domain.RoomRate{}, err
	}
	for _, r := range rs {
		if r.ID == rateID {
			return r, nil
		}
	}
	return domain.RoomRate{}, domain.NewValidationError("room_rate_id", "Unknown room rate")
}

// Prefetch warms the memo for every room type with bounded concurrency.
// Failures are logged; the rate is fetched again on first use.
func (c *RateCatalog) Prefetch(ctx context.Context, roomTypeIDs []int64) {
	sem := semaphore.NewWeighted(c.workers)
	var wg sync.WaitGroup

	for _, id := range roomTypeIDs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(roomTypeID int64) {
			defer wg.Done()
			defer sem.Release(1)
			if _, err := c.Rates(ctx, roomTypeID); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Int64("room_type_id", roomTypeID).Msg("rate prefetch failed")
			}
		}(id)
	}
	wg.Wait()
}

func (c *RateCatalog) Invalidate(roomTypeID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.memo, roomTypeID)
}
