// internal/adapters/hotelapi/client.go
package hotelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"frontdesk/internal/adapters/observability"
	"frontdesk/internal/domain"
)

// Client talks to the hotel API on behalf of one console session.
// Calls are throttled client-side and never retried, except once after a token refresh.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
	sess *Session
}

func New(base string, rps int, store domain.TokenStore) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("API base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	c := &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
	c.sess = newSession(c, store)
	return c, nil
}

// Session exposes the token lifecycle (login, refresh, logout) of this client.
func (c *Client) Session() *Session { return c.sess }

// ---- Public API ----

func (c *Client) Login(ctx context.Context, username, password string) (domain.Tokens, error) {
	return c.sess.Login(ctx, username, password)
}

func (c *Client) Dashboard(ctx context.Context) ([]domain.Room, error) {
	var out []domain.Room
	return out, c.call(ctx, "dashboard", http.MethodGet, "/dashboard", nil, &out)
}

func (c *Client) RoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	var out []domain.RoomType
	return out, c.call(ctx, "room_types", http.MethodGet, "/room-types", nil, &out)
}

func (c *Client) RoomsByType(ctx context.Context, roomTypeID int64) ([]domain.Room, error) {
	var out []domain.Room
	return out, c.call(ctx, "rooms_by_type", http.MethodGet, fmt.Sprintf("/rooms/room-type/%d", roomTypeID), nil, &out)
}

func (c *Client) RoomRates(ctx context.Context, roomTypeID int64) ([]domain.RoomRate, error) {
	var out []domain.RoomRate
	return out, c.call(ctx, "room_rates", http.MethodGet, fmt.Sprintf("/room-rates/room-type/%d", roomTypeID), nil, &out)
}

func (c *Client) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	var out domain.Booking
	return out, c.call(ctx, "booking_get", http.MethodGet, fmt.Sprintf("/bookings/%d", id), nil, &out)
}

func (c *Client) CreateBooking(ctx context.Context, in domain.CheckIn) (domain.Booking, error) {
	var out domain.Booking
	return out, c.call(ctx, "booking_create", http.MethodPost, "/bookings", in, &out)
}

func (c *Client) UpdateBooking(ctx context.Context, id int64, u domain.BookingUpdate) (domain.Booking, error) {
	var out domain.Booking
	return out, c.call(ctx, "booking_update", http.MethodPut, fmt.Sprintf("/bookings/%d", id), u, &out)
}

func (c *Client) AddAddon(ctx context.Context, a domain.BookingAddon) (domain.BookingAddon, error) {
	var out domain.BookingAddon
	return out, c.call(ctx, "addon_create", http.MethodPost, "/booking-addons", a, &out)
}

func (c *Client) DeleteAddon(ctx context.Context, id int64) error {
	return c.call(ctx, "addon_delete", http.MethodDelete, fmt.Sprintf("/booking-addons/%d", id), nil, nil)
}

func (c *Client) AddOrderItem(ctx context.Context, o domain.OrderItem) (domain.OrderItem, error) {
	var out domain.OrderItem
	return out, c.call(ctx, "order_item_create", http.MethodPost, "/order-items", o, &out)
}

func (c *Client) DeleteOrderItem(ctx context.Context, id int64) error {
	return c.call(ctx, "order_item_delete", http.MethodDelete, fmt.Sprintf("/order-items/%d", id), nil, nil)
}

func (c *Client) AddCharge(ctx context.Context, ch domain.BookingCharge) (domain.BookingCharge, error) {
	var out domain.BookingCharge
	return out, c.call(ctx, "charge_create", http.MethodPost, "/booking-charges", ch, &out)
}

// ---- Internals ----

// problem is the API's problem+json body; Errors is set on 422 and RoomID on 409.
type problem struct {
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail"`
	RoomID int64             `json:"room_id"`
	Errors map[string]string `json:"errors"`
}

// call sends an authenticated request. A 401 refreshes the session (shared with any
// concurrent callers) and replays the request exactly once.
func (c *Client) call(ctx context.Context, endpoint, method, path string, in, out any) error {
	tok, err := c.sess.AccessToken(ctx)
	if err != nil {
		return err
	}
	err = c.send(ctx, endpoint, method, path, tok, in, out)
	if !errors.Is(err, errUnauthorized) {
		return err
	}
	if err := c.sess.Refresh(ctx, tok); err != nil {
		return err
	}
	if tok, err = c.sess.AccessToken(ctx); err != nil {
		return err
	}
	err = c.send(ctx, endpoint, method, path, tok, in, out)
	if errors.Is(err, errUnauthorized) {
		return domain.ErrAuth
	}
	return err
}

var errUnauthorized = errors.New("hotelapi: unauthorized")

// send performs one request with client-side rate limiting and maps the response
// onto the domain error taxonomy.
func (c *Client) send(ctx context.Context, endpoint, method, path, token string, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return &domain.NetworkError{Op: endpoint, Err: err}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "frontdesk-console/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(endpoint, 0, time.Since(start))
		return &domain.NetworkError{Op: endpoint, Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal(endpoint, resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &domain.NetworkError{Op: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
		}
		return nil

	case http.StatusNoContent:
		return nil

	case http.StatusUnauthorized:
		return errUnauthorized

	case http.StatusNotFound:
		return domain.ErrNotFound

	case http.StatusConflict:
		p := readProblem(resp.Body)
		return &domain.ConflictError{RoomID: p.RoomID, Reason: firstNonEmpty(p.Detail, p.Title, "conflict")}

	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		p := readProblem(resp.Body)
		if len(p.Errors) > 0 {
			return &domain.ValidationError{Fields: p.Errors}
		}
		return &domain.NetworkError{Op: endpoint, Status: resp.StatusCode, Err: errors.New(firstNonEmpty(p.Detail, p.Title, "bad request"))}

	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &domain.NetworkError{Op: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("bad status: %s", strings.TrimSpace(string(b)))}
	}
}

func readProblem(r io.Reader) problem {
	var p problem
	_ = json.NewDecoder(io.LimitReader(r, 64*1024)).Decode(&p)
	return p
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
