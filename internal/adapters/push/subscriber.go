package push

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"frontdesk/internal/adapters/observability"
	"frontdesk/internal/domain"
)

// TokenSource hands out the current access token and renews a stale one.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context, stale string) error
}

// Subscriber dials the API's push endpoint on behalf of a console session.
type Subscriber struct {
	url    string
	tokens TokenSource
	dialer *websocket.Dialer
}

// NewSubscriber derives the ws(s)://.../ws endpoint from the API base URL.
func NewSubscriber(apiBase string, tokens TokenSource) (*Subscriber, error) {
	u, err := url.Parse(strings.TrimRight(apiBase, "/") + "/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("push: unsupported scheme %q", u.Scheme)
	}
	return &Subscriber{
		url:    u.String(),
		tokens: tokens,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

// Connect opens one stream. A 401 handshake triggers a single refresh and retry.
func (s *Subscriber) Connect(ctx context.Context) (*Stream, error) {
	tok, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	conn, status, err := s.dial(ctx, tok)
	if status == http.StatusUnauthorized {
		if err := s.tokens.Refresh(ctx, tok); err != nil {
			return nil, err
		}
		if tok, err = s.tokens.AccessToken(ctx); err != nil {
			return nil, err
		}
		conn, status, err = s.dial(ctx, tok)
		if status == http.StatusUnauthorized {
			return nil, domain.ErrAuth
		}
	}
	if err != nil {
		return nil, &domain.NetworkError{Op: "push connect", Status: status, Err: err}
	}
	return newStream(conn), nil
}

func (s *Subscriber) dial(ctx context.Context, token string) (*websocket.Conn, int, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url+"?token="+url.QueryEscape(token), nil)
	status := 0
	if resp != nil {
		status = resp.StatusCode
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}
	return conn, status, err
}

// Stream yields decoded room events from one websocket connection.
type Stream struct {
	conn *websocket.Conn
}

func newStream(conn *websocket.Conn) *Stream {
	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})
	return &Stream{conn: conn}
}

// Next blocks for the next event. Malformed frames are logged and skipped.
func (st *Stream) Next() (domain.RoomEvent, error) {
	for {
		_, msg, err := st.conn.ReadMessage()
		if err != nil {
			return domain.RoomEvent{}, err
		}
		_ = st.conn.SetReadDeadline(time.Now().Add(pongWait))
		ev, err := Decode(msg)
		if err != nil {
			log.Warn().Err(err).Msg("skipping push frame")
			continue
		}
		observability.ObservePush("in", string(ev.Type))
		return ev, nil
	}
}

func (st *Stream) Close() error { return st.conn.Close() }
