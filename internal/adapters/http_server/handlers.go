// internal/adapters/http_server/handlers.go
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"frontdesk/internal/adapters/auth"
	"frontdesk/internal/adapters/push"
	"frontdesk/internal/app"
	"frontdesk/internal/domain"
)

// Handlers is the hotel API surface consumed by the front-desk consoles.
type Handlers struct {
	Q      *app.QueryService
	B      *app.BookingService
	A      *app.AuthService
	Tokens *auth.Service
	Hub    *push.Hub
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Consoles are not browsers; the access token in the query is the gate.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/ws", h.subscribe)

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(15 * time.Second))

		r.Post("/auth/login", h.login)
		r.Post("/auth/refresh", h.refresh)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.Tokens))

			r.Get("/dashboard", h.dashboard)
			r.Get("/room-types", h.roomTypes)
			r.Get("/rooms/room-type/{id}", h.roomsByType)
			r.Get("/room-rates/room-type/{id}", h.roomRates)

			r.Post("/bookings", h.createBooking)
			r.Get("/bookings/{id}", h.getBooking)
			r.Put("/bookings/{id}", h.updateBooking)

			r.Post("/booking-addons", h.addAddon)
			r.Delete("/booking-addons/{id}", h.deleteAddon)
			r.Post("/order-items", h.addOrderItem)
			r.Delete("/order-items/{id}", h.deleteOrderItem)
			r.Post("/booking-charges", h.addCharge)
		})
	})
}

// ---- auth ----

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.A.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.A.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// subscribe upgrades to the push channel of the token's hotel.
func (h *Handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	c, err := h.Tokens.Validate(r.URL.Query().Get("token"), auth.KindAccess)
	if err != nil {
		writeError(w, domain.ErrAuth)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.Hub.Serve(conn, c.HotelID)
}

// ---- reads ----

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Q.Dashboard(r.Context(), hotelFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *Handlers) roomTypes(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.RoomTypes(r.Context(), hotelFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) roomsByType(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	out, err := h.Q.RoomsByType(r.Context(), hotelFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) roomRates(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	out, err := h.Q.RoomRates(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	b, err := h.B.GetBooking(r.Context(), hotelFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ---- transitions ----

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var in domain.CheckIn
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.B.CheckIn(r.Context(), hotelFrom(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) updateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var u domain.BookingUpdate
	if !decodeJSON(w, r, &u) {
		return
	}
	b, err := h.B.Update(r.Context(), hotelFrom(r.Context()), id, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ---- line items ----

func (h *Handlers) addAddon(w http.ResponseWriter, r *http.Request) {
	var a domain.BookingAddon
	if !decodeJSON(w, r, &a) {
		return
	}
	out, err := h.B.AddAddon(r.Context(), hotelFrom(r.Context()), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) deleteAddon(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.B.DeleteAddon(r.Context(), hotelFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) addOrderItem(w http.ResponseWriter, r *http.Request) {
	var o domain.OrderItem
	if !decodeJSON(w, r, &o) {
		return
	}
	out, err := h.B.AddOrderItem(r.Context(), hotelFrom(r.Context()), o)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) deleteOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.B.DeleteOrderItem(r.Context(), hotelFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) addCharge(w http.ResponseWriter, r *http.Request) {
	var c domain.BookingCharge
	if !decodeJSON(w, r, &c) {
		return
	}
	out, err := h.B.AddCharge(r.Context(), hotelFrom(r.Context()), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}
