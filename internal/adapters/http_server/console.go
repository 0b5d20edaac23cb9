package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"frontdesk/internal/console"
	"frontdesk/internal/domain"
)

// ConsoleHandlers is the desk UI's local JSON surface over the console controller.
type ConsoleHandlers struct{ C *console.Controller }

func (s *Server) MountConsole(h *ConsoleHandlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		// Submissions detach from the request, so this only bounds the wait.
		r.Use(Timeout(45 * time.Second))

		r.Get("/rooms", h.rooms)
		r.Get("/room-rates/room-type/{id}", h.rates)
		r.Post("/rooms/{id}/check-in", h.checkIn)

		r.Route("/bookings/{id}", func(r chi.Router) {
			r.Get("/checkout", h.checkout)
			r.Delete("/checkout", h.closeCheckout)
			r.Post("/check-out", h.checkOut)
			r.Post("/cancel", h.cancel)
			r.Post("/transfer", h.transfer)

			r.Post("/addons", h.addAddon)
			r.Delete("/addons/{itemID}", h.deleteAddon)
			r.Post("/orders", h.addOrderItem)
			r.Delete("/orders/{itemID}", h.deleteOrderItem)
			r.Post("/charges", h.addCharge)
		})
	})
}

func (h *ConsoleHandlers) rooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.C.Rooms())
}

func (h *ConsoleHandlers) rates(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	out, err := h.C.Rates(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *ConsoleHandlers) checkIn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req console.CheckInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.RoomID = id
	b, err := h.C.CheckIn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// checkout opens (or resumes) the checkout dialog and returns its current view.
func (h *ConsoleHandlers) checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	s, err := h.C.Checkout(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *ConsoleHandlers) closeCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	h.C.CloseCheckout(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConsoleHandlers) checkOut(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req console.CheckOutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.C.CheckOut(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *ConsoleHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req console.CancelRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	b, err := h.C.Cancel(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *ConsoleHandlers) transfer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req console.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.C.Transfer(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *ConsoleHandlers) addAddon(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var a domain.BookingAddon
	if !decodeJSON(w, r, &a) {
		return
	}
	a.BookingID = id
	out, err := h.C.AddAddon(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *ConsoleHandlers) deleteAddon(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(w, r, "itemID")
	if !ok {
		return
	}
	if err := h.C.DeleteAddon(r.Context(), id, itemID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConsoleHandlers) addOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var o domain.OrderItem
	if !decodeJSON(w, r, &o) {
		return
	}
	o.BookingID = id
	out, err := h.C.AddOrderItem(r.Context(), o)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *ConsoleHandlers) deleteOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(w, r, "itemID")
	if !ok {
		return
	}
	if err := h.C.DeleteOrderItem(r.Context(), id, itemID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConsoleHandlers) addCharge(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var c domain.BookingCharge
	if !decodeJSON(w, r, &c) {
		return
	}
	c.BookingID = id
	out, err := h.C.AddCharge(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}
