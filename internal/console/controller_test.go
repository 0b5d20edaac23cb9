package console_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"frontdesk/internal/billing"
	"frontdesk/internal/console"
	"frontdesk/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newController(t *testing.T, api *fakeAPI) (*console.Controller, *console.Synchronizer, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: t0}
	sync := console.NewSynchronizer(api, nil)
	if err := sync.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	ctl := console.NewController(api, sync, console.NewRateCatalog(api, 2), billing.NewGraceGate(15)).
		WithClock(clk.Now, 10*time.Millisecond)
	t.Cleanup(ctl.Close)
	return ctl, sync, clk
}

func ptr[T any](v T) *T { return &v }

func TestCheckIn_DefaultsTotalAndUpdatesView(t *testing.T) {
	api := newFakeAPI()
	ctl, sync, _ := newController(t, api)

	b, err := ctl.CheckIn(context.Background(), console.CheckInRequest{RoomID: 101, RoomRateID: 1, ExtraPerson: 1})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	sent := api.creates[0]
	if sent.TotalPrice != 650 {
		t.Fatalf("expected derived total 650, got %v", sent.TotalPrice)
	}
	if !sent.StartDatetime.Equal(t0) || !sent.EndDatetime.Equal(t0.Add(3*time.Hour)) {
		t.Fatalf("duration rate must fix the end: %s .. %s", sent.StartDatetime, sent.EndDatetime)
	}
	room, _ := sync.Room(101)
	if !room.Occupied() || room.Bookings[0].ID != b.ID {
		t.Fatalf("room view not updated: %+v", room)
	}
}

func TestCheckIn_Validation(t *testing.T) {
	api := newFakeAPI()
	ctl, _, _ := newController(t, api)

	cases := []struct {
		name  string
		req   console.CheckInRequest
		field string
	}{
		{"no rate", console.CheckInRequest{RoomID: 101}, "room_rate_id"},
		{"zero total", console.CheckInRequest{RoomID: 101, RoomRateID: 1, TotalPrice: ptr(0.0)}, "total_price"},
		{"start after end", console.CheckInRequest{RoomID: 101, RoomRateID: 2, StartDatetime: ptr(t0), EndDatetime: ptr(t0.Add(-time.Minute))}, "start_datetime"},
	}
	for _, tc := range cases {
		_, err := ctl.CheckIn(context.Background(), tc.req)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
		if _, ok := ve.Field(tc.field); !ok {
			t.Fatalf("%s: expected field %s, got %+v", tc.name, tc.field, ve.Fields)
		}
	}
	if len(api.creates) != 0 {
		t.Fatalf("invalid check-ins must not reach the API")
	}
}

func TestCheckIn_LocalConflictSkipsAPI(t *testing.T) {
	api := newFakeAPI()
	api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, _, _ := newController(t, api)

	_, err := ctl.CheckIn(context.Background(), console.CheckInRequest{RoomID: 101, RoomRateID: 1})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(api.creates) != 0 {
		t.Fatalf("conflict must be detected locally")
	}
}

func TestCheckIn_ServerConflictRefetchesSnapshot(t *testing.T) {
	api := newFakeAPI()
	ctl, _, _ := newController(t, api)
	api.createErr = &domain.ConflictError{RoomID: 102, Reason: "room already occupied"}
	before := api.dashboardCalls()

	_, err := ctl.CheckIn(context.Background(), console.CheckInRequest{RoomID: 102, RoomRateID: 1})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if api.dashboardCalls() != before+1 {
		t.Fatalf("expected one snapshot re-fetch, got %d", api.dashboardCalls()-before)
	}
}

func TestCheckIn_SurvivesCallerCancellation(t *testing.T) {
	api := newFakeAPI()
	ctl, sync, _ := newController(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // dialog closed before the submit ran

	if _, err := ctl.CheckIn(ctx, console.CheckInRequest{RoomID: 102, RoomRateID: 1}); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if !sync.Occupied(102) {
		t.Fatalf("result must still land in the room view")
	}
}

func TestCheckOut_GateAndOverstayTotal(t *testing.T) {
	api := newFakeAPI()
	b := api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, ExtraPerson: 1, TotalPrice: 650, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, sync, clk := newController(t, api)

	pay := console.CheckOutRequest{PaymentStatus: "paid", PaymentType: "cash"}
	clk.Set(t0.Add(10 * time.Minute))
	if _, err := ctl.CheckOut(context.Background(), b.ID, pay); !errors.Is(err, domain.ErrGracePeriod) {
		t.Fatalf("expected ErrGracePeriod inside grace, got %v", err)
	}

	// 76 minutes past the end bills 2 overstay hours
	clk.Set(t0.Add(3*time.Hour + 76*time.Minute))
	out, err := ctl.CheckOut(context.Background(), b.ID, pay)
	if err != nil {
		t.Fatalf("check-out: %v", err)
	}
	if out.Status != domain.StatusCheckedOut {
		t.Fatalf("status = %s", out.Status)
	}
	u := api.lastUpdate()
	if u.TotalPrice != 850 || u.PaymentType != "cash" || u.RoomRateID != 1 {
		t.Fatalf("unexpected update: %+v", u)
	}
	if sync.Occupied(101) {
		t.Fatalf("room must be vacant right after check-out")
	}
}

func TestCheckOut_FieldErrorsKeepForm(t *testing.T) {
	api := newFakeAPI()
	b := api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, TotalPrice: 500, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, sync, clk := newController(t, api)
	clk.Set(t0.Add(time.Hour))

	_, err := ctl.CheckOut(context.Background(), b.ID, console.CheckOutRequest{TotalPrice: ptr(480.0)})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	s, err := ctl.Checkout(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if st := s.Form().State(); st.Total != 480 || !st.Overridden {
		t.Fatalf("override lost after field error: %+v", st)
	}
	if !sync.Occupied(101) {
		t.Fatalf("failed check-out must not touch the room view")
	}
}

func TestCancel_WithinGrace(t *testing.T) {
	api := newFakeAPI()
	b := api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, TotalPrice: 500, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, sync, clk := newController(t, api)

	clk.Set(t0.Add(15 * time.Minute)) // boundary still counts as grace
	if _, err := ctl.Cancel(context.Background(), b.ID, console.CancelRequest{Note: "wrong room"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	u := api.lastUpdate()
	if u.Status != domain.StatusCancelled || u.TotalPrice != 0 ||
		u.PaymentStatus != domain.PaymentVoid || u.PaymentType != domain.PaymentVoid {
		t.Fatalf("unexpected cancel update: %+v", u)
	}
	if sync.Occupied(101) {
		t.Fatalf("room must be freed")
	}
}

func TestCancel_AfterGraceRefused(t *testing.T) {
	api := newFakeAPI()
	b := api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, TotalPrice: 500, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, _, clk := newController(t, api)

	clk.Set(t0.Add(15*time.Minute + time.Second))
	if _, err := ctl.Cancel(context.Background(), b.ID, console.CancelRequest{}); !errors.Is(err, domain.ErrGracePeriod) {
		t.Fatalf("expected ErrGracePeriod, got %v", err)
	}
	if len(api.updates) != 0 {
		t.Fatalf("refused cancel must not reach the API")
	}
}

func TestTransfer_MovesBookingAndCarriesItems(t *testing.T) {
	api := newFakeAPI()
	b := api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, ExtraPerson: 1, TotalPrice: 650, Note: "vip", StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, sync, clk := newController(t, api)
	clk.Set(t0.Add(5 * time.Minute))

	if _, err := ctl.Checkout(context.Background(), b.ID); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := ctl.AddAddon(context.Background(), domain.BookingAddon{BookingID: b.ID, ProductID: 7, Quantity: 2, Price: 25}); err != nil {
		t.Fatalf("addon: %v", err)
	}

	nb, err := ctl.Transfer(context.Background(), b.ID, console.TransferRequest{
		RoomID:     201,
		RoomRateID: 3,
		Charges:    []domain.BookingCharge{{Name: "Room 101 usage", Price: 100, RoomID: 101}},
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	u := api.lastUpdate()
	// 1200 base + 300 extra person + 50 add-ons + 100 carried charge
	if u.TotalPrice != 1650 || u.ExtraPerson != 1 || u.Note != "vip" || u.RoomID != 201 {
		t.Fatalf("unexpected transfer update: %+v", u)
	}
	if nb.OriginalBookingID == nil || *nb.OriginalBookingID != b.ID {
		t.Fatalf("new booking must link the original: %+v", nb)
	}
	if sync.Occupied(101) || !sync.Occupied(201) {
		t.Fatalf("view not moved: 101=%v 201=%v", sync.Occupied(101), sync.Occupied(201))
	}
}

func TestTransfer_Rejections(t *testing.T) {
	api := newFakeAPI()
	b := api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, TotalPrice: 500, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	api.seed(domain.Booking{RoomID: 102, RoomRateID: 1, TotalPrice: 500, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, _, clk := newController(t, api)
	clk.Set(t0.Add(time.Minute))

	if _, err := ctl.Transfer(context.Background(), b.ID, console.TransferRequest{RoomID: 102, RoomRateID: 1}); !domain.IsConflict(err) {
		t.Fatalf("occupied destination: expected conflict, got %v", err)
	}
	if _, err := ctl.Transfer(context.Background(), b.ID, console.TransferRequest{RoomID: 201, RoomRateID: 1}); !domain.IsValidation(err) {
		t.Fatalf("rate of another room type: expected ValidationError, got %v", err)
	}

	clk.Set(t0.Add(20 * time.Minute))
	if _, err := ctl.Transfer(context.Background(), b.ID, console.TransferRequest{RoomID: 201, RoomRateID: 3}); !errors.Is(err, domain.ErrGracePeriod) {
		t.Fatalf("after grace: expected ErrGracePeriod, got %v", err)
	}
	if len(api.updates) != 0 {
		t.Fatalf("rejected transfers must not reach the API")
	}
}

func TestCheckOut_EditedRateAndExtraPersonRecompute(t *testing.T) {
	api := newFakeAPI()
	b := api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, TotalPrice: 500, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, _, clk := newController(t, api)
	clk.Set(t0.Add(20 * time.Minute))

	// rate 3 belongs to the suite type
	_, err := ctl.CheckOut(context.Background(), b.ID, console.CheckOutRequest{PaymentStatus: "paid", PaymentType: "cash", RoomRateID: 3})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("foreign rate: expected ValidationError, got %v", err)
	}
	if _, ok := ve.Field("room_rate_id"); !ok {
		t.Fatalf("expected room_rate_id error, got %+v", ve.Fields)
	}
	if len(api.updates) != 0 {
		t.Fatalf("rejected edit must not reach the API")
	}

	out, err := ctl.CheckOut(context.Background(), b.ID, console.CheckOutRequest{
		PaymentStatus: "paid",
		PaymentType:   "cash",
		RoomRateID:    2,
		ExtraPerson:   ptr(2),
	})
	if err != nil {
		t.Fatalf("check-out: %v", err)
	}
	u := api.lastUpdate()
	// 900 overnight base + 2 x 200 extra person
	if u.RoomRateID != 2 || u.ExtraPerson != 2 || u.TotalPrice != 1300 {
		t.Fatalf("edits not applied: %+v", u)
	}
	if out.TotalPrice != 1300 {
		t.Fatalf("returned total = %v", out.TotalPrice)
	}
}

func TestCheckout_ReopensWhenBookingLeftTheRoom(t *testing.T) {
	api := newFakeAPI()
	b := api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, TotalPrice: 500, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, sync, _ := newController(t, api)

	first, err := ctl.Checkout(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	again, err := ctl.Checkout(context.Background(), b.ID)
	if err != nil || again != first {
		t.Fatalf("expected the cached session, got %p %v", again, err)
	}

	// another desk checks the guest out and the push event lands
	api.finalize(b.ID)
	sync.Apply(domain.CheckOutEvent(101))

	if _, err := ctl.Checkout(context.Background(), b.ID); !errors.Is(err, domain.ErrFinalized) {
		t.Fatalf("expected ErrFinalized for a booking finalized elsewhere, got %v", err)
	}
}

func TestCheckOut_StaleConflictClosesSession(t *testing.T) {
	api := newFakeAPI()
	b := api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, TotalPrice: 500, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, sync, clk := newController(t, api)
	clk.Set(t0.Add(20 * time.Minute))

	if _, err := ctl.Checkout(context.Background(), b.ID); err != nil {
		t.Fatalf("open: %v", err)
	}
	// finalized elsewhere and the push event was missed
	api.finalize(b.ID)

	_, err := ctl.CheckOut(context.Background(), b.ID, console.CheckOutRequest{PaymentStatus: "paid", PaymentType: "cash"})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if sync.Occupied(101) {
		t.Fatalf("snapshot re-fetch must free the room")
	}
	if _, err := ctl.Checkout(context.Background(), b.ID); !errors.Is(err, domain.ErrFinalized) {
		t.Fatalf("dead session must be gone, got %v", err)
	}
}

func TestTransfer_DestinationConflictKeepsSession(t *testing.T) {
	api := newFakeAPI()
	b := api.seed(domain.Booking{RoomID: 101, RoomRateID: 1, TotalPrice: 500, StartDatetime: t0, EndDatetime: t0.Add(3 * time.Hour)})
	ctl, _, clk := newController(t, api)
	clk.Set(t0.Add(5 * time.Minute))

	s, err := ctl.Checkout(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	api.updateErr = &domain.ConflictError{RoomID: 201, Reason: "room already occupied"}
	if _, err := ctl.Transfer(context.Background(), b.ID, console.TransferRequest{RoomID: 201, RoomRateID: 3}); !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	again, err := ctl.Checkout(context.Background(), b.ID)
	if err != nil || again != s {
		t.Fatalf("source booking is still live, its session must stay: %p %v", again, err)
	}
}
