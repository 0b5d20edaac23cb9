package shared_test

import (
	"errors"
	"testing"

	"frontdesk/internal/domain"
	"frontdesk/internal/shared"
)

func TestValidate_CheckInFieldPaths(t *testing.T) {
	err := shared.Validate(domain.CheckIn{RoomID: 1, RoomRateID: 0, TotalPrice: 0})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := ve.Field("room_rate_id"); !ok {
		t.Fatalf("missing room_rate_id error: %+v", ve.Fields)
	}
	if _, ok := ve.Field("total_price"); !ok {
		t.Fatalf("missing total_price error: %+v", ve.Fields)
	}
	if _, ok := ve.Field("room_id"); ok {
		t.Fatalf("room_id should be valid: %+v", ve.Fields)
	}
}

func TestValidate_BookingUpdateConditional(t *testing.T) {
	// cancellation needs neither a rate nor payment details
	if err := shared.Validate(domain.BookingUpdate{Status: domain.StatusCancelled}); err != nil {
		t.Fatalf("cancel should validate: %v", err)
	}

	err := shared.Validate(domain.BookingUpdate{Status: domain.StatusCheckedOut, RoomRateID: 3, TotalPrice: 10})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, f := range []string{"payment_status", "payment_type"} {
		if _, ok := ve.Field(f); !ok {
			t.Fatalf("missing %s error: %+v", f, ve.Fields)
		}
	}

	err = shared.Validate(domain.BookingUpdate{
		Status:     domain.StatusTransferred,
		RoomRateID: 3,
		RoomID:     9,
		Charges:    []domain.BookingCharge{{Name: "late fee", Price: 5}, {Name: "", Price: 1}},
	})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := ve.Field("booking_charges.1.name"); !ok {
		t.Fatalf("expected nested charge path, got %+v", ve.Fields)
	}
}

func TestValidate_UnknownStatus(t *testing.T) {
	err := shared.Validate(domain.BookingUpdate{Status: "paid", RoomRateID: 1})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
