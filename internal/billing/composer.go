package billing

import (
	"math"

	"frontdesk/internal/domain"
)

type Inputs struct {
	Rate        domain.RoomRate
	ExtraPerson int
	BilledHours int
	Addons      []domain.BookingAddon
	Orders      []domain.OrderItem
	Charges     []domain.BookingCharge
}

// Breakdown lists every addend of a booking total.
type Breakdown struct {
	BasePrice    float64 `json:"base_price"`
	ExtraPerson  float64 `json:"extra_person"`
	Overstay     float64 `json:"overstay"`
	AddonsTotal  float64 `json:"addons_total"`
	OrdersTotal  float64 `json:"orders_total"`
	ChargesTotal float64 `json:"charges_total"`
	Total        float64 `json:"total"`
}

// Compose applies the booking price formula. The total never goes below zero.
func Compose(in Inputs) Breakdown {
	extra := in.ExtraPerson
	if extra < 0 {
		extra = 0
	}
	hours := in.BilledHours
	if hours < 0 {
		hours = 0
	}
	b := Breakdown{
		BasePrice:    in.Rate.BasePrice,
		ExtraPerson:  float64(extra) * in.Rate.ExtraPersonRate,
		Overstay:     float64(hours) * in.Rate.OverstayRate,
		AddonsTotal:  AddonsTotal(in.Addons),
		OrdersTotal:  OrdersTotal(in.Orders),
		ChargesTotal: ChargesTotal(in.Charges),
	}
	total := b.BasePrice + b.ExtraPerson + b.Overstay + b.AddonsTotal + b.OrdersTotal + b.ChargesTotal
	b.Total = Round2(math.Max(0, total))
	return b
}

func AddonsTotal(items []domain.BookingAddon) float64 {
	var sum float64
	for _, a := range items {
		sum += a.TotalPrice
	}
	return sum
}

func OrdersTotal(items []domain.OrderItem) float64 {
	var sum float64
	for _, o := range items {
		sum += o.TotalPrice
	}
	return sum
}

func ChargesTotal(items []domain.BookingCharge) float64 {
	var sum float64
	for _, c := range items {
		sum += c.Price
	}
	return sum
}

// LineTotal is quantity*price rounded to cents.
func LineTotal(quantity int, price float64) float64 {
	return Round2(float64(quantity) * price)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
