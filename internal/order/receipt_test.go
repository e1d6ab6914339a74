package order

import (
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"
)

func TestReceiptRequiresDelivered(t *testing.T) {
	o := &Order{ID: "ord-1", Status: StatusOnTheWay}
	if _, err := Receipt(o); err == nil {
		t.Fatalf("expected error for undelivered order")
	}
}

func TestReceiptContent(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
	o := &Order{
		ID:              "ord-2",
		Status:          StatusDelivered,
		DeliveredAt:     &now,
		PickupAddress:   "Poblacion, Baliuag",
		DeliveryAddress: "San Rafael",
		ItemDescription: "documents",
		VehicleType:     "motorcycle",
		PaymentMethod:   "cash",
		TotalAmount:     216.72,
		FareBreakdown:   datatypes.JSON(`{"baseFare":40,"distanceCost":40,"timeCost":135,"penaltyCost":0,"rushBonus":0,"platformFee":1.72}`),
	}

	text, err := Receipt(o)
	if err != nil {
		t.Fatalf("Receipt: %v", err)
	}
	for _, want := range []string{"ord-2", "Poblacion, Baliuag", "San Rafael", "216.72", "1.72", "2024-03-15 18:30"} {
		if !strings.Contains(text, want) {
			t.Fatalf("receipt missing %q:\n%s", want, text)
		}
	}
	// 为零的可选项不出现
	if strings.Contains(text, "Rush bonus") || strings.Contains(text, "Waiting") {
		t.Fatalf("zero components should be omitted:\n%s", text)
	}
}
