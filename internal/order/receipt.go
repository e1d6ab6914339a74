package order

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/fare"
)

// Receipt 送达订单的纯文本回执。PDF 渲染不在服务端做，这里只产出文本兜底。
func Receipt(o *Order) (string, error) {
	if o == nil {
		return "", fmt.Errorf("order is nil")
	}
	if o.Status != StatusDelivered {
		return "", fmt.Errorf("receipt is only available for delivered orders")
	}

	var b strings.Builder
	b.WriteString("PICKARRY DELIVERY RECEIPT\n")
	b.WriteString("=========================\n")
	fmt.Fprintf(&b, "Order:     %s\n", o.ID)
	if o.DeliveredAt != nil {
		fmt.Fprintf(&b, "Delivered: %s\n", o.DeliveredAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "From:      %s\n", o.PickupAddress)
	fmt.Fprintf(&b, "To:        %s\n", o.DeliveryAddress)
	fmt.Fprintf(&b, "Item:      %s\n", o.ItemDescription)
	fmt.Fprintf(&b, "Vehicle:   %s\n", o.VehicleType)
	if o.PaymentMethod != "" {
		fmt.Fprintf(&b, "Payment:   %s\n", o.PaymentMethod)
	}

	if len(o.FareBreakdown) > 0 {
		var bd fare.Breakdown
		if err := json.Unmarshal(o.FareBreakdown, &bd); err == nil {
			b.WriteString("-------------------------\n")
			fmt.Fprintf(&b, "Base fare:     %10.2f\n", bd.BaseFare)
			fmt.Fprintf(&b, "Distance:      %10.2f\n", bd.DistanceCost)
			fmt.Fprintf(&b, "Time:          %10.2f\n", bd.TimeCost)
			if bd.PenaltyCost > 0 {
				fmt.Fprintf(&b, "Waiting:       %10.2f\n", bd.PenaltyCost)
			}
			if bd.RushBonus > 0 {
				fmt.Fprintf(&b, "Rush bonus:    %10.2f\n", bd.RushBonus)
			}
			fmt.Fprintf(&b, "Platform fee:  %10.2f\n", bd.PlatformFee)
		}
	}
	b.WriteString("-------------------------\n")
	fmt.Fprintf(&b, "TOTAL:         %10.2f\n", o.TotalAmount)
	return b.String(), nil
}
