package order

import (
	"testing"
	"time"
)

func booking(status Status, start time.Time, minutes int) Order {
	t := start
	return Order{Status: status, Booking: true, BookedAt: &t, DurationMinutes: minutes}
}

func TestCheckAcceptanceImmediate(t *testing.T) {
	candidate := &Order{Status: StatusPending}

	// 无进行中订单：允许
	if err := CheckAcceptance(candidate, nil); err != nil {
		t.Fatalf("expected accept allowed, got %v", err)
	}

	// 任一进行中订单：拒绝
	for _, st := range []Status{StatusAccepted, StatusPickedUp, StatusOnTheWay, StatusArrived} {
		active := []Order{{Status: st}}
		if err := CheckAcceptance(candidate, active); err != ErrCourierBusy {
			t.Fatalf("status %s: expected ErrCourierBusy, got %v", st, err)
		}
	}

	// 已完结订单不占用
	active := []Order{{Status: StatusDelivered}, {Status: StatusCancelled}}
	if err := CheckAcceptance(candidate, active); err != nil {
		t.Fatalf("expected accept allowed with terminal orders, got %v", err)
	}
}

func TestCheckAcceptanceBookingOverlap(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	// [10:00, 11:00) vs [10:30, 11:30)：重叠
	cand := booking(StatusPending, day.Add(10*time.Hour+30*time.Minute), 60)
	active := []Order{booking(StatusAccepted, day.Add(10*time.Hour), 60)}
	if err := CheckAcceptance(&cand, active); err != ErrScheduleConflict {
		t.Fatalf("expected ErrScheduleConflict, got %v", err)
	}

	// [10:00, 11:00) vs [11:00, 12:00)：边界相接不算重叠
	cand = booking(StatusPending, day.Add(11*time.Hour), 60)
	if err := CheckAcceptance(&cand, active); err != nil {
		t.Fatalf("expected boundary windows allowed, got %v", err)
	}

	// 不同日期不冲突
	cand = booking(StatusPending, day.AddDate(0, 0, 1).Add(10*time.Hour+30*time.Minute), 60)
	if err := CheckAcceptance(&cand, active); err != nil {
		t.Fatalf("expected different dates allowed, got %v", err)
	}
}

func TestCheckAcceptanceBookingDefaultDuration(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	// 时长未指定按 60 分钟：[10:00, 11:00) vs [10:45, ...) 冲突
	cand := booking(StatusPending, day.Add(10*time.Hour+45*time.Minute), 0)
	active := []Order{booking(StatusAccepted, day.Add(10*time.Hour), 0)}
	if err := CheckAcceptance(&cand, active); err != ErrScheduleConflict {
		t.Fatalf("expected ErrScheduleConflict with default duration, got %v", err)
	}
}

func TestCheckAcceptanceBookingBlockedByImmediate(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	cand := booking(StatusPending, day.Add(10*time.Hour), 60)
	active := []Order{{Status: StatusOnTheWay}} // 进行中的即时单
	if err := CheckAcceptance(&cand, active); err != ErrCourierBusy {
		t.Fatalf("expected ErrCourierBusy, got %v", err)
	}
}
