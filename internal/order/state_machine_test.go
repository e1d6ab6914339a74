package order

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusPending, StatusAccepted) {
		t.Fatalf("expected pending -> accepted allowed")
	}
	if CanTransition(StatusAccepted, StatusOnTheWay) {
		t.Fatalf("expected accepted -> on_the_way (skip) not allowed")
	}
	if CanTransition(StatusDelivered, StatusCancelled) {
		t.Fatalf("expected delivered -> cancelled not allowed")
	}
	if CanTransition(StatusCancelled, StatusAccepted) {
		t.Fatalf("expected cancelled -> accepted not allowed")
	}
	if !CanTransition(StatusArrived, StatusCancelled) {
		t.Fatalf("expected arrived -> cancelled allowed")
	}
}

func TestSuccessor(t *testing.T) {
	want := map[Status]Status{
		StatusPending:  StatusAccepted,
		StatusAccepted: StatusPickedUp,
		StatusPickedUp: StatusOnTheWay,
		StatusOnTheWay: StatusArrived,
		StatusArrived:  StatusDelivered,
	}
	for from, to := range want {
		got, ok := Successor(from)
		if !ok || got != to {
			t.Fatalf("Successor(%s) = %s/%v, want %s", from, got, ok, to)
		}
	}
	if _, ok := Successor(StatusDelivered); ok {
		t.Fatalf("expected no successor for delivered")
	}
	if _, ok := Successor(StatusCancelled); ok {
		t.Fatalf("expected no successor for cancelled")
	}
}

func TestApplyTransition(t *testing.T) {
	o := &Order{Status: StatusPending, CourierStatus: StatusPending}
	now := time.Now()

	if err := ApplyTransition(o, StatusAccepted, now); err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if o.Status != StatusAccepted || o.CourierStatus != StatusAccepted {
		t.Fatalf("expected status mirror accepted, got %s/%s", o.Status, o.CourierStatus)
	}
	if o.AcceptedAt == nil || !o.AcceptedAt.Equal(now) {
		t.Fatalf("expected accepted_at set")
	}

	// 跳步被拒绝
	if err := ApplyTransition(o, StatusOnTheWay, now); err == nil {
		t.Fatalf("expected skip transition to fail")
	}

	for _, next := range []Status{StatusPickedUp, StatusOnTheWay, StatusArrived, StatusDelivered} {
		if err := ApplyTransition(o, next, now); err != nil {
			t.Fatalf("ApplyTransition(%s): %v", next, err)
		}
	}
	if o.DeliveredAt == nil {
		t.Fatalf("expected delivered_at set")
	}

	// 终态后不允许任何流转
	if err := ApplyTransition(o, StatusCancelled, now); err != ErrTerminal {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
}
