package order

import (
	"errors"
	"time"
)

// ErrCourierBusy 骑手有正在进行的即时单。
var ErrCourierBusy = errors.New("active delivery in progress")

// ErrScheduleConflict 预约时间窗与已有预约重叠。
var ErrScheduleConflict = errors.New("booking schedule conflict")

// activeStatuses 占用骑手的状态集合。
var activeStatuses = map[Status]struct{}{
	StatusAccepted: {},
	StatusPickedUp: {},
	StatusOnTheWay: {},
	StatusArrived:  {},
}

// IsActive 订单是否正在占用骑手。
func IsActive(s Status) bool {
	_, ok := activeStatuses[s]
	return ok
}

// CheckAcceptance 接单前置校验（纯谓词，不改任何状态）：
// - 即时单：骑手已有任一进行中订单则拒绝
// - 预约单：骑手有进行中的即时单则拒绝；同一自然日内时间窗重叠则拒绝
//   （重叠判定 newStart < existingEnd && newEnd > existingStart，边界不算重叠）
// active 为骑手当前已加载的进行中/已接订单集合。
func CheckAcceptance(candidate *Order, active []Order) error {
	if candidate == nil {
		return errors.New("candidate order is nil")
	}

	if !candidate.Booking {
		for i := range active {
			if IsActive(active[i].Status) {
				return ErrCourierBusy
			}
		}
		return nil
	}

	newStart, newEnd, ok := candidate.BookingWindow()
	if !ok {
		return errors.New("booking order has no scheduled time")
	}

	for i := range active {
		ex := &active[i]
		if !IsActive(ex.Status) {
			continue
		}
		if !ex.Booking {
			// 进行中的即时单优先，不允许叠加预约
			return ErrCourierBusy
		}
		exStart, exEnd, ok := ex.BookingWindow()
		if !ok {
			continue
		}
		if !sameDate(newStart, exStart) {
			continue
		}
		if newStart.Before(exEnd) && newEnd.After(exStart) {
			return ErrScheduleConflict
		}
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
