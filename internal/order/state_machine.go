package order

import (
	"errors"
	"fmt"
	"time"
)

// ErrTerminal 订单已处于终态（delivered / cancelled），不允许再流转。
var ErrTerminal = errors.New("order is in terminal status")

// ErrInvalidTransition 不在允许流转表里的状态变更。
var ErrInvalidTransition = errors.New("invalid order status transition")

// Transition 一条允许的状态流转边。
type Transition struct {
	From Status
	To   Status
}

// Transitions 订单状态机的允许流转关系（一等数据结构，便于穷举校验）。
// 主线是固定顺序，不允许跳步；cancelled 可从任意非终态进入。
var Transitions = []Transition{
	{StatusPending, StatusAccepted},
	{StatusAccepted, StatusPickedUp},
	{StatusPickedUp, StatusOnTheWay},
	{StatusOnTheWay, StatusArrived},
	{StatusArrived, StatusDelivered},

	{StatusPending, StatusCancelled},
	{StatusAccepted, StatusCancelled},
	{StatusPickedUp, StatusCancelled},
	{StatusOnTheWay, StatusCancelled},
	{StatusArrived, StatusCancelled},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
func CanTransition(from, to Status) bool {
	for _, t := range Transitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// Successor 返回主线顺序上的唯一后继状态（不含 cancelled）。
func Successor(from Status) (Status, bool) {
	for _, t := range Transitions {
		if t.From == from && t.To != StatusCancelled {
			return t.To, true
		}
	}
	return "", false
}

// IsTerminal 终态判断。
func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ApplyTransition 对订单应用状态变更，同步骑手侧镜像并维护关键时间字段。
func ApplyTransition(o *Order, to Status, now time.Time) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}
	from := o.Status
	if IsTerminal(from) {
		return ErrTerminal
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	o.Status = to
	o.CourierStatus = to

	switch to {
	case StatusAccepted:
		if o.AcceptedAt == nil {
			t := now
			o.AcceptedAt = &t
		}
	case StatusPickedUp:
		if o.PickedUpAt == nil {
			t := now
			o.PickedUpAt = &t
		}
	case StatusOnTheWay:
		if o.OnTheWayAt == nil {
			t := now
			o.OnTheWayAt = &t
		}
	case StatusArrived:
		if o.ArrivedAt == nil {
			t := now
			o.ArrivedAt = &t
		}
	case StatusDelivered:
		if o.DeliveredAt == nil {
			t := now
			o.DeliveredAt = &t
		}
	case StatusCancelled:
		if o.CancelledAt == nil {
			t := now
			o.CancelledAt = &t
		}
	}
	return nil
}
