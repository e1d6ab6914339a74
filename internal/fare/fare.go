package fare

// Breakdown 费用明细。
type Breakdown struct {
	BaseFare     float64 `json:"baseFare"`
	DistanceCost float64 `json:"distanceCost"`
	TimeCost     float64 `json:"timeCost"`
	PenaltyCost  float64 `json:"penaltyCost"`
	RushBonus    float64 `json:"rushBonus"`
	PlatformFee  float64 `json:"platformFee"`
}

// Quote 计费结果。
type Quote struct {
	Subtotal  float64   `json:"subtotal"`
	Total     float64   `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
}

// Input 计费入参。
type Input struct {
	VehicleType      string
	DistanceKm       float64
	EstimatedMinutes float64
	Rush             bool
	WaitMinutes      float64
}

// Compute 纯函数计费：
//
//	baseFare     = rate.BaseFare × setting.BaseMultiplier
//	distanceCost = distanceKm × rate.DistanceRatePerKm
//	timeCost     = minutes × cfg.TimeRatePerMinute × setting.TimeMultiplier
//	penaltyCost  = max(0, waitMinutes − grace/60) × cfg.PenaltyRatePerMinute
//	rushBonus    = rush ? cfg.BonusRate : 0
//	platformFee  = subtotal × cfg.PlatformCommission / 100
//
// 车型不在费率表里时返回零值 Quote 和 ok=false（"费率不可用"），不 panic：
// 费率配置不完整时下单页仍需可用，由调用方自行降级。
// 内部不做任何四舍五入，展示用的取整是表现层的事。
func Compute(in Input, cfg FareConfiguration, rates []VehicleRate, settings []DistanceFareSetting) (Quote, bool) {
	var rate *VehicleRate
	for i := range rates {
		if rates[i].VehicleType == in.VehicleType {
			rate = &rates[i]
			break
		}
	}
	if rate == nil {
		return Quote{}, false
	}

	// 选距离分段：distanceKm ∈ [min, max)，无匹配时系数为 1.0
	baseMul, timeMul := 1.0, 1.0
	for i := range settings {
		s := settings[i]
		if in.DistanceKm >= s.MinDistanceKm && in.DistanceKm < s.MaxDistanceKm {
			baseMul = s.BaseMultiplier
			timeMul = s.TimeMultiplier
			break
		}
	}

	b := Breakdown{
		BaseFare:     rate.BaseFare * baseMul,
		DistanceCost: in.DistanceKm * rate.DistanceRatePerKm,
		TimeCost:     in.EstimatedMinutes * cfg.TimeRatePerMinute * timeMul,
	}

	penaltyMinutes := in.WaitMinutes - cfg.GracePeriodSeconds/60
	if penaltyMinutes > 0 {
		b.PenaltyCost = penaltyMinutes * cfg.PenaltyRatePerMinute
	}
	if in.Rush {
		b.RushBonus = cfg.BonusRate
	}

	subtotal := b.BaseFare + b.DistanceCost + b.TimeCost + b.PenaltyCost + b.RushBonus
	b.PlatformFee = subtotal * (cfg.PlatformCommission / 100)

	return Quote{
		Subtotal:  subtotal,
		Total:     subtotal + b.PlatformFee,
		Breakdown: b,
	}, true
}
