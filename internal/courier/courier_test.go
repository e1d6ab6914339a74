package courier

import "testing"

func TestNormalizeVehicleType(t *testing.T) {
	cases := map[string]VehicleType{
		"motorcycle": VehicleMotorcycle,
		"Motorbike":  VehicleMotorcycle,
		"bike":       VehicleBicycle,
		"on-foot":    VehicleOnFoot,
		"walking":    VehicleOnFoot,
		"walker":     VehicleOnFoot,
		" Van ":      VehicleVan,
	}
	for raw, want := range cases {
		got, ok := NormalizeVehicleType(raw)
		if !ok || got != want {
			t.Fatalf("NormalizeVehicleType(%q) = %s/%v, want %s", raw, got, ok, want)
		}
	}

	if _, ok := NormalizeVehicleType("hovercraft"); ok {
		t.Fatalf("expected unknown vehicle type to fail")
	}
}
