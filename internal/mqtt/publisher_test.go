package mqtt

import (
	"testing"

	"github.com/ventio/airmod/internal/coordinator"
	"github.com/ventio/airmod/internal/registers"
)

func TestStatePayload(t *testing.T) {
	cases := []struct {
		name string
		v    registers.Value
		want string
	}{
		{"bool on", registers.Value{Kind: registers.KindBool, Bool: true}, "ON"},
		{"bool off", registers.Value{Kind: registers.KindBool}, "OFF"},
		{"enum", registers.Value{Kind: registers.KindEnum, Label: "winter"}, "winter"},
		{"decimal", registers.Value{Kind: registers.KindDecimal, Num: 21.5}, "21.5"},
		{"integer", registers.Value{Kind: registers.KindUint, Num: 850}, "850"},
		{"no sensor", registers.Value{Kind: registers.KindDecimal, Unavailable: true}, "unavailable"},
	}
	for _, tc := range cases {
		if got := statePayload(coordinator.Reading{Value: tc.v}); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestTopicLayout(t *testing.T) {
	p := &Publisher{opts: Options{BaseTopic: "vent"}}

	if got := p.availabilityTopic(); got != "vent/availability" {
		t.Errorf("availability topic: %q", got)
	}
	if got := p.stateTopic("ahu", registers.FuncHolding, "supply_temperature"); got != "vent/ahu/holding/supply_temperature" {
		t.Errorf("state topic: %q", got)
	}
}
