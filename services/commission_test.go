package services

import (
	"math"
	"testing"
)

func TestCommission(t *testing.T) {
	cap50 := 50.0
	capHuge := 1e9

	tests := []struct {
		name       string
		saleAmount float64
		rate       float64
		maxCap     *float64
		want       float64
	}{
		{"ten percent", 100, 0.10, nil, 10},
		{"zero rate", 100, 0, nil, 0},
		{"full rate", 100, 1, nil, 100},
		{"rounds to cents", 99.99, 0.1, nil, 10},
		{"rounds half up", 10.05, 0.5, nil, 5.03},
		{"cap applies", 1000, 0.10, &cap50, 50},
		{"cap above commission", 100, 0.10, &capHuge, 10},
		{"cap above sale amount clamps to sale", 10, 1, &capHuge, 10},
		{"small amounts", 0.01, 0.10, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Commission(tt.saleAmount, tt.rate, tt.maxCap)
			if got != tt.want {
				t.Errorf("Commission(%v, %v) = %v, want %v", tt.saleAmount, tt.rate, got, tt.want)
			}
		})
	}
}

func TestCommissionNeverExceedsSaleAmount(t *testing.T) {
	for sale := 0.01; sale < 1000; sale *= 3.7 {
		for rate := 0.0; rate <= 1.0; rate += 0.13 {
			got := Commission(sale, rate, nil)
			if got < 0 || got > sale {
				t.Fatalf("Commission(%v, %v) = %v outside [0, saleAmount]", sale, rate, got)
			}
		}
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.0},
		{1.015, 1.01},
		{2.675, 2.68}, // 2.675*100 lands exactly on 267.5, which rounds away from zero
		{10.004, 10.0},
		{10.006, 10.01},
		{-1.015, -1.01},
	}
	for _, tt := range tests {
		got := round2(tt.in)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
