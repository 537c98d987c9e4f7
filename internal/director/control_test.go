package director

import (
	"math"
	"testing"
)

func TestTargetRateOfTurn(t *testing.T) {
	testCases := []struct {
		dH   float64
		want float64
	}{
		{30, 3},
		{-30, -3},
		{90, 3},
		{-179, -3},
		{180, 3},
		{0, 0},
	}

	for _, tc := range testCases {
		if got := TargetRateOfTurn(tc.dH); got != tc.want {
			t.Errorf("TargetRateOfTurn(%f): expected exactly %f, got %.17g", tc.dH, tc.want, got)
		}
	}
}

func TestTargetRateOfTurn_Shape(t *testing.T) {
	prev := 0.0
	for dH := 0.5; dH < 30; dH += 0.5 {
		rt := TargetRateOfTurn(dH)
		if rt <= prev {
			t.Fatalf("Expected increasing response, got %f at %f after %f", rt, dH, prev)
		}
		if rt > 3 {
			t.Fatalf("Expected response at most 3, got %f at %f", rt, dH)
		}
		if neg := TargetRateOfTurn(-dH); neg != -rt {
			t.Fatalf("Expected odd symmetry at %f: %f vs %f", dH, rt, neg)
		}
		prev = rt
	}

	// Shallow near zero: a 2 degree error asks for under 0.1 deg/s.
	if rt := TargetRateOfTurn(2); rt > 0.1 {
		t.Errorf("Expected shallow response at 2 degrees, got %f", rt)
	}
}

func TestLimitBank(t *testing.T) {
	testCases := []struct {
		name string
		rt   float64
		roll float64
		want float64
	}{
		{"within limit", 2, 25, 2},
		{"at limit", 2, 30, 2},
		{"banked right", 2, 45, 1.75},
		{"banked left", -2, -60, -1.5},
		{"banked against turn", -1, 36, -1},
		{"taper stops at zero", 0.2, 60, 0},
		{"no demand", 0, 60, 0},
		{"steep bank", 3, 120, 1.5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LimitBank(tc.rt, tc.roll, 30); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("Expected %f, got %f", tc.want, got)
			}
		})
	}
}

func TestRudderDeflection(t *testing.T) {
	if got := RudderDeflection(3); got != 1 {
		t.Errorf("Expected exactly 1 at dR=3, got %.17g", got)
	}
	if got := RudderDeflection(-3); got != -1 {
		t.Errorf("Expected exactly -1 at dR=-3, got %.17g", got)
	}
	if got := RudderDeflection(12); got != 1 {
		t.Errorf("Expected saturation beyond 3, got %f", got)
	}

	want := math.Log10(0.33) + 0.48
	if got := RudderDeflection(0); math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected %f at dR=0, got %f", want, got)
	}
	if got := RudderDeflection(0); math.Abs(got) > 0.002 {
		t.Errorf("Expected near-zero deadband, got %f", got)
	}

	for dR := -6.0; dR <= 6; dR += 0.01 {
		if ar := RudderDeflection(dR); ar < -1 || ar > 1 {
			t.Fatalf("RudderDeflection(%f) = %f out of range", dR, ar)
		}
	}
}

func TestInterceptAngle(t *testing.T) {
	testCases := []struct {
		name string
		x    float64
		gs   float64
		want float64
	}{
		{"on course", 0, 100, 0},
		{"right of course", 1, 120, 22.5},
		{"left of course", -1, 120, -22.5},
		{"capped right", 10, 100, 90},
		{"capped left", -10, 100, -90},
		{"zero ground speed", 0.01, 0, 27},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InterceptAngle(tc.x, tc.gs); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Expected %f, got %f", tc.want, got)
			}
		})
	}
}

func TestCircleRadius(t *testing.T) {
	cfg := DefaultConfig()

	testCases := []struct {
		gs   float64
		want float64
	}{
		{0, 1.6},
		{50, 1.6},
		{175, 5.8},
		{300, 10},
		{450, 10},
	}

	for _, tc := range testCases {
		if got := CircleRadius(tc.gs, cfg); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("CircleRadius(%f): expected %f, got %f", tc.gs, tc.want, got)
		}
	}
}

func TestProjectedDistance(t *testing.T) {
	cfg := DefaultConfig()

	testCases := []struct {
		name          string
		agl           float64
		verticalSpeed float64
		groundSpeed   float64
		want          float64
	}{
		{"steady glide", 6000, -600, 60, 10},
		{"climbing uses nominal sink", 6000, 300, 60, 100},
		{"level uses nominal sink", 6000, 0, 60, 100},
		{"slow sink uses nominal sink", 6000, -30, 60, 100},
		{"negative ground speed", 6000, -600, -20, 0},
		{"below recovery elevation", -100, -600, 60, 0},
		{"ceiling", 40000, 0, 500, 3000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ProjectedDistance(tc.agl, tc.verticalSpeed, tc.groundSpeed, cfg)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Expected %f, got %f", tc.want, got)
			}
		})
	}
}

func TestHeadingError_Range(t *testing.T) {
	for sum := -720.0; sum <= 1080; sum += 360 {
		for target := 0.0; target < 360; target += 0.5 {
			dH := HeadingError(target, sum-target)
			if dH <= -180 || dH > 180 {
				t.Fatalf("HeadingError(%f, %f) = %f out of range", target, sum-target, dH)
			}
		}
	}
}

func TestMode(t *testing.T) {
	for _, m := range []Mode{ModeSeek, ModeTrack, ModeCircle} {
		parsed, err := ParseMode(m.String())
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", m.String(), err)
		}
		if parsed != m {
			t.Errorf("Expected %v, got %v", m, parsed)
		}
	}

	if m, err := ParseMode("TRACK"); err != nil || m != ModeTrack {
		t.Errorf("Expected case-insensitive parse, got %v %v", m, err)
	}
	if _, err := ParseMode("loiter"); err == nil {
		t.Error("Expected error for unknown mode")
	}
	if s := Mode(7).String(); s != "Mode(7)" {
		t.Errorf("Unexpected string for unknown mode: %s", s)
	}
}
