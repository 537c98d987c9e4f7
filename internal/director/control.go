package director

import (
	"math"

	"github.com/roman-kulish/glide-recovery/internal/geo"
)

const (
	// MaxRateOfTurn is the demanded rate of turn at or beyond SaturationHeadingError, deg/s.
	MaxRateOfTurn = 3.0

	// SaturationHeadingError is the heading error at which the rate of turn curve saturates, degrees.
	SaturationHeadingError = 30.0

	// rateOfTurnBase^30 - 1 == 3
	rateOfTurnBase = 1.0472941228

	// Bank angle beyond the limit reduces the demanded rate by one deg/s per bankTaper degrees.
	bankTaper = 60.0

	// MaxRateOfTurnError is the rate of turn error producing full rudder deflection, deg/s.
	MaxRateOfTurnError = 3.0

	rudderOffset = 0.33
	rudderBias   = 0.48

	// MaxInterceptAngle caps the course correction in track mode, degrees.
	MaxInterceptAngle = 90.0

	// The intercept law turns 45 degrees per minute of time needed to close the cross-track error.
	interceptGain = 45.0

	// Ground speed floor for the intercept law, kt.
	minInterceptSpeed = 1.0
)

func sign(v float64) float64 {
	return math.Copysign(1, v)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// HeadingError returns the shortest signed turn from current to target, in (-180, 180].
func HeadingError(target, current float64) float64 {
	return geo.HeadingDelta(target, current)
}

// TargetRateOfTurn maps a heading error to a demanded rate of turn in deg/s.
// The curve is shallow near zero and reaches exactly MaxRateOfTurn at
// SaturationHeadingError.
func TargetRateOfTurn(dH float64) float64 {
	if math.Abs(dH) >= SaturationHeadingError {
		return MaxRateOfTurn * sign(dH)
	}
	return math.Min(math.Pow(rateOfTurnBase, math.Abs(dH))-1, MaxRateOfTurn) * sign(dH)
}

// LimitBank tapers the demanded rate of turn when the vehicle is banked beyond
// bankLimit. Only a demand in the direction of the bank is reduced, and never
// past zero.
func LimitBank(rt, roll, bankLimit float64) float64 {
	if rt == 0 || sign(rt) != sign(roll) {
		return rt
	}

	excess := (math.Max(math.Abs(roll), bankLimit) - bankLimit) / bankTaper
	return math.Max(math.Abs(rt)-excess, 0) * sign(rt)
}

// RudderDeflection maps a rate of turn error to a rudder command in [-1, 1].
// Full deflection is reached at MaxRateOfTurnError.
func RudderDeflection(dR float64) float64 {
	ar := math.Min(math.Log10(math.Min(math.Abs(dR), MaxRateOfTurnError)+rudderOffset)+rudderBias, 1.0) * sign(dR)
	return clamp(ar, -1, 1)
}

// InterceptAngle returns the course correction for a cross-track error of x
// nautical miles at gs knots. Positive x (right of course) yields a positive
// angle, which is subtracted from the course to turn left.
func InterceptAngle(x, gs float64) float64 {
	a := x * 60 / math.Max(gs, minInterceptSpeed) * interceptGain
	return clamp(a, -MaxInterceptAngle, MaxInterceptAngle)
}

// CircleRadius returns the circling radius in nautical miles for a ground
// speed, interpolated linearly between the configured speed bounds.
func CircleRadius(gs float64, cfg Config) float64 {
	f := clamp((gs-cfg.CircleSpeedMin)/(cfg.CircleSpeedMax-cfg.CircleSpeedMin), 0, 1)
	return cfg.CircleRadiusMin + f*(cfg.CircleRadiusMax-cfg.CircleRadiusMin)
}

// ProjectedDistance estimates the glide distance in nautical miles from the
// height above the recovery elevation (ft), the averaged vertical speed
// (ft/min) and the averaged ground speed (kt). Sink rates shallower than
// cfg.MinSinkRate, including climbs, are treated as cfg.MinSinkRate. The
// result lies in [0, cfg.MaxProjection].
func ProjectedDistance(agl, verticalSpeed, groundSpeed float64, cfg Config) float64 {
	av := math.Min(verticalSpeed, -cfg.MinSinkRate)
	ag := math.Max(groundSpeed, 0)

	return clamp(agl/(-av*60)*ag, 0, cfg.MaxProjection)
}
