package app

import (
	"image/color"
	"math"

	"github.com/roman-kulish/glide-recovery/internal/director"
)

var (
	siteColor   = color.RGBA{R: 0xc0, G: 0x10, B: 0x10, A: 0xff}
	gridColor   = color.RGBA{R: 0xe4, G: 0xe4, B: 0xe4, A: 0xff}
	unknownMode = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// modeHues are the base hues of each guidance mode.
var modeHues = map[director.Mode]float64{
	director.ModeSeek:   35,  // amber
	director.ModeTrack:  215, // blue
	director.ModeCircle: 130, // green
}

// HSV represents a color in HSV color space
type HSV struct {
	H float64 // Hue [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value [0-1]
}

// RGB converts HSV color space to RGB
func (hsv HSV) RGB() color.RGBA {
	h, s, v := hsv.H, hsv.S, hsv.V

	if s <= 0.0 {
		rgb := uint8(v * 255)
		return color.RGBA{R: rgb, G: rgb, B: rgb, A: 0xff}
	}

	// Normalize hue to [0-6]
	h = math.Mod(h, 360) / 60
	i := math.Floor(h)
	f := h - i

	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64

	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 0xff}
}

// ModeColor returns the track color for a mode. Higher parts of the track
// are drawn more saturated; altitude is normalized to [0, 1].
func ModeColor(mode director.Mode, altitude float64) color.RGBA {
	hue, ok := modeHues[mode]
	if !ok {
		return unknownMode
	}

	altitude = math.Max(0, math.Min(1, altitude))
	return HSV{
		H: hue,
		S: 0.45 + 0.55*altitude,
		V: 0.85 - 0.15*altitude,
	}.RGB()
}
