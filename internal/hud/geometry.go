// Package hud burns the telemetry overlay (artificial horizon, centre marker
// and position text) onto video frames.
package hud

import "math"

// Line is a horizon line and the point it is centred on, in pixels
type Line struct {
	X1, Y1 float64
	X2, Y2 float64
	CX, CY float64
}

// Horizon computes the horizon line for a width x height frame. Roll tilts
// the line about its centre, pitch shifts the centre vertically by height/4
// pixels per radian. The offset is not clamped, so large pitch values move
// the line outside the frame.
func Horizon(width, height int, rollDeg, pitchDeg float64) Line {
	w, h := float64(width), float64(height)

	roll := rollDeg * math.Pi / 180
	pitch := pitchDeg * math.Pi / 180

	cx := w / 2
	cy := h/2 + h/4*pitch

	half := math.Max(w, h) / 2
	dx := half * math.Cos(roll)
	dy := half * math.Sin(roll)

	return Line{
		X1: cx - dx, Y1: cy - dy,
		X2: cx + dx, Y2: cy + dy,
		CX: cx, CY: cy,
	}
}

// Finite reports whether every coordinate of the line is a finite number
func (l Line) Finite() bool {
	for _, v := range [...]float64{l.X1, l.Y1, l.X2, l.Y2, l.CX, l.CY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
