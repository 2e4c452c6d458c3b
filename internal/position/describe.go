package position

import (
	"fmt"
	"strconv"
)

// Describe formats a fix as the single line shown on the HUD
func Describe(f Fix) string {
	switch v := f.(type) {
	case PrimaryFix:
		return fmt.Sprintf("GPS: lat %.5f, lon %.5f, alt %s %s, sats %d, fix %s",
			v.Latitude, v.Longitude, number(v.Altitude), v.AltitudeUnits, v.Satellites, v.Quality)

	case MotionFix:
		date := "unknown"
		if !v.Date.IsZero() {
			date = v.Date.Format("2006-01-02")
		}
		return fmt.Sprintf("GPS: lat %.5f, lon %.5f, speed %s kn, course %s°, date %s",
			v.Latitude, v.Longitude, number(v.SpeedKnots), number(v.CourseDegrees), date)

	case OtherSentence:
		return fmt.Sprintf("GPS: %s %s", v.Kind, truncate(v.Raw, OtherDisplayLength))

	case RawLine:
		return truncate(v.Raw, RawDisplayLength)

	default:
		return ""
	}
}

// number prints a value in its shortest exact form: 15, 22.4, 545.25
func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// truncate returns at most n characters of s
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
