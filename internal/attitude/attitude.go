package attitude

import (
	"errors"
	"regexp"
	"strconv"
)

// numberPattern matches integer and decimal literals with an optional sign.
// Scientific notation is deliberately not matched.
var numberPattern = regexp.MustCompile(`[-+]?\d*\.\d+|[-+]?\d+`)

// Reading is a single inertial measurement unit sample, angles in degrees
type Reading struct {
	Roll  float64 // Bank angle
	Pitch float64 // Nose up/down angle
	Yaw   float64 // Heading
}

// ParseLine extracts roll, pitch and yaw from the first three numeric tokens
// found anywhere in the line, so "1.23,4.56,7.89" and
// "roll: 1.23, pitch: 4.56, yaw: 7.89" both parse. It reports false when the
// line carries fewer than three numbers. Numbers beyond the float64 range
// become ±Inf.
func ParseLine(line string) (Reading, bool) {
	tokens := numberPattern.FindAllString(line, 3)
	if len(tokens) < 3 {
		return Reading{}, false
	}

	var values [3]float64
	for i, token := range tokens {
		// out of range tokens saturate to ±Inf
		v, err := strconv.ParseFloat(token, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Reading{}, false
		}
		values[i] = v
	}

	return Reading{Roll: values[0], Pitch: values[1], Yaw: values[2]}, true
}
