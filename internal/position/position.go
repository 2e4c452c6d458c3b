// Package position interprets NMEA 0183 positioning sentences received from
// the vehicle and turns them into a single human-readable display line.
package position

import (
	"fmt"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
)

// Display lengths, in characters
const (
	RawDisplayLength   = 80 // Unparsed sentences are shown truncated to this length
	OtherDisplayLength = 60 // Prefix of the raw sentence shown for other sentence kinds
)

// AcceptedPrefixes lists the talker+type identifiers allowed to update the display
var AcceptedPrefixes = []string{"$GPGGA", "$GNGGA", "$GPRMC", "$GNRMC"}

// Fix is the result of parsing one sentence. It is one of PrimaryFix,
// MotionFix, OtherSentence or RawLine.
type Fix interface {
	fix()
}

// PrimaryFix is a position with altitude and quality metadata (GGA)
type PrimaryFix struct {
	Latitude      float64 // Degrees, negative south
	Longitude     float64 // Degrees, negative west
	Altitude      float64 // Antenna altitude above mean sea level
	AltitudeUnits string  // Usually "M"
	Satellites    int64   // Satellites in use
	Quality       string  // 0 = invalid, 1 = GPS, 2 = DGPS, ...
}

// MotionFix is a position with ground velocity and course (RMC)
type MotionFix struct {
	Latitude      float64
	Longitude     float64
	SpeedKnots    float64   // Speed over ground
	CourseDegrees float64   // True course over ground
	Date          time.Time // UTC date of the fix, zero when not reported
}

// OtherSentence is a valid sentence of a kind that carries no display data
type OtherSentence struct {
	Kind string // Sentence type, e.g. "VTG"
	Raw  string
}

// RawLine is a line that could not be parsed as a sentence
type RawLine struct {
	Raw string
	Err error
}

func (PrimaryFix) fix()    {}
func (MotionFix) fix()     {}
func (OtherSentence) fix() {}
func (RawLine) fix()       {}

// Accepted reports whether line starts with one of AcceptedPrefixes
func Accepted(line string) bool {
	for _, prefix := range AcceptedPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// Parse interprets a single sentence. It never fails: anything that does not
// parse comes back as a RawLine carrying the parse error.
func Parse(line string) Fix {
	line = strings.TrimSpace(line)

	s, err := nmea.Parse(withChecksum(line))
	if err != nil {
		return RawLine{Raw: line, Err: err}
	}

	switch m := s.(type) {
	case nmea.GGA:
		var units string
		if len(m.Fields) > 9 {
			units = m.Fields[9]
		}
		return PrimaryFix{
			Latitude:      m.Latitude,
			Longitude:     m.Longitude,
			Altitude:      m.Altitude,
			AltitudeUnits: units,
			Satellites:    m.NumSatellites,
			Quality:       m.FixQuality,
		}

	case nmea.RMC:
		return MotionFix{
			Latitude:      m.Latitude,
			Longitude:     m.Longitude,
			SpeedKnots:    m.Speed,
			CourseDegrees: m.Course,
			Date:          toDate(m.Date),
		}

	default:
		return OtherSentence{Kind: s.DataType(), Raw: line}
	}
}

// withChecksum appends the checksum to sentences that were sent without one.
// Sentences that carry a checksum are returned unchanged so that a wrong
// checksum still fails parsing.
func withChecksum(line string) string {
	if len(line) < 2 || (line[0] != '$' && line[0] != '!') || strings.ContainsRune(line, '*') {
		return line
	}

	var sum byte
	for i := 1; i < len(line); i++ {
		sum ^= line[i]
	}
	return fmt.Sprintf("%s*%02X", line, sum)
}

// toDate expands a two-digit year the way strptime's %y does: 69-99 are
// 1900s, 00-68 are 2000s.
func toDate(d nmea.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}

	year := 2000 + d.YY
	if d.YY >= 69 {
		year = 1900 + d.YY
	}
	return time.Date(year, time.Month(d.MM), d.DD, 0, 0, 0, 0, time.UTC)
}
