package attitude

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Reading
	}{
		{"csv", "1.23,4.56,7.89", Reading{Roll: 1.23, Pitch: 4.56, Yaw: 7.89}},
		{"labelled", "roll: 1.23, pitch: 4.56, yaw: 7.89", Reading{Roll: 1.23, Pitch: 4.56, Yaw: 7.89}},
		{"spaces", "1 2 3", Reading{Roll: 1, Pitch: 2, Yaw: 3}},
		{"signs", "R=-10.5 P=+3 Y=.25", Reading{Roll: -10.5, Pitch: 3, Yaw: 0.25}},
		{"extra tokens", "1,2,3,4,5", Reading{Roll: 1, Pitch: 2, Yaw: 3}},
		{"no leading digit", "-.5;-.25;359", Reading{Roll: -0.5, Pitch: -0.25, Yaw: 359}},
		{"out of range", strings.Repeat("9", 400) + ",1,-" + strings.Repeat("9", 400), Reading{Roll: math.Inf(1), Pitch: 1, Yaw: math.Inf(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			if !ok {
				t.Fatalf("ParseLine(%q) reported failure", tt.line)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseLine(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestParseLine_TooFewTokens(t *testing.T) {
	for _, line := range []string{"", "roll only 1.5", "1,2", "no numbers here", "1e"} {
		if r, ok := ParseLine(line); ok {
			t.Errorf("ParseLine(%q) = %+v, expected failure", line, r)
		}
	}
}

func TestParseLine_ScientificNotationSplits(t *testing.T) {
	// "1e5" is not a single token: it yields 1 and 5
	got, ok := ParseLine("1e5,2")
	if !ok {
		t.Fatalf("expected three tokens")
	}
	want := Reading{Roll: 1, Pitch: 5, Yaw: 2}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestCalibrator_FirstReadingIsLevel(t *testing.T) {
	var c Calibrator

	rel, first := c.Apply(Reading{Roll: 12.5, Pitch: -3, Yaw: 270})
	if !first {
		t.Fatalf("expected first reading to calibrate")
	}
	if rel.Roll != 0 || rel.Pitch != 0 {
		t.Errorf("expected zero relative roll/pitch, got %+v", rel)
	}
	if rel.Yaw != 270 {
		t.Errorf("expected yaw to pass through, got %v", rel.Yaw)
	}

	want := Baseline{RollZero: 12.5, PitchZero: -3, Calibrated: true}
	if got := c.Baseline(); got != want {
		t.Errorf("expected baseline %+v, got %+v", want, got)
	}
}

func TestCalibrator_BaselineNeverChanges(t *testing.T) {
	var c Calibrator
	c.Apply(Reading{Roll: 1, Pitch: 2, Yaw: 3})

	readings := []Reading{
		{Roll: 5, Pitch: 5, Yaw: 10},
		{Roll: -1, Pitch: 0, Yaw: 20},
		{Roll: 1, Pitch: 2, Yaw: 30},
	}
	for _, r := range readings {
		rel, first := c.Apply(r)
		if first {
			t.Fatalf("calibration repeated for %+v", r)
		}
		want := Reading{Roll: r.Roll - 1, Pitch: r.Pitch - 2, Yaw: r.Yaw}
		if rel != want {
			t.Errorf("Apply(%+v) = %+v, expected %+v", r, rel, want)
		}
	}

	if b := c.Baseline(); b.RollZero != 1 || b.PitchZero != 2 {
		t.Errorf("baseline drifted: %+v", b)
	}
}
