package attitude

// Baseline is the "level" reference captured from the first reading of a session
type Baseline struct {
	RollZero   float64
	PitchZero  float64
	Calibrated bool
}

// Calibrator converts absolute readings into readings relative to the first
// one it sees. The baseline is captured once and never reset.
//
// Calibrator is not safe for concurrent use; the owner is expected to guard
// it together with whatever state the relative reading is written into.
type Calibrator struct {
	baseline Baseline
}

// Apply returns r relative to the baseline. The first call captures the
// baseline from r, so it always yields zero roll and pitch. Yaw is passed
// through unchanged.
func (c *Calibrator) Apply(r Reading) (rel Reading, first bool) {
	if !c.baseline.Calibrated {
		c.baseline = Baseline{
			RollZero:   r.Roll,
			PitchZero:  r.Pitch,
			Calibrated: true,
		}
		first = true
	}

	return Reading{
		Roll:  r.Roll - c.baseline.RollZero,
		Pitch: r.Pitch - c.baseline.PitchZero,
		Yaw:   r.Yaw,
	}, first
}

// Baseline returns the current baseline
func (c *Calibrator) Baseline() Baseline {
	return c.baseline
}
