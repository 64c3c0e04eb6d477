// Package detector turns a stream of backlog samples into a sustained
// congestion signal.
package detector

// Detector counts consecutive samples above a watermark.
//
// The signal is level-triggered: once the run reaches the required length,
// every further high sample keeps it true until Reset is called by whoever
// acted on it. A non-high sample always clears the run; there is no decay.
type Detector struct {
	required uint
	count    uint
}

// New creates a detector that trips after required consecutive high samples.
// A required count of 0 is treated as 1.
func New(required uint) *Detector {
	if required == 0 {
		required = 1
	}
	return &Detector{required: required}
}

// Observe records sample and reports whether congestion is sustained.
// A sample is high when it is strictly greater than highWatermark; any other
// sample clears the current run.
func (d *Detector) Observe(sample, highWatermark uint64) bool {
	if sample > highWatermark {
		d.count++
	} else {
		d.count = 0
	}
	return d.Tripped()
}

// Tripped reports whether the current run has reached the required length.
func (d *Detector) Tripped() bool {
	return d.count >= d.required
}

// Count returns the length of the current run of high samples.
func (d *Detector) Count() uint {
	return d.count
}

// Required returns the run length needed to trip.
func (d *Detector) Required() uint {
	return d.required
}

// Reset clears the run. The monitor calls it after a flap.
func (d *Detector) Reset() {
	d.count = 0
}
