package monitor

import "time"

// Transition is what changed in the zone on one frame.
type Transition struct {
	// Entered is set on the first occupied frame of a visit.
	Entered bool
	// Left is set on the first empty frame after a visit.
	Left bool
	// Duration is how long the visit lasted. Only set when Left is.
	Duration time.Duration
}

// VisitTracker follows contiguous zone occupancy.
type VisitTracker struct {
	// MinUsage is the shortest occupancy recorded as a visit.
	MinUsage time.Duration

	occupied bool
	since    time.Time
}

// Occupied reports whether a visit is in progress.
func (v *VisitTracker) Occupied() bool {
	return v.occupied
}

// Update records the zone state observed at now.
func (v *VisitTracker) Update(inZone bool, now time.Time) Transition {
	switch {
	case inZone && !v.occupied:
		v.occupied = true
		v.since = now
		return Transition{Entered: true}
	case !inZone && v.occupied:
		return v.leave(now)
	default:
		return Transition{}
	}
}

// Finish ends a visit in progress, as when the stream stops.
func (v *VisitTracker) Finish(now time.Time) Transition {
	if !v.occupied {
		return Transition{}
	}
	return v.leave(now)
}

// Discard forgets a visit in progress without reporting it.
func (v *VisitTracker) Discard() {
	v.occupied = false
	v.since = time.Time{}
}

// Counts reports whether a finished transition qualifies as a visit.
func (v *VisitTracker) Counts(t Transition) bool {
	return t.Left && t.Duration >= v.MinUsage
}

func (v *VisitTracker) leave(now time.Time) Transition {
	d := now.Sub(v.since)
	v.occupied = false
	v.since = time.Time{}
	return Transition{Left: true, Duration: d}
}
