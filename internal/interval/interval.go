package interval

import "time"

// Interval is a closed date-time range [Start, End].
type Interval struct {
	Start time.Time
	End   time.Time
}

// New creates an Interval from its bounds
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Empty reports whether the interval has no instants (Start after End).
func (i Interval) Empty() bool {
	return i.Start.After(i.End)
}

// Contains reports whether t falls inside the interval, bounds included.
func (i Interval) Contains(t time.Time) bool {
	if i.Empty() {
		return false
	}
	return !t.Before(i.Start) && !t.After(i.End)
}

// Overlaps reports whether the two intervals share at least one instant.
// Touching bounds count as overlapping. Empty intervals overlap nothing.
func (i Interval) Overlaps(o Interval) bool {
	if i.Empty() || o.Empty() {
		return false
	}
	return !i.End.Before(o.Start) && !o.End.Before(i.Start)
}

// Intersection returns the shared part of both intervals.
func (i Interval) Intersection(o Interval) (Interval, bool) {
	if !i.Overlaps(o) {
		return Interval{}, false
	}
	start := i.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := i.End
	if o.End.Before(end) {
		end = o.End
	}
	return Interval{Start: start, End: end}, true
}

// Overlap is the free-function form of Interval.Overlaps.
func Overlap(a, b Interval) bool {
	return a.Overlaps(b)
}
