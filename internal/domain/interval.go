package domain

import (
	"fmt"
	"slices"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval has a positive length. Invalid intervals
// are never written to the tracker.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i Interval) String() string {
	return fmt.Sprintf("%s - %s", i.Start.UTC().Format(time.RFC3339), i.End.UTC().Format(time.RFC3339))
}

// boundaryKey identifies an interval by its instants, independent of the
// location the times were parsed in.
type boundaryKey struct {
	start, end int64
}

func keyOf(i Interval) boundaryKey {
	return boundaryKey{start: i.Start.UnixNano(), end: i.End.UnixNano()}
}

// Deduplicate keeps one interval per distinct (start, end) pair. The first
// occurrence wins and input order is otherwise preserved.
func Deduplicate(intervals []Interval) []Interval {
	return dedupeByBoundaries(intervals, func(iv Interval) Interval { return iv })
}

func dedupeByBoundaries[T any](items []T, interval func(T) Interval) []T {
	seen := make(map[boundaryKey]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := keyOf(interval(it))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// SortByStart returns a copy of intervals sorted ascending by start. The sort
// is stable.
func SortByStart(intervals []Interval) []Interval {
	out := slices.Clone(intervals)
	slices.SortStableFunc(out, func(a, b Interval) int {
		return a.Start.Compare(b.Start)
	})
	return out
}

// IsWithin reports whether point lies in the half-open bound.
func IsWithin(point time.Time, bound Interval) bool {
	return !point.Before(bound.Start) && point.Before(bound.End)
}

// Gaps returns the interval between each adjacent pair of a start-sorted,
// non-overlapping slice. Results are not validated.
func Gaps(sorted []Interval) []Interval {
	if len(sorted) < 2 {
		return nil
	}
	out := make([]Interval, 0, len(sorted)-1)
	for idx := 0; idx < len(sorted)-1; idx++ {
		out = append(out, Interval{Start: sorted[idx].End, End: sorted[idx+1].Start})
	}
	return out
}

// Merge coalesces overlapping or touching intervals of a start-sorted slice.
// Non-overlapping input is returned unchanged.
func Merge(sorted []Interval) []Interval {
	if len(sorted) == 0 {
		return nil
	}
	out := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		if iv.Start.After(cur.End) {
			out = append(out, cur)
			cur = iv
			continue
		}
		if iv.End.After(cur.End) {
			cur.End = iv.End
		}
	}
	return append(out, cur)
}

// ComplementWithin returns the parts of bound not covered by covering, in
// ascending order. Only covering intervals whose start falls inside bound are
// considered; an interval that starts before bound and ends inside it does
// not reduce the result.
func ComplementWithin(bound Interval, covering []Interval) []Interval {
	inside := make([]Interval, 0, len(covering))
	for _, iv := range covering {
		if IsWithin(iv.Start, bound) {
			inside = append(inside, iv)
		}
	}
	if len(inside) == 0 {
		return validOnly([]Interval{bound})
	}

	merged := Merge(SortByStart(inside))
	candidates := make([]Interval, 0, len(merged)+1)
	candidates = append(candidates, Interval{Start: bound.Start, End: merged[0].Start})
	candidates = append(candidates, Gaps(merged)...)
	candidates = append(candidates, Interval{Start: merged[len(merged)-1].End, End: bound.End})
	return validOnly(candidates)
}

func validOnly(intervals []Interval) []Interval {
	out := intervals[:0]
	for _, iv := range intervals {
		if iv.Valid() {
			out = append(out, iv)
		}
	}
	return out
}
