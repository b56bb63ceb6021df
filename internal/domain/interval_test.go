package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func iv(startHour, endHour int) Interval {
	return Interval{Start: at(startHour, 0), End: at(endHour, 0)}
}

func TestInterval_Valid(t *testing.T) {
	assert.True(t, iv(10, 11).Valid())
	assert.False(t, iv(10, 10).Valid(), "zero length interval is invalid")
	assert.False(t, iv(11, 10).Valid(), "reversed interval is invalid")
}

func TestDeduplicate(t *testing.T) {
	in := []Interval{iv(1, 2), iv(3, 4), iv(1, 2), iv(1, 3), iv(3, 4)}

	got := Deduplicate(in)

	assert.Equal(t, []Interval{iv(1, 2), iv(3, 4), iv(1, 3)}, got)
}

func TestDeduplicate_SameInstantDifferentLocation(t *testing.T) {
	prague := time.FixedZone("CET", 3600)

	a := iv(8, 9)
	b := Interval{Start: a.Start.In(prague), End: a.End.In(prague)}

	assert.Len(t, Deduplicate([]Interval{a, b}), 1)
}

func TestSortByStart_DoesNotMutateInput(t *testing.T) {
	in := []Interval{iv(5, 6), iv(1, 2), iv(3, 4)}

	got := SortByStart(in)

	assert.Equal(t, []Interval{iv(1, 2), iv(3, 4), iv(5, 6)}, got)
	assert.Equal(t, iv(5, 6), in[0])
}

func TestIsWithin_HalfOpen(t *testing.T) {
	bound := iv(10, 14)

	assert.True(t, IsWithin(at(10, 0), bound), "start is inclusive")
	assert.True(t, IsWithin(at(13, 59), bound))
	assert.False(t, IsWithin(at(14, 0), bound), "end is exclusive")
	assert.False(t, IsWithin(at(9, 59), bound))
}

func TestGaps(t *testing.T) {
	assert.Empty(t, Gaps(nil))
	assert.Empty(t, Gaps([]Interval{iv(1, 2)}))

	got := Gaps([]Interval{iv(1, 2), iv(3, 4), iv(6, 7)})
	assert.Equal(t, []Interval{iv(2, 3), iv(4, 6)}, got)
}

func TestMerge(t *testing.T) {
	got := Merge([]Interval{iv(1, 3), iv(2, 4), iv(4, 5), iv(7, 8), iv(7, 9)})
	assert.Equal(t, []Interval{iv(1, 5), iv(7, 9)}, got)

	nested := Merge([]Interval{iv(10, 14), iv(11, 12)})
	assert.Equal(t, []Interval{iv(10, 14)}, nested)
}

func TestComplementWithin_Scenarios(t *testing.T) {
	bound := iv(10, 14)

	tests := []struct {
		name     string
		covering []Interval
		want     []Interval
	}{
		{name: "no other work", covering: nil, want: []Interval{iv(10, 14)}},
		{name: "work in the middle", covering: []Interval{iv(11, 12)}, want: []Interval{iv(10, 11), iv(12, 14)}},
		{name: "fully covered", covering: []Interval{iv(10, 14)}, want: []Interval{}},
		{name: "work at start", covering: []Interval{iv(10, 12)}, want: []Interval{iv(12, 14)}},
		{name: "work at end", covering: []Interval{iv(12, 14)}, want: []Interval{iv(10, 12)}},
		{name: "unsorted work", covering: []Interval{iv(13, 14), iv(11, 12)}, want: []Interval{iv(10, 11), iv(12, 13)}},
		{name: "work outside bound", covering: []Interval{iv(6, 8), iv(14, 15)}, want: []Interval{iv(10, 14)}},
		{name: "work running past the end", covering: []Interval{iv(12, 16)}, want: []Interval{iv(10, 12)}},
		{name: "overlapping work", covering: []Interval{iv(10, 13), iv(11, 12)}, want: []Interval{iv(13, 14)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComplementWithin(bound, tt.covering)
			assert.ElementsMatch(t, tt.want, got)
			assert.Equal(t, SortByStart(got), got, "result must be ascending")
		})
	}
}

func TestComplementWithin_StartBeforeBoundIsIgnored(t *testing.T) {
	// Work that starts before the bound does not count as covering, even if it
	// ends inside it.
	got := ComplementWithin(iv(10, 14), []Interval{iv(9, 11)})
	assert.Equal(t, []Interval{iv(10, 14)}, got)
}

func TestComplementWithin_InvalidBound(t *testing.T) {
	assert.Empty(t, ComplementWithin(iv(14, 10), nil))
	assert.Empty(t, ComplementWithin(iv(10, 10), nil))
}

func TestComplementWithin_PartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	bound := Interval{Start: day, End: day.Add(24 * time.Hour)}

	for round := 0; round < 200; round++ {
		covering := randomDisjoint(rng, bound)
		got := ComplementWithin(bound, covering)

		var total time.Duration
		all := append(append([]Interval{}, covering...), got...)
		for _, r := range got {
			require.True(t, r.Valid(), "round %d: invalid interval %s", round, r)
		}
		for _, r := range all {
			total += r.Duration()
		}
		require.Equal(t, bound.Duration(), total, "round %d: durations must add up", round)

		sorted := SortByStart(all)
		require.Equal(t, bound.Start, sorted[0].Start, "round %d", round)
		require.Equal(t, bound.End, sorted[len(sorted)-1].End, "round %d", round)
		for idx := 1; idx < len(sorted); idx++ {
			require.Equal(t, sorted[idx-1].End, sorted[idx].Start, "round %d: hole or overlap at %d", round, idx)
		}
	}
}

// randomDisjoint returns non-overlapping intervals inside bound, in random
// order, with minute granularity.
func randomDisjoint(rng *rand.Rand, bound Interval) []Interval {
	minutes := int(bound.Duration() / time.Minute)
	var out []Interval
	cursor := 0
	for cursor < minutes {
		cursor += rng.Intn(120)
		length := 1 + rng.Intn(90)
		if cursor+length > minutes {
			break
		}
		out = append(out, Interval{
			Start: bound.Start.Add(time.Duration(cursor) * time.Minute),
			End:   bound.Start.Add(time.Duration(cursor+length) * time.Minute),
		})
		cursor += length
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
