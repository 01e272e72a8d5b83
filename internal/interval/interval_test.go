package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint before", New(day("2024-01-01"), day("2024-02-01")), New(day("2024-03-01"), day("2024-04-01")), false},
		{"touching bounds", New(day("2024-01-01"), day("2024-02-01")), New(day("2024-02-01"), day("2024-04-01")), true},
		{"partial overlap", New(day("2024-01-01"), day("2024-06-01")), New(day("2024-05-01"), day("2024-09-01")), true},
		{"containment", New(day("2024-01-01"), day("2024-12-31")), New(day("2024-05-01"), day("2024-06-01")), true},
		{"identical", New(day("2024-01-01"), day("2024-06-01")), New(day("2024-01-01"), day("2024-06-01")), true},
		{"empty interval", New(day("2024-06-01"), day("2024-01-01")), New(day("2024-01-01"), day("2024-12-31")), false},
		{"both empty", New(day("2024-06-01"), day("2024-01-01")), New(day("2024-06-01"), day("2024-01-01")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlap(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlap(tt.b, tt.a), "overlap must be symmetric")
		})
	}
}

func TestOverlap_SingleInstant(t *testing.T) {
	d := day("2024-09-01")
	assert.True(t, Overlap(New(d, d), New(d, d)))
	assert.False(t, New(d, d).Empty())
}

func TestOverlap_SymmetryAcrossOrderings(t *testing.T) {
	points := []time.Time{day("2024-01-01"), day("2024-02-01"), day("2024-03-01"), day("2024-04-01")}
	var intervals []Interval
	for i := range points {
		for j := i; j < len(points); j++ {
			intervals = append(intervals, New(points[i], points[j]))
		}
	}
	for _, a := range intervals {
		for _, b := range intervals {
			assert.Equal(t, Overlap(a, b), Overlap(b, a), "a=%v b=%v", a, b)
		}
	}
}

func TestContains(t *testing.T) {
	i := New(day("2024-01-01"), day("2024-06-01"))
	assert.True(t, i.Contains(day("2024-01-01")))
	assert.True(t, i.Contains(day("2024-06-01")))
	assert.True(t, i.Contains(day("2024-03-15")))
	assert.False(t, i.Contains(day("2024-06-02")))
	assert.False(t, New(day("2024-06-01"), day("2024-01-01")).Contains(day("2024-03-01")))
}

func TestIntersection(t *testing.T) {
	got, ok := New(day("2024-01-01"), day("2024-06-01")).Intersection(New(day("2024-05-01"), day("2024-09-01")))
	assert.True(t, ok)
	assert.Equal(t, day("2024-05-01"), got.Start)
	assert.Equal(t, day("2024-06-01"), got.End)

	_, ok = New(day("2024-01-01"), day("2024-02-01")).Intersection(New(day("2024-03-01"), day("2024-04-01")))
	assert.False(t, ok)
}
