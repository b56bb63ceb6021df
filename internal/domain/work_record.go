package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by trackers when a record id does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrMissingUser is returned when a source cannot resolve the current user.
	ErrMissingUser = errors.New("current user could not be resolved")
)

// ClassificationKey identifies the project/activity/task a record is logged on.
type ClassificationKey struct {
	ProjectID  string
	ActivityID string
	TaskID     string
}

// WorkRecord is a logged time entry in the tracker.
type WorkRecord struct {
	ID          string
	Name        string
	Start       time.Time
	DurationSec int64
	Key         ClassificationKey
}

// End is derived from Start and the logged duration.
func (r WorkRecord) End() time.Time {
	return r.Start.Add(time.Duration(r.DurationSec) * time.Second)
}

func (r WorkRecord) Interval() Interval {
	return Interval{Start: r.Start, End: r.End()}
}

// Partition splits records into those logged on target (generated by a
// previous reconciliation) and everything else.
func Partition(records []WorkRecord, target ClassificationKey) (generated, other []WorkRecord) {
	for _, r := range records {
		if r.Key == target {
			generated = append(generated, r)
		} else {
			other = append(other, r)
		}
	}
	return generated, other
}

// Intervals maps records to their time ranges.
func Intervals(records []WorkRecord) []Interval {
	out := make([]Interval, 0, len(records))
	for _, r := range records {
		out = append(out, r.Interval())
	}
	return out
}

// NewWorkRecord is a record to be created in the tracker.
type NewWorkRecord struct {
	ID          string
	Key         ClassificationKey
	Start       time.Time
	DurationSec int64
}

// NewWorkRecordFor builds a record covering iv, with the duration rounded to
// whole seconds.
func NewWorkRecordFor(id string, key ClassificationKey, iv Interval) NewWorkRecord {
	return NewWorkRecord{
		ID:          id,
		Key:         key,
		Start:       iv.Start,
		DurationSec: int64(iv.Duration().Round(time.Second) / time.Second),
	}
}
