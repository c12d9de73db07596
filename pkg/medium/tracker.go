package medium

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Capacity is the deepest medium nesting a single ray can track
	Capacity = 16
	// VacuumPriority fills unused slots; any real medium has a smaller priority
	VacuumPriority uint32 = math.MaxUint32
	// InvalidTag identifies no medium
	InvalidTag uint32 = math.MaxUint32
)

var (
	ErrOverflow      = errors.New("medium: tracker overflow")
	ErrUnmatchedExit = errors.New("medium: exit without matching enter")
	ErrCorrupted     = errors.New("medium: tracker priority order corrupted")
	ErrReserved      = errors.New("medium: priority is reserved for vacuum")
)

// Info identifies a medium instance by its tag
type Info struct {
	Tag uint32
}

// VacuumInfo is the medium reported by an empty tracker
var VacuumInfo = Info{Tag: InvalidTag}

// IsVacuum reports whether the info names no medium
func (i Info) IsVacuum() bool {
	return i.Tag == InvalidTag
}

// TrackerError carries the offending entry of a failed tracker operation
type TrackerError struct {
	Op       string
	Priority uint32
	Tag      uint32
	Err      error
}

func (e *TrackerError) Error() string {
	return fmt.Sprintf("%s (op=%s priority=%d tag=%d)", e.Err, e.Op, e.Priority, e.Tag)
}

func (e *TrackerError) Unwrap() error {
	return e.Err
}

// Tracker records the media enclosing a ray, ordered by ascending priority.
// Slot 0 is the current medium: lower priority values dominate. The zero
// value is not ready to use; call NewTracker. A tracker belongs to one ray
// and must not be shared.
type Tracker struct {
	priorities [Capacity]uint32
	media      [Capacity]Info
	size       int
}

// NewTracker returns an empty tracker
func NewTracker() Tracker {
	var t Tracker
	t.Reset()
	return t
}

// Reset empties the tracker
func (t *Tracker) Reset() {
	for i := range t.priorities {
		t.priorities[i] = VacuumPriority
		t.media[i] = VacuumInfo
	}
	t.size = 0
}

// Size returns the number of media the ray is inside
func (t *Tracker) Size() int {
	return t.size
}

// Vacuum reports whether the ray is inside no medium
func (t *Tracker) Vacuum() bool {
	return t.priorities[0] == VacuumPriority
}

// Enter inserts (priority, m) keeping the slots sorted. An entry with the same
// priority as an existing one goes after it. VacuumPriority is refused.
func (t *Tracker) Enter(priority uint32, m Info) error {
	if priority == VacuumPriority {
		return &TrackerError{Op: "enter", Priority: priority, Tag: m.Tag, Err: ErrReserved}
	}
	if t.size == Capacity {
		return &TrackerError{Op: "enter", Priority: priority, Tag: m.Tag, Err: ErrOverflow}
	}
	i := t.size
	for i > 0 && t.priorities[i-1] > priority {
		t.priorities[i] = t.priorities[i-1]
		t.media[i] = t.media[i-1]
		i--
	}
	t.priorities[i] = priority
	t.media[i] = m
	t.size++
	return t.check("enter", priority, m)
}

// Exit removes the first slot matching (priority, m) exactly
func (t *Tracker) Exit(priority uint32, m Info) error {
	index := t.find(priority, m)
	if index < 0 {
		return &TrackerError{Op: "exit", Priority: priority, Tag: m.Tag, Err: ErrUnmatchedExit}
	}
	copy(t.priorities[index:t.size], t.priorities[index+1:t.size])
	copy(t.media[index:t.size], t.media[index+1:t.size])
	t.size--
	t.priorities[t.size] = VacuumPriority
	t.media[t.size] = VacuumInfo
	return t.check("exit", priority, m)
}

// Exist reports whether (priority, m) is currently entered
func (t *Tracker) Exist(priority uint32, m Info) bool {
	return t.find(priority, m) >= 0
}

// Current returns the dominant medium, VacuumInfo when empty
func (t *Tracker) Current() Info {
	if t.Vacuum() {
		return VacuumInfo
	}
	return t.media[0]
}

// CurrentPriority returns the priority of the dominant medium
func (t *Tracker) CurrentPriority() uint32 {
	return t.priorities[0]
}

// TrueHit reports whether a boundary of the given priority is visible, i.e.
// not masked by a dominating medium the ray is already in
func (t *Tracker) TrueHit(priority uint32) bool {
	return priority <= t.priorities[0]
}

// Priorities returns a copy of the occupied priority slots
func (t *Tracker) Priorities() []uint32 {
	out := make([]uint32, t.size)
	copy(out, t.priorities[:t.size])
	return out
}

func (t *Tracker) find(priority uint32, m Info) int {
	for i := 0; i < t.size; i++ {
		if t.priorities[i] == priority && t.media[i] == m {
			return i
		}
	}
	return -1
}

func (t *Tracker) check(op string, priority uint32, m Info) error {
	for i := 1; i < t.size; i++ {
		if t.priorities[i-1] > t.priorities[i] {
			return &TrackerError{Op: op, Priority: priority, Tag: m.Tag, Err: ErrCorrupted}
		}
	}
	return nil
}
