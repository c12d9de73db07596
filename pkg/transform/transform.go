// Package transform composes hierarchical, possibly animated, object
// transforms into per-instance world matrices.
package transform

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-light-transport/pkg/log"
)

var (
	ErrNoKeyframes = errors.New("transform: lerp needs at least one keyframe")
	ErrNilStage    = errors.New("transform: stack entry is nil")
)

var logger = log.New("transform")

// Transform maps an object's local space to its parent's space at a given time.
// Implementations are pointer types so the tree builder can recognize a
// transform shared by several scene nodes.
type Transform interface {
	IsStatic() bool
	IsIdentity() bool
	Matrix(time float64) mgl64.Mat4
}

// Matrix is an arbitrary static 4x4 transform
type Matrix struct {
	m mgl64.Mat4
}

// NewMatrix wraps m as a static transform
func NewMatrix(m mgl64.Mat4) *Matrix {
	return &Matrix{m: m}
}

func (t *Matrix) IsStatic() bool                 { return true }
func (t *Matrix) IsIdentity() bool               { return t.m == mgl64.Ident4() }
func (t *Matrix) Matrix(time float64) mgl64.Mat4 { return t.m }

// SRT scales, then rotates about an axis, then translates
type SRT struct {
	m mgl64.Mat4
}

// NewSRT builds T·R·S. The rotation angle is in degrees; a zero axis means no rotation.
func NewSRT(scale mgl64.Vec3, axis mgl64.Vec3, degrees float64, translate mgl64.Vec3) *SRT {
	r := mgl64.Ident4()
	if degrees != 0 && axis.Len() > 0 {
		r = mgl64.HomogRotate3D(mgl64.DegToRad(degrees), axis.Normalize())
	}
	s := mgl64.Scale3D(scale.X(), scale.Y(), scale.Z())
	t := mgl64.Translate3D(translate.X(), translate.Y(), translate.Z())
	return &SRT{m: t.Mul4(r).Mul4(s)}
}

func (t *SRT) IsStatic() bool                 { return true }
func (t *SRT) IsIdentity() bool               { return t.m == mgl64.Ident4() }
func (t *SRT) Matrix(time float64) mgl64.Mat4 { return t.m }

// Stack composes transforms in order: later entries apply after earlier ones
type Stack struct {
	stages []Transform
}

// NewStack creates a composed transform
func NewStack(stages ...Transform) (*Stack, error) {
	for i, s := range stages {
		if s == nil {
			return nil, fmt.Errorf("%w: index %d", ErrNilStage, i)
		}
	}
	return &Stack{stages: stages}, nil
}

func (t *Stack) IsStatic() bool {
	for _, s := range t.stages {
		if !s.IsStatic() {
			return false
		}
	}
	return true
}

func (t *Stack) IsIdentity() bool {
	for _, s := range t.stages {
		if !s.IsIdentity() {
			return false
		}
	}
	return true
}

func (t *Stack) Matrix(time float64) mgl64.Mat4 {
	m := mgl64.Ident4()
	for _, s := range t.stages {
		m = s.Matrix(time).Mul4(m)
	}
	return m
}

// View places a camera-like frame at origin looking along front
type View struct {
	m        mgl64.Mat4
	identity bool
}

// NewView builds the frame with u = up×w, v = w×u and w = -front
func NewView(origin, front, up mgl64.Vec3) *View {
	w := front.Mul(-1).Normalize()
	u := up.Cross(w).Normalize()
	v := w.Cross(u).Normalize()
	m := mgl64.Mat4FromCols(u.Vec4(0), v.Vec4(0), w.Vec4(0), origin.Vec4(1))
	return &View{
		m:        m,
		identity: origin == mgl64.Vec3{} && v == mgl64.Vec3{0, 1, 0} && w == mgl64.Vec3{0, 0, 1},
	}
}

func (t *View) IsStatic() bool                 { return true }
func (t *View) IsIdentity() bool               { return t.identity }
func (t *View) Matrix(time float64) mgl64.Mat4 { return t.m }

// Keyframe pins a transform to a point in time
type Keyframe struct {
	Time      float64
	Transform Transform
}

// Lerp interpolates between keyframes: translation and scale linearly,
// rotation spherically. Outside the key range it holds the nearest key.
type Lerp struct {
	times  []float64
	frames []Transform

	mu        sync.Mutex
	cacheTime float64
	cacheSet  bool
	cache     mgl64.Mat4
	upper     int
	lower     Decomposed
	higher    Decomposed
}

// NewLerp sorts the keyframes by time and drops duplicate time points
func NewLerp(keys []Keyframe) (*Lerp, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeyframes
	}
	sorted := make([]Keyframe, len(keys))
	copy(sorted, keys)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	lerp := &Lerp{upper: -1}
	duplicates := 0
	for i, k := range sorted {
		if k.Transform == nil {
			return nil, fmt.Errorf("transform: keyframe at time %v has no transform", k.Time)
		}
		if i > 0 && k.Time == sorted[i-1].Time {
			duplicates++
			continue
		}
		lerp.times = append(lerp.times, k.Time)
		lerp.frames = append(lerp.frames, k.Transform)
	}
	if duplicates > 0 {
		logger.Warningf("dropped %d duplicate lerp time point(s)", duplicates)
	}
	return lerp, nil
}

func (t *Lerp) IsStatic() bool   { return false }
func (t *Lerp) IsIdentity() bool { return false }

func (t *Lerp) Matrix(time float64) mgl64.Mat4 {
	t.mu.Lock()
	defer t.mu.Unlock()

	first, last := t.times[0], t.times[len(t.times)-1]
	if time <= first {
		time = first
	} else if time >= last {
		time = last
	}
	if t.cacheSet && time == t.cacheTime {
		return t.cache
	}
	t.cacheTime, t.cacheSet = time, true

	if time == first {
		t.cache = t.frames[0].Matrix(time)
		return t.cache
	}
	if time == last {
		t.cache = t.frames[len(t.frames)-1].Matrix(time)
		return t.cache
	}

	upper := sort.SearchFloat64s(t.times, time)
	if t.times[upper] == time {
		upper++
	}
	if upper != t.upper {
		t.upper = upper
		t.lower = Decompose(t.frames[upper-1].Matrix(time))
		t.higher = Decompose(t.frames[upper].Matrix(time))
	}
	alpha := (time - t.times[upper-1]) / (t.times[upper] - t.times[upper-1])
	t.cache = Interpolate(t.lower, t.higher, alpha).Matrix()
	return t.cache
}
