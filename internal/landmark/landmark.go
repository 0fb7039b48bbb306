package landmark

import (
	"errors"
	"math"
)

// EyePointCount is the number of landmark points per eye: the two horizontal
// corners, the upper/lower lid extremes and the upper/lower mid-lid points.
const EyePointCount = 6

// Indices into an eye's landmark slice.
const (
	OuterCorner = 0
	InnerCorner = 1
	UpperLid    = 2
	LowerLid    = 3
	UpperMid    = 4
	LowerMid    = 5
)

// minHorizontalDistance is the smallest corner-to-corner distance still
// treated as valid geometry. Below this the ratio is indeterminate.
const minHorizontalDistance = 1e-9

// ErrIndeterminate is returned when landmark geometry is degenerate and no
// openness ratio can be computed. Callers skip the frame, they do not treat
// it as an unfocused sample.
var ErrIndeterminate = errors.New("landmark: indeterminate eye geometry")

// Point is a 2-D landmark coordinate in the detector's normalized space.
type Point struct {
	X float64
	Y float64
}

func distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Openness computes the eye aspect ratio from one eye's six landmark points:
// the sum of the two vertical lid distances over twice the horizontal
// corner-to-corner distance. Low values indicate a closed eye.
func Openness(eye []Point) (float64, error) {
	if len(eye) < EyePointCount {
		return 0, ErrIndeterminate
	}
	v1 := distance(eye[UpperLid], eye[LowerLid])
	v2 := distance(eye[UpperMid], eye[LowerMid])
	h := distance(eye[OuterCorner], eye[InnerCorner])
	if h < minHorizontalDistance {
		return 0, ErrIndeterminate
	}
	return (v1 + v2) / (2.0 * h), nil
}

// AverageOpenness computes the openness ratio averaged across both eyes.
// A degenerate frame on either eye makes the whole frame indeterminate.
func AverageOpenness(left, right []Point) (float64, error) {
	l, err := Openness(left)
	if err != nil {
		return 0, err
	}
	r, err := Openness(right)
	if err != nil {
		return 0, err
	}
	return (l + r) / 2.0, nil
}

// DefaultOpennessThreshold is the ratio below which an eye counts as closed.
// Tuned empirically against the landmark detector's normalized coordinates.
const DefaultOpennessThreshold = 0.21

// DefaultHistorySize is the number of recent frames averaged before the
// detector starts judging openness against the threshold.
const DefaultHistorySize = 5

// Detector turns per-frame openness ratios into smoothed boolean focus
// hints. It keeps a short rolling history so a single noisy frame cannot
// swing the hint; until the history fills it reports focused.
type Detector struct {
	threshold   float64
	historySize int
	history     []float64
}

// NewDetector returns a Detector with the given openness threshold and
// history size. Non-positive arguments fall back to the defaults.
func NewDetector(threshold float64, historySize int) *Detector {
	if threshold <= 0 {
		threshold = DefaultOpennessThreshold
	}
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Detector{
		threshold:   threshold,
		historySize: historySize,
		history:     make([]float64, 0, historySize),
	}
}

// ObserveFrame feeds one frame's eye landmarks and returns the smoothed
// focus hint. Indeterminate frames return ErrIndeterminate and leave the
// history untouched.
func (d *Detector) ObserveFrame(left, right []Point) (bool, error) {
	ratio, err := AverageOpenness(left, right)
	if err != nil {
		return false, err
	}
	return d.ObserveRatio(ratio), nil
}

// ObserveRatio feeds an already-computed openness ratio.
func (d *Detector) ObserveRatio(ratio float64) bool {
	d.history = append(d.history, ratio)
	if len(d.history) > d.historySize {
		d.history = d.history[1:]
	}
	if len(d.history) < d.historySize {
		return true
	}
	var sum float64
	for _, r := range d.history {
		sum += r
	}
	return sum/float64(len(d.history)) > d.threshold
}
