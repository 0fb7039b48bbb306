package landmark

import (
	"errors"
	"math"
	"testing"
)

// eyeWithOpenness builds a synthetic eye whose aspect ratio is exactly the
// requested value: horizontal distance 1, both vertical distances ratio.
func eyeWithOpenness(ratio float64) []Point {
	return []Point{
		{X: 0, Y: 0},         // outer corner
		{X: 1, Y: 0},         // inner corner
		{X: 0.3, Y: ratio},   // upper lid
		{X: 0.3, Y: 0},       // lower lid
		{X: 0.7, Y: ratio},   // upper mid
		{X: 0.7, Y: 0},       // lower mid
	}
}

func TestOpenness_KnownGeometry(t *testing.T) {
	got, err := Openness(eyeWithOpenness(0.3))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("expected ratio 0.3, got %f", got)
	}
}

func TestOpenness_DegenerateHorizontal(t *testing.T) {
	eye := eyeWithOpenness(0.3)
	eye[InnerCorner] = eye[OuterCorner]
	if _, err := Openness(eye); !errors.Is(err, ErrIndeterminate) {
		t.Fatalf("expected ErrIndeterminate, got %v", err)
	}
}

func TestOpenness_TooFewPoints(t *testing.T) {
	if _, err := Openness(eyeWithOpenness(0.3)[:4]); !errors.Is(err, ErrIndeterminate) {
		t.Fatalf("expected ErrIndeterminate, got %v", err)
	}
}

func TestAverageOpenness_BothEyes(t *testing.T) {
	got, err := AverageOpenness(eyeWithOpenness(0.2), eyeWithOpenness(0.4))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("expected averaged ratio 0.3, got %f", got)
	}
}

func TestAverageOpenness_OneEyeIndeterminate(t *testing.T) {
	if _, err := AverageOpenness(eyeWithOpenness(0.3), nil); !errors.Is(err, ErrIndeterminate) {
		t.Fatalf("expected ErrIndeterminate, got %v", err)
	}
}

func TestDetector_ReportsFocusedUntilHistoryFills(t *testing.T) {
	d := NewDetector(0.21, 5)
	for i := 0; i < 4; i++ {
		if !d.ObserveRatio(0.05) {
			t.Fatalf("expected focused while history is filling (frame %d)", i)
		}
	}
	if d.ObserveRatio(0.05) {
		t.Fatal("expected unfocused once history filled with closed-eye ratios")
	}
}

func TestDetector_SingleBlinkFrameDoesNotFlip(t *testing.T) {
	d := NewDetector(0.21, 5)
	for i := 0; i < 5; i++ {
		d.ObserveRatio(0.35)
	}
	// one closed-eye frame against four open ones keeps the average above
	// the threshold
	if !d.ObserveRatio(0.02) {
		t.Fatal("expected a single blink frame to remain focused")
	}
}

func TestDetector_IndeterminateFrameSkipsHistory(t *testing.T) {
	d := NewDetector(0.21, 2)
	if _, err := d.ObserveFrame(nil, nil); !errors.Is(err, ErrIndeterminate) {
		t.Fatalf("expected ErrIndeterminate, got %v", err)
	}
	if len(d.history) != 0 {
		t.Fatalf("expected history untouched, got %d entries", len(d.history))
	}
}
