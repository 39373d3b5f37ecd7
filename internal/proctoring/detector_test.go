package proctoring

import (
	"testing"
	"time"
)

// uniformFrame has zero contrast everywhere.
func uniformFrame(value uint8) *Frame {
	pixels := make([]uint8, 64*64)
	for i := range pixels {
		pixels[i] = value
	}
	return &Frame{Index: 0, CapturedAt: time.Now(), Width: 64, Height: 64, Pixels: pixels}
}

// texturedFrame alternates light and dark pixels in the center region.
func texturedFrame() *Frame {
	f := uniformFrame(40)
	for y := 20; y < 44; y++ {
		for x := 20; x < 44; x++ {
			if (x+y)%2 == 0 {
				f.Pixels[y*64+x] = 220
			}
		}
	}
	return f
}

func TestPresenceDetectorUniformFrame(t *testing.T) {
	d := NewPresenceDetector()
	score, err := d.Classify(uniformFrame(128))
	if err != nil {
		t.Fatal(err)
	}
	if score != 0 {
		t.Fatalf("uniform frame should read as absent, got %v", score)
	}
}

func TestPresenceDetectorTexturedFrame(t *testing.T) {
	d := NewPresenceDetector()
	score, err := d.Classify(texturedFrame())
	if err != nil {
		t.Fatal(err)
	}
	if score != 1 {
		t.Fatalf("textured frame should read as present, got %v", score)
	}
}

func TestPresenceDetectorEmptyFrame(t *testing.T) {
	d := NewPresenceDetector()
	if _, err := d.Classify(&Frame{}); err == nil {
		t.Fatal("expected error for empty frame")
	}
}

func TestLinearClassifierBounds(t *testing.T) {
	c := &LinearClassifier{Bias: 0.2, Weights: []float64{0.5, -1.0, 2.0}}
	for _, f := range []*Frame{uniformFrame(0), uniformFrame(255), texturedFrame()} {
		score, err := c.Classify(f)
		if err != nil {
			t.Fatal(err)
		}
		if score < 0 || score > 1 {
			t.Fatalf("score %v out of [0,1]", score)
		}
	}
}

func TestLinearClassifierMonotonicBias(t *testing.T) {
	low := &LinearClassifier{Bias: -5, Weights: []float64{0, 0, 0}}
	high := &LinearClassifier{Bias: 5, Weights: []float64{0, 0, 0}}

	frame := texturedFrame()
	lowScore, _ := low.Classify(frame)
	highScore, _ := high.Classify(frame)
	if lowScore >= 0.5 {
		t.Fatalf("strongly negative bias should score low, got %v", lowScore)
	}
	if highScore <= 0.5 {
		t.Fatalf("strongly positive bias should score high, got %v", highScore)
	}
}

func TestDetectorFunc(t *testing.T) {
	var called bool
	d := DetectorFunc(func(_ *Frame) (float64, error) {
		called = true
		return 0.7, nil
	})
	score, err := d.Classify(uniformFrame(0))
	if err != nil || score != 0.7 || !called {
		t.Fatalf("adapter mismatch: score=%v err=%v called=%v", score, err, called)
	}
}
