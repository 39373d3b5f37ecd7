package proctoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Detector classifies a single frame into a score. The presence detector
// returns 1 (face found) or 0; learned classifiers return a probability
// in [0,1].
type Detector interface {
	Classify(f *Frame) (float64, error)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(f *Frame) (float64, error)

func (fn DetectorFunc) Classify(f *Frame) (float64, error) { return fn(f) }

// ────────────────────────────────────────────────────────────────────────────
// Presence detector
// ────────────────────────────────────────────────────────────────────────────

// PresenceDetector is a deterministic geometric face-presence check: a
// face in front of the camera produces local contrast in the center of
// the frame, while an empty or covered camera yields a near-uniform
// region. It is intentionally cheap; the anomaly classifier carries the
// learned judgment.
type PresenceDetector struct {
	// MinStdDev is the minimum luminance standard deviation of the
	// center region for a face to be considered present.
	MinStdDev float64
}

// NewPresenceDetector creates a PresenceDetector with the default
// contrast threshold.
func NewPresenceDetector() *PresenceDetector {
	return &PresenceDetector{MinStdDev: 12.0}
}

// Classify returns 1 when a face-like region is present, 0 otherwise.
func (d *PresenceDetector) Classify(f *Frame) (float64, error) {
	if f == nil || len(f.Pixels) == 0 || f.Width <= 0 || f.Height <= 0 {
		return 0, fmt.Errorf("empty frame")
	}

	// Center window: middle third in both dimensions.
	x0, x1 := f.Width/3, 2*f.Width/3
	y0, y1 := f.Height/3, 2*f.Height/3
	if x1 <= x0 {
		x1 = f.Width
		x0 = 0
	}
	if y1 <= y0 {
		y1 = f.Height
		y0 = 0
	}

	var sum, sumSq float64
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			v := float64(f.Pixels[y*f.Width+x])
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("degenerate frame %dx%d", f.Width, f.Height)
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	if math.Sqrt(variance) >= d.MinStdDev {
		return 1, nil
	}
	return 0, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Anomaly classifier
// ────────────────────────────────────────────────────────────────────────────

// LinearClassifier is a logistic model over frame statistics. It stands
// in for any learned anomaly model satisfying the Detector contract;
// weights are trained offline and loaded from a JSON file.
type LinearClassifier struct {
	Bias    float64   `json:"bias"`
	Weights []float64 `json:"weights"` // mean, variance, edge energy
}

// LoadClassifier reads classifier weights from disk.
func LoadClassifier(path string) (*LinearClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classifier weights: %w", err)
	}
	var c LinearClassifier
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode classifier weights: %w", err)
	}
	if len(c.Weights) != 3 {
		return nil, fmt.Errorf("classifier requires 3 weights, got %d", len(c.Weights))
	}
	return &c, nil
}

// Classify returns the anomaly probability for a frame.
func (c *LinearClassifier) Classify(f *Frame) (float64, error) {
	if f == nil || len(f.Pixels) == 0 {
		return 0, fmt.Errorf("empty frame")
	}

	mean, variance := frameStats(f)
	edge := edgeEnergy(f)

	z := c.Bias +
		c.Weights[0]*(mean/255.0) +
		c.Weights[1]*(variance/(255.0*255.0)) +
		c.Weights[2]*edge
	return 1.0 / (1.0 + math.Exp(-z)), nil
}

func frameStats(f *Frame) (mean, variance float64) {
	var sum, sumSq float64
	for _, p := range f.Pixels {
		v := float64(p)
		sum += v
		sumSq += v * v
	}
	n := float64(len(f.Pixels))
	mean = sum / n
	variance = sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

// edgeEnergy is the mean absolute horizontal gradient, normalized to [0,1].
func edgeEnergy(f *Frame) float64 {
	if f.Width < 2 {
		return 0
	}
	var total float64
	for y := 0; y < f.Height; y++ {
		row := f.Pixels[y*f.Width : (y+1)*f.Width]
		for x := 1; x < f.Width; x++ {
			d := float64(row[x]) - float64(row[x-1])
			if d < 0 {
				d = -d
			}
			total += d
		}
	}
	return total / (float64(f.Height*(f.Width-1)) * 255.0)
}
