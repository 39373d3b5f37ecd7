// Package proctoring implements the integrity-monitoring pipeline: frame
// sampling, detection, event aggregation, and the escalation protocol.
package proctoring

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "image/jpeg"
	_ "image/png"
)

// Frame is a single grayscale video frame.
type Frame struct {
	Index      int
	CapturedAt time.Time
	Width      int
	Height     int
	Pixels     []uint8 // row-major, one byte per pixel
}

// FrameSource produces a lazy, ordered sequence of frames. Next returns
// io.EOF once the source is exhausted. Close releases the underlying
// capture handle and is safe to call more than once; only the first call
// takes effect.
type FrameSource interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// DirSource reads a stored recording laid out as ordered image files
// (jpeg or png) in a single directory. File name order is capture order.
type DirSource struct {
	dir   string
	files []string
	pos   int

	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
	closeErr  error
}

// NewDirSource opens a frame directory. It fails when the directory does
// not exist or contains no decodable frame files.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("open capture dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("capture dir %s contains no frames", dir)
	}
	sort.Strings(files)

	return &DirSource{dir: dir, files: files}, nil
}

// Next decodes and returns the next frame in order.
func (s *DirSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("frame source is closed")
	}
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}

	path := s.files[s.pos]
	idx := s.pos
	s.pos++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", path, err)
	}

	frame := grayscale(img)
	frame.Index = idx
	frame.CapturedAt = time.Now()
	return frame, nil
}

// Close releases the directory handle. Idempotent.
func (s *DirSource) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
	return s.closeErr
}

// grayscale flattens a decoded image into 8-bit luminance pixels.
func grayscale(img image.Image) *Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]uint8, 0, w*h)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, 16-bit channels scaled down to 8-bit.
			lum := (299*r + 587*g + 114*b) / 1000
			pixels = append(pixels, uint8(lum>>8))
		}
	}
	return &Frame{Width: w, Height: h, Pixels: pixels}
}
