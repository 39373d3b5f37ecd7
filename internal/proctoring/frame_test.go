package proctoring

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// writeFrameDir writes n tiny PNG frames whose top-left pixel encodes
// the frame index, so ordering is observable after decode.
func writeFrameDir(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		img := image.NewGray(image.Rect(0, 0, 4, 4))
		img.SetGray(0, 0, color.Gray{Y: uint8(i * 10)})

		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i)))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	return dir
}

func TestDirSourceReadsFramesInOrder(t *testing.T) {
	source, err := NewDirSource(writeFrameDir(t, 5))
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	defer source.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		frame, err := source.Next(ctx)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if frame.Index != i {
			t.Fatalf("expected index %d, got %d", i, frame.Index)
		}
		if frame.Width != 4 || frame.Height != 4 {
			t.Fatalf("unexpected dimensions %dx%d", frame.Width, frame.Height)
		}
		if frame.Pixels[0] != uint8(i*10) {
			t.Fatalf("frame %d out of order: marker pixel %d", i, frame.Pixels[0])
		}
	}

	if _, err := source.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after last frame, got %v", err)
	}
}

func TestDirSourceEmptyDir(t *testing.T) {
	if _, err := NewDirSource(t.TempDir()); err == nil {
		t.Fatal("expected error for directory without frames")
	}
}

func TestDirSourceMissingDir(t *testing.T) {
	if _, err := NewDirSource(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestDirSourceCloseIdempotent(t *testing.T) {
	source, err := NewDirSource(writeFrameDir(t, 1))
	if err != nil {
		t.Fatal(err)
	}

	if err := source.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := source.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if _, err := source.Next(context.Background()); err == nil {
		t.Fatal("Next after Close must fail")
	}
}

func TestDirSourceRespectsContext(t *testing.T) {
	source, err := NewDirSource(writeFrameDir(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := source.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
