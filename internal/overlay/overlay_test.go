package overlay

import (
	"bytes"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/handvol/internal/detector"
)

func blank(t *testing.T, v float64) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

// bgr reads the pixel at (x, y) as an RGBA color.
func bgr(m gocv.Mat, x, y int) color.RGBA {
	v := m.GetVecbAt(y, x)
	return color.RGBA{R: v[2], G: v[1], B: v[0], A: 255}
}

func TestPinch(t *testing.T) {
	img := blank(t, 0)
	hand := detector.PointLandmarks()

	Pinch(&img, &hand, 100)

	if got := bgr(img, 320, 240); got != Pink {
		t.Errorf("thumb tip = %v, want %v", got, Pink)
	}
	if got := bgr(img, 400, 180); got != Green {
		t.Errorf("index tip = %v, want %v", got, Green)
	}
	if got := bgr(img, 360, 210); got != Accent {
		t.Errorf("line midpoint = %v, want %v", got, Accent)
	}

	Pinch(&img, nil, 0)
}

func TestSkeleton(t *testing.T) {
	img := blank(t, 0)
	hand := detector.SpreadLandmarks()

	Skeleton(&img, &hand)

	wrist := hand.Pixel(detector.Wrist, 640, 480)
	if got := bgr(img, wrist.X, wrist.Y); got != JointDot {
		t.Errorf("wrist joint = %v, want %v", got, JointDot)
	}
	if got := bgr(img, 5, 5); got != (color.RGBA{A: 255}) {
		t.Errorf("corner touched: %v", got)
	}
}

func TestPanel(t *testing.T) {
	img := blank(t, 255)

	Panel(&img, Metrics{Distance: 42, Percent: 12.7, FPS: 29.6, Gesture: "Pinched"})

	// Inside the panel but away from the text.
	if got := bgr(img, 250, 140); got.R > 90 || got.R < 60 {
		t.Errorf("panel pixel = %v, want ~76", got)
	}
	if got := bgr(img, 300, 300); got.R != 255 {
		t.Errorf("outside pixel = %v, want untouched", got)
	}
}

func TestVolumeBar(t *testing.T) {
	tests := []struct {
		name     string
		pct      float64
		wantFill bool
	}{
		{"full", 100, true},
		{"over range clamps", 150, true},
		{"empty", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := blank(t, 0)
			VolumeBar(&img, tt.pct)

			// Top of the bar, right of the percent label.
			got := bgr(img, 640-30, 90)
			want := BarTrack
			if tt.wantFill {
				want = Accent
			}
			if got != want {
				t.Errorf("bar top = %v, want %v", got, want)
			}
			if got := bgr(img, 640-30, 470); tt.pct > 0 && got != Accent {
				t.Errorf("bar bottom = %v, want %v", got, Accent)
			}
		})
	}
}

func TestPlacard(t *testing.T) {
	img := blank(t, 200)

	Placard(&img, "Paused")

	if got := bgr(img, 5, 5); got.R != 100 {
		t.Errorf("dimmed pixel = %v, want 100", got)
	}
}

func TestEncodeJPEG(t *testing.T) {
	img := blank(t, 128)

	data, err := EncodeJPEG(img, StreamQuality)
	if err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("output is not a JPEG")
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := EncodeJPEG(empty, StreamQuality); err == nil {
		t.Error("EncodeJPEG(empty) should fail")
	}
}
